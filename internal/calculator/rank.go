package calculator

import "sort"

// PercentRank returns the fractional percentile rank of each value on a
// 0-100 scale. Ties share the average of the ranks they span, so the
// largest value always maps to 100 and the result lies in (0, 100].
func PercentRank(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[idx[end]] == values[idx[start]] {
			end++
		}
		// 1-based ranks start+1..end share their mean.
		avg := float64(start+1+end) / 2
		pct := avg / float64(n) * 100
		for k := start; k < end; k++ {
			ranks[idx[k]] = pct
		}
		start = end
	}
	return ranks
}
