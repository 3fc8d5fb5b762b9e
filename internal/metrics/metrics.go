package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TrendScreener/internal/model"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_runs_total", Help: "Screening runs by outcome"},
		[]string{"outcome"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_fetch_errors_total", Help: "Per-symbol fetch failures"},
		[]string{"source"},
	)
	ExcludedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_excluded_total", Help: "Instruments excluded from ranking"},
		[]string{"reason"},
	)
	EligibleInstruments = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "screener_eligible_instruments", Help: "Instruments ranked in the last run"},
	)
	PassedInstruments = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "screener_passed_instruments", Help: "Instruments passing the report filter in the last run"},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of collect plus screen",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, FetchErrorsTotal, ExcludedTotal, EligibleInstruments, PassedInstruments, RunDuration)
}

// ObserveRun records the outcome of one completed screening run.
func ObserveRun(summary model.RunSummary, passed int, elapsed time.Duration) {
	RunsTotal.WithLabelValues("ok").Inc()
	for reason, n := range summary.Excluded {
		ExcludedTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	EligibleInstruments.Set(float64(summary.Eligible))
	PassedInstruments.Set(float64(passed))
	RunDuration.Observe(elapsed.Seconds())
}

// ObserveFailure counts a run that did not produce a result.
func ObserveFailure() {
	RunsTotal.WithLabelValues("error").Inc()
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
