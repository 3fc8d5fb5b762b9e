package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	pollTimeout = 30 * time.Second
	pollBackoff = 5 * time.Second
)

// CommandHandler maps a chat command to its reply. An empty reply sends nothing.
type CommandHandler func(command string) string

type update struct {
	ID      int `json:"update_id"`
	Message *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls getUpdates and answers commands from the
// configured chat until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: pollTimeout + 5*time.Second, Transport: t.Client.Transport}
	next := 0

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, next)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Warn().Err(err).Msg("poll updates")
			sleep(ctx, pollBackoff)
			continue
		}
		for _, u := range updates {
			next = u.ID + 1
			t.dispatch(ctx, u, handler)
		}
	}
	t.log.Info().Msg("polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]update, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("timeout", strconv.Itoa(int(pollTimeout.Seconds())))
	apiURL := fmt.Sprintf("%s/bot%s/getUpdates?%s", t.APIBase, t.BotToken, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getUpdates: status %d", resp.StatusCode)
	}

	var page struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return page.Result, nil
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u update, handler CommandHandler) {
	msg := u.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if chat := strconv.FormatInt(msg.Chat.ID, 10); chat != t.ChatID {
		t.log.Warn().Str("chat_id", chat).Msg("ignoring message from unknown chat")
		return
	}
	command := strings.TrimSpace(msg.Text)
	t.log.Info().Str("command", command).Msg("received command")

	reply := handler(command)
	if reply == "" {
		return
	}
	if err := t.Send(ctx, reply); err != nil {
		t.log.Error().Err(err).Str("command", command).Msg("send reply")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
