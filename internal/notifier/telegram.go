package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	telegramAPI = "https://api.telegram.org"
	// maxMessageLen is Telegram's per-message text limit in bytes.
	maxMessageLen = 4096
	retryBase     = time.Second
)

// Notifier delivers report text to a chat.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier posts HTML messages to one chat through the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	// APIBase defaults to the public Bot API endpoint.
	APIBase  string
	Client   *http.Client
	log      zerolog.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewTelegramNotifier builds a notifier; proxyURL may be empty.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log zerolog.Logger) *TelegramNotifier {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if u, err := url.Parse(proxyURL); proxyURL != "" && err == nil {
		tr.Proxy = http.ProxyURL(u)
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		APIBase:  telegramAPI,
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: tr},
		log:      log.With().Str("component", "telegram").Logger(),
	}
}

// Send delivers text, split on line boundaries when it exceeds the message limit.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := t.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: t.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// SendWithRetry retries Send with exponential backoff (1s, 2s, 4s, ...).
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = t.Send(ctx, text); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		wait := retryBase << attempt
		t.log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", wait).Msg("send failed, retrying")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("send failed after %d attempts: %w", maxRetries+1, err)
}

// splitMessage cuts text into pieces of at most limit bytes, preferring
// newline boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if b.Len() > 0 {
				chunks = append(chunks, b.String())
				b.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if b.Len()+len(line) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
