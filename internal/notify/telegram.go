package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no retry_after.
const defaultRetryAfter = 5 * time.Second

// TelegramSink delivers alerts via the Telegram Bot API.
type TelegramSink struct {
	token  string
	chatID string
	client *http.Client
	apiURL string
}

// NewTelegramSink creates a TelegramSink for the given bot token and
// chat ID. It uses a default HTTP client with a 10-second timeout.
func NewTelegramSink(token, chatID string) *TelegramSink {
	return &TelegramSink{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: "https://api.telegram.org",
	}
}

// Send posts a message to the configured chat using the sendMessage API.
// A 429 response is surfaced as a RateLimitError carrying the server's
// retry_after so the queue can hold the message instead of dropping it.
func (t *TelegramSink) Send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)

	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sink identifier.
func (t *TelegramSink) Name() string { return "telegram" }

func parseRetryAfter(body io.Reader) time.Duration {
	var apiErr struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1024)).Decode(&apiErr); err != nil {
		return defaultRetryAfter
	}
	if apiErr.Parameters.RetryAfter <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(apiErr.Parameters.RetryAfter) * time.Second
}
