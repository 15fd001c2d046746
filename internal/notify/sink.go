// Package notify delivers classified events to operators. A single
// consumer drains an in-memory queue and pushes alert text to a Sink
// (Telegram, console), pacing sends and honoring provider rate limits.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sink is one delivery channel for alert text.
type Sink interface {
	// Send delivers one message. A RateLimitError return means the
	// message was not delivered and may be retried after the indicated
	// delay.
	Send(ctx context.Context, text string) error
	// Name returns the sink identifier for logs.
	Name() string
}

// RateLimitError reports a provider-imposed backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ConsoleSink writes alerts to a logger. It is the default sink when no
// Telegram credentials are configured.
type ConsoleSink struct {
	logger *log.Logger
}

// NewConsoleSink creates a console sink.
func NewConsoleSink(logger *log.Logger) *ConsoleSink {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsoleSink{logger: logger}
}

func (s *ConsoleSink) Send(_ context.Context, text string) error {
	s.logger.Printf("[alert] %s", text)
	return nil
}

func (s *ConsoleSink) Name() string { return "console" }
