package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"solana-whale-watch/internal/classify"
	"solana-whale-watch/internal/observability"
)

// Queue defaults.
const (
	DefaultMinSendDelay  = 1500 * time.Millisecond
	DefaultBatchInterval = 10 * time.Minute
	DefaultCapacity      = 256
)

// QueueConfig tunes alert delivery.
type QueueConfig struct {
	// MinSendDelay is the minimum spacing between consecutive sends.
	MinSendDelay time.Duration
	// Batching switches from per-event alerts to periodic digests.
	Batching bool
	// BatchInterval is the digest period in batching mode.
	BatchInterval time.Duration
	// Capacity bounds the intake buffer; Enqueue drops when it is full.
	Capacity int
}

func (c *QueueConfig) applyDefaults() {
	if c.MinSendDelay <= 0 {
		c.MinSendDelay = DefaultMinSendDelay
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
}

// Queue buffers classified events and delivers them through a Sink from
// a single consumer goroutine. Sends are spaced by MinSendDelay; a
// rate-limited message stays at the head of the queue and is retried
// after the provider's indicated delay, so it is never lost to the
// limiter.
type Queue struct {
	sink   Sink
	cfg    QueueConfig
	in     chan classify.Event
	logger *log.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
	depth   atomic.Int64
}

// NewQueue creates a queue delivering to sink.
func NewQueue(sink Sink, cfg QueueConfig, logger *log.Logger) *Queue {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		sink:   sink,
		cfg:    cfg,
		in:     make(chan classify.Event, cfg.Capacity),
		logger: logger,
	}
}

// Enqueue hands an event to the consumer without blocking. It reports
// false when the buffer is full and the event was dropped. Enqueue must
// not be called after Close.
func (q *Queue) Enqueue(ev classify.Event) bool {
	select {
	case q.in <- ev:
		q.depth.Add(1)
		return true
	default:
		q.dropped.Add(1)
		q.logger.Printf("[notify] queue full, dropping %s event", ev.Kind())
		return false
	}
}

// Close stops intake. Run drains what is already buffered and returns.
func (q *Queue) Close() { close(q.in) }

// Sent returns the number of successfully delivered messages.
func (q *Queue) Sent() uint64 { return q.sent.Load() }

// Dropped returns the number of events discarded by Enqueue or after a
// non-retryable send failure.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Depth returns the number of events waiting for delivery.
func (q *Queue) Depth() int64 { return q.depth.Load() }

// Run consumes the queue until the context is canceled or the queue is
// closed and drained. It is the only goroutine touching the sink.
func (q *Queue) Run(ctx context.Context) error {
	if q.cfg.Batching {
		return q.runBatched(ctx)
	}
	return q.runDirect(ctx)
}

func (q *Queue) runDirect(ctx context.Context) error {
	var pending []classify.Event
	var lastSend time.Time

	for {
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-q.in:
				if !ok {
					return nil
				}
				pending = append(pending, ev)
			}
		}

		if wait := q.cfg.MinSendDelay - time.Since(lastSend); wait > 0 {
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
		}

		err := q.sink.Send(ctx, pending[0].Describe())
		lastSend = time.Now()

		var rl *RateLimitError
		switch {
		case err == nil:
			pending = pending[1:]
			q.sent.Add(1)
			q.depth.Add(-1)
			observability.RecordNotificationSent()
		case errors.As(err, &rl):
			// Head stays queued for retry.
			observability.RecordRateLimitHit()
			q.logger.Printf("[notify] %s rate limited, holding %d message(s) for %s",
				q.sink.Name(), len(pending)+len(q.in), rl.RetryAfter)
			if !sleepCtx(ctx, rl.RetryAfter) {
				return ctx.Err()
			}
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Printf("[notify] %s send failed, dropping message: %v", q.sink.Name(), err)
			pending = pending[1:]
			q.dropped.Add(1)
			q.depth.Add(-1)
			observability.RecordNotificationDropped()
		}

		pending = q.drainInto(pending)
	}
}

func (q *Queue) runBatched(ctx context.Context) error {
	ticker := time.NewTicker(q.cfg.BatchInterval)
	defer ticker.Stop()

	var batch digest
	for {
		select {
		case <-ctx.Done():
			q.flushDigest(context.Background(), &batch)
			return ctx.Err()
		case ev, ok := <-q.in:
			if !ok {
				q.flushDigest(ctx, &batch)
				return nil
			}
			batch.add(ev)
			q.depth.Add(-1)
		case <-ticker.C:
			q.flushDigest(ctx, &batch)
		}
	}
}

// digest accumulates a batch window.
type digest struct {
	count    int
	notional float64
	byKind   map[classify.EventKind]int
}

func (d *digest) add(ev classify.Event) {
	if d.byKind == nil {
		d.byKind = make(map[classify.EventKind]int)
	}
	d.count++
	d.notional += ev.Notional()
	d.byKind[ev.Kind()]++
}

func (d *digest) describe() string {
	text := fmt.Sprintf("Digest: %d event(s), %.2f SOL total notional", d.count, d.notional)
	for _, kind := range []classify.EventKind{
		classify.KindMintCreated,
		classify.KindMigration,
		classify.KindLargeTransfer,
		classify.KindLargeTrade,
		classify.KindOrderWall,
	} {
		if n := d.byKind[kind]; n > 0 {
			text += fmt.Sprintf("\n%s: %d", kind, n)
		}
	}
	return text
}

// flushDigest delivers the accumulated window. A rate-limited digest is
// held and resent after the provider's delay, never dropped; when the
// wait is cut short by ctx the window stays accumulated for the next
// flush.
func (q *Queue) flushDigest(ctx context.Context, d *digest) {
	for d.count > 0 {
		err := q.sink.Send(ctx, d.describe())

		var rl *RateLimitError
		switch {
		case err == nil:
			q.sent.Add(1)
			observability.RecordNotificationSent()
		case errors.As(err, &rl):
			observability.RecordRateLimitHit()
			q.logger.Printf("[notify] %s rate limited, holding digest of %d event(s) for %s",
				q.sink.Name(), d.count, rl.RetryAfter)
			if sleepCtx(ctx, rl.RetryAfter) {
				continue
			}
			return
		default:
			q.logger.Printf("[notify] %s digest send failed: %v", q.sink.Name(), err)
			q.dropped.Add(uint64(d.count))
			observability.RecordNotificationDropped()
		}
		*d = digest{}
	}
}

func (q *Queue) drainInto(pending []classify.Event) []classify.Event {
	for {
		select {
		case ev, ok := <-q.in:
			if !ok {
				return pending
			}
			pending = append(pending, ev)
		default:
			return pending
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
