// Package watcher wires the stream feeds, classifier, stats and
// notification queue into one event loop.
package watcher

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-whale-watch/internal/classify"
	"solana-whale-watch/internal/notify"
	"solana-whale-watch/internal/observability"
	"solana-whale-watch/internal/solana"
	"solana-whale-watch/internal/stats"
	"solana-whale-watch/internal/storage"
	"solana-whale-watch/internal/txview"
)

// Options contains configuration for creating a Runner.
type Options struct {
	// TxMessages is the transaction feed. Required.
	TxMessages <-chan solana.StreamMessage
	// LogMessages is the logs feed used for migration detection. Optional.
	LogMessages <-chan solana.StreamMessage
	// BookMessages is the raw order-book feed. Optional.
	BookMessages <-chan solana.StreamMessage

	// RPC fetches transaction detail for migration candidates. Required
	// when LogMessages is set.
	RPC solana.RPCClient

	Classifier   *classify.Classifier
	Migrations   *classify.MigrationDetector
	WallDetector *classify.OrderWallDetector
	Aggregator   *stats.Aggregator
	Queue        *notify.Queue

	ProfileStore storage.WhaleProfileStore
	Archive      storage.EventArchive // optional

	// FlushInterval is the period for persisting profiles and archive
	// batches. Default: 1 minute.
	FlushInterval time.Duration
	Logger        *log.Logger
}

// Runner consumes the merged feeds sequentially. Stream messages,
// classification and stats all run on one goroutine; only migration
// detail fetches leave it, and their results come back through a
// channel, so no state in the loop needs locking.
type Runner struct {
	opts   Options
	logger *log.Logger

	fetched      chan *txview.TransactionView
	archiveBatch []*storage.ArchivedEvent
	highestSlot  int64
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		opts:    opts,
		logger:  logger,
		fetched: make(chan *txview.TransactionView, 16),
	}
}

// Run processes feed messages until the context is canceled or the
// transaction feed closes. Remaining state is flushed before returning.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("[watcher] runner started")

	flushTicker := time.NewTicker(r.opts.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.finalFlush()
			r.logger.Println("[watcher] runner stopping")
			return ctx.Err()

		case msg, ok := <-r.opts.TxMessages:
			if !ok {
				r.finalFlush()
				return errors.New("transaction stream closed")
			}
			observability.RecordMessage("transactions")
			r.handleTransaction(ctx, msg)

		case msg, ok := <-r.opts.LogMessages:
			if !ok {
				r.opts.LogMessages = nil
				r.logger.Println("[watcher] logs stream closed")
				continue
			}
			observability.RecordMessage("logs")
			r.handleLogs(ctx, msg)

		case msg, ok := <-r.opts.BookMessages:
			if !ok {
				r.opts.BookMessages = nil
				r.logger.Println("[watcher] book stream closed")
				continue
			}
			observability.RecordMessage("book")
			r.handleBook(msg)

		case v := <-r.fetched:
			r.handleFetched(v)

		case <-flushTicker.C:
			r.flush(ctx)
		}
	}
}

// handleTransaction classifies a full transaction frame. The frame's
// logs also feed migration detection so a separate logs feed is not
// required when the provider includes meta in-stream.
func (r *Runner) handleTransaction(ctx context.Context, msg solana.StreamMessage) {
	r.trackSlot(msg.Slot)

	if msg.Err == nil && r.opts.Migrations != nil && r.opts.Migrations.Detect(msg.Signature, msg.Logs) {
		r.fetchMigration(ctx, msg.Signature)
	}

	if msg.Transaction == nil {
		return
	}
	v, err := txview.Build(msg.Transaction)
	if err != nil {
		observability.RecordClassificationError()
		r.logger.Printf("[watcher] skip transaction: sig=%s slot=%d err=%v", msg.Signature, msg.Slot, err)
		return
	}
	for _, ev := range r.opts.Classifier.ClassifyTransaction(v) {
		r.emit(ev)
	}
}

// handleLogs feeds migration detection from a logsSubscribe frame.
// Failed transactions are skipped outright.
func (r *Runner) handleLogs(ctx context.Context, msg solana.StreamMessage) {
	r.trackSlot(msg.Slot)

	if msg.Err != nil || r.opts.Migrations == nil {
		return
	}
	if r.opts.Migrations.Detect(msg.Signature, msg.Logs) {
		r.fetchMigration(ctx, msg.Signature)
	}
}

// fetchMigration resolves a migration candidate out of band. The fetch
// leaves the loop goroutine; the built view comes back via r.fetched.
func (r *Runner) fetchMigration(ctx context.Context, signature string) {
	if r.opts.RPC == nil {
		return
	}
	go func() {
		start := time.Now()
		tx, err := r.opts.RPC.GetTransaction(ctx, signature)
		observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
		if err != nil {
			r.logger.Printf("[watcher] migration fetch failed: sig=%s err=%v", signature, err)
			return
		}
		if tx == nil {
			r.logger.Printf("[watcher] migration fetch: transaction not found: sig=%s", signature)
			return
		}
		v, err := txview.Build(tx)
		if err != nil {
			r.logger.Printf("[watcher] migration fetch: bad transaction: sig=%s err=%v", signature, err)
			return
		}
		select {
		case r.fetched <- v:
		case <-ctx.Done():
		}
	}()
}

// handleFetched turns a fetched migration transaction into an event.
func (r *Runner) handleFetched(v *txview.TransactionView) {
	if v == nil || !v.Success {
		return
	}
	r.trackSlot(v.Slot)
	r.emit(classify.MigrationFromView(v))
}

// handleBook runs wall detection over a raw order-book frame.
func (r *Runner) handleBook(msg solana.StreamMessage) {
	if r.opts.WallDetector == nil || len(msg.Raw) == 0 {
		return
	}
	market, bids, asks, ts, err := classify.ParseBookMessage(msg.Raw)
	if err != nil {
		observability.RecordClassificationError()
		r.logger.Printf("[watcher] skip book frame: %v", err)
		return
	}
	for _, ev := range r.opts.WallDetector.Detect(market, bids, asks, ts) {
		r.emit(ev)
	}
}

// emit fans a classified event out to notifications, stats and the
// archive batch.
func (r *Runner) emit(ev classify.Event) {
	observability.RecordEvent(string(ev.Kind()))

	if r.opts.Queue != nil {
		if r.opts.Queue.Enqueue(ev) {
			observability.UpdateQueueDepth(r.opts.Queue.Depth())
		} else {
			observability.RecordNotificationDropped()
		}
	}
	if r.opts.Aggregator != nil {
		r.opts.Aggregator.Record(ev)
	}
	if r.opts.Archive != nil {
		r.archiveBatch = append(r.archiveBatch, storage.ArchiveEvent(ev, time.Now()))
	}
}

func (r *Runner) trackSlot(slot int64) {
	if slot > r.highestSlot {
		r.highestSlot = slot
		observability.UpdateHighestSlot(slot)
	}
}

// flush persists whale profiles and the pending archive batch.
func (r *Runner) flush(ctx context.Context) {
	if r.opts.Aggregator != nil && r.opts.ProfileStore != nil {
		snapshot := r.opts.Aggregator.Snapshot()
		observability.UpdateWhaleProfiles(len(snapshot))
		if len(snapshot) > 0 {
			r.logger.Printf("[watcher] flushing %d whale profile(s), top=%s volume=%.2f",
				len(snapshot), snapshot[0].Address, snapshot[0].TotalVolume)
		}
		for i := range snapshot {
			if err := r.opts.ProfileStore.Upsert(ctx, &snapshot[i]); err != nil {
				observability.RecordDBError("postgres", "upsert_whale_profile")
				r.logger.Printf("[watcher] profile upsert failed: address=%s err=%v", snapshot[i].Address, err)
			}
		}
	}

	if r.opts.Archive != nil && len(r.archiveBatch) > 0 {
		if err := r.opts.Archive.InsertBatch(ctx, r.archiveBatch); err != nil {
			observability.RecordDBError("clickhouse", "insert_events")
			r.logger.Printf("[watcher] archive insert failed: batch=%d err=%v", len(r.archiveBatch), err)
		}
		// The batch is dropped either way; a failed archive write must
		// not grow memory without bound.
		r.archiveBatch = nil
	}
}

// finalFlush flushes with a fresh context so shutdown still persists.
func (r *Runner) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.flush(ctx)
}
