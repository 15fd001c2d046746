// Package storage defines the persistence interfaces for whale profiles
// and the event archive, with in-memory, PostgreSQL and ClickHouse
// implementations in subpackages.
package storage

import (
	"context"
	"time"

	"solana-whale-watch/internal/classify"
	"solana-whale-watch/internal/stats"
)

// WhaleProfileStore persists per-wallet activity profiles.
type WhaleProfileStore interface {
	// Upsert writes a profile, replacing any existing row for the same
	// address. Monotonic fields (volume, count, last seen) never move
	// backwards across upserts.
	Upsert(ctx context.Context, p *stats.WhaleProfile) error

	// GetByAddress retrieves one profile. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*stats.WhaleProfile, error)

	// Top retrieves up to limit profiles ordered by total volume DESC.
	Top(ctx context.Context, limit int) ([]*stats.WhaleProfile, error)
}

// ArchivedEvent is the flat archive row for one classified event.
type ArchivedEvent struct {
	Kind      string
	Address   string
	Mint      string
	Notional  float64
	Signature string
	Slot      int64
	Details   string
	Timestamp time.Time
}

// EventArchive persists classified events for offline analysis.
type EventArchive interface {
	// InsertBatch appends a batch of events.
	InsertBatch(ctx context.Context, events []*ArchivedEvent) error
}

// ArchiveEvent flattens a classified event into an archive row.
func ArchiveEvent(ev classify.Event, observed time.Time) *ArchivedEvent {
	row := &ArchivedEvent{
		Kind:      string(ev.Kind()),
		Notional:  ev.Notional(),
		Details:   ev.Describe(),
		Timestamp: observed,
	}

	switch e := ev.(type) {
	case *classify.MintCreated:
		row.Address = e.Creator
		row.Mint = e.Mint
		row.Signature = e.Signature
		row.Slot = e.Slot
	case *classify.Migration:
		row.Mint = e.Mint
		row.Signature = e.Signature
		row.Slot = e.Slot
	case *classify.LargeTransfer:
		row.Address = e.Authority
		row.Mint = e.Mint
		row.Signature = e.Signature
		row.Slot = e.Slot
	case *classify.LargeTrade:
		row.Address = e.Trader
		row.Mint = e.Mint
		row.Signature = e.Signature
		row.Slot = e.Slot
	case *classify.OrderWall:
		row.Address = e.Market
	}
	return row
}
