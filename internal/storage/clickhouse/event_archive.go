package clickhouse

import (
	"context"
	"fmt"

	"solana-whale-watch/internal/storage"
)

// EventArchive implements storage.EventArchive using ClickHouse.
// whale_events is an append-only MergeTree; duplicate rows from
// reconnect replays are tolerated and collapsed at query time.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBatch appends a batch of events.
func (s *EventArchive) InsertBatch(ctx context.Context, events []*storage.ArchivedEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO whale_events (
			kind, address, mint, notional, tx_signature, slot, details, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if e == nil || e.Kind == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			e.Kind, e.Address, e.Mint, e.Notional,
			e.Signature, uint64(e.Slot), e.Details, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}
