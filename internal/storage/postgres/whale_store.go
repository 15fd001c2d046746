package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-whale-watch/internal/stats"
	"solana-whale-watch/internal/storage"
)

// WhaleProfileStore implements storage.WhaleProfileStore using PostgreSQL.
type WhaleProfileStore struct {
	pool *Pool
}

// NewWhaleProfileStore creates a new WhaleProfileStore.
func NewWhaleProfileStore(pool *Pool) *WhaleProfileStore {
	return &WhaleProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WhaleProfileStore = (*WhaleProfileStore)(nil)

// Upsert writes a profile. GREATEST/LEAST on the conflict branch keep
// the monotonic fields from regressing when a stale snapshot lands
// after a fresher one.
func (s *WhaleProfileStore) Upsert(ctx context.Context, p *stats.WhaleProfile) error {
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO whale_profiles (
			address, total_volume, event_count, first_seen, last_seen, mints
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			total_volume = GREATEST(whale_profiles.total_volume, EXCLUDED.total_volume),
			event_count  = GREATEST(whale_profiles.event_count, EXCLUDED.event_count),
			first_seen   = LEAST(whale_profiles.first_seen, EXCLUDED.first_seen),
			last_seen    = GREATEST(whale_profiles.last_seen, EXCLUDED.last_seen),
			mints        = EXCLUDED.mints
	`

	_, err := s.pool.Exec(ctx, query,
		p.Address,
		p.TotalVolume,
		p.EventCount,
		p.FirstSeen,
		p.LastSeen,
		p.Mints,
	)
	if err != nil {
		return fmt.Errorf("upsert whale profile: %w", err)
	}
	return nil
}

// GetByAddress retrieves one profile. Returns ErrNotFound if not exists.
func (s *WhaleProfileStore) GetByAddress(ctx context.Context, address string) (*stats.WhaleProfile, error) {
	query := `
		SELECT address, total_volume, event_count, first_seen, last_seen, mints
		FROM whale_profiles
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	p, err := scanProfile(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get whale profile: %w", err)
	}
	return p, nil
}

// Top retrieves up to limit profiles ordered by total volume DESC.
func (s *WhaleProfileStore) Top(ctx context.Context, limit int) ([]*stats.WhaleProfile, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT address, total_volume, event_count, first_seen, last_seen, mints
		FROM whale_profiles
		ORDER BY total_volume DESC, address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get top whale profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*stats.WhaleProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whale profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale profile rows: %w", err)
	}
	return profiles, nil
}

// scanProfile scans a single row into a WhaleProfile.
func scanProfile(row pgx.Row) (*stats.WhaleProfile, error) {
	var p stats.WhaleProfile
	err := row.Scan(
		&p.Address,
		&p.TotalVolume,
		&p.EventCount,
		&p.FirstSeen,
		&p.LastSeen,
		&p.Mints,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
