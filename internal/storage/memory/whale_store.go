// Package memory provides in-memory store implementations used for
// tests and for running without external databases.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-whale-watch/internal/stats"
	"solana-whale-watch/internal/storage"
)

// WhaleProfileStore is an in-memory implementation of storage.WhaleProfileStore.
type WhaleProfileStore struct {
	mu   sync.RWMutex
	data map[string]*stats.WhaleProfile // keyed by address
}

// NewWhaleProfileStore creates a new in-memory whale profile store.
func NewWhaleProfileStore() *WhaleProfileStore {
	return &WhaleProfileStore{
		data: make(map[string]*stats.WhaleProfile),
	}
}

// Upsert writes a profile, replacing any existing row for the same address.
func (s *WhaleProfileStore) Upsert(_ context.Context, p *stats.WhaleProfile) error {
	if p == nil || p.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	cp := *p
	cp.Mints = append([]string(nil), p.Mints...)

	if prev, exists := s.data[p.Address]; exists {
		// Monotonic fields never move backwards.
		if prev.TotalVolume > cp.TotalVolume {
			cp.TotalVolume = prev.TotalVolume
		}
		if prev.EventCount > cp.EventCount {
			cp.EventCount = prev.EventCount
		}
		if prev.LastSeen.After(cp.LastSeen) {
			cp.LastSeen = prev.LastSeen
		}
		if !prev.FirstSeen.IsZero() && prev.FirstSeen.Before(cp.FirstSeen) {
			cp.FirstSeen = prev.FirstSeen
		}
	}

	s.data[p.Address] = &cp
	return nil
}

// GetByAddress retrieves one profile. Returns ErrNotFound if not exists.
func (s *WhaleProfileStore) GetByAddress(_ context.Context, address string) (*stats.WhaleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *p
	cp.Mints = append([]string(nil), p.Mints...)
	return &cp, nil
}

// Top retrieves up to limit profiles ordered by total volume DESC.
func (s *WhaleProfileStore) Top(_ context.Context, limit int) ([]*stats.WhaleProfile, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*stats.WhaleProfile, 0, len(s.data))
	for _, p := range s.data {
		cp := *p
		cp.Mints = append([]string(nil), p.Mints...)
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalVolume != result[j].TotalVolume {
			return result[i].TotalVolume > result[j].TotalVolume
		}
		return result[i].Address < result[j].Address
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.WhaleProfileStore = (*WhaleProfileStore)(nil)
