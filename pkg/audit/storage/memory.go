package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// MemoryStorage implements audit.Storage with an in-memory slice. It is
// intended for tests and single-process development setups.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append persists an entry.
func (s *MemoryStorage) Append(ctx context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later caller mutation cannot reach the stored record.
	entryCopy := *entry
	s.entries = append(s.entries, &entryCopy)
	return nil
}

// Query returns entries matching the filter, oldest first.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*audit.Entry
	for _, e := range s.entries {
		if query.Matches(e) {
			entryCopy := *e
			results = append(results, &entryCopy)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})

	start := query.Offset
	if start > len(results) {
		return []*audit.Entry{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the total number of entries.
func (s *MemoryStorage) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// PruneBefore removes entries older than the cutoff and returns how many
// were removed.
func (s *MemoryStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var pruned int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return pruned, nil
}

// Close releases resources (none for memory storage).
func (s *MemoryStorage) Close() error {
	return nil
}
