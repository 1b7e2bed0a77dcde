package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured and
// in tests. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Upsert inserts or increments the formula's use counter.
func (s *MemoryStore) Upsert(_ context.Context, formula, problemType string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if rec, ok := s.records[formula]; ok {
		rec.Uses++
		rec.LastSeen = now
		cp := *rec
		return &cp, nil
	}
	rec := &Record{
		Formula:   formula,
		Type:      problemType,
		Uses:      1,
		FirstSeen: now,
		LastSeen:  now,
	}
	s.records[formula] = rec
	cp := *rec
	return &cp, nil
}

// Get returns the record for a formula, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, formula string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[formula]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// Top returns the most used formulas, ties broken by formula text.
func (s *MemoryStore) Top(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].Formula < out[j].Formula
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
