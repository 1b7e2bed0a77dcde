// Package store persists recognized formulas with usage counters.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a formula has never been stored.
var ErrNotFound = errors.New("formula not found")

// Record is a stored formula. Type is fixed at first insert; Uses counts how
// often the formula has been recognized since.
type Record struct {
	Formula   string
	Type      string
	Uses      int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Store is the formula persistence interface. Upsert inserts a new formula
// with Uses=1 or increments the counter of an existing one, returning the
// stored record either way.
type Store interface {
	Upsert(ctx context.Context, formula, problemType string) (*Record, error)
	Get(ctx context.Context, formula string) (*Record, error)
	Top(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
