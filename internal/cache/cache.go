// Package cache provides best-effort response caching for the processing
// endpoints, keyed by a digest of the request body.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores serialized responses for a bounded time. Implementations are
// best-effort: a cache failure must never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

// Key derives the cache key for a request body.
func Key(body []byte) string {
	sum := sha256.Sum256(body)
	return "testflow:result:" + hex.EncodeToString(sum[:])
}

// Noop is the cache used when no backend is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Close() error                                       { return nil }
