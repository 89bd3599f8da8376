// Package cache provides the byte-oriented key/value stores backing the feed
// page cache. Stores are dumb: keys in, bytes out, TTL expiry. Anything
// smarter (key schemes, serialization, degradation policy) lives in the feed
// package.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is the minimal contract shared by all backends. Implementations must
// be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// PrefixForgetter is implemented by stores whose keys are enumerable. Plain
// remote stores (e.g. Redis without tags) do not implement it; bulk
// invalidation is best-effort and callers must handle its absence.
type PrefixForgetter interface {
	ForgetPrefix(ctx context.Context, prefix string) error
}
