// Package cache provides the read-through leaderboard cache and its backends.
package cache

import (
	"context"
	"time"
)

// Backend is the key-value store behind the leaderboard cache. It must
// tolerate being entirely absent: every error from a Backend is absorbed by
// the read-through layer and never surfaced to callers.
type Backend interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetWithTTL stores value under key with the given expiry.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// DeleteByPattern removes every key starting with prefix.
	DeleteByPattern(ctx context.Context, prefix string) error

	// Keys lists keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
