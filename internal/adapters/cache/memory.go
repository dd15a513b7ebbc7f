package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryBackend implements Backend with a mutex-guarded map. It serves
// tests and single-process development runs where no redis is configured.
// Expiry is checked lazily on read.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption applies a configuration option to the MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock sets the time source, letting tests advance expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get returns the value for key if present and unexpired.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if b.now().After(e.expiresAt) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// SetWithTTL stores value under key with the given expiry.
func (b *MemoryBackend) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{value: value, expiresAt: b.now().Add(ttl)}
	return nil
}

// DeleteByPattern removes every key starting with prefix.
func (b *MemoryBackend) DeleteByPattern(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.entries {
		if strings.HasPrefix(k, prefix) {
			delete(b.entries, k)
		}
	}
	return nil
}

// Keys lists unexpired keys starting with prefix.
func (b *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	now := b.now()
	for k, e := range b.entries {
		if strings.HasPrefix(k, prefix) && now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping always succeeds for the in-memory backend.
func (b *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
