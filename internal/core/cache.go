package core

import (
	"context"
	"time"
)

// Cache stores short-lived lookup results keyed by string. The portal keeps
// two of these: resolved guild memberships and the staff role allow-list.
// Implementations must treat an expired entry exactly like an absent one.
type Cache[T any] interface {
	// Get returns the cached value, or ErrCacheMiss when the key is absent
	// or past its TTL.
	Get(ctx context.Context, key string) (T, error)

	// Set stores value under key for ttl, replacing any previous entry.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete drops the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// GetWithFetch is cache-aside Get: on a miss, fetch is invoked and a
	// successful result is stored for ttl. Fetch errors are returned to the
	// caller and never cached.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetch func(ctx context.Context, key string) (T, error),
	) (T, error)

	// Close releases any backing connection.
	Close() error
}
