package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
)

var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// sweepThreshold is how many writes may accumulate before Set walks the map
// and drops expired entries. Lookups never pay for the sweep.
const sweepThreshold = 256

type memoryEntry[T any] struct {
	value   T
	expires time.Time
}

// MemoryCache is a process-local Cache for single-instance deployments.
// Expired entries are invisible to Get immediately and reclaimed in batches
// during writes, so an idle key cannot pin memory forever.
type MemoryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
	writes  int
}

func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{entries: make(map[string]memoryEntry[T])}
}

func (m *MemoryCache[T]) Get(_ context.Context, key string) (T, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		var zero T
		return zero, ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryCache[T]) Set(_ context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry[T]{value: value, expires: time.Now().Add(ttl)}

	m.writes++
	if m.writes >= sweepThreshold {
		m.sweepLocked()
		m.writes = 0
	}
	return nil
}

// sweepLocked drops every expired entry. Caller holds the write lock.
func (m *MemoryCache[T]) sweepLocked() {
	now := time.Now()
	for key, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryCache[T]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}
	value, err := fetch(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	_ = m.Set(ctx, key, value, ttl)
	return value, nil
}

func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry[T])
	m.mu.Unlock()
	return nil
}
