package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/fpl-assistant/internal/platform/resilience"
)

type item struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process TTL cache. A ttl of zero keeps entries for the
// process lifetime. Loads through GetOrLoad are deduplicated, so concurrent
// misses on one key trigger a single loader call.
type Store struct {
	mu     sync.RWMutex
	items  map[string]item
	ttl    time.Duration
	flight resilience.SingleFlight
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]item),
		ttl:   ttl,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	now := time.Now()
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && !it.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, false
	}

	return it.value, true
}

// Set stores value under key. The whole value is replaced in one step, so
// readers never observe a partial update.
func (s *Store) Set(_ context.Context, key string, value any) {
	if key == "" {
		return
	}

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[key] = item{value: value, expiresAt: expiresAt}
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key, calling loader on a miss and
// caching its result. An empty key bypasses the cache entirely.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		// A concurrent loader may have filled the entry while this call
		// waited on the flight group.
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}
