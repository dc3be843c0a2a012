package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_LoadsOnceAcrossCallers(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32

	loader := func(context.Context) (any, error) {
		loads.Add(1)
		time.Sleep(15 * time.Millisecond)
		return "static", nil
	}

	const callers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(callers)
	errCh := make(chan error, callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "bootstrap", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "static" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := loads.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ReturnsCachedValue(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32

	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return "cached", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := loads.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var loads atomic.Int32
	upstream := errors.New("upstream down")

	_, err := store.GetOrLoad(context.Background(), "bootstrap", func(context.Context) (any, error) {
		loads.Add(1)
		return nil, upstream
	})
	if !errors.Is(err, upstream) {
		t.Fatalf("expected load error, got %v", err)
	}

	v, err := store.GetOrLoad(context.Background(), "bootstrap", func(context.Context) (any, error) {
		loads.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("retry load error: %v", err)
	}
	if got, _ := v.(string); got != "ok" {
		t.Fatalf("unexpected value after retry: %v", v)
	}
	if got := loads.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_ExpiredEntryIsEvicted(t *testing.T) {
	t.Parallel()

	store := NewStore(10 * time.Millisecond)
	store.Set(context.Background(), "snapshot:123456:10", "stale")
	time.Sleep(25 * time.Millisecond)

	if _, ok := store.Get(context.Background(), "snapshot:123456:10"); ok {
		t.Fatal("expected expired entry to be evicted")
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
