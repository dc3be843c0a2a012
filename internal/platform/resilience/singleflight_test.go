package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentCalls(t *testing.T) {
	var g SingleFlight
	var executions atomic.Int32

	const callers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := g.Do("bootstrap", func() (any, error) {
				executions.Add(1)
				time.Sleep(15 * time.Millisecond)
				return "static", nil
			})
			if err != nil {
				t.Errorf("flight call failed: %v", err)
			}
			if val != "static" {
				t.Errorf("unexpected flight value: %v", val)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Fatalf("expected one execution, got %d", got)
	}
}

func TestSingleFlight_KeysAreIndependent(t *testing.T) {
	var g SingleFlight
	var executions atomic.Int32

	for _, key := range []string{"picks:1", "picks:2"} {
		if _, err, shared := g.Do(key, func() (any, error) {
			executions.Add(1)
			return key, nil
		}); err != nil || shared {
			t.Fatalf("unexpected result for %s: err=%v shared=%v", key, err, shared)
		}
	}

	if got := executions.Load(); got != 2 {
		t.Fatalf("expected independent executions per key, got %d", got)
	}
}
