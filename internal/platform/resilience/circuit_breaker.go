package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards an upstream dependency: consecutive failures open
// the circuit, a cooldown later a limited number of probes may pass, and
// enough probe successes close it again.
type CircuitBreaker struct {
	mu sync.Mutex

	failureLimit int
	cooldown     time.Duration
	probeLimit   int

	state          CircuitState
	failureStreak  int
	openedAt       time.Time
	probesInFlight int
	probeSuccesses int
	now            func() time.Time
}

func NewCircuitBreaker(failureLimit int, cooldown time.Duration, probeLimit int) *CircuitBreaker {
	if failureLimit < 1 {
		failureLimit = 1
	}
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}
	if probeLimit < 1 {
		probeLimit = 1
	}

	return &CircuitBreaker{
		failureLimit: failureLimit,
		cooldown:     cooldown,
		probeLimit:   probeLimit,
		state:        CircuitStateClosed,
		now:          time.Now,
	}
}

// Allow reports whether a call may proceed, reserving a probe slot when the
// breaker is half open.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == CircuitStateOpen {
		if now.Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.enterHalfOpen()
	}

	if b.state == CircuitStateHalfOpen {
		if b.probesInFlight >= b.probeLimit {
			return ErrCircuitOpen
		}
		b.probesInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureStreak = 0
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.probeLimit && b.probesInFlight == 0 {
			b.enterClosed()
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureStreak++
		if b.failureStreak >= b.failureLimit {
			b.enterOpen()
		}
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.enterOpen()
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return CircuitStateHalfOpen
	}

	return b.state
}

func (b *CircuitBreaker) enterClosed() {
	b.state = CircuitStateClosed
	b.failureStreak = 0
	b.probesInFlight = 0
	b.probeSuccesses = 0
	b.openedAt = time.Time{}
}

func (b *CircuitBreaker) enterOpen() {
	b.state = CircuitStateOpen
	b.openedAt = b.now()
	b.probesInFlight = 0
	b.probeSuccesses = 0
}

func (b *CircuitBreaker) enterHalfOpen() {
	b.state = CircuitStateHalfOpen
	b.probesInFlight = 0
	b.probeSuccesses = 0
}
