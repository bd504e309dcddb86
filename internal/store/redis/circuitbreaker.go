package redis

import (
	"errors"
	"log"
	"sync"
	"time"

	"crypto-analyst/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // Redis calls pass through
	StateOpen     State = 1 // Redis calls fail fast with ErrCircuitOpen
	StateHalfOpen State = 2 // one probe call is let through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("redis circuit breaker is open")

// CircuitBreaker stops the service from waiting on a dead Redis.
// After maxFailures consecutive failures it opens and rejects calls for
// resetTimeout; then one probe decides between closed and open again.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
	now          func() time.Time

	// Optional
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Instrument exports state changes to the breaker gauge and trip counter,
// keeping any callback already installed.
func (cb *CircuitBreaker) Instrument(m *metrics.Metrics) {
	if m == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	prev := cb.OnStateChange
	m.RedisCircuitBreakerState.Set(float64(cb.state))
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		m.RedisCircuitBreakerState.Set(float64(to))
		if to == StateOpen {
			m.RedisCircuitBreakerTrips.Inc()
		}
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			if cb.state != StateOpen {
				cb.transition(StateOpen)
			}
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
	cb.failures = 0
	return nil
}

// CurrentState returns the current circuit breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
