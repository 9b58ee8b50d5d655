package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// circuitState is the three-state circuit breaker machine (grounded on
// internal/application/executor/circuit_breaker.go).
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreakerConfig tunes the breaker guarding formula and custom node
// evaluation (spec §4.9 resilience note).
type circuitBreakerConfig struct {
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		failureThreshold: 5,
		successThreshold: 2,
		openTimeout:      30 * time.Second,
	}
}

// circuitBreakerOpenError is returned when a call is rejected without
// running because the breaker is open.
type circuitBreakerOpenError struct {
	openedAt time.Time
	timeout  time.Duration
}

func (e *circuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit open since %s, retry after %s", e.openedAt.Format(time.RFC3339), e.timeout)
}

// circuitBreaker protects a single evaluator key (a formula node id or a
// custom_type) from repeatedly retrying a consistently failing evaluation.
// Breakers belong to the Scheduler, so their state carries over from one
// execution run to the next.
type circuitBreaker struct {
	mu     sync.Mutex
	config circuitBreakerConfig
	state  circuitState

	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
}

func newCircuitBreaker(config circuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{config: config, state: circuitClosed}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (cb *circuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *circuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitOpen:
		if time.Since(cb.openedAt) >= cb.config.openTimeout {
			cb.state = circuitHalfOpen
			return nil
		}
		return &circuitBreakerOpenError{openedAt: cb.openedAt, timeout: cb.config.openTimeout}
	default:
		return nil
	}
}

func (cb *circuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.consecutiveFailures++
		cb.consecutiveSuccesses = 0
		if cb.state == circuitHalfOpen || cb.consecutiveFailures >= cb.config.failureThreshold {
			cb.state = circuitOpen
			cb.openedAt = time.Now()
		}
		return
	}

	cb.consecutiveSuccesses++
	cb.consecutiveFailures = 0
	if cb.state == circuitHalfOpen && cb.consecutiveSuccesses >= cb.config.successThreshold {
		cb.state = circuitClosed
	}
}

// breakerRegistry hands out a per-key circuit breaker, lazily created.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker
	config   circuitBreakerConfig
}

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{
		breakers: make(map[string]*circuitBreaker),
		config:   defaultCircuitBreakerConfig(),
	}
}

func (r *breakerRegistry) get(key string) *circuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[key]
	if !ok {
		cb = newCircuitBreaker(r.config)
		r.breakers[key] = cb
	}
	return cb
}
