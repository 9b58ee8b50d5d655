package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterFailureThreshold(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{failureThreshold: 2, successThreshold: 1, openTimeout: time.Hour})

	assert.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	assert.Equal(t, circuitClosed, cb.state, "one failure below threshold keeps the breaker closed")

	err := cb.Execute(func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, circuitOpen, cb.state)
}

func TestCircuitBreakerRejectsWhileOpen(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{failureThreshold: 1, successThreshold: 1, openTimeout: time.Hour})
	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called, "an open breaker must reject without invoking fn")
	var openErr *circuitBreakerOpenError
	assert.ErrorAs(t, err, &openErr)
}

func TestCircuitBreakerHalfOpenRecoversToClosed(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{failureThreshold: 1, successThreshold: 2, openTimeout: time.Millisecond})
	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	assert.Equal(t, circuitOpen, cb.state)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, circuitHalfOpen, cb.state, "one success in half-open is below successThreshold")

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, circuitClosed, cb.state)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{failureThreshold: 1, successThreshold: 2, openTimeout: time.Millisecond})
	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	time.Sleep(5 * time.Millisecond)

	require.Error(t, cb.Execute(func() error { return errors.New("still broken") }))
	assert.Equal(t, circuitOpen, cb.state)
}

func TestBreakerRegistryReturnsSameInstancePerKey(t *testing.T) {
	reg := newBreakerRegistry()
	a := reg.get("formula:x")
	b := reg.get("formula:x")
	c := reg.get("formula:y")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
