package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "smtp", FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(time.Second)
	require.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

// ── LocalLocker ───────────────────────────────────────────────────────────────

func TestLocalLocker_SerializesPerKey(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "product:1")
	require.NoError(t, err)

	// a different key is independent
	other, err := l.Lock(context.Background(), "product:2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "product:1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock() // idempotent

	again, err := l.Lock(context.Background(), "product:1")
	require.NoError(t, err)
	again()

	l.mu.Lock()
	assert.Empty(t, l.locks, "idle keys are dropped")
	l.mu.Unlock()
}

func TestLocalLocker_WaiterAcquiresAfterRelease(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "k")
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while the key was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}
}
