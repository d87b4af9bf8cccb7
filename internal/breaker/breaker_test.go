package breaker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farcloser/primordium/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newBreaker(t *testing.T) (*breaker.Breaker, *clock, store.Store) {
	t.Helper()

	clk := newClock()
	st := store.NewMemory()

	return breaker.New(st, breaker.Config{Clock: clk.Now}), clk, st
}

func TestBreakerLifecycle(t *testing.T) {
	ctx := context.Background()
	brk, clk, _ := newBreaker(t)

	for range 4 {
		decision, err := brk.RecordFailure(ctx, "y", "HTTP 503")
		require.NoError(t, err)
		assert.Equal(t, breaker.StatusClosed, decision.Status)
	}

	_, err := brk.RecordFailure(ctx, "y", "HTTP 503")
	require.NoError(t, err)

	decision, err := brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, decision.Status)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, 60*time.Second, decision.RetryAfter)
	assert.Equal(t, 5, decision.ConsecutiveFailures)
	assert.Contains(t, decision.Reason, "HTTP 503")

	clk.Advance(59 * time.Second)

	decision, err = brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, decision.Status)
	assert.Equal(t, time.Second, decision.RetryAfter)

	clk.Advance(time.Second)

	decision, err = brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusHalfOpen, decision.Status)
	assert.True(t, decision.CanProceed)

	decision, err = brk.RecordSuccess(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusClosed, decision.Status)
	assert.Zero(t, decision.ConsecutiveFailures)

	decision, err = brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusClosed, decision.Status)
	assert.True(t, decision.CanProceed)
	assert.Zero(t, decision.ConsecutiveFailures)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	ctx := context.Background()
	brk, _, _ := newBreaker(t)

	for range 4 {
		_, err := brk.RecordFailure(ctx, "tts", "timeout")
		require.NoError(t, err)
	}

	_, err := brk.RecordSuccess(ctx, "tts")
	require.NoError(t, err)

	decision, err := brk.RecordFailure(ctx, "tts", "timeout")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusClosed, decision.Status, "failures must be consecutive")
	assert.Equal(t, 1, decision.ConsecutiveFailures)
}

func TestBreakerCheckIsReadOnly(t *testing.T) {
	ctx := context.Background()
	brk, clk, st := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "y", "boom")
		require.NoError(t, err)
	}

	clk.Advance(2 * time.Minute)

	before, err := st.Get(ctx, "circuit:y")
	require.NoError(t, err)

	decision, err := brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusHalfOpen, decision.Status)

	after, err := st.Get(ctx, "circuit:y")
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestBreakerHalfOpenProbes(t *testing.T) {
	ctx := context.Background()
	brk, clk, _ := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "y", "boom")
		require.NoError(t, err)
	}

	clk.Advance(time.Minute)

	for probe := range 3 {
		decision, err := brk.Allow(ctx, "y")
		require.NoError(t, err)
		assert.Equal(t, breaker.StatusHalfOpen, decision.Status, "probe %d", probe)
		assert.True(t, decision.CanProceed, "probe %d", probe)
	}

	decision, err := brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.False(t, decision.CanProceed, "no probe left to hand out")

	decision, err = brk.Allow(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, decision.Status)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, time.Minute, decision.RetryAfter, "fresh cooldown")
}

func TestBreakerReleaseReturnsUnusedProbe(t *testing.T) {
	ctx := context.Background()
	brk, clk, _ := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "y", "boom")
		require.NoError(t, err)
	}

	clk.Advance(time.Minute)

	// Many more reservations than probes, each handed back unused.
	for attempt := range 10 {
		decision, err := brk.Allow(ctx, "y")
		require.NoError(t, err)
		require.True(t, decision.CanProceed, "attempt %d", attempt)

		decision, err = brk.Release(ctx, "y")
		require.NoError(t, err)
		assert.Equal(t, breaker.StatusHalfOpen, decision.Status, "attempt %d", attempt)
	}

	decision, err := brk.Check(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusHalfOpen, decision.Status)
	assert.True(t, decision.CanProceed)

	for range 3 {
		decision, err = brk.Allow(ctx, "y")
		require.NoError(t, err)
		assert.True(t, decision.CanProceed)
	}
}

func TestBreakerReleaseIgnoresClosedCircuit(t *testing.T) {
	ctx := context.Background()
	brk, _, st := newBreaker(t)

	decision, err := brk.Release(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusClosed, decision.Status)
	assert.True(t, decision.CanProceed)

	_, err = st.Get(ctx, "circuit:y")
	require.ErrorIs(t, err, store.ErrNotFound, "nothing persisted")
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	ctx := context.Background()
	brk, clk, _ := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "y", "boom")
		require.NoError(t, err)
	}

	clk.Advance(90 * time.Second)

	decision, err := brk.Allow(ctx, "y")
	require.NoError(t, err)
	require.True(t, decision.CanProceed)

	decision, err = brk.RecordFailure(ctx, "y", "still down")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, decision.Status)
	assert.Equal(t, time.Minute, decision.RetryAfter)
	assert.Equal(t, 6, decision.ConsecutiveFailures)
}

func TestBreakerServicesAreIndependent(t *testing.T) {
	ctx := context.Background()
	brk, _, _ := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "tts", "boom")
		require.NoError(t, err)
	}

	decision, err := brk.Allow(ctx, "stt")
	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
	assert.Equal(t, breaker.StatusClosed, decision.Status)
}

func TestBreakerReset(t *testing.T) {
	ctx := context.Background()
	brk, _, _ := newBreaker(t)

	for range 5 {
		_, err := brk.RecordFailure(ctx, "tts", "boom")
		require.NoError(t, err)
	}

	require.NoError(t, brk.Reset(ctx, "tts"))

	decision, err := brk.Check(ctx, "tts")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusClosed, decision.Status)
	assert.Zero(t, decision.ConsecutiveFailures)
}

func TestBreakerCustomThreshold(t *testing.T) {
	ctx := context.Background()
	brk := breaker.New(store.NewMemory(), breaker.Config{FailureThreshold: 2, Cooldown: 10 * time.Second})

	_, err := brk.RecordFailure(ctx, "tts", "boom")
	require.NoError(t, err)

	decision, err := brk.RecordFailure(ctx, "tts", "boom")
	require.NoError(t, err)
	assert.Equal(t, breaker.StatusOpen, decision.Status)
	assert.LessOrEqual(t, decision.RetryAfter, 10*time.Second)
}

type brokenStore struct{ store.Store }

var errBroken = errors.New("disk on fire")

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errBroken
}

func (brokenStore) Update(context.Context, string, store.UpdateFunc) error {
	return errBroken
}

func TestBreakerFailsOpen(t *testing.T) {
	brk := breaker.New(brokenStore{}, breaker.Config{})

	decision, err := brk.Check(context.Background(), "tts")
	require.ErrorIs(t, err, errBroken)
	assert.True(t, decision.CanProceed)

	decision, err = brk.Allow(context.Background(), "tts")
	require.ErrorIs(t, err, errBroken)
	assert.True(t, decision.CanProceed)
}

func TestBreakerRejectsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Update(ctx, "circuit:tts", func([]byte) ([]byte, error) { return []byte("{nope"), nil }))

	decision, err := breaker.New(st, breaker.Config{}).Check(ctx, "tts")
	require.ErrorIs(t, err, fault.ErrInvalidJSON)
	assert.True(t, decision.CanProceed)
}
