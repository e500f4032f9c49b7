package ratelimit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// exerciseWindow runs the shared sliding-window scenario against a limiter.
func exerciseWindow(t *testing.T, l *Limiter, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < DefaultMax; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
		clock.Advance(time.Second)
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "11th request within the window should be rejected")

	ok, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "other keys are limited independently")

	clock.Advance(61 * time.Minute)
	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "request after the window has passed should be allowed")
}

func TestLimiterMemory(t *testing.T) {
	clock := newClock()
	l := New(0, 0, WithClock(clock.Now))
	exerciseWindow(t, l, clock)
}

func TestLimiterSlidingWindow(t *testing.T) {
	clock := newClock()
	l := New(2, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	clock.Advance(30 * time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
	clock.Advance(20 * time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok, "both hits still inside the window")

	// The first hit ages out exactly one window after it was recorded.
	clock.Advance(10 * time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestLimiterRejectedRequestsAreNotRecorded(t *testing.T) {
	clock := newClock()
	ledger := NewMemoryLedger()
	l := New(1, time.Minute, WithClock(clock.Now), WithLedger(ledger))
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow(ctx, "k")
		require.False(t, ok)
	}
	hits, err := ledger.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMemoryLedgerSweepsExpiredKeys(t *testing.T) {
	clock := newClock()
	ledger := NewMemoryLedger()
	l := New(0, 0, WithClock(clock.Now), WithLedger(ledger))
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		ok, err := l.Allow(ctx, fmt.Sprintf("old-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 300, ledger.Len(), "nothing has expired yet")

	clock.Advance(61 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("new-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, sweepEvery, ledger.Len(), "expired one-off clients are swept")

	hits, err := ledger.Load(ctx, "old-0")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLimiterConcurrent(t *testing.T) {
	l := New(50, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := l.Allow(ctx, "shared"); err == nil && ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestLimiterSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ratelimit.db")
	ledger, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	defer func() { _ = ledger.Close() }()

	clock := newClock()
	exerciseWindow(t, New(0, 0, WithClock(clock.Now), WithLedger(ledger)), clock)
}

func TestSQLiteLedgerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.db")
	ctx := context.Background()
	at := time.UnixMilli(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli())

	first, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "k", []time.Time{at, at.Add(time.Second)}, time.Hour))
	require.NoError(t, first.Close())

	second, err := NewSQLiteLedger(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	hits, err := second.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.True(t, hits[0].Equal(at))

	empty, err := second.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLimiterRedis(t *testing.T) {
	url := os.Getenv("MDBLOG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: MDBLOG_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	ledger, err := NewRedisLedger(ctx, url, "mdblog:test:"+t.Name()+":")
	require.NoError(t, err)
	defer func() { _ = ledger.Close() }()
	for _, k := range []string{"1.2.3.4", "5.6.7.8"} {
		require.NoError(t, ledger.Save(ctx, k, nil, 0))
	}

	clock := newClock()
	exerciseWindow(t, New(0, 0, WithClock(clock.Now), WithLedger(ledger)), clock)
}
