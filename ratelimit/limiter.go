// Package ratelimit implements a sliding-window request limiter keyed by
// client identity, with pluggable storage for the recorded hits.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMax is the number of requests allowed per window.
	DefaultMax = 10
	// DefaultWindow is the length of the sliding window.
	DefaultWindow = 60 * time.Minute
)

// Ledger persists the hit timestamps recorded for each key.
type Ledger interface {
	// Load returns the hits stored for key, oldest first. A key that was
	// never saved has no hits.
	Load(ctx context.Context, key string) ([]time.Time, error)
	// Save replaces the hits stored for key. Backends may drop the key
	// once ttl has elapsed.
	Save(ctx context.Context, key string, hits []time.Time, ttl time.Duration) error
}

// Limiter allows at most max requests per key within any window.
type Limiter struct {
	mu     sync.Mutex
	ledger Ledger
	max    int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLedger sets the hit storage. The default is an in-memory ledger.
func WithLedger(ledger Ledger) Option {
	return func(l *Limiter) {
		if ledger != nil {
			l.ledger = ledger
		}
	}
}

// New creates a Limiter that allows max requests per window. Non-positive
// values fall back to the defaults.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		ledger: NewMemoryLedger(),
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether key may make another request and, if so, records
// it. Hits older than the window are discarded first.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits, err := l.ledger.Load(ctx, key)
	if err != nil {
		return false, err
	}
	kept := hits[:0]
	for _, t := range hits {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		if len(kept) != len(hits) {
			if err := l.ledger.Save(ctx, key, kept, l.window); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	kept = append(kept, now)
	if err := l.ledger.Save(ctx, key, kept, l.window); err != nil {
		return false, err
	}
	return true, nil
}

// sweepEvery is how many saves a MemoryLedger takes between sweeps.
const sweepEvery = 256

// MemoryLedger keeps hits in process memory. A key is dropped when it is
// saved with no hits, and every sweepEvery saves all keys whose ttl has run
// out are removed, so one-off clients do not accumulate.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	saves   int
}

type memoryEntry struct {
	hits    []time.Time
	expires time.Time // zero means no ttl
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]memoryEntry)}
}

// Load implements Ledger.
func (m *MemoryLedger) Load(_ context.Context, key string) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.entries[key].hits...), nil
}

// Save implements Ledger. Expiry is measured from the newest hit, so the
// ledger follows whatever clock the hits were taken with.
func (m *MemoryLedger) Save(_ context.Context, key string, hits []time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(hits) == 0 {
		delete(m.entries, key)
		return nil
	}
	newest := hits[len(hits)-1]
	e := memoryEntry{hits: append([]time.Time(nil), hits...)}
	if ttl > 0 {
		e.expires = newest.Add(ttl)
	}
	m.entries[key] = e

	m.saves++
	if m.saves%sweepEvery == 0 {
		m.sweep(newest)
	}
	return nil
}

func (m *MemoryLedger) sweep(now time.Time) {
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of keys currently held.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
