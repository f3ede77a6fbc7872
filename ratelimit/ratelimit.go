package ratelimit

import (
	"sync"
	"time"
)

// Snapshot is a read-only view of the current rate budget, exposed on the
// limits endpoint.
type Snapshot struct {
	Remaining   int
	LastRequest *time.Time
	NextReset   *time.Time
}

// Limiter tracks the rolling request budget for the upstream search API.
// It is a pure decision function evaluated at call time: no background
// timers, no waiting. Callers decide what to do with the answer.
type Limiter struct {
	mu          sync.Mutex
	window      time.Duration
	lastRequest *time.Time
	remaining   int
	now         func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a limiter for the given window with an initial budget.
// The budget is advisory until the provider reports its own remaining count
// through RecordRequest.
func NewLimiter(window time.Duration, budget int, opts ...Option) *Limiter {
	l := &Limiter{
		window:    window,
		remaining: budget,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanProceed reports whether a request may be made now. When the budget is
// exhausted inside the current window it returns false and the number of
// seconds until the window resets.
func (l *Limiter) CanProceed() (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastRequest == nil {
		return true, 0
	}

	elapsed := l.now().Sub(*l.lastRequest)
	if elapsed < l.window && l.remaining <= 0 {
		return false, int((l.window - elapsed).Seconds())
	}
	return true, 0
}

// RecordRequest marks a completed request. The provider-reported remaining
// count is authoritative and replaces the local counter.
func (l *Limiter) RecordRequest(remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.lastRequest = &now
	l.remaining = remaining
}

// Snapshot returns the current budget state.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{Remaining: l.remaining}
	if l.lastRequest != nil {
		last := *l.lastRequest
		reset := last.Add(l.window)
		s.LastRequest = &last
		s.NextReset = &reset
	}
	return s
}
