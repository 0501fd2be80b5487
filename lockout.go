package auth

import (
	"sync"
	"time"
)

const (
	// DefaultLockoutThreshold is the number of failures that lock the form
	DefaultLockoutThreshold = 3
	// DefaultLockoutDuration is how long the form stays locked
	DefaultLockoutDuration = 30 * time.Second
)

// Lockout counts failed login attempts and locks the form for a cool
// down period once the threshold is reached. It is a UX guard only: it
// lives in memory and a new visitor id starts from zero.
type Lockout struct {
	mu          sync.Mutex
	threshold   int
	duration    time.Duration
	failures    int
	lockedUntil time.Time
	lastUsed    time.Time
	stop        func() bool
	closed      bool

	now       func() time.Time
	timer     TimerFunc
	onRelease func()
}

// LockoutOption customizes a Lockout
type LockoutOption func(*Lockout)

// WithLockoutClock injects the clock
func WithLockoutClock(now func() time.Time) LockoutOption {
	return func(l *Lockout) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLockoutTimer injects the timer used to release the lock
func WithLockoutTimer(timer TimerFunc) LockoutOption {
	return func(l *Lockout) {
		if timer != nil {
			l.timer = timer
		}
	}
}

// NewLockout creates a lockout. Non positive values use the defaults.
func NewLockout(threshold int, duration time.Duration, opts ...LockoutOption) *Lockout {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}

	l := &Lockout{
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
		timer:     realTimer,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastUsed = l.now()
	return l
}

// RegisterFailure counts a failed attempt and reports whether the form
// is now locked.
func (l *Lockout) RegisterFailure() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if l.lockedLocked() {
		return true
	}

	l.lastUsed = l.now()
	l.failures++
	if l.failures < l.threshold {
		return false
	}

	l.lockedUntil = l.now().Add(l.duration)
	l.stop = l.timer(l.duration, l.release)
	return true
}

// Locked reports whether submissions are currently rejected
func (l *Lockout) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedLocked()
}

// Failures is the current failure count
func (l *Lockout) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lockedLocked()
	return l.failures
}

// Remaining is how long the lock still holds
func (l *Lockout) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lockedLocked() {
		return 0
	}
	return l.lockedUntil.Sub(l.now())
}

// Reset clears the counter and any lock
func (l *Lockout) Reset() {
	l.mu.Lock()
	l.clearLocked()
	cb := l.onRelease
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Close cancels the pending release timer. The lockout is unusable afterwards.
func (l *Lockout) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	l.closed = true
}

func (l *Lockout) release() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.failures = 0
	l.lockedUntil = time.Time{}
	l.stop = nil
	cb := l.onRelease
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Stale reports whether the lockout is unlocked and saw no failure for a
// whole cool down period. Closed lockouts are stale.
func (l *Lockout) Stale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return true
	}
	if l.lockedLocked() {
		return false
	}
	return !l.now().Before(l.lastUsed.Add(l.duration))
}

// lockedLocked expects l.mu held. A lock whose deadline passed is
// released even if the timer has not fired yet.
func (l *Lockout) lockedLocked() bool {
	if l.lockedUntil.IsZero() {
		return false
	}
	if l.now().Before(l.lockedUntil) {
		return true
	}
	l.clearLocked()
	return false
}

func (l *Lockout) clearLocked() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	l.failures = 0
	l.lockedUntil = time.Time{}
}

// LockoutRegistry keeps one Lockout per visitor. Lockouts left stale,
// failures included, are forgotten.
type LockoutRegistry struct {
	mu        sync.Mutex
	lockouts  map[string]*Lockout
	threshold int
	duration  time.Duration
	opts      []LockoutOption
	now       func() time.Time
	lastSweep time.Time
}

// NewLockoutRegistry creates a registry whose lockouts use the given policy
func NewLockoutRegistry(threshold int, duration time.Duration, opts ...LockoutOption) *LockoutRegistry {
	tpl := NewLockout(threshold, duration, opts...)
	return &LockoutRegistry{
		lockouts:  map[string]*Lockout{},
		threshold: threshold,
		duration:  tpl.duration,
		opts:      opts,
		now:       tpl.now,
	}
}

// For returns the visitor's lockout, creating it on first use or when
// the previous one went stale.
func (r *LockoutRegistry) For(visitor string) *Lockout {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	if l, ok := r.lockouts[visitor]; ok {
		if !l.Stale() {
			return l
		}
		l.Close()
		delete(r.lockouts, visitor)
	}

	l := NewLockout(r.threshold, r.duration, r.opts...)
	l.onRelease = func() { r.forget(visitor, l) }
	r.lockouts[visitor] = l
	return l
}

// Locked reports whether visitor is locked without creating state
func (r *LockoutRegistry) Locked(visitor string) bool {
	r.mu.Lock()
	l, ok := r.lockouts[visitor]
	r.mu.Unlock()
	return ok && l.Locked()
}

// Len is the number of tracked visitors
func (r *LockoutRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lockouts)
}

// Close cancels every lockout timer
func (r *LockoutRegistry) Close() {
	r.mu.Lock()
	lockouts := r.lockouts
	r.lockouts = map[string]*Lockout{}
	r.mu.Unlock()

	for _, l := range lockouts {
		l.Close()
	}
}

func (r *LockoutRegistry) forget(visitor string, l *Lockout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockouts[visitor] == l {
		delete(r.lockouts, visitor)
	}
}

// sweepLocked drops stale lockouts, at most once per cool down period
func (r *LockoutRegistry) sweepLocked() {
	now := r.now()
	if !r.lastSweep.IsZero() && now.Sub(r.lastSweep) < r.duration {
		return
	}
	r.lastSweep = now
	for visitor, l := range r.lockouts {
		if l.Stale() {
			l.Close()
			delete(r.lockouts, visitor)
		}
	}
}
