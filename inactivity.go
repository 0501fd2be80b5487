package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultIdleTimeout is how long a visitor may stay idle
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultIdleCheckInterval is the period of the idle check
	DefaultIdleCheckInterval = time.Minute
)

// Monitor force expires a visitor's session after a period without
// activity. Touch records activity, the recurring check compares it with
// the idle threshold.
type Monitor struct {
	store     *CredentialStore
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	timer     TimerFunc
	logger    Logger

	// last activity, unix nanoseconds, last write wins
	lastActivity atomic.Int64

	mu       sync.Mutex
	lastSeen int64
	stop     func() bool
	ctx      context.Context
	running  bool
	expired  bool
	onExpire func(ctx context.Context)
	onStop   func()
}

// MonitorOption customizes a Monitor
type MonitorOption func(*Monitor)

// WithMonitorClock injects the clock
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMonitorTimer injects the timer scheduling the checks
func WithMonitorTimer(timer TimerFunc) MonitorOption {
	return func(m *Monitor) {
		if timer != nil {
			m.timer = timer
		}
	}
}

// WithMonitorLogger sets the logger
func WithMonitorLogger(logger Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// OnExpire is called once, after storage was cleared, when the session
// expires for inactivity.
func OnExpire(fn func(ctx context.Context)) MonitorOption {
	return func(m *Monitor) {
		m.onExpire = fn
	}
}

// NewMonitor creates a monitor for the visitor behind store. Non positive
// durations use the defaults. The monitor starts with activity at now.
func NewMonitor(store *CredentialStore, threshold, interval time.Duration, opts ...MonitorOption) *Monitor {
	if threshold <= 0 {
		threshold = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultIdleCheckInterval
	}

	m := &Monitor{
		store:     store,
		threshold: threshold,
		interval:  interval,
		now:       time.Now,
		timer:     realTimer,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	start := m.now().UnixNano()
	m.lastActivity.Store(start)
	m.lastSeen = start
	return m
}

// Touch records activity at the given time
func (m *Monitor) Touch(at time.Time) {
	m.lastActivity.Store(at.UnixNano())
}

// LastActivity returns the last recorded activity
func (m *Monitor) LastActivity() time.Time {
	return time.Unix(0, m.lastActivity.Load())
}

// Idle is the time elapsed since the last activity
func (m *Monitor) Idle() time.Duration {
	return m.now().Sub(m.LastActivity())
}

// Expired reports whether the monitor already expired the session
func (m *Monitor) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Running reports whether checks are scheduled
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start schedules the recurring check. Calling it on a running or
// expired monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.expired {
		return
	}
	m.ctx = ctx
	m.running = true
	m.scheduleLocked()
}

// Stop cancels the pending check
func (m *Monitor) Stop() {
	m.mu.Lock()
	cb := m.stopLocked()
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Check runs one idle check and reports whether it expired the session.
// The session is only expired when the visitor still has a Session Record,
// a monitor that finds none once idle stops itself.
func (m *Monitor) Check(ctx context.Context) bool {
	m.mu.Lock()
	if m.expired {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if m.Idle() < m.threshold {
		m.refreshLastActive(ctx)
		return false
	}

	if !m.store.HasSession(ctx) {
		m.logger.Debug("inactivity monitor stopped, no session left", "visitor", m.store.Visitor())
		m.Stop()
		return false
	}

	m.mu.Lock()
	if m.expired {
		m.mu.Unlock()
		return false
	}
	m.expired = true
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("inactivity monitor failed to clear storage", "visitor", m.store.Visitor(), "error", err)
	}

	m.logger.Info("session expired for inactivity", "visitor", m.store.Visitor(), "idle", m.Idle().String())

	if m.onExpire != nil {
		m.onExpire(ctx)
	}

	m.Stop()
	return true
}

// refreshLastActive writes lastActive back when activity happened since
// the previous tick.
func (m *Monitor) refreshLastActive(ctx context.Context) {
	current := m.lastActivity.Load()

	m.mu.Lock()
	changed := current > m.lastSeen
	m.lastSeen = current
	m.mu.Unlock()

	if !changed {
		return
	}
	err := m.store.TouchUser(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		m.Stop()
	case err != nil:
		m.logger.Warn("inactivity monitor failed to touch session", "visitor", m.store.Visitor(), "error", err)
	}
}

func (m *Monitor) tick() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	m.stop = nil
	m.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		m.Stop()
		return
	}

	if m.Check(ctx) {
		return
	}

	m.mu.Lock()
	if m.running {
		m.scheduleLocked()
	}
	m.mu.Unlock()
}

func (m *Monitor) scheduleLocked() {
	if m.stop != nil {
		m.stop()
	}
	m.stop = m.timer(m.interval, m.tick)
}

func (m *Monitor) stopLocked() func() {
	if !m.running {
		return nil
	}
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	m.running = false
	return m.onStop
}
