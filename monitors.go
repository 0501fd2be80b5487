package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultPendingRedirectTTL is how long an expiry redirect waits for the
// visitor to come back
const DefaultPendingRedirectTTL = 24 * time.Hour

// MonitorRegistry keeps one inactivity Monitor per visitor with a
// session, and the redirects pending for visitors whose session expired.
type MonitorRegistry struct {
	mu       sync.Mutex
	monitors map[string]*Monitor
	pending  map[string]time.Time

	storeFor    func(visitor string) *CredentialStore
	threshold   time.Duration
	interval    time.Duration
	redirectTTL time.Duration
	sink        ActivitySink
	logger      Logger
	now         func() time.Time
	opts        []MonitorOption
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewMonitorRegistry creates a registry building stores with storeFor.
// The clock given through opts also ages pending redirects.
func NewMonitorRegistry(storeFor func(visitor string) *CredentialStore, threshold, interval time.Duration, sink ActivitySink, logger Logger, opts ...MonitorOption) *MonitorRegistry {
	if logger == nil {
		logger = defLogger{}
	}
	tpl := NewMonitor(nil, threshold, interval, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	return &MonitorRegistry{
		monitors:    map[string]*Monitor{},
		pending:     map[string]time.Time{},
		storeFor:    storeFor,
		threshold:   threshold,
		interval:    interval,
		redirectTTL: DefaultPendingRedirectTTL,
		sink:        normalizeActivitySink(sink),
		logger:      logger,
		now:         tpl.now,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRedirectTTL changes how long pending redirects are kept. Non
// positive values restore the default.
func (r *MonitorRegistry) SetRedirectTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultPendingRedirectTTL
	}
	r.mu.Lock()
	r.redirectTTL = ttl
	r.mu.Unlock()
}

// Ensure returns the visitor's running monitor, starting one if needed
func (r *MonitorRegistry) Ensure(visitor string) *Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.monitors[visitor]; ok {
		return m
	}

	store := r.storeFor(visitor)
	opts := append([]MonitorOption{WithMonitorLogger(r.logger)}, r.opts...)
	opts = append(opts, OnExpire(func(ctx context.Context) {
		r.expired(ctx, visitor)
	}))

	m := NewMonitor(store, r.threshold, r.interval, opts...)
	m.onStop = func() { r.forget(visitor, m) }
	r.monitors[visitor] = m
	m.Start(r.ctx)
	return m
}

// Get returns the visitor's monitor if there is one
func (r *MonitorRegistry) Get(visitor string) (*Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[visitor]
	return m, ok
}

// Touch records activity for visitor. Visitors without a monitor are ignored.
func (r *MonitorRegistry) Touch(visitor string, at time.Time) bool {
	m, ok := r.Get(visitor)
	if !ok {
		return false
	}
	m.Touch(at)
	return true
}

// Remove stops and drops the visitor's monitor
func (r *MonitorRegistry) Remove(visitor string) {
	if m, ok := r.Get(visitor); ok {
		m.Stop()
	}
	r.forget(visitor, nil)
}

// PendingRedirect reports whether visitor must be sent to the login page.
// Redirects older than the TTL are dropped.
func (r *MonitorRegistry) PendingRedirect(visitor string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.pending[visitor]
	if !ok {
		return false
	}
	if r.now().Sub(at) >= r.redirectTTL {
		delete(r.pending, visitor)
		return false
	}
	return true
}

// PendingLen is the number of redirects waiting for their visitor
func (r *MonitorRegistry) PendingLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// ClearRedirect drops the pending redirect for visitor
func (r *MonitorRegistry) ClearRedirect(visitor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, visitor)
}

// Len is the number of live monitors
func (r *MonitorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.monitors)
}

// Close stops every monitor
func (r *MonitorRegistry) Close() {
	r.cancel()

	r.mu.Lock()
	monitors := make([]*Monitor, 0, len(r.monitors))
	for _, m := range r.monitors {
		monitors = append(monitors, m)
	}
	r.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}

	r.mu.Lock()
	r.monitors = map[string]*Monitor{}
	r.mu.Unlock()
}

func (r *MonitorRegistry) expired(ctx context.Context, visitor string) {
	r.mu.Lock()
	now := r.now()
	r.prunePendingLocked(now)
	r.pending[visitor] = now
	r.mu.Unlock()

	emitActivity(ctx, r.sink, r.logger, ActivityEvent{
		EventType: ActivityEventSessionExpired,
		VisitorID: visitor,
		Metadata:  map[string]any{"reason": "inactivity"},
	})

	r.forget(visitor, nil)
}

func (r *MonitorRegistry) forget(visitor string, m *Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.monitors[visitor]; ok && (m == nil || current == m) {
		delete(r.monitors, visitor)
	}
}

func (r *MonitorRegistry) prunePendingLocked(now time.Time) {
	for visitor, at := range r.pending {
		if now.Sub(at) >= r.redirectTTL {
			delete(r.pending, visitor)
		}
	}
}
