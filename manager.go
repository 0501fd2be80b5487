package auth

import (
	"context"
	"errors"
	"time"
)

// Manager wires the shared pieces of the session core: the scope
// backends, the auth API client and the per visitor registries. It hands
// out stores and token services bound to a visitor id.
type Manager struct {
	cfg        Config
	persistent ScopeBackend
	session    ScopeBackend
	api        *APIClient
	monitors   *MonitorRegistry
	lockouts   *LockoutRegistry
	sink       ActivitySink
	logger     Logger
	now        func() time.Time

	monitorOpts []MonitorOption
	lockoutOpts []LockoutOption
}

// ManagerOption customizes the Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger shared by every component
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets where audit events go
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithAPIClient replaces the auth API client built from the config
func WithAPIClient(api *APIClient) ManagerOption {
	return func(m *Manager) {
		if api != nil {
			m.api = api
		}
	}
}

// WithClock injects the clock used by stores, monitors and lockouts
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTimer injects the timer used by monitors and lockouts
func WithTimer(timer TimerFunc) ManagerOption {
	return func(m *Manager) {
		if timer != nil {
			m.monitorOpts = append(m.monitorOpts, WithMonitorTimer(timer))
			m.lockoutOpts = append(m.lockoutOpts, WithLockoutTimer(timer))
		}
	}
}

// NewManager builds a Manager. persistent holds "remember me" sessions,
// session holds the rest.
func NewManager(cfg Config, persistent, session ScopeBackend, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("auth: missing config")
	}
	if persistent == nil || session == nil {
		return nil, errors.New("auth: both scope backends are required")
	}

	m := &Manager{
		cfg:        cfg,
		persistent: persistent,
		session:    session,
		sink:       noopActivitySink{},
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.api == nil {
		m.api = NewAPIClient(cfg.GetAuthBaseURL(),
			WithRequestTimeout(cfg.GetRequestTimeout()),
			WithRefreshCookieName(cfg.GetRefreshCookieName()),
			WithAPILogger(m.logger),
		)
	}

	m.monitorOpts = append(m.monitorOpts, WithMonitorClock(m.now))
	m.lockoutOpts = append(m.lockoutOpts, WithLockoutClock(m.now))

	m.monitors = NewMonitorRegistry(m.Store,
		cfg.GetIdleTimeout(),
		cfg.GetIdleCheckInterval(),
		m.sink,
		m.logger,
		m.monitorOpts...,
	)
	m.lockouts = NewLockoutRegistry(cfg.GetLockoutThreshold(), cfg.GetLockoutDuration(), m.lockoutOpts...)

	return m, nil
}

// Config returns the configuration the manager was built with
func (m *Manager) Config() Config { return m.cfg }

// Logger returns the shared logger
func (m *Manager) Logger() Logger { return m.logger }

// Monitors returns the inactivity monitor registry
func (m *Manager) Monitors() *MonitorRegistry { return m.monitors }

// Lockouts returns the login lockout registry
func (m *Manager) Lockouts() *LockoutRegistry { return m.lockouts }

// Store returns the credential store bound to visitor
func (m *Manager) Store(visitor string) *CredentialStore {
	return NewCredentialStore(visitor, m.persistent, m.session,
		WithStoreClock(m.now),
		WithStoreLogger(m.logger),
		WithScopeTTL(ScopePersistent, m.cfg.GetRememberMeDuration()),
		WithScopeTTL(ScopeSession, m.cfg.GetSessionScopeTTL()),
	)
}

// Tokens returns the token service bound to visitor
func (m *Manager) Tokens(visitor string) *TokenService {
	return NewTokenService(m.api, m.Store(visitor),
		WithTokenLogger(m.logger),
		WithTokenActivitySink(m.sink),
		WithTokenClock(m.now),
	)
}

// LoginSurface returns the login form logic for visitor
func (m *Manager) LoginSurface(visitor string) *LoginSurface {
	return NewLoginSurface(m.lockouts.For(visitor), m.cfg.GetSimulatedFailurePassword(),
		WithSurfaceActivity(m.sink, m.logger, visitor),
	)
}

// Establish persists a successful login or signup for visitor, starts its
// inactivity monitor and drops any redirect left by a previous expiry.
func (m *Manager) Establish(ctx context.Context, visitor string, result AuthResult, rememberMe bool) error {
	if err := m.Tokens(visitor).Establish(ctx, result, rememberMe); err != nil {
		return err
	}
	m.monitors.ClearRedirect(visitor)
	m.monitors.Ensure(visitor)
	return nil
}

// Logout ends the visitor's session remotely and locally
func (m *Manager) Logout(ctx context.Context, visitor string) {
	m.monitors.Remove(visitor)
	m.monitors.ClearRedirect(visitor)
	m.Tokens(visitor).Logout(ctx)
}

// Close stops every monitor and lockout timer
func (m *Manager) Close() error {
	m.monitors.Close()
	m.lockouts.Close()
	return nil
}
