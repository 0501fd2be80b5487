package auth

import (
	"context"
	"errors"
	"time"
)

// LookupResult describes what a user lookup found
type LookupResult int

const (
	LookupMissing LookupResult = iota
	LookupFound
	LookupCorrupt
)

// CredentialStore keeps one visitor's token and Session Record in exactly
// one of two scopes. Every write to a scope removes the visitor from the
// other scope.
type CredentialStore struct {
	visitor  string
	backends [2]ScopeBackend
	ttls     [2]time.Duration
	now      func() time.Time
	logger   Logger
}

// CredentialStoreOption customizes a CredentialStore
type CredentialStoreOption func(*CredentialStore)

// WithStoreClock injects a custom clock (useful for tests)
func WithStoreClock(now func() time.Time) CredentialStoreOption {
	return func(s *CredentialStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger sets the logger used for backend failures
func WithStoreLogger(logger Logger) CredentialStoreOption {
	return func(s *CredentialStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScopeTTL sets how long a backend keeps entries of the given scope
func WithScopeTTL(scope Scope, ttl time.Duration) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.ttls[scope] = ttl
	}
}

// NewCredentialStore binds the persistent and session backends to visitor
func NewCredentialStore(visitor string, persistent, session ScopeBackend, opts ...CredentialStoreOption) *CredentialStore {
	s := &CredentialStore{
		visitor: visitor,
		now:     time.Now,
		logger:  defLogger{},
	}
	s.backends[ScopePersistent] = persistent
	s.backends[ScopeSession] = session

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Visitor returns the visitor id the store is bound to
func (s *CredentialStore) Visitor() string {
	return s.visitor
}

// Save writes token to the scope chosen by rememberMe and removes the
// visitor from the other scope.
func (s *CredentialStore) Save(ctx context.Context, token string, rememberMe bool) error {
	target := ScopeFor(rememberMe)
	return s.write(ctx, target, func(env envelope) envelope {
		env.AuthToken = token
		return env
	})
}

// Get reads the token, persistent scope first
func (s *CredentialStore) Get(ctx context.Context) (string, bool) {
	for _, scope := range readOrder {
		env, _ := s.load(ctx, scope)
		if env.AuthToken != "" {
			return env.AuthToken, true
		}
	}
	return "", false
}

// SaveUser stamps record as authenticated and active now, writes it to
// the chosen scope and clears the other one.
func (s *CredentialStore) SaveUser(ctx context.Context, record SessionRecord, rememberMe bool) error {
	target := ScopeFor(rememberMe)
	stamped := record.stamped(s.now())
	return s.write(ctx, target, func(env envelope) envelope {
		env.User = &stamped
		return env
	})
}

// GetUser reads the Session Record, persistent scope first. A record
// that fails to parse is discarded and reported as absent.
func (s *CredentialStore) GetUser(ctx context.Context) (*SessionRecord, bool) {
	record, result := s.LookupUser(ctx)
	return record, result == LookupFound
}

// LookupUser is GetUser that also tells a missing record from a corrupt one
func (s *CredentialStore) LookupUser(ctx context.Context) (*SessionRecord, LookupResult) {
	for _, scope := range readOrder {
		env, result := s.load(ctx, scope)
		switch result {
		case LookupCorrupt:
			return nil, LookupCorrupt
		case LookupFound:
			if env.User != nil {
				return env.User, LookupFound
			}
		}
	}
	return nil, LookupMissing
}

// HasSession reports whether a Session Record exists in either scope
func (s *CredentialStore) HasSession(ctx context.Context) bool {
	for _, scope := range readOrder {
		env, result := s.load(ctx, scope)
		if result == LookupFound && env.User != nil {
			return true
		}
	}
	return false
}

// SetSession writes token, refresh cookie and record as one envelope in
// scope and clears the other scope.
func (s *CredentialStore) SetSession(ctx context.Context, scope Scope, session StoredSession) error {
	env := envelope{
		AuthToken:     session.Token,
		RefreshCookie: session.RefreshCookie,
	}
	if session.User != nil {
		stamped := session.User.stamped(s.now())
		env.User = &stamped
	}

	if err := s.store(ctx, scope, env); err != nil {
		return err
	}
	return s.delete(ctx, scope.Other())
}

// TouchUser refreshes lastActive in whichever scope holds the record
func (s *CredentialStore) TouchUser(ctx context.Context) error {
	scope, ok := s.userScope(ctx)
	if !ok {
		return ErrNoSession
	}
	env, _ := s.load(ctx, scope)
	stamped := env.User.stamped(s.now())
	env.User = &stamped
	return s.store(ctx, scope, env)
}

// Scope reports which scope holds the visitor's data
func (s *CredentialStore) Scope(ctx context.Context) (Scope, bool) {
	for _, scope := range readOrder {
		env, result := s.load(ctx, scope)
		if result == LookupFound && !env.empty() {
			return scope, true
		}
	}
	return ScopeSession, false
}

// RefreshCookie returns the stored refresh cookie value
func (s *CredentialStore) RefreshCookie(ctx context.Context) string {
	for _, scope := range readOrder {
		env, _ := s.load(ctx, scope)
		if env.RefreshCookie != "" {
			return env.RefreshCookie
		}
	}
	return ""
}

// SaveRefreshCookie replaces the refresh cookie where the visitor's data
// lives, session scope when nothing is stored yet.
func (s *CredentialStore) SaveRefreshCookie(ctx context.Context, value string) error {
	scope, _ := s.Scope(ctx)
	return s.write(ctx, scope, func(env envelope) envelope {
		env.RefreshCookie = value
		return env
	})
}

// Clear removes token and record from both scopes. Always safe to call.
func (s *CredentialStore) Clear(ctx context.Context) error {
	var errs []error
	for _, scope := range readOrder {
		if err := s.delete(ctx, scope); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *CredentialStore) tokenScope(ctx context.Context) (Scope, bool) {
	for _, scope := range readOrder {
		env, _ := s.load(ctx, scope)
		if env.AuthToken != "" {
			return scope, true
		}
	}
	return ScopeSession, false
}

func (s *CredentialStore) userScope(ctx context.Context) (Scope, bool) {
	for _, scope := range readOrder {
		env, result := s.load(ctx, scope)
		if result == LookupFound && env.User != nil {
			return scope, true
		}
	}
	return ScopeSession, false
}

// write applies fn to target's envelope, carrying over what only the
// other scope held, then drops the other scope.
func (s *CredentialStore) write(ctx context.Context, target Scope, fn func(envelope) envelope) error {
	current, _ := s.load(ctx, target)
	other, _ := s.load(ctx, target.Other())

	next := fn(current).merge(other)
	if err := s.store(ctx, target, next); err != nil {
		return err
	}
	return s.delete(ctx, target.Other())
}

func (s *CredentialStore) load(ctx context.Context, scope Scope) (envelope, LookupResult) {
	backend := s.backends[scope]
	if backend == nil {
		return envelope{}, LookupMissing
	}

	blob, err := backend.Load(ctx, s.visitor)
	if err != nil {
		if errors.Is(err, ErrEnvelopeNotFound) {
			return envelope{}, LookupMissing
		}
		if errors.Is(err, ErrCorruptSession) {
			s.discard(ctx, scope)
			return envelope{}, LookupCorrupt
		}
		s.logger.Error("credential store load failed", "scope", scope.String(), "error", err)
		return envelope{}, LookupMissing
	}

	env, userCorrupt, err := decodeEnvelope(blob)
	if err != nil {
		s.discard(ctx, scope)
		return envelope{}, LookupCorrupt
	}

	if userCorrupt {
		s.logger.Warn("discarding unparseable session record", "scope", scope.String())
		if env.empty() {
			s.discard(ctx, scope)
		} else if err := s.store(ctx, scope, env); err != nil {
			s.logger.Error("credential store rewrite failed", "scope", scope.String(), "error", err)
		}
		return env, LookupCorrupt
	}

	return env, LookupFound
}

func (s *CredentialStore) discard(ctx context.Context, scope Scope) {
	s.logger.Warn("discarding corrupt credential envelope", "scope", scope.String())
	if err := s.delete(ctx, scope); err != nil {
		s.logger.Error("credential store discard failed", "scope", scope.String(), "error", err)
	}
}

func (s *CredentialStore) store(ctx context.Context, scope Scope, env envelope) error {
	backend := s.backends[scope]
	if backend == nil {
		return nil
	}
	if env.empty() {
		return backend.Delete(ctx, s.visitor)
	}

	blob, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	return backend.Store(ctx, s.visitor, blob, s.ttls[scope])
}

func (s *CredentialStore) delete(ctx context.Context, scope Scope) error {
	backend := s.backends[scope]
	if backend == nil {
		return nil
	}
	return backend.Delete(ctx, s.visitor)
}
