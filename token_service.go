package auth

import (
	"context"
	"time"
)

// TokenService mediates the auth API calls of one visitor and owns the
// token validity rules.
type TokenService struct {
	api    *APIClient
	store  *CredentialStore
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

// TokenServiceOption customizes a TokenService
type TokenServiceOption func(*TokenService)

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenActivitySink sets where login, refresh and logout events go
func WithTokenActivitySink(sink ActivitySink) TokenServiceOption {
	return func(ts *TokenService) {
		ts.sink = normalizeActivitySink(sink)
	}
}

// WithTokenClock injects the clock used for expiry checks
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService binds api to the visitor's store
func NewTokenService(api *APIClient, store *CredentialStore, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		api:    api,
		store:  store,
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Store returns the visitor's credential store
func (ts *TokenService) Store() *CredentialStore {
	return ts.store
}

// Token returns the cached access token
func (ts *TokenService) Token(ctx context.Context) (string, bool) {
	return ts.store.Get(ctx)
}

// User returns the cached Session Record
func (ts *TokenService) User(ctx context.Context) (*SessionRecord, bool) {
	return ts.store.GetUser(ctx)
}

// Login exchanges creds for a token. Failures are *AuthenticationError
// carrying the message to show the user.
func (ts *TokenService) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	result, err := ts.api.Login(ctx, creds)
	if err != nil {
		ts.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     creds.Email,
			Metadata:  map[string]any{"reason": UserMessage(err, DefaultAuthErrorMessage)},
		})
		return AuthResult{}, err
	}

	ts.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    result.User.ID,
		Email:     result.User.Email,
	})
	return result, nil
}

// Signup registers creds and returns the same shape as Login
func (ts *TokenService) Signup(ctx context.Context, creds Credentials) (AuthResult, error) {
	result, err := ts.api.Register(ctx, creds)
	if err != nil {
		return AuthResult{}, err
	}

	ts.record(ctx, ActivityEvent{
		EventType: ActivityEventSignup,
		UserID:    result.User.ID,
		Email:     result.User.Email,
	})
	return result, nil
}

// Establish persists a successful login or signup in the scope selected
// by rememberMe, as a single envelope.
func (ts *TokenService) Establish(ctx context.Context, result AuthResult, rememberMe bool) error {
	user := result.User
	return ts.store.SetSession(ctx, ScopeFor(rememberMe), StoredSession{
		Token:         result.AccessToken,
		RefreshCookie: result.RefreshToken,
		User:          &user,
	})
}

// ValidateToken asks the profile endpoint whether the cached token is
// still good. No token or any failure means false.
func (ts *TokenService) ValidateToken(ctx context.Context) bool {
	token, ok := ts.store.Get(ctx)
	if !ok {
		return false
	}

	if err := ts.api.Profile(ctx, token); err != nil {
		ts.logger.Debug("token validation failed", "visitor", ts.store.Visitor(), "error", err)
		return false
	}
	return true
}

// RefreshToken mints a new access token from the stored refresh cookie.
// It returns false on any failure.
func (ts *TokenService) RefreshToken(ctx context.Context) (string, bool) {
	current := ts.store.RefreshCookie(ctx)

	token, rotated, err := ts.api.Refresh(ctx, current)
	if err != nil {
		ts.logger.Debug("token refresh failed", "visitor", ts.store.Visitor(), "error", err)
		return "", false
	}

	if rotated != "" && rotated != current {
		if err := ts.store.SaveRefreshCookie(ctx, rotated); err != nil {
			ts.logger.Error("failed to keep rotated refresh cookie", "visitor", ts.store.Visitor(), "error", err)
		}
	}

	ts.record(ctx, ActivityEvent{EventType: ActivityEventTokenRefreshed})
	return token, true
}

// Logout tells the auth API the session ended. Local storage is cleared
// whatever the outcome of the call.
func (ts *TokenService) Logout(ctx context.Context) {
	token, _ := ts.store.Get(ctx)
	refresh := ts.store.RefreshCookie(ctx)
	user, _ := ts.store.GetUser(ctx)

	defer func() {
		if err := ts.store.Clear(ctx); err != nil {
			ts.logger.Error("failed to clear credentials on logout", "visitor", ts.store.Visitor(), "error", err)
		}

		event := ActivityEvent{EventType: ActivityEventLogout}
		if user != nil {
			event.UserID = user.ID
			event.Email = user.Email
		}
		ts.record(ctx, event)
	}()

	if err := ts.api.Logout(ctx, token, refresh); err != nil {
		ts.logger.Warn("logout request failed", "visitor", ts.store.Visitor(), "error", err)
	}
}

// EnsureValidToken returns a usable access token, refreshing when there
// is none or the cached one has expired. A refreshed token replaces the
// expired one in the scope that held it. Absent means the visitor must
// log in again.
func (ts *TokenService) EnsureValidToken(ctx context.Context) (string, bool) {
	token, ok := ts.store.Get(ctx)
	if !ok {
		return ts.RefreshToken(ctx)
	}

	if !isTokenExpiredAt(token, ts.now()) {
		return token, true
	}

	scope, _ := ts.store.tokenScope(ctx)

	fresh, ok := ts.RefreshToken(ctx)
	if !ok {
		return "", false
	}

	if err := ts.store.Save(ctx, fresh, scope == ScopePersistent); err != nil {
		ts.logger.Error("failed to persist refreshed token", "visitor", ts.store.Visitor(), "error", err)
	}

	return fresh, true
}

func (ts *TokenService) record(ctx context.Context, event ActivityEvent) {
	event.VisitorID = ts.store.Visitor()
	if ts.now != nil {
		event.OccurredAt = ts.now().UTC()
	}
	emitActivity(ctx, ts.sink, ts.logger, event)
}
