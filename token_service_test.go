package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, clock *fakeClock, opts ...TokenServiceOption) (*TokenService, *authAPI, *memBackend, *memBackend) {
	t.Helper()
	api := newAuthAPI(t)
	store, persistent, session := newTestStore(clock)
	opts = append([]TokenServiceOption{
		WithTokenClock(clock.Now),
		WithTokenLogger(quietLogger{}),
	}, opts...)
	return NewTokenService(api.client(), store, opts...), api, persistent, session
}

func TestTokenService_LoginEstablish(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sink := &MockActivitySink{}
	sink.On("Record", mock.Anything, mock.MatchedBy(func(e ActivityEvent) bool {
		return e.EventType == ActivityEventLoginSuccess && e.UserID == "u-42" && e.VisitorID == testVisitor
	})).Return(nil).Once()

	ts, api, persistent, session := newTestTokenService(t, clock, WithTokenActivitySink(sink))
	api.handle(loginPath, loginOK("access-1", "refresh-1"))

	result, err := ts.Login(ctx, Credentials{Email: "ada@coachpro.test", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, ts.Establish(ctx, result, false))

	token, ok := ts.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "access-1", token)

	user, ok := ts.User(ctx)
	require.True(t, ok)
	assert.True(t, user.IsAuthenticated)

	_, inPersistent := persistent.raw(testVisitor)
	_, inSession := session.raw(testVisitor)
	assert.False(t, inPersistent)
	assert.True(t, inSession)
	assert.Equal(t, "refresh-1", ts.Store().RefreshCookie(ctx))

	sink.AssertExpectations(t)
}

func TestTokenService_LoginFailureRecordsEvent(t *testing.T) {
	sink := &recordingSink{}
	ts, api, _, _ := newTestTokenService(t, newFakeClock(), WithTokenActivitySink(sink))
	api.handle(loginPath, status(http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"}))

	_, err := ts.Login(context.Background(), Credentials{Email: "ada@coachpro.test", Password: "nope12"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", UserMessage(err, ""))
	assert.Equal(t, 1, sink.count(ActivityEventLoginFailure))

	_, ok := ts.Token(context.Background())
	assert.False(t, ok)
}

func TestTokenService_ValidateToken(t *testing.T) {
	ctx := context.Background()
	ts, api, _, _ := newTestTokenService(t, newFakeClock())

	assert.False(t, ts.ValidateToken(ctx))
	assert.Equal(t, 0, api.callCount(profilePath))

	require.NoError(t, ts.Store().Save(ctx, "access-1", false))

	api.handle(profilePath, status(http.StatusOK, sampleRecord()))
	assert.True(t, ts.ValidateToken(ctx))

	api.handle(profilePath, status(http.StatusUnauthorized, map[string]any{"message": "Unauthorized"}))
	assert.False(t, ts.ValidateToken(ctx))
}

func TestTokenService_EnsureValidTokenKeepsFreshToken(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	ts, api, _, _ := newTestTokenService(t, clock)

	valid := signedToken(t, clock.Now().Add(time.Hour))
	require.NoError(t, ts.Store().Save(ctx, valid, true))

	token, ok := ts.EnsureValidToken(ctx)
	require.True(t, ok)
	assert.Equal(t, valid, token)
	assert.Equal(t, 0, api.callCount(refreshPath))
}

func TestTokenService_EnsureValidTokenRefreshesInSameScope(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sink := &recordingSink{}
	ts, api, persistent, session := newTestTokenService(t, clock, WithTokenActivitySink(sink))

	expired := signedToken(t, clock.Now().Add(-time.Minute))
	user := sampleRecord()
	require.NoError(t, ts.Store().SetSession(ctx, ScopePersistent, StoredSession{
		Token:         expired,
		RefreshCookie: "refresh-1",
		User:          &user,
	}))

	fresh := signedToken(t, clock.Now().Add(time.Hour))
	api.handle(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: defaultRefreshCookieName, Value: "refresh-2", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": fresh})
	})

	token, ok := ts.EnsureValidToken(ctx)
	require.True(t, ok)
	assert.Equal(t, fresh, token)
	assert.Equal(t, "refresh-1", api.cookieSent(refreshPath))

	stored, _ := ts.Token(ctx)
	assert.Equal(t, fresh, stored)
	assert.Equal(t, "refresh-2", ts.Store().RefreshCookie(ctx))

	_, inPersistent := persistent.raw(testVisitor)
	_, inSession := session.raw(testVisitor)
	assert.True(t, inPersistent)
	assert.False(t, inSession)

	_, hasUser := ts.User(ctx)
	assert.True(t, hasUser)
	assert.Equal(t, 1, sink.count(ActivityEventTokenRefreshed))
}

func TestTokenService_EnsureValidTokenRefreshFails(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	ts, api, _, _ := newTestTokenService(t, clock)
	api.handle(refreshPath, status(http.StatusUnauthorized, map[string]any{"message": "expired"}))

	_, ok := ts.EnsureValidToken(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, api.callCount(refreshPath))

	expired := signedToken(t, clock.Now().Add(-time.Minute))
	require.NoError(t, ts.Store().Save(ctx, expired, false))

	_, ok = ts.EnsureValidToken(ctx)
	assert.False(t, ok)

	stored, _ := ts.Token(ctx)
	assert.Equal(t, expired, stored)
}

func TestTokenService_EnsureValidTokenWithoutTokenDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	ts, api, _, _ := newTestTokenService(t, newFakeClock())
	api.handle(refreshPath, status(http.StatusOK, map[string]any{"accessToken": "access-9"}))

	token, ok := ts.EnsureValidToken(ctx)
	require.True(t, ok)
	assert.Equal(t, "access-9", token)

	_, stored := ts.Token(ctx)
	assert.False(t, stored)
}

func TestTokenService_LogoutClearsEvenWhenServerFails(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	ts, api, _, _ := newTestTokenService(t, newFakeClock(), WithTokenActivitySink(sink))
	api.handle(logoutPath, status(http.StatusInternalServerError, map[string]any{"message": "boom"}))

	user := sampleRecord()
	require.NoError(t, ts.Store().SetSession(ctx, ScopeSession, StoredSession{
		Token:         "access-1",
		RefreshCookie: "refresh-1",
		User:          &user,
	}))

	ts.Logout(ctx)

	assert.Equal(t, 1, api.callCount(logoutPath))
	assert.Equal(t, "Bearer access-1", api.bearerSent(logoutPath))
	assert.Equal(t, "refresh-1", api.cookieSent(logoutPath))

	_, ok := ts.Token(ctx)
	assert.False(t, ok)
	_, ok = ts.User(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, sink.count(ActivityEventLogout))
}

func TestTokenService_LogoutWithServerDown(t *testing.T) {
	ctx := context.Background()
	ts, api, _, _ := newTestTokenService(t, newFakeClock())
	require.NoError(t, ts.Store().SaveUser(ctx, sampleRecord(), true))
	api.srv.Close()

	ts.Logout(ctx)

	assert.False(t, ts.Store().HasSession(ctx))
}
