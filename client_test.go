package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_LoginCapturesRefreshCookie(t *testing.T) {
	api := newAuthAPI(t)
	api.handle(loginPath, loginOK("access-1", "refresh-1"))

	result, err := api.client().Login(context.Background(), Credentials{Email: "ada@coachpro.test", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.Equal(t, "u-42", result.User.ID)
	assert.Equal(t, RoleCoach, result.User.Role)
}

func TestAPIClient_LoginFailureMessage(t *testing.T) {
	cases := []struct {
		name string
		body any
		want string
	}{
		{name: "message string", body: map[string]any{"message": "Invalid credentials", "error": "Unauthorized"}, want: "Invalid credentials"},
		{name: "message list", body: map[string]any{"message": []string{"email must be an email", "password too short"}}, want: "email must be an email, password too short"},
		{name: "error only", body: map[string]any{"error": "Unauthorized"}, want: "Unauthorized"},
		{name: "empty object", body: map[string]any{}, want: DefaultAuthErrorMessage},
		{name: "not json", body: "<html>bad gateway</html>", want: DefaultAuthErrorMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newAuthAPI(t)
			api.handle(loginPath, status(http.StatusUnauthorized, tc.body))

			_, err := api.client().Login(context.Background(), Credentials{Email: "a@b.co", Password: "x"})
			require.Error(t, err)
			assert.True(t, IsAuthenticationError(err))
			assert.Equal(t, tc.want, UserMessage(err, "unused"))
		})
	}
}

func TestAPIClient_TransportErrorUsesFallback(t *testing.T) {
	api := newAuthAPI(t)
	client := api.client()
	api.srv.Close()

	_, err := client.Register(context.Background(), Credentials{Email: "a@b.co", Password: "secret12"})
	require.Error(t, err)
	assert.Equal(t, DefaultSignupErrorMessage, UserMessage(err, ""))
}

func TestAPIClient_LoginWithoutTokenFails(t *testing.T) {
	api := newAuthAPI(t)
	api.handle(loginPath, status(http.StatusOK, map[string]any{"user": sampleRecord()}))

	_, err := api.client().Login(context.Background(), Credentials{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, DefaultAuthErrorMessage, UserMessage(err, ""))
}

func TestAPIClient_RefreshSendsAndRotatesCookie(t *testing.T) {
	api := newAuthAPI(t)
	api.handle(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: defaultRefreshCookieName, Value: "refresh-2", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": "access-2"})
	})

	token, rotated, err := api.client().Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, "refresh-2", rotated)
	assert.Equal(t, "refresh-1", api.cookieSent(refreshPath))
}

func TestAPIClient_RefreshFailure(t *testing.T) {
	api := newAuthAPI(t)
	api.handle(refreshPath, status(http.StatusUnauthorized, map[string]any{"message": "expired"}))

	_, _, err := api.client().Refresh(context.Background(), "refresh-1")
	assert.ErrorIs(t, err, ErrRefreshFailed)
}

func TestAPIClient_ProfileSendsBearer(t *testing.T) {
	api := newAuthAPI(t)
	api.handle(profilePath, status(http.StatusOK, sampleRecord()))

	require.NoError(t, api.client().Profile(context.Background(), "access-1"))
	assert.Equal(t, "Bearer access-1", api.bearerSent(profilePath))
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "fallback", extractMessage(nil, "fallback"))
	assert.Equal(t, "fallback", extractMessage([]byte(`{"message":42}`), "fallback"))
	assert.Equal(t, "nope", extractMessage([]byte(`{"message":"  ","error":"nope"}`), "fallback"))
}
