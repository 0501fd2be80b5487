package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	profilePath  = "/auth/profile"
	refreshPath  = "/auth/refresh"
	logoutPath   = "/auth/logout"
)

const defaultRefreshCookieName = "refresh_token"

// APIClient talks to the remote auth API. It is shared by every visitor
// so it never keeps cookies: the refresh cookie is handed in and out
// explicitly.
type APIClient struct {
	http          *resty.Client
	refreshCookie string
	logger        Logger
}

// APIClientOption customizes the APIClient
type APIClientOption func(*APIClient)

// WithHTTPClient uses hc as the underlying transport client
func WithHTTPClient(hc *http.Client) APIClientOption {
	return func(c *APIClient) {
		if hc == nil {
			return
		}
		base := c.http.BaseURL
		c.http = resty.NewWithClient(hc).
			SetBaseURL(base).
			SetCookieJar(nil).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "coachpro-go-auth")
	}
}

// WithRequestTimeout bounds every auth API call. Zero keeps the transport default.
func WithRequestTimeout(d time.Duration) APIClientOption {
	return func(c *APIClient) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRefreshCookieName overrides the name of the refresh cookie
func WithRefreshCookieName(name string) APIClientOption {
	return func(c *APIClient) {
		if name != "" {
			c.refreshCookie = name
		}
	}
}

// WithAPILogger sets the client logger
func WithAPILogger(logger Logger) APIClientOption {
	return func(c *APIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAPIClient creates a client for the auth API at baseURL
func NewAPIClient(baseURL string, opts ...APIClientOption) *APIClient {
	c := &APIClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetCookieJar(nil).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "coachpro-go-auth"),
		refreshCookie: defaultRefreshCookieName,
		logger:        defLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RefreshCookieName is the cookie the auth API uses for refresh tokens
func (c *APIClient) RefreshCookieName() string {
	return c.refreshCookie
}

// Login exchanges credentials for a token and the user fields
func (c *APIClient) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	return c.exchange(ctx, loginPath, creds, DefaultAuthErrorMessage)
}

// Register creates an account and returns the same shape as Login
func (c *APIClient) Register(ctx context.Context, creds Credentials) (AuthResult, error) {
	return c.exchange(ctx, registerPath, creds, DefaultSignupErrorMessage)
}

func (c *APIClient) exchange(ctx context.Context, path string, creds Credentials, fallback string) (AuthResult, error) {
	result := AuthResult{}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post(path)
	if err != nil {
		c.logger.Error("auth api request failed", "path", path, "error", err)
		return result, &AuthenticationError{Message: fallback, Err: err}
	}

	if !resp.IsSuccess() {
		return result, &AuthenticationError{
			Message: extractMessage(resp.Body(), fallback),
			Status:  resp.StatusCode(),
		}
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return AuthResult{}, &AuthenticationError{
			Message: fallback,
			Status:  resp.StatusCode(),
			Err:     fmt.Errorf("decode %s response: %w", path, err),
		}
	}

	if result.AccessToken == "" {
		return AuthResult{}, &AuthenticationError{
			Message: fallback,
			Status:  resp.StatusCode(),
			Err:     fmt.Errorf("%s response has no access token", path),
		}
	}

	if cookie := c.findRefreshCookie(resp); cookie != "" {
		result.RefreshToken = cookie
	}

	return result, nil
}

// Profile checks token against the profile endpoint
func (c *APIClient) Profile(ctx context.Context, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(profilePath)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("profile: unexpected status %d", resp.StatusCode())
	}
	return nil
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Refresh mints a new access token from the refresh cookie. The returned
// cookie is the rotated refresh cookie, or refreshCookie when the server
// did not rotate it.
func (c *APIClient) Refresh(ctx context.Context, refreshCookie string) (string, string, error) {
	req := c.http.R().SetContext(ctx)
	if refreshCookie != "" {
		req.SetCookie(&http.Cookie{Name: c.refreshCookie, Value: refreshCookie})
	}

	resp, err := req.Post(refreshPath)
	if err != nil {
		return "", "", err
	}
	if !resp.IsSuccess() {
		return "", "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode())
	}

	out := refreshResponse{}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return "", "", fmt.Errorf("%w: empty access token", ErrRefreshFailed)
	}

	next := refreshCookie
	if rotated := c.findRefreshCookie(resp); rotated != "" {
		next = rotated
	}
	return out.AccessToken, next, nil
}

// Logout asks the auth API to end the server side session
func (c *APIClient) Logout(ctx context.Context, token, refreshCookie string) error {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if refreshCookie != "" {
		req.SetCookie(&http.Cookie{Name: c.refreshCookie, Value: refreshCookie})
	}

	resp, err := req.Post(logoutPath)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func (c *APIClient) findRefreshCookie(resp *resty.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.refreshCookie && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

type apiErrorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// extractMessage prefers the body "message" (string or list of strings),
// then "error", then fallback.
func extractMessage(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}

	parsed := apiErrorBody{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}

	if msg := rawText(parsed.Message); msg != "" {
		return msg
	}
	if msg := rawText(parsed.Error); msg != "" {
		return msg
	}
	return fallback
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, ", "))
	}

	return ""
}
