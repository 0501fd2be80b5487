package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
)

// memBackend is an in memory ScopeBackend
type memBackend struct {
	mu        sync.Mutex
	data      map[string][]byte
	ttls      map[string]time.Duration
	loadErr   error
	storeErr  error
	deleteErr error
	storeCall int
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (b *memBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	v, ok := b.data[key]
	if !ok {
		return nil, ErrEnvelopeNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *memBackend) Store(_ context.Context, key string, blob []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeCall++
	if b.storeErr != nil {
		return b.storeErr
	}
	b.data[key] = append([]byte(nil), blob...)
	b.ttls[key] = ttl
	return nil
}

func (b *memBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.data, key)
	delete(b.ttls, key)
	return nil
}

func (b *memBackend) raw(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return string(v), ok
}

func (b *memBackend) put(key, blob string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = []byte(blob)
}

func (b *memBackend) envelope(key string) (map[string]json.RawMessage, bool) {
	raw, ok := b.raw(key)
	if !ok {
		return nil, false
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTimerEntry struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

// fakeTimer records scheduled callbacks and runs them on demand
type fakeTimer struct {
	mu      sync.Mutex
	entries []*fakeTimerEntry
}

func (ft *fakeTimer) Func(d time.Duration, f func()) func() bool {
	e := &fakeTimerEntry{d: d, f: f}
	ft.mu.Lock()
	ft.entries = append(ft.entries, e)
	ft.mu.Unlock()

	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		if e.stopped || e.fired {
			return false
		}
		e.stopped = true
		return true
	}
}

// FireAll runs every pending callback once and reports how many ran
func (ft *fakeTimer) FireAll() int {
	ft.mu.Lock()
	var due []*fakeTimerEntry
	var keep []*fakeTimerEntry
	for _, e := range ft.entries {
		switch {
		case e.stopped || e.fired:
		case true:
			e.fired = true
			due = append(due, e)
		}
	}
	for _, e := range ft.entries {
		if !e.stopped && !e.fired {
			keep = append(keep, e)
		}
	}
	ft.entries = keep
	ft.mu.Unlock()

	for _, e := range due {
		e.f()
	}
	return len(due)
}

// Pending is the number of callbacks waiting to run
func (ft *fakeTimer) Pending() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, e := range ft.entries {
		if !e.stopped && !e.fired {
			n++
		}
	}
	return n
}

// LastDelay is the delay of the most recent pending callback
func (ft *fakeTimer) LastDelay() time.Duration {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for i := len(ft.entries) - 1; i >= 0; i-- {
		if e := ft.entries[i]; !e.stopped && !e.fired {
			return e.d
		}
	}
	return 0
}

// MockActivitySink implements ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingSink keeps every event
type recordingSink struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count(t ActivityEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// quietLogger drops everything
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func sampleRecord() SessionRecord {
	return SessionRecord{
		ID:        "u-42",
		Email:     "ada@coachpro.test",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      RoleCoach,
	}
}

// authAPI is an httptest stand in for the remote auth API
type authAPI struct {
	srv      *httptest.Server
	mu       sync.Mutex
	calls    map[string]int
	cookies  map[string]string
	bearer   map[string]string
	handlers map[string]http.HandlerFunc
}

func newAuthAPI(t *testing.T) *authAPI {
	t.Helper()
	api := &authAPI{
		calls:    map[string]int{},
		cookies:  map[string]string{},
		bearer:   map[string]string{},
		handlers: map[string]http.HandlerFunc{},
	}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls[r.URL.Path]++
		if c, err := r.Cookie(defaultRefreshCookieName); err == nil {
			api.cookies[r.URL.Path] = c.Value
		}
		api.bearer[r.URL.Path] = r.Header.Get("Authorization")
		h := api.handlers[r.URL.Path]
		api.mu.Unlock()

		if h == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *authAPI) handle(path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = h
}

func (a *authAPI) callCount(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[path]
}

func (a *authAPI) cookieSent(path string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cookies[path]
}

func (a *authAPI) bearerSent(path string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bearer[path]
}

func (a *authAPI) client() *APIClient {
	return NewAPIClient(a.srv.URL, WithAPILogger(quietLogger{}))
}

// loginOK answers a login with token, a refresh cookie and the sample user
func loginOK(token, refresh string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if refresh != "" {
			http.SetCookie(w, &http.Cookie{Name: defaultRefreshCookieName, Value: refresh, HttpOnly: true, Path: "/"})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken": token,
			"user":        sampleRecord(),
		})
	}
}

func status(code int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, code, body)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if raw, ok := body.(string); ok {
		fmt.Fprint(w, raw)
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

var errBackendDown = errors.New("backend down")
