package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the session core options
type Config interface {
	GetAuthBaseURL() string
	GetRequestTimeout() time.Duration
	GetRefreshCookieName() string
	GetVisitorCookieName() string
	GetCookieSecure() bool
	GetRememberMeDuration() time.Duration
	GetSessionScopeTTL() time.Duration
	GetIdleTimeout() time.Duration
	GetIdleCheckInterval() time.Duration
	GetLockoutThreshold() int
	GetLockoutDuration() time.Duration
	GetSimulatedFailurePassword() string
	GetLoginPath() string
	GetDefaultRedirect() string
	GetCSRFEnabled() bool
}

// ScopeBackend is a key/value area holding one credential envelope per
// visitor. Load returns ErrEnvelopeNotFound for missing keys and Delete
// on a missing key is not an error.
type ScopeBackend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, blob []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LoginPayload is what the login surface hands to the token service
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

// TimerFunc schedules f after d and returns a stop function with
// time.Timer.Stop semantics.
type TimerFunc func(d time.Duration, f func()) (stop func() bool)

func realTimer(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, f)
	return t.Stop
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTH " + formatLine(msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTH " + formatLine(msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTH " + formatLine(msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTH " + formatLine(msg, args))
}

// formatLine accepts both printf style messages and message + key/value
// pairs. args is a slice so the helpers are not printf wrappers.
func formatLine(msg string, args []any) string {
	if strings.Contains(msg, "%") {
		return formatf(msg, args)
	}
	return formatKV(msg, args)
}

func formatf(format string, args []any) string {
	return newline(fmt.Sprintf(format, args...))
}

func formatKV(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
