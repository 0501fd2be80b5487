package auth

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// NoticeKind is the tone of a notice
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

const (
	// NoticeLoginRequired is shown when a protected page needs a session
	NoticeLoginRequired = "Please log in to continue."
	// NoticeSessionExpired is shown after an inactivity timeout
	NoticeSessionExpired = "Your session has expired due to inactivity."
	// NoticeLoggedOut is shown after an explicit logout
	NoticeLoggedOut = "You have been logged out."
	// NoticeFormLocked is shown while the login form is locked
	NoticeFormLocked = "Too many failed attempts. Please wait 30 seconds before trying again."
)

const (
	defaultFlashCookieName = "coachpro_flash"
	flashMessageKey        = "notice"
	localsNoticesKey       = "coachpro.notices"
)

// Notice is a one-shot message shown on the next rendered page
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// FlashNotices moves notices to the page the browser renders next. A
// notice raised before a redirect rides the go-router flash cookie, one
// raised while rendering goes straight to the view.
type FlashNotices struct {
	config flash.Config
}

// NewFlashNotices builds the notice carrier, the cookie follows the
// visitor cookie security settings.
func NewFlashNotices(cfg Config) FlashNotices {
	return FlashNotices{config: flash.Config{
		Name:        defaultFlashCookieName,
		Path:        "/",
		Secure:      cfg.GetCookieSecure(),
		HTTPOnly:    true,
		SameSite:    router.CookieSameSiteLaxMode,
		SessionOnly: true,
	}}
}

// CookieName is the name of the flash cookie
func (n FlashNotices) CookieName() string {
	return n.config.Name
}

// Flash returns a flash bound to the notice cookie. flash.Flash keeps the
// data it last wrote, so every request gets its own.
func (n FlashNotices) Flash() *flash.Flash {
	return flash.New(n.config)
}

// Redirect flashes notice and redirects to location
func (n FlashNotices) Redirect(ctx router.Context, notice Notice, location string, status int) error {
	return n.set(ctx, notice).Redirect(location, status)
}

// Add shows notice on the page rendered by the current request
func (n FlashNotices) Add(ctx router.Context, notice Notice) {
	if notice.Message == "" {
		return
	}
	current, _ := ctx.Locals(localsNoticesKey).([]Notice)
	ctx.Locals(localsNoticesKey, append(current, notice))
}

// Take returns the notices for the page being rendered and expires the
// flash cookie, so each one shows once.
func (n FlashNotices) Take(ctx router.Context) []Notice {
	var notices []Notice
	if current, ok := ctx.Locals(localsNoticesKey).([]Notice); ok {
		notices = append(notices, current...)
		ctx.Locals(localsNoticesKey, []Notice{})
	}

	if ctx.Cookies(n.config.Name) != "" {
		data := n.Flash().Get(ctx)
		n.expire(ctx)
		if msg, ok := data[flashMessageKey].(string); ok && msg != "" {
			notices = append(notices, Notice{Kind: flashKind(data), Message: msg})
		}
	}

	return uniqueNotices(notices)
}

func (n FlashNotices) set(ctx router.Context, notice Notice) router.Context {
	f := n.Flash()
	data := router.ViewContext{flashMessageKey: notice.Message}

	switch notice.Kind {
	case NoticeError:
		return f.WithError(ctx, data)
	case NoticeWarning:
		return f.WithWarn(ctx, data)
	case NoticeSuccess:
		return f.WithSuccess(ctx, data)
	default:
		return f.WithInfo(ctx, data)
	}
}

// expire drops the flash cookie, flash.Get only clears it in the
// request store.
func (n FlashNotices) expire(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     n.config.Name,
		Value:    "",
		Path:     n.config.Path,
		Expires:  time.Now().Add(-24 * time.Hour),
		Secure:   n.config.Secure,
		HTTPOnly: true,
		SameSite: n.config.SameSite,
	})
}

func flashKind(data router.ViewContext) NoticeKind {
	for flag, kind := range map[string]NoticeKind{
		"error":   NoticeError,
		"warn":    NoticeWarning,
		"success": NoticeSuccess,
	} {
		if v, ok := data[flag]; ok && v == "true" {
			return kind
		}
	}
	return NoticeInfo
}

func uniqueNotices(notices []Notice) []Notice {
	if len(notices) < 2 {
		return notices
	}
	seen := map[string]bool{}
	out := notices[:0]
	for _, n := range notices {
		if seen[n.Message] {
			continue
		}
		seen[n.Message] = true
		out = append(out, n)
	}
	return out
}
