package auth

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// VisitorCookies issues and reads the opaque visitor id cookie. The
// cookie lifetime follows the storage scope: a persistent session gets
// an Expires, a session scope one lives as long as the browser session.
type VisitorCookies struct {
	Name     string
	Secure   bool
	Remember time.Duration
	now      func() time.Time
}

// NewVisitorCookies builds the cookie helper from cfg
func NewVisitorCookies(cfg Config) VisitorCookies {
	return VisitorCookies{
		Name:     cfg.GetVisitorCookieName(),
		Secure:   cfg.GetCookieSecure(),
		Remember: cfg.GetRememberMeDuration(),
		now:      time.Now,
	}
}

// Read returns the visitor id carried by the request
func (v VisitorCookies) Read(c router.Context) (string, bool) {
	raw := c.Cookies(v.Name)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Ensure returns the request's visitor id, issuing a browser session
// cookie when there is none.
func (v VisitorCookies) Ensure(c router.Context) string {
	if id, ok := v.Read(c); ok {
		return id
	}
	return v.Issue(c, ScopeSession)
}

// Issue sets a fresh visitor id sized for scope
func (v VisitorCookies) Issue(c router.Context, scope Scope) string {
	id := newVisitorID()
	v.Set(c, id, scope)
	return id
}

// Set writes the cookie for id
func (v VisitorCookies) Set(c router.Context, id string, scope Scope) {
	cookie := &router.Cookie{
		Name:     v.Name,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   v.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	}
	if scope == ScopePersistent {
		now := time.Now
		if v.now != nil {
			now = v.now
		}
		cookie.Expires = now().Add(v.Remember)
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
}

// Clear expires the cookie in the browser
func (v VisitorCookies) Clear(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     v.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   v.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func newVisitorID() string {
	return uuid.NewString()
}
