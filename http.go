package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
)

// RouteAuthenticator adapts the Manager to go-router: it resolves the
// visitor, guards protected routes and feeds the inactivity monitors.
type RouteAuthenticator struct {
	manager *Manager
	cfg     Config
	cookies VisitorCookies
	notices FlashNotices
	Logger  Logger
}

// NewHTTPAuthenticator creates a RouteAuthenticator
func NewHTTPAuthenticator(manager *Manager) (*RouteAuthenticator, error) {
	if manager == nil {
		return nil, ErrMissingManager
	}
	return &RouteAuthenticator{
		manager: manager,
		cfg:     manager.Config(),
		cookies: NewVisitorCookies(manager.Config()),
		notices: NewFlashNotices(manager.Config()),
		Logger:  manager.Logger(),
	}, nil
}

// Manager returns the wrapped manager
func (a *RouteAuthenticator) Manager() *Manager {
	return a.manager
}

// Cookies returns the visitor cookie helper
func (a *RouteAuthenticator) Cookies() VisitorCookies {
	return a.cookies
}

// Notices returns the flash notice carrier
func (a *RouteAuthenticator) Notices() FlashNotices {
	return a.notices
}

// Visitor returns the visitor id of the request
func (a *RouteAuthenticator) Visitor(ctx router.Context) (string, bool) {
	return a.cookies.Read(ctx)
}

// ProtectedRoute guards the routes after it. Authenticated visitors get
// their Session Record in the locals and the request context. Everyone
// else is redirected to the login page with the original destination.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			visitor, ok := a.cookies.Read(ctx)
			if !ok {
				return a.redirectToLogin(ctx, true)
			}

			monitors := a.manager.Monitors()
			if monitors.PendingRedirect(visitor) {
				monitors.ClearRedirect(visitor)
				return a.notices.Redirect(ctx, Notice{Kind: NoticeWarning, Message: NoticeSessionExpired},
					a.cfg.GetLoginPath(), redirectStatus(ctx))
			}

			decision := Evaluate(ctx.Context(), a.manager.Store(visitor))
			if decision.State != StateAuthenticated {
				a.Logger.Info("protected route rejected",
					"visitor", visitor,
					"reason", decision.Reason.String(),
					"path", ctx.OriginalURL(),
				)
				monitors.Remove(visitor)
				return a.redirectToLogin(ctx, decision.Notify())
			}

			monitors.Ensure(visitor)
			setSessionLocals(ctx, visitor, decision.Record)
			return ctx.Next()
		}
	}
}

// TrackActivity records the request as visitor activity. A visitor whose
// session expired for inactivity is sent to the login page once.
func (a *RouteAuthenticator) TrackActivity() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			visitor, ok := a.cookies.Read(ctx)
			if !ok {
				return ctx.Next()
			}
			ctx.Locals(LocalsVisitorKey, visitor)

			monitors := a.manager.Monitors()
			if !monitors.PendingRedirect(visitor) {
				monitors.Touch(visitor, a.manager.now())
				return ctx.Next()
			}

			expired := Notice{Kind: NoticeWarning, Message: NoticeSessionExpired}
			switch {
			case ctx.Path() == a.cfg.GetLoginPath():
				monitors.ClearRedirect(visitor)
				a.notices.Add(ctx, expired)
			case strings.HasPrefix(ctx.Path(), "/session"):
			default:
				monitors.ClearRedirect(visitor)
				return a.notices.Redirect(ctx, expired, a.cfg.GetLoginPath(), redirectStatus(ctx))
			}
			return ctx.Next()
		}
	}
}

// Login rotates the visitor id, persists result and sets the cookie for
// the chosen scope. It returns the new visitor id.
func (a *RouteAuthenticator) Login(ctx router.Context, result AuthResult, rememberMe bool) (string, error) {
	rctx := ctx.Context()
	previous, hadPrevious := a.cookies.Read(ctx)

	visitor := newVisitorID()
	if err := a.manager.Establish(rctx, visitor, result, rememberMe); err != nil {
		a.Logger.Error("failed to persist session", "error", err)
		return "", err
	}

	if hadPrevious {
		if err := a.manager.Store(previous).Clear(rctx); err != nil {
			a.Logger.Warn("failed to clear previous visitor", "error", err)
		}
		a.manager.Monitors().Remove(previous)
		a.manager.Monitors().ClearRedirect(previous)
	}

	a.cookies.Set(ctx, visitor, ScopeFor(rememberMe))
	return visitor, nil
}

// Logout ends the session and forgets the visitor cookie
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	if visitor, ok := a.cookies.Read(ctx); ok {
		a.manager.Logout(ctx.Context(), visitor)
	}
	a.cookies.Clear(ctx)
}

// LoginURL builds the login redirect target for ctx
func (a *RouteAuthenticator) LoginURL(ctx router.Context) string {
	next := ctx.OriginalURL()
	if next == "" || next == "/" {
		return a.cfg.GetLoginPath()
	}
	return a.cfg.GetLoginPath() + "?" + url.Values{"next": {next}}.Encode()
}

// SafeRedirect returns next when it is a local path, else the default
func (a *RouteAuthenticator) SafeRedirect(next string) string {
	if isLocalPath(next) && !strings.HasPrefix(next, a.cfg.GetLoginPath()) {
		return next
	}
	return a.cfg.GetDefaultRedirect()
}

func (a *RouteAuthenticator) redirectToLogin(ctx router.Context, notify bool) error {
	if !notify {
		return ctx.Redirect(a.LoginURL(ctx), redirectStatus(ctx))
	}
	return a.notices.Redirect(ctx, Notice{Kind: NoticeInfo, Message: NoticeLoginRequired},
		a.LoginURL(ctx), redirectStatus(ctx))
}

func redirectStatus(ctx router.Context) int {
	switch ctx.Method() {
	case http.MethodGet, http.MethodHead:
		return router.StatusFound
	default:
		return router.StatusSeeOther
	}
}

func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
