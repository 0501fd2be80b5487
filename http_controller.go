package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the login, signup, logout and session routes
// on app and returns the controller so callers can guard their own pages.
// Activity tracking is added to app, routes registered afterwards get it
// too.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Use(controller.Auther.TrackActivity())

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")
	app.Post(controller.Routes.Logout, controller.LogOut).SetName("sign-out.post")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")
	app.Post(controller.Routes.Register+"/strength", controller.PasswordStrengthPost).
		SetName("register.strength")

	app.Get(controller.Routes.Session, controller.SessionState).SetName("session.get")
	app.Post(controller.Routes.Session+"/ping", controller.SessionPing).SetName("session.ping")

	app.Get(controller.Routes.Dashboard, controller.Dashboard, controller.Auther.ProtectedRoute()).
		SetName("dashboard.get")

	return controller
}

type AuthControllerRoutes struct {
	Login     string
	Logout    string
	Register  string
	Session   string
	Dashboard string
}

type AuthControllerViews struct {
	Login     string
	Register  string
	Dashboard string
	Error     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       *RouteAuthenticator
	PhoneRegion  string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthenticator sets the route authenticator
func WithAuthenticator(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		if auther != nil && auther.Logger != nil {
			c.Logger = auther.Logger
		}
		return c
	}
}

// WithControllerDebug dumps payloads to stdout
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithPhoneRegion sets the region used to parse signup phone numbers
func WithPhoneRegion(region string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if region != "" {
			c.PhoneRegion = region
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:      defLogger{},
		PhoneRegion: DefaultPhoneRegion,
		Routes: &AuthControllerRoutes{
			Login:     "/login",
			Logout:    "/logout",
			Register:  "/signup",
			Session:   "/session",
			Dashboard: "/dashboard",
		},
		Views: &AuthControllerViews{
			Login:     "login",
			Register:  "signup",
			Dashboard: "dashboard",
			Error:     "error",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	c.Routes.Login = c.Auther.cfg.GetLoginPath()

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	return c
}

func (a *AuthController) manager() *Manager {
	return a.Auther.Manager()
}

// LoginShow renders the login form. A visitor that still holds a valid
// token goes straight on, a stale session is cleared.
func (a *AuthController) LoginShow(ctx router.Context) error {
	visitor, ok := a.Auther.Visitor(ctx)
	if ok && a.revalidate(ctx, visitor) {
		return ctx.Redirect(a.Auther.SafeRedirect(ctx.Query("next")), router.StatusFound)
	}

	return a.renderLogin(ctx, router.StatusOK, visitor, router.ViewContext{
		"record": LoginRequest{Next: ctx.Query("next")},
	})
}

// revalidate is the login entry check: refresh the token when needed and
// confirm it with the auth API. A confirmed session counts as activity.
func (a *AuthController) revalidate(ctx router.Context, visitor string) bool {
	uctx := ctx.Context()
	tokens := a.manager().Tokens(visitor)

	if _, found := tokens.User(uctx); !found {
		return false
	}

	if _, ok := tokens.EnsureValidToken(uctx); ok && tokens.ValidateToken(uctx) {
		if err := tokens.Store().TouchUser(uctx); err != nil {
			a.Logger.Warn("failed to touch revalidated session", "visitor", visitor, "error", err)
		}
		a.manager().Monitors().Ensure(visitor).Touch(a.manager().now())
		return true
	}

	a.Logger.Info("stale session cleared at login", "visitor", visitor)
	a.manager().Monitors().Remove(visitor)
	if err := tokens.Store().Clear(uctx); err != nil {
		a.Logger.Error("failed to clear stale session", "visitor", visitor, "error", err)
	}
	return false
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.renderLogin(ctx, router.StatusBadRequest, "", router.ViewContext{
			"errors": ValidationErrors{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(LoginRequest{Email: payload.Email, RememberMe: payload.RememberMe, Next: payload.Next}))
		fmt.Println("=========================")
	}

	visitor := a.Auther.Cookies().Ensure(ctx)
	tokens := a.manager().Tokens(visitor)
	surface := a.manager().LoginSurface(visitor)

	var result AuthResult
	err := surface.Submit(ctx.Context(), *payload, func(c context.Context, req LoginRequest) error {
		var lerr error
		result, lerr = tokens.Login(c, req.Credentials())
		return lerr
	})

	if err != nil {
		return a.loginFailed(ctx, visitor, payload, err)
	}

	if _, err := a.Auther.Login(ctx, result, payload.RememberMe); err != nil {
		return a.renderLogin(ctx, router.StatusInternalServerError, visitor, router.ViewContext{
			"errors": ValidationErrors{"authentication": DefaultAuthErrorMessage},
			"record": LoginRequest{Email: payload.Email, Next: payload.Next},
		})
	}

	redirect := a.Auther.SafeRedirect(payload.Next)
	a.Logger.Info("login redirect", "path", redirect)
	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) loginFailed(ctx router.Context, visitor string, payload *LoginRequest, err error) error {
	record := LoginRequest{Email: payload.Email, RememberMe: payload.RememberMe, Next: payload.Next}

	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return a.renderLogin(ctx, router.StatusUnprocessableEntity, visitor, router.ViewContext{
			"errors": verrs,
			"record": record,
		})
	case errors.Is(err, ErrFormLocked):
		a.Auther.Notices().Add(ctx, Notice{Kind: NoticeError, Message: NoticeFormLocked})
		return a.renderLogin(ctx, router.StatusTooManyRequests, visitor, router.ViewContext{
			"record": record,
		})
	case errors.Is(err, ErrInvalidCredentials):
		return a.renderLogin(ctx, router.StatusUnauthorized, visitor, router.ViewContext{
			"errors": ValidationErrors{"authentication": "Invalid email or password"},
			"record": record,
		})
	case IsAuthenticationError(err):
		return a.renderLogin(ctx, router.StatusUnauthorized, visitor, router.ViewContext{
			"errors": ValidationErrors{"authentication": UserMessage(err, DefaultAuthErrorMessage)},
			"record": record,
		})
	default:
		return a.ErrorHandler(ctx, err)
	}
}

func (a *AuthController) renderLogin(ctx router.Context, status int, visitor string, data router.ViewContext) error {
	locked := false
	if visitor != "" {
		locked = a.manager().Lockouts().Locked(visitor)
	}

	view := router.ViewContext{
		"notices": a.Auther.Notices().Take(ctx),
		"locked":  locked,
		"errors":  ValidationErrors{},
	}
	for k, v := range data {
		view[k] = v
	}

	return ctx.Status(status).Render(a.Views.Login, viewContext(ctx, view))
}

// LogOut ends the session and goes back to the login page
func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return a.Auther.Notices().Redirect(ctx, Notice{Kind: NoticeSuccess, Message: NoticeLoggedOut},
		a.Routes.Login, redirectStatus(ctx))
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, viewContext(ctx, router.ViewContext{
		"notices": a.Auther.Notices().Take(ctx),
		"errors":  ValidationErrors{},
		"record":  SignupRequest{},
	}))
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.renderSignup(ctx, router.StatusBadRequest, payload, ValidationErrors{"form": "Failed to parse form"})
	}

	tokens := a.manager().Tokens(a.Auther.Cookies().Ensure(ctx))
	surface := SignupSurface{Region: a.PhoneRegion}

	var result AuthResult
	err := surface.Submit(ctx.Context(), *payload, func(c context.Context, creds Credentials) error {
		var serr error
		result, serr = tokens.Signup(c, creds)
		return serr
	})

	var verrs ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		return a.renderSignup(ctx, router.StatusUnprocessableEntity, payload, verrs)
	case IsAuthenticationError(err):
		a.Logger.Warn("register user rejected", "error", err)
		return a.renderSignup(ctx, router.StatusUnprocessableEntity, payload, ValidationErrors{
			"form": UserMessage(err, DefaultSignupErrorMessage),
		})
	default:
		return a.ErrorHandler(ctx, err)
	}

	if _, err := a.Auther.Login(ctx, result, payload.RememberMe); err != nil {
		return a.renderSignup(ctx, router.StatusInternalServerError, payload, ValidationErrors{
			"form": DefaultSignupErrorMessage,
		})
	}

	return ctx.Redirect(a.Auther.SafeRedirect(""), router.StatusSeeOther)
}

func (a *AuthController) renderSignup(ctx router.Context, status int, payload *SignupRequest, verrs ValidationErrors) error {
	record := *payload
	record.Password = ""
	record.ConfirmPassword = ""

	return ctx.Status(status).Render(a.Views.Register, viewContext(ctx, router.ViewContext{
		"errors": verrs,
		"record": record,
	}))
}

type strengthRequest struct {
	Password string `form:"password" json:"password"`
}

// PasswordStrengthPost scores a candidate password for the signup meter
func (a *AuthController) PasswordStrengthPost(ctx router.Context) error {
	payload := new(strengthRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "invalid payload"})
	}

	score, label := PasswordStrength(payload.Password)
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"score": score,
		"label": label,
	})
}

// SessionState reports the visitor's session for client scripts
func (a *AuthController) SessionState(ctx router.Context) error {
	visitor, ok := a.Auther.Visitor(ctx)
	if !ok {
		return ctx.JSON(router.StatusOK, router.ViewContext{"authenticated": false})
	}

	monitors := a.manager().Monitors()
	if monitors.PendingRedirect(visitor) {
		return ctx.JSON(router.StatusOK, router.ViewContext{
			"authenticated": false,
			"expired":       true,
			"redirect":      a.Routes.Login,
		})
	}

	rctx := ctx.Context()
	store := a.manager().Store(visitor)
	decision := Evaluate(rctx, store)
	if decision.State != StateAuthenticated {
		return ctx.JSON(router.StatusOK, router.ViewContext{"authenticated": false})
	}

	scope, _ := store.Scope(rctx)
	token, _ := store.Get(rctx)

	out := router.ViewContext{
		"authenticated": true,
		"user":          decision.Record,
		"scope":         scope.String(),
		"token_expired": IsTokenExpired(token),
	}
	if m, ok := monitors.Get(visitor); ok {
		out["idle_seconds"] = int(m.Idle().Seconds())
	}
	return ctx.JSON(router.StatusOK, out)
}

// SessionPing is the explicit activity heartbeat
func (a *AuthController) SessionPing(ctx router.Context) error {
	visitor, ok := a.Auther.Visitor(ctx)
	if !ok {
		return ctx.JSON(router.StatusUnauthorized, router.ViewContext{"active": false})
	}

	monitors := a.manager().Monitors()
	if monitors.PendingRedirect(visitor) {
		return ctx.JSON(router.StatusUnauthorized, router.ViewContext{
			"active":   false,
			"expired":  true,
			"redirect": a.Routes.Login,
		})
	}

	if !monitors.Touch(visitor, a.manager().now()) {
		if !a.manager().Store(visitor).HasSession(ctx.Context()) {
			return ctx.JSON(router.StatusUnauthorized, router.ViewContext{"active": false})
		}
		monitors.Ensure(visitor)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{"active": true})
}

// Dashboard is the placeholder protected page
func (a *AuthController) Dashboard(ctx router.Context) error {
	record, err := GetSession(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Dashboard, viewContext(ctx, router.ViewContext{
		"user":    record,
		"notices": a.Auther.Notices().Take(ctx),
	}))
}

func (a *AuthController) defaultErrHandler(ctx router.Context, err error) error {
	a.Logger.Error("auth controller error", "path", ctx.OriginalURL(), "error", err)
	return ctx.Status(router.StatusInternalServerError).Render(a.Views.Error, viewContext(ctx, router.ViewContext{
		"message": "An unexpected error occurred",
	}))
}
