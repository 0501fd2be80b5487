package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// CSRFMiddleware protects the form posts. The token is read from the
// X-Csrf-Token header first (client scripts), then from the _csrf form
// field, and exposed to views under the "csrf" locals key.
func CSRFMiddleware(cfg Config) fiber.Handler {
	fromHeader := csrf.CsrfFromHeader(csrfHeaderName)
	fromForm := csrf.CsrfFromForm(csrfFormField)

	return csrf.New(csrf.Config{
		CookieName:     "coachpro_csrf",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.GetCookieSecure(),
		CookieHTTPOnly: true,
		Expiration:     time.Hour,
		ContextKey:     csrfContextKey,
		Extractor: func(c *fiber.Ctx) (string, error) {
			if token, err := fromHeader(c); err == nil {
				return token, nil
			}
			return fromForm(c)
		},
	})
}

// UseDefaultMiddleware installs panic recovery, request ids and, when
// enabled, CSRF protection.
func UseDefaultMiddleware(app fiber.Router, cfg Config) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.GetCSRFEnabled() {
		app.Use(CSRFMiddleware(cfg))
	}
}
