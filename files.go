package auth

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
)

//go:embed views
var viewsFS embed.FS

// GetViewsFS returns the login, signup and dashboard templates
func GetViewsFS() fs.FS {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewViewEngine returns a django engine over the embedded views
func NewViewEngine() *django.Engine {
	return django.NewFileSystem(http.FS(GetViewsFS()), ".html")
}

// NewFiberServer returns a go-router server on a fiber app that renders
// the embedded views. Request locals reach the templates.
func NewFiberServer(configure ...func(*fiber.Config)) router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		cfg := fiber.Config{
			UnescapePath:      true,
			PassLocalsToViews: true,
			Views:             NewViewEngine(),
		}
		for _, fn := range configure {
			fn(&cfg)
		}
		return fiber.New(cfg)
	})
}
