package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freshpos/internal/config"
	applog "freshpos/internal/log"
	"freshpos/internal/metrics"
)

// Request budgets per client IP.
const (
	requestsPerMinute = 300
	loginAttempts     = 5
	loginWindow       = 10 * time.Minute
)

func quiet(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/static/") || p == "/metrics" || p == "/healthz"
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, map[string]any{"status": code})
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	// avoid leaking internals; best-effort render
	if rerr := fail(c, code, msg); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// NewApp builds the fiber app with middlewares and every route mounted.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")

	// sids, terminal ids and barcodes outlive the request as session keys
	app := fiber.New(fiber.Config{
		Immutable:    true,
		Views:        engine,
		BodyLimit:    cfg.MaxUploadBytes,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{Next: quiet}))
	app.Use(helmet.New())
	app.Use(metrics.Middleware())
	app.Use(AttachOperator(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        requestsPerMinute,
		Expiration: time.Minute,
		Next:       quiet,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return fiber.ErrTooManyRequests
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ContextKey:     "csrf",
		// the JSON API relies on the Lax sid cookie instead of form tokens
		Next: func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") },
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"error": err.Error()})
			return fail(c, fiber.StatusForbidden, "Security check failed. Please refresh and try again.")
		},
	}))

	app.Static("/static", cfg.StaticDir)

	// ---------- Terminal screen ----------
	app.Get("/", d.TerminalHandler.Home)
	app.Post("/scan", d.TerminalHandler.Scan)
	app.Post("/pay", d.TerminalHandler.Pay)
	app.Post("/language", d.TerminalHandler.Language)

	// ---------- API ----------
	api := app.Group("/api/v1")
	api.Get("/order", d.APIHandler.Order)
	api.Post("/scan", d.APIHandler.Scan)
	api.Post("/scan/image", d.APIHandler.ScanImage)
	api.Post("/pay", d.APIHandler.Pay)
	api.Get("/decode", d.APIHandler.Decode)
	api.Get("/products/:plu", d.APIHandler.Product)

	// ---------- Auth (login throttled) ----------
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        loginAttempts,
		Expiration: loginWindow,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	// ---------- Catalog maintenance ----------
	admin := app.Group("/admin", RequireManager(d.Auth))
	admin.Get("/products", d.AdminHandler.Products)
	admin.Post("/products", d.AdminHandler.SaveProduct)
	admin.Post("/products/import", d.AdminHandler.Import)

	// ---------- Health, metrics & 404 ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return jsonError(c, fiber.StatusNotFound, "not found", nil)
		}
		return fail(c, fiber.StatusNotFound, "Page not found")
	})

	return app
}
