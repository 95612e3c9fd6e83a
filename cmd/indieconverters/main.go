package main

import (
	"log/slog"
	"os"
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

	"indieconverters/internal/auth"
	"indieconverters/internal/cart"
	"indieconverters/internal/config"
	"indieconverters/internal/domain"
	"indieconverters/internal/http/handlers"
	applog "indieconverters/internal/log"
	"indieconverters/internal/metrics"
	"indieconverters/internal/repos"
	"indieconverters/internal/services"
)

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	applog.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		slog.Error("open database", "dsn", cfg.DBDSN, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()

	// Cart wiring
	carts := cart.NewService(repos.NewCartRepo(db),
		cart.WithServiceHook(m.CartOp),
		cart.WithObserver(func(_ domain.Owner, s cart.Snapshot) { m.CartUnits(s.CartCount) }),
	)

	// Auth wiring
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := &services.AuthService{Users: repos.NewUserRepo(db), Tokens: tokens, Carts: carts}
	authH := &handlers.AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure}

	// Templates & app
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(cfg.LogLevel == "debug")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if isAPI(c) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
			}
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.Authenticate(tokens))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/") || c.Path() == "/metrics"
		},
	}))
	// Forms carry a CSRF token; the JSON API is same-origin fetch with a
	// SameSite cookie and skips it.
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		Next:           isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Static("/static", cfg.StaticDir)

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, carts)

	// Catalog pages
	app.Get("/", deps.BookHandler.List)
	app.Get("/books", deps.BookHandler.List)
	app.Get("/books/:slug", deps.BookHandler.Detail)
	app.Get("/authors", deps.AuthorHandler.List)
	app.Get("/authors/:slug", deps.AuthorHandler.Detail)
	app.Get("/services", deps.ServiceHandler.List)

	// Cart pages
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/cart/items/:id/:action", deps.CartHandler.PageAction)

	// API
	api := app.Group("/api")
	searchLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|search"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.search.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/search", searchLimiter, deps.SearchHandler.Search)
	api.Get("/genres", deps.SearchHandler.Genres)

	v1 := api.Group("/v1/cart")
	v1.Get("/", deps.CartHandler.Get)
	v1.Delete("/", deps.CartHandler.Clear)
	v1.Post("/refresh", deps.CartHandler.Refresh)
	v1.Post("/items", deps.CartHandler.AddItem)
	v1.Patch("/items/:id", deps.CartHandler.UpdateQuantity)
	v1.Delete("/items/:id", deps.CartHandler.RemoveItem)

	// Auth routes (login and signup throttled)
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/signup", authH.SignupForm)
	app.Post("/signup", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.signup.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("signup", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Signup)
	app.Post("/logout", handlers.RequireUser(), authH.Logout)

	// Health, metrics & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	slog.Info("server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
