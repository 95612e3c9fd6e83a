package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"

	"indieconverters/internal/auth"
	"indieconverters/internal/cart"
	"indieconverters/internal/config"
	"indieconverters/internal/http/handlers"
	applog "indieconverters/internal/log"
	"indieconverters/internal/repos"
	"indieconverters/internal/services"
)

const (
	readerEmail = "reader@indieconverters.test"
	password    = "Passw0rd!"
)

type testApp struct {
	*fiber.App
	DB     *sqlx.DB
	Tokens *auth.JWTManager
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// newTestApp wires the real handlers over an in-memory database with
// the same middleware order the server uses. loginMax bounds POST /login.
func newTestApp(t *testing.T, loginMax int) *testApp {
	t.Helper()
	cfg := config.Config{DBDSN: ":memory:"}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	carts := cart.NewService(repos.NewCartRepo(db))
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	authH := &handlers.AuthHandler{Auth: &services.AuthService{Users: repos.NewUserRepo(db), Tokens: tokens, Carts: carts}}

	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if isAPI(c) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
			}
			return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Something went wrong. Please try again."})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(handlers.Authenticate(tokens))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
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

	deps := handlers.NewDeps(db, cfg, carts)
	app.Get("/books/:slug", deps.BookHandler.Detail)
	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/cart/items/:id/:action", deps.CartHandler.PageAction)
	app.Get("/api/search", limiter.New(limiter.Config{Max: 3, Expiration: time.Minute}), deps.SearchHandler.Search)
	app.Get("/api/genres", deps.SearchHandler.Genres)

	v1 := app.Group("/api/v1/cart")
	v1.Get("/", deps.CartHandler.Get)
	v1.Delete("/", deps.CartHandler.Clear)
	v1.Post("/refresh", deps.CartHandler.Refresh)
	v1.Post("/items", deps.CartHandler.AddItem)
	v1.Patch("/items/:id", deps.CartHandler.UpdateQuantity)
	v1.Delete("/items/:id", deps.CartHandler.RemoveItem)

	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        loginMax,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/signup", authH.SignupForm)
	app.Post("/signup", limiter.New(limiter.Config{Max: loginMax, Expiration: time.Minute}), authH.Signup)
	app.Post("/logout", handlers.RequireUser(), authH.Logout)

	return &testApp{App: app, DB: db, Tokens: tokens}
}

// do sends req with the given cookies attached.
func (a *testApp) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := a.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func (a *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp := a.do(t, httptest.NewRequest("GET", "/login", nil))
	if c := cookie(resp, "csrf_"); c != nil {
		return c.Value
	}
	t.Fatal("csrf cookie missing")
	return ""
}

func (a *testApp) postForm(t *testing.T, path, form string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req, cookies...)
}

func (a *testApp) sendJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.do(t, req, cookies...)
}

func cookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

type logEntry struct {
	Msg    string         `json:"msg"`
	Level  string         `json:"level"`
	Kind   string         `json:"kind"`
	Status int            `json:"status"`
	UserID string         `json:"user_id"`
	ReqID  string         `json:"req_id"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *lockedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// captureLogs routes the default slog logger into JSON lines for the
// duration of fn.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	prev := slog.Default()
	w := &lockedWriter{}
	applog.Setup(w, "info", "json")
	defer slog.SetDefault(prev)

	fn()

	var out []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.String()), "\n") {
		var e logEntry
		if line != "" && json.Unmarshal([]byte(line), &e) == nil {
			out = append(out, e)
		}
	}
	return out
}

func findLog(entries []logEntry, msg string) (logEntry, bool) {
	for _, e := range entries {
		if e.Msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}
