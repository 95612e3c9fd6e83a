package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/auth"
	"indieconverters/internal/cart"
)

// sessionCookieTTL keeps the anonymous cart token for a year.
const sessionCookieTTL = 365 * 24 * time.Hour

// CookieStorage is the browser-side token store: one long-lived cookie
// per key. Values written during a request are visible to later reads in
// the same request.
type CookieStorage struct {
	C       *fiber.Ctx
	Secure  bool
	written map[string]string
}

func (s *CookieStorage) Read(key string) (string, bool, error) {
	if v, ok := s.written[key]; ok {
		return v, true, nil
	}
	v := s.C.Cookies(key)
	return v, v != "", nil
}

func (s *CookieStorage) Write(key, value string) error {
	if s.written == nil {
		s.written = map[string]string{}
	}
	s.written[key] = value
	s.C.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.Secure,
	})
	return nil
}

func newResolver(c *fiber.Ctx, secure bool) *cart.Resolver {
	return cart.NewResolver(
		cart.AuthenticatorFunc(auth.UserID),
		&CookieStorage{C: c, Secure: secure},
		slog.Default(),
	)
}

// resolveIdentity issues the session cookie if the visitor has none.
// Only paths that write to a cart use it.
func resolveIdentity(c *fiber.Ctx, secure bool) cart.Identity {
	return newResolver(c, secure).Resolve(c.UserContext())
}

// peekIdentity reads the visitor's identity without setting a cookie.
func peekIdentity(c *fiber.Ctx) (cart.Identity, bool) {
	return newResolver(c, false).Peek(c.UserContext())
}
