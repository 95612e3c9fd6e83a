package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/auth"
	applog "indieconverters/internal/log"
)

const accessTokenCookie = "access_token"

func bearerToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(accessTokenCookie)
}

// Authenticate attaches the user of a valid access token to the request.
// Requests without a token pass through anonymously; an invalid token is
// logged and ignored.
func Authenticate(tokens *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := bearerToken(c)
		if tok == "" {
			return c.Next()
		}
		claims, err := tokens.Validate(tok)
		if err != nil {
			applog.Security(c, "auth.token.invalid", nil)
			return c.Next()
		}
		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.SetUserContext(auth.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.UserID(c.UserContext()); !ok {
			applog.Security(c, "access.denied.user", nil)
			return c.Redirect("/login")
		}
		return c.Next()
	}
}
