package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/cart"
	"indieconverters/internal/log"
	"indieconverters/internal/services"
	"indieconverters/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, email, reason string) error {
	log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
	c.Status(fiber.StatusUnauthorized)
	return render(c, "login", fiber.Map{"Err": "Invalid email or password"})
}

// Login issues the access token cookie and folds the visitor's anonymous
// cart into the account's cart.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	if _, ok := validate.Email(email); !ok {
		return h.loginFailed(c, email, "bad_format")
	}
	if !validate.Password(pass) {
		return h.loginFailed(c, email, "bad_password_format")
	}

	u, tok, err := h.Auth.Login(c.UserContext(), c.Cookies(cart.SessionKey), email, pass)
	if errors.Is(err, services.ErrBadCreds) {
		return h.loginFailed(c, email, "bad_credentials")
	}
	if err != nil {
		log.Error(c, "auth.login.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("login", fiber.Map{"Err": "Something went wrong. Please try again."})
	}

	h.signedIn(c, tok)
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "user_id": u.ID})
	return c.Redirect("/")
}

func (h *AuthHandler) signedIn(c *fiber.Ctx, tok string) {
	c.Cookie(&fiber.Cookie{
		Name:     accessTokenCookie,
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(h.Auth.Tokens.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
	})
	// The anonymous cart now belongs to the user.
	h.expire(c, cart.SessionKey)
}

func (h *AuthHandler) SignupForm(c *fiber.Ctx) error {
	return render(c, "signup", fiber.Map{"Err": ""})
}

func (h *AuthHandler) signupFailed(c *fiber.Ctx, status int, form fiber.Map, reason, msg string) error {
	log.Security(c, "auth.signup.fail", map[string]any{"email": form["Email"], "reason": reason})
	form["Err"] = msg
	c.Status(status)
	return render(c, "signup", form)
}

// Signup creates an account and signs it in the same way Login does.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	name, nok := validate.Name(c.FormValue("name"))
	email, eok := validate.Email(c.FormValue("email"))
	pass := c.FormValue("password")
	form := fiber.Map{"Name": name, "Email": email}
	switch {
	case !nok:
		return h.signupFailed(c, fiber.StatusBadRequest, form, "bad_name", "Please enter your name.")
	case !eok:
		return h.signupFailed(c, fiber.StatusBadRequest, form, "bad_format", "Please enter a valid email address.")
	case !validate.Password(pass):
		return h.signupFailed(c, fiber.StatusBadRequest, form, "weak_password",
			"Passwords need 8 to 64 characters with upper and lower case letters, a digit and a symbol.")
	case pass != c.FormValue("confirm"):
		return h.signupFailed(c, fiber.StatusBadRequest, form, "confirm_mismatch", "Passwords do not match.")
	}

	u, tok, err := h.Auth.Signup(c.UserContext(), c.Cookies(cart.SessionKey), name, email, pass)
	if errors.Is(err, services.ErrEmailTaken) {
		return h.signupFailed(c, fiber.StatusConflict, form, "email_taken", "An account with that email already exists.")
	}
	if err != nil {
		log.Error(c, "auth.signup.error", err, nil)
		form["Err"] = "Something went wrong. Please try again."
		c.Status(fiber.StatusInternalServerError)
		return render(c, "signup", form)
	}

	h.signedIn(c, tok)
	log.Audit(c, "auth.signup.success", map[string]any{"email": email, "user_id": u.ID})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.expire(c, accessTokenCookie)
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/")
}

func (h *AuthHandler) expire(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
