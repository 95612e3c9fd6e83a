package handlers

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/cart"
	applog "indieconverters/internal/log"
	"indieconverters/internal/services"
	"indieconverters/internal/validate"
)

type BookHandler struct {
	Catalog *services.CatalogService
}

// GET /books
func (h *BookHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	books, err := h.Catalog.ListBooks(c.UserContext(), page, 12)
	if err != nil {
		applog.Error(c, "books.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load books. Please retry."})
	}
	return render(c, "books", fiber.Map{"Books": books})
}

// GET /books/:slug?format=
func (h *BookHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return notFound(c, "This book is no longer available")
	}
	format, _ := validate.Format(c.Query("format"))
	d, err := h.Catalog.BookDetail(c.UserContext(), slug, format)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "This book is no longer available")
	}
	if err != nil {
		applog.Error(c, "books.detail.fail", err, map[string]any{"slug": slug})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load this book. Please retry."})
	}
	return render(c, "book", fiber.Map{
		"D":      d,
		"Button": "Add to Cart",
		"Status": string(cart.StatusIdle),
	})
}
