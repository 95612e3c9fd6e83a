package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "indieconverters/internal/log"
	"indieconverters/internal/services"
	"indieconverters/internal/validate"
)

type AuthorHandler struct {
	Catalog *services.CatalogService
}

func (h *AuthorHandler) List(c *fiber.Ctx) error {
	authors, err := h.Catalog.ListAuthors(c.UserContext())
	if err != nil {
		applog.Error(c, "authors.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load authors. Please retry."})
	}
	return render(c, "authors", fiber.Map{"Authors": authors})
}

func (h *AuthorHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "author"})
		return notFound(c, "Author not found")
	}
	d, err := h.Catalog.AuthorDetail(c.UserContext(), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "Author not found")
	}
	if err != nil {
		applog.Error(c, "authors.detail.fail", err, map[string]any{"slug": slug})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load this author. Please retry."})
	}
	return render(c, "author", fiber.Map{"A": d.Author, "Books": d.Books})
}
