package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/log"
	"indieconverters/internal/services"
	"indieconverters/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /api/search?q=&limit=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	limit, ok := validate.Limit(c.Query("limit"))
	if !ok {
		limit = services.DefaultSearchLimit
	}
	if strings.TrimSpace(rawQ) == "" {
		// Empty box: empty result, not an error
		res, _ := h.Catalog.Search(c.UserContext(), "", limit)
		return c.JSON(res)
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Enter a valid keyword"})
	}

	res, err := h.Catalog.Search(c.UserContext(), q, limit)
	if err != nil {
		log.Error(c, "search.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load results. Please retry."})
	}
	return c.JSON(res)
}

// GET /api/genres
func (h *SearchHandler) Genres(c *fiber.Ctx) error {
	genres, err := h.Catalog.ListGenres(c.UserContext())
	if err != nil {
		log.Error(c, "genres.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load genres"})
	}
	return c.JSON(fiber.Map{"genres": genres})
}
