package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "indieconverters/internal/log"
	"indieconverters/internal/services"
)

type ServiceHandler struct {
	Catalog *services.CatalogService
}

// GET /services lists the publishing services that can go in the cart.
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	svcs, err := h.Catalog.ListServices(c.UserContext())
	if err != nil {
		applog.Error(c, "services.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load services. Please retry."})
	}
	return render(c, "services", fiber.Map{"Services": svcs})
}
