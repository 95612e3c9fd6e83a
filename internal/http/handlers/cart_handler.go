package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
	applog "indieconverters/internal/log"
	"indieconverters/internal/services"
	"indieconverters/internal/validate"
)

type CartHandler struct {
	Carts        *cart.Service
	Catalog      *services.CatalogService
	CookieSecure bool
}

type cartItemJSON struct {
	ID          string `json:"id"`
	ItemType    string `json:"item_type"`
	ItemID      string `json:"item_id"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	Format      string `json:"format,omitempty"`
}

type cartJSON struct {
	Items      []cartItemJSON `json:"items"`
	Loading    bool           `json:"loading"`
	CartCount  int            `json:"cartCount"`
	TotalPrice string         `json:"totalPrice"`
}

func toJSON(s cart.Snapshot) cartJSON {
	out := cartJSON{
		Items:      make([]cartItemJSON, 0, len(s.Items)),
		Loading:    s.Loading,
		CartCount:  s.CartCount,
		TotalPrice: s.TotalPrice.StringFixed(2),
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, cartItemJSON{
			ID:          it.ID,
			ItemType:    string(it.Kind),
			ItemID:      it.ItemID,
			Title:       it.Title,
			Price:       it.Price.StringFixed(2),
			ImageURL:    it.ImageURL,
			Description: it.Description,
			Quantity:    it.Quantity,
			Format:      it.Format,
		})
	}
	return out
}

// cartStatus maps cart errors onto HTTP statuses.
func cartStatus(err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidDraft), errors.Is(err, services.ErrUnknownItem):
		return fiber.StatusBadRequest
	case errors.Is(err, cart.ErrItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, cart.ErrCartUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *CartHandler) fail(c *fiber.Ctx, action string, err error) error {
	status := cartStatus(err)
	msg := "Could not update your cart. Please try again."
	switch status {
	case fiber.StatusBadRequest:
		applog.Security(c, "validation.fail", map[string]any{"action": action, "reason": err.Error()})
		msg = "That item can't be added to the cart."
		if errors.Is(err, cart.ErrQuantityRange) {
			msg = fmt.Sprintf("Quantity must be between 1 and %d.", cart.MaxLineQuantity)
		}
	case fiber.StatusNotFound:
		msg = "That item is no longer in your cart."
	}
	applog.Error(c, action, err, nil)
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// open loads the visitor's cart for a write, issuing a session cookie
// to anonymous visitors that lack one.
func (h *CartHandler) open(c *fiber.Ctx) (*cart.Store, error) {
	return h.Carts.Open(c.UserContext(), resolveIdentity(c, h.CookieSecure))
}

// current loads the visitor's cart without issuing a cookie. st is nil
// for an anonymous visitor who has never added anything.
func (h *CartHandler) current(c *fiber.Ctx) (*cart.Store, error) {
	id, ok := peekIdentity(c)
	if !ok {
		return nil, nil
	}
	return h.Carts.Open(c.UserContext(), id)
}

func snapshotOf(st *cart.Store) cart.Snapshot {
	if st == nil {
		return cart.Snapshot{}
	}
	return st.Snapshot()
}

// GET /api/v1/cart
func (h *CartHandler) Get(c *fiber.Ctx) error {
	st, err := h.current(c)
	if err != nil {
		return h.fail(c, "cart.load.fail", err)
	}
	return c.JSON(toJSON(snapshotOf(st)))
}

type addRequest struct {
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	Format   string `json:"format"`
	Quantity int    `json:"quantity"`
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "body"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	itemID, ok := validate.ID(req.ItemID)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "item_id"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item_id"})
	}
	format, ok := validate.Format(req.Format)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "format"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid format"})
	}

	draft, err := h.Catalog.Draft(c.UserContext(), domain.ItemKind(req.ItemType), itemID, format, req.Quantity)
	if err != nil {
		return h.fail(c, "cart.add.fail", err)
	}
	st, err := h.open(c)
	if err != nil {
		return h.fail(c, "cart.add.fail", err)
	}
	if err := st.Add(c.UserContext(), draft); err != nil {
		return h.fail(c, "cart.add.fail", err)
	}
	applog.Audit(c, "cart.add", map[string]any{"item_type": draft.Kind, "item_id": draft.ItemID, "format": draft.Format, "qty": draft.Quantity})
	return c.Status(fiber.StatusCreated).JSON(toJSON(st.Snapshot()))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// PATCH /api/v1/cart/items/:id
func (h *CartHandler) UpdateQuantity(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	var req quantityRequest
	if err := c.BodyParser(&req); err != nil || !ok || req.Quantity == nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "quantity"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity required"})
	}
	st, err := h.current(c)
	if err == nil && st == nil {
		err = fmt.Errorf("update %s: %w", id, cart.ErrItemNotFound)
	}
	if err != nil {
		return h.fail(c, "cart.update.fail", err)
	}
	if err := st.UpdateQuantity(c.UserContext(), id, *req.Quantity); err != nil {
		return h.fail(c, "cart.update.fail", err)
	}
	applog.Audit(c, "cart.update", map[string]any{"item": id, "qty": *req.Quantity})
	return c.JSON(toJSON(st.Snapshot()))
}

// DELETE /api/v1/cart/items/:id
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "That item is no longer in your cart."})
	}
	st, err := h.current(c)
	if err == nil && st == nil {
		err = fmt.Errorf("remove %s: %w", id, cart.ErrItemNotFound)
	}
	if err != nil {
		return h.fail(c, "cart.remove.fail", err)
	}
	if err := st.Remove(c.UserContext(), id); err != nil {
		return h.fail(c, "cart.remove.fail", err)
	}
	applog.Audit(c, "cart.remove", map[string]any{"item": id})
	return c.JSON(toJSON(st.Snapshot()))
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	st, err := h.current(c)
	if err != nil {
		return h.fail(c, "cart.clear.fail", err)
	}
	if st == nil {
		return c.JSON(toJSON(cart.Snapshot{}))
	}
	if err := st.Clear(c.UserContext()); err != nil {
		return h.fail(c, "cart.clear.fail", err)
	}
	applog.Audit(c, "cart.clear", nil)
	return c.JSON(toJSON(st.Snapshot()))
}

// POST /api/v1/cart/refresh
func (h *CartHandler) Refresh(c *fiber.Ctx) error {
	id, ok := peekIdentity(c)
	if !ok {
		return c.JSON(toJSON(cart.Snapshot{}))
	}
	st := h.Carts.Store(id)
	if err := st.Refresh(c.UserContext()); err != nil {
		return h.fail(c, "cart.refresh.fail", err)
	}
	return c.JSON(toJSON(st.Snapshot()))
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	st, err := h.current(c)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	if st == nil {
		return render(c, "cart", fiber.Map{"Cart": cart.PageView{Empty: true}})
	}
	return render(c, "cart", fiber.Map{"Cart": cart.NewPage(st, nil).View()})
}

// POST /cart/items/:id/:action where action is increment, decrement or remove.
// Failures leave the cart as it was; the page is shown again either way.
func (h *CartHandler) PageAction(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/cart")
	}
	action := c.Params("action")
	switch action {
	case "increment", "decrement", "remove":
	default:
		return notFound(c, "Page not found")
	}
	st, err := h.current(c)
	if err != nil || st == nil {
		if err != nil {
			applog.Error(c, "cart.page.fail", err, nil)
		}
		return c.Redirect("/cart")
	}
	page := cart.NewPage(st, nil)
	switch action {
	case "increment":
		err = page.Increment(c.UserContext(), id)
	case "decrement":
		err = page.Decrement(c.UserContext(), id)
	case "remove":
		err = page.Remove(c.UserContext(), id)
	}
	if err != nil {
		applog.Error(c, "cart.page."+action+".fail", err, map[string]any{"item": id})
	} else {
		applog.Audit(c, "cart.page."+action, map[string]any{"item": id})
	}
	return c.Redirect("/cart")
}

// POST /cart is the add-to-cart button on book and service pages. The
// button state is rendered back onto the book page; services go to the
// cart on success.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	kind := domain.ItemKind(c.FormValue("item_type", string(domain.KindBook)))
	itemID, ok := validate.ID(c.FormValue("item_id"))
	format, fok := validate.Format(c.FormValue("format"))
	if !ok || !fok || !kind.Valid() {
		applog.Security(c, "validation.fail", map[string]any{"field": "item"})
		return notFound(c, "This item is no longer available")
	}
	qty := validate.Qty(c.FormValue("qty"))

	st, err := h.open(c)
	if err != nil {
		applog.Error(c, "cart.add.fail", err, nil)
		return c.Status(cartStatus(err)).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}

	control := cart.NewAddControl(st, 0, 0)
	defer control.Close()

	draft, err := h.Catalog.Draft(c.UserContext(), kind, itemID, format, qty)
	if err == nil {
		err = control.Invoke(c.UserContext(), draft)
	}
	if err != nil {
		applog.Error(c, "cart.add.fail", err, map[string]any{"item_id": itemID, "format": format})
		if errors.Is(err, services.ErrUnknownItem) {
			return notFound(c, "This item is no longer available")
		}
	} else {
		applog.Audit(c, "cart.add", map[string]any{"item_type": kind, "item_id": itemID, "format": draft.Format, "qty": qty})
	}

	if kind == domain.KindService {
		if err != nil {
			return c.Status(cartStatus(err)).Render("notfound", fiber.Map{"Message": control.Message()})
		}
		return c.Redirect("/cart")
	}

	b, berr := h.Catalog.Books.Get(c.UserContext(), itemID)
	if berr != nil {
		return notFound(c, "This item is no longer available")
	}
	d, berr := h.Catalog.BookDetail(c.UserContext(), b.Slug, format)
	if berr != nil {
		return notFound(c, "This item is no longer available")
	}
	status := fiber.StatusOK
	if err != nil {
		status = cartStatus(err)
	}
	c.Status(status)
	return render(c, "book", fiber.Map{
		"D":         d,
		"Button":    control.Label(),
		"Status":    string(control.Status()),
		"Message":   control.Message(),
		"CartCount": st.Count(),
	})
}
