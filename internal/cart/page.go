package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"indieconverters/internal/domain"
)

type Line struct {
	domain.CartItem
	Subtotal decimal.Decimal
	Removing bool
}

// PageView is what the cart page renders.
type PageView struct {
	Lines    []Line
	Empty    bool
	Count    int
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Page drives the cart page: quantity steppers and per-line removal.
// Action failures are logged and returned; the view is left as it was.
type Page struct {
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	removing map[string]bool
}

func NewPage(store *Store, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{store: store, logger: logger, removing: map[string]bool{}}
}

func (p *Page) View() PageView {
	snap := p.store.Snapshot()
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := make([]Line, 0, len(snap.Items))
	for _, it := range snap.Items {
		lines = append(lines, Line{CartItem: it, Subtotal: LineTotal(it), Removing: p.removing[it.ID]})
	}
	return PageView{
		Lines:    lines,
		Empty:    len(lines) == 0,
		Count:    snap.CartCount,
		Subtotal: snap.TotalPrice,
		// No shipping or tax yet; the total equals the subtotal.
		Total: snap.TotalPrice,
	}
}

func (p *Page) Increment(ctx context.Context, itemID string) error {
	return p.step(ctx, itemID, 1)
}

// Decrement lowers the quantity by one; at 1 the line is removed.
func (p *Page) Decrement(ctx context.Context, itemID string) error {
	return p.step(ctx, itemID, -1)
}

func (p *Page) step(ctx context.Context, itemID string, delta int) error {
	qty := -1
	for _, it := range p.store.Items() {
		if it.ID == itemID {
			qty = it.Quantity
		}
	}
	if qty < 0 {
		p.logger.Error("cart page quantity change", "item_id", itemID, "error", ErrItemNotFound)
		return ErrItemNotFound
	}
	if err := p.store.UpdateQuantity(ctx, itemID, qty+delta); err != nil {
		p.logger.Error("cart page quantity change", "item_id", itemID, "error", err)
		return err
	}
	return nil
}

// Remove deletes the line. While the backend call is in flight the line
// is marked removing, which only a caller holding this Page across the
// call can observe; a server page built per request renders after the
// removal has settled.
func (p *Page) Remove(ctx context.Context, itemID string) error {
	p.mu.Lock()
	p.removing[itemID] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.removing, itemID)
		p.mu.Unlock()
	}()

	if err := p.store.Remove(ctx, itemID); err != nil {
		p.logger.Error("cart page remove", "item_id", itemID, "error", err)
		return err
	}
	return nil
}

// Removing reports whether a removal for itemID is in flight.
func (p *Page) Removing(itemID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removing[itemID]
}
