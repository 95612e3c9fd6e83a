package cart_test

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"
	"sync"

	"indieconverters/internal/domain"
)

var errBackendDown = errors.New("backend down")

// memBackend is an in-memory cart.Backend. Setting err fails every call.
type memBackend struct {
	mu     sync.Mutex
	carts  map[domain.Owner]string
	items  map[string][]domain.CartItem // insertion order
	seq    int
	err    error
	ensure int
}

func newMemBackend() *memBackend {
	return &memBackend{carts: map[domain.Owner]string{}, items: map[string][]domain.CartItem{}}
}

func (b *memBackend) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func (b *memBackend) FindCart(_ context.Context, owner domain.Owner) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	return b.carts[owner], nil
}

func (b *memBackend) EnsureCart(_ context.Context, owner domain.Owner) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.ensure++
	if id, ok := b.carts[owner]; ok {
		return id, nil
	}
	b.seq++
	id := "cart-" + strconv.Itoa(b.seq)
	b.carts[owner] = id
	return id, nil
}

func (b *memBackend) ListItems(_ context.Context, cartID string) ([]domain.CartItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	out := slices.Clone(b.items[cartID])
	slices.Reverse(out)
	return out, nil
}

func (b *memBackend) UpsertItem(_ context.Context, it domain.CartItem) (domain.CartItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return domain.CartItem{}, b.err
	}
	lines := b.items[it.CartID]
	for i := range lines {
		if lines[i].Key() == it.Key() {
			lines[i].Quantity += it.Quantity
			return lines[i], nil
		}
	}
	b.seq++
	it.CreatedAt = strconv.Itoa(b.seq)
	b.items[it.CartID] = append(lines, it)
	return it, nil
}

func (b *memBackend) SetQuantity(_ context.Context, cartID, itemID string, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	lines := b.items[cartID]
	for i := range lines {
		if lines[i].ID == itemID {
			lines[i].Quantity = qty
			return nil
		}
	}
	return sql.ErrNoRows
}

func (b *memBackend) DeleteItem(_ context.Context, cartID, itemID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	lines := b.items[cartID]
	for i := range lines {
		if lines[i].ID == itemID {
			b.items[cartID] = slices.Delete(lines, i, i+1)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (b *memBackend) DeleteItems(_ context.Context, cartID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	delete(b.items, cartID)
	return nil
}

func (b *memBackend) MergeCarts(ctx context.Context, from, into domain.Owner) error {
	b.mu.Lock()
	if b.err != nil {
		b.mu.Unlock()
		return b.err
	}
	src, ok := b.carts[from]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	lines := b.items[src]
	delete(b.carts, from)
	delete(b.items, src)
	b.mu.Unlock()

	dst, err := b.EnsureCart(ctx, into)
	if err != nil {
		return err
	}
	for _, it := range lines {
		it.CartID = dst
		if _, err := b.UpsertItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// rows returns the stored lines of owner's cart.
func (b *memBackend) rows(owner domain.Owner) []domain.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items[b.carts[owner]])
}

func (b *memBackend) hasCart(owner domain.Owner) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.carts[owner]
	return ok
}
