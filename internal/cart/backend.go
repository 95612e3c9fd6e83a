package cart

import (
	"context"

	"indieconverters/internal/domain"
)

// Backend is the persistence collaborator behind a cart. The SQL
// implementation lives in repos.CartRepo.
//
// Mutations that address a missing row return sql.ErrNoRows.
type Backend interface {
	// FindCart returns the owner's cart id, or "" when none exists yet.
	FindCart(ctx context.Context, owner domain.Owner) (string, error)
	// EnsureCart atomically returns the owner's cart, creating it if absent.
	EnsureCart(ctx context.Context, owner domain.Owner) (string, error)
	// ListItems returns the lines of a cart, newest first.
	ListItems(ctx context.Context, cartID string) ([]domain.CartItem, error)
	// UpsertItem inserts a line or, when its merge key already exists in the
	// cart, adds its quantity to the stored line. It returns the stored row.
	UpsertItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error)
	SetQuantity(ctx context.Context, cartID, itemID string, qty int) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	DeleteItems(ctx context.Context, cartID string) error
	// MergeCarts folds every line of from's cart into into's cart and drops
	// from's cart. A missing source cart is not an error.
	MergeCarts(ctx context.Context, from, into domain.Owner) error
}
