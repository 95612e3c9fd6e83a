package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
)

var _ cart.Backend = (*CartRepo)(nil)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

const itemColumns = `id, cart_id, item_type, item_id, title, price,
	COALESCE(image_url,'') AS image_url, COALESCE(description,'') AS description,
	quantity, format, created_at`

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ownerColumn(o domain.Owner) (string, string) {
	if o.UserID != "" {
		return "user_id", o.UserID
	}
	return "session_id", o.SessionID
}

func findCart(ctx context.Context, q queryer, owner domain.Owner) (string, error) {
	col, val := ownerColumn(owner)
	if val == "" {
		return "", errors.New("cart owner has no reference")
	}
	var id string
	err := q.GetContext(ctx, &id, `SELECT id FROM carts WHERE `+col+` = ?`, val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (r *CartRepo) FindCart(ctx context.Context, owner domain.Owner) (string, error) {
	return findCart(ctx, r.db, owner)
}

// EnsureCart inserts a cart unless the owner already has one, then reads
// the surviving row. The unique owner indexes make concurrent callers
// converge on a single cart.
func (r *CartRepo) EnsureCart(ctx context.Context, owner domain.Owner) (string, error) {
	return ensureCart(ctx, r.db, owner)
}

func ensureCart(ctx context.Context, q queryer, owner domain.Owner) (string, error) {
	col, val := ownerColumn(owner)
	if val == "" {
		return "", errors.New("cart owner has no reference")
	}
	var userID, sessionID sql.NullString
	if col == "user_id" {
		userID = sql.NullString{String: val, Valid: true}
	} else {
		sessionID = sql.NullString{String: val, Valid: true}
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO carts(id, user_id, session_id, created_at)
		VALUES(?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(`+col+`) DO NOTHING
	`, uuid.NewString(), userID, sessionID); err != nil {
		return "", err
	}
	id, err := findCart(ctx, q, owner)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("cart for %s vanished after insert", col)
	}
	return id, nil
}

func (r *CartRepo) ListItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	out := []domain.CartItem{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE cart_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, cartID)
	return out, err
}

func (r *CartRepo) UpsertItem(ctx context.Context, it domain.CartItem) (domain.CartItem, error) {
	return upsertItem(ctx, r.db, it)
}

func upsertItem(ctx context.Context, q queryer, it domain.CartItem) (domain.CartItem, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	var row domain.CartItem
	err := q.GetContext(ctx, &row, `
		INSERT INTO cart_items(id, cart_id, item_type, item_id, title, price, image_url, description, quantity, format)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cart_id, item_type, item_id, format) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity
		RETURNING `+itemColumns,
		it.ID, it.CartID, string(it.Kind), it.ItemID, it.Title, it.Price.String(),
		nullable(it.ImageURL), nullable(it.Description), it.Quantity, it.Format)
	return row, err
}

func (r *CartRepo) SetQuantity(ctx context.Context, cartID, itemID string, qty int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE id = ? AND cart_id = ?`, qty, itemID, cartID)
	return affected(res, err)
}

func (r *CartRepo) DeleteItem(ctx context.Context, cartID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID)
	return affected(res, err)
}

func (r *CartRepo) DeleteItems(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}

// MergeCarts moves the lines of from's cart into into's cart, summing
// quantities on matching merge keys, then drops from's cart.
func (r *CartRepo) MergeCarts(ctx context.Context, from, into domain.Owner) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	srcID, err := findCart(ctx, tx, from)
	if err != nil {
		return err
	}
	// Nothing to merge.
	if srcID == "" {
		return tx.Commit()
	}

	dstID, err := findCart(ctx, tx, into)
	if err != nil {
		return err
	}

	// No destination cart yet: hand the anonymous cart over.
	if dstID == "" {
		q := `UPDATE carts SET user_id = ?, session_id = NULL WHERE id = ?`
		val := into.UserID
		if into.Anonymous() {
			q = `UPDATE carts SET session_id = ?, user_id = NULL WHERE id = ?`
			val = into.SessionID
		}
		if _, err := tx.ExecContext(ctx, q, val, srcID); err != nil {
			return err
		}
		return tx.Commit()
	}

	var lines []domain.CartItem
	if err := tx.SelectContext(ctx, &lines, `
		SELECT `+itemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY created_at, rowid
	`, srcID); err != nil {
		return err
	}
	for _, it := range lines {
		it.ID = uuid.NewString()
		it.CartID = dstID
		if _, err := upsertItem(ctx, tx, it); err != nil {
			return err
		}
	}

	// foreign_keys is per connection; don't rely on the cascade
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, srcID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = ?`, srcID); err != nil {
		return err
	}
	return tx.Commit()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
