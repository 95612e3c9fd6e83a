package repos_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
	"indieconverters/internal/repos"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func line(cartID, itemID, format string, qty int) domain.CartItem {
	return domain.CartItem{
		CartID:   cartID,
		Kind:     domain.KindBook,
		ItemID:   itemID,
		Title:    "Wolf So Grim",
		Price:    decimal.RequireFromString("22.00"),
		Quantity: qty,
		Format:   format,
	}
}

func TestEnsureCartConcurrentCallersShareOneCart(t *testing.T) {
	db := openTestDB(t)
	r := repos.NewCartRepo(db)
	ctx := context.Background()
	owner := domain.Owner{SessionID: "sess-1"}

	id, err := r.FindCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, id)

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.EnsureCart(ctx, owner)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM carts WHERE session_id = ?`, "sess-1"))
	assert.Equal(t, 1, n)

	found, err := r.FindCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, ids[0], found)
}

func TestUserAndSessionCartsAreDistinct(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()

	a, err := r.EnsureCart(ctx, domain.Owner{UserID: "u-reader"})
	require.NoError(t, err)
	b, err := r.EnsureCart(ctx, domain.Owner{SessionID: "u-reader"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestUpsertItemMergesOnKey(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()
	cartID, err := r.EnsureCart(ctx, domain.Owner{SessionID: "sess-1"})
	require.NoError(t, err)

	first, err := r.UpsertItem(ctx, line(cartID, "b1", "Paperback", 1))
	require.NoError(t, err)
	second, err := r.UpsertItem(ctx, line(cartID, "b1", "Paperback", 2))
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(cartID, "b1", "", 1))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)
	assert.Equal(t, "22.00", second.Price.StringFixed(2))

	items, err := r.ListItems(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "", items[0].Format, "newest first")
	assert.Equal(t, 3, items[1].Quantity)
}

func TestMutationsAreScopedToCart(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()
	mine, err := r.EnsureCart(ctx, domain.Owner{SessionID: "mine"})
	require.NoError(t, err)
	other, err := r.EnsureCart(ctx, domain.Owner{SessionID: "other"})
	require.NoError(t, err)
	it, err := r.UpsertItem(ctx, line(mine, "b1", "Paperback", 1))
	require.NoError(t, err)

	assert.ErrorIs(t, r.SetQuantity(ctx, other, it.ID, 4), sql.ErrNoRows)
	assert.ErrorIs(t, r.DeleteItem(ctx, other, it.ID), sql.ErrNoRows)
	assert.ErrorIs(t, r.DeleteItem(ctx, mine, "missing"), sql.ErrNoRows)

	require.NoError(t, r.SetQuantity(ctx, mine, it.ID, 4))
	items, err := r.ListItems(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, 4, items[0].Quantity)

	require.NoError(t, r.DeleteItem(ctx, mine, it.ID))
	items, err = r.ListItems(ctx, mine)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQuantityFloorEnforcedByTable(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()
	cartID, err := r.EnsureCart(ctx, domain.Owner{SessionID: "sess-1"})
	require.NoError(t, err)
	it, err := r.UpsertItem(ctx, line(cartID, "b1", "Paperback", 1))
	require.NoError(t, err)

	assert.Error(t, r.SetQuantity(ctx, cartID, it.ID, 0))
}

func TestDeleteItemsClearsCart(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()
	cartID, err := r.EnsureCart(ctx, domain.Owner{SessionID: "sess-1"})
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(cartID, "b1", "Paperback", 1))
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(cartID, "b3", "eBook", 1))
	require.NoError(t, err)

	require.NoError(t, r.DeleteItems(ctx, cartID))
	items, err := r.ListItems(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMergeCartsSumsMatchingLines(t *testing.T) {
	db := openTestDB(t)
	r := repos.NewCartRepo(db)
	ctx := context.Background()
	guest := domain.Owner{SessionID: "sess-1"}
	user := domain.Owner{UserID: "u-reader"}

	gid, err := r.EnsureCart(ctx, guest)
	require.NoError(t, err)
	uid, err := r.EnsureCart(ctx, user)
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(gid, "b1", "Paperback", 2))
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(gid, "b3", "eBook", 1))
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(uid, "b1", "Paperback", 1))
	require.NoError(t, err)

	require.NoError(t, r.MergeCarts(ctx, guest, user))

	items, err := r.ListItems(ctx, uid)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 4, cart.Count(items))

	gone, err := r.FindCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, gone)
	var orphans int
	require.NoError(t, db.Get(&orphans, `SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, gid))
	assert.Zero(t, orphans)
}

func TestMergeCartsHandsOverWhenUserHasNoCart(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	ctx := context.Background()
	guest := domain.Owner{SessionID: "sess-1"}
	user := domain.Owner{UserID: "u-reader"}
	gid, err := r.EnsureCart(ctx, guest)
	require.NoError(t, err)
	_, err = r.UpsertItem(ctx, line(gid, "b1", "Paperback", 1))
	require.NoError(t, err)

	require.NoError(t, r.MergeCarts(ctx, guest, user))

	uid, err := r.FindCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, gid, uid)
	items, err := r.ListItems(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMergeCartsWithoutSourceIsNoop(t *testing.T) {
	r := repos.NewCartRepo(openTestDB(t))
	assert.NoError(t, r.MergeCarts(context.Background(), domain.Owner{SessionID: "nobody"}, domain.Owner{UserID: "u-reader"}))
}

// The store over the SQL backend walks the basic add/merge/remove flow.
func TestStoreOverCartRepo(t *testing.T) {
	ctx := context.Background()
	st := cart.NewStore(repos.NewCartRepo(openTestDB(t)), domain.Owner{SessionID: "sess-1"})
	require.NoError(t, st.Load(ctx))
	d := domain.CartItemDraft{
		Kind: domain.KindBook, ItemID: "b1", Title: "Wolf So Grim",
		Price: decimal.RequireFromString("22.00"), Format: "Paperback",
	}

	require.NoError(t, st.Add(ctx, d))
	require.NoError(t, st.Add(ctx, d))
	require.Len(t, st.Items(), 1)
	assert.Equal(t, "44.00", st.Total().StringFixed(2))

	require.NoError(t, st.UpdateQuantity(ctx, st.Items()[0].ID, 0))
	assert.Equal(t, 0, st.Count())

	err := st.Remove(ctx, "missing")
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}
