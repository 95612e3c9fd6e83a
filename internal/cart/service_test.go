package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
)

func TestServiceOpenLoadsExistingCart(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	svc := cart.NewService(b)
	id := cart.Identity{SessionID: "sess-1"}

	first, err := svc.Open(ctx, id)
	require.NoError(t, err)
	require.NoError(t, first.Add(ctx, wolf("Paperback")))

	second, err := svc.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.Items(), second.Items())
}

func TestServiceObserversAndHook(t *testing.T) {
	ctx := context.Background()
	var units []int
	var ops []string
	svc := cart.NewService(newMemBackend(),
		cart.WithObserver(func(_ domain.Owner, s cart.Snapshot) { units = append(units, s.CartCount) }),
		cart.WithServiceHook(func(op string, _ error) { ops = append(ops, op) }),
	)

	st, err := svc.Open(ctx, cart.Identity{UserID: "u-1"})
	require.NoError(t, err)
	require.NoError(t, st.Add(ctx, wolf("Paperback")))
	require.NoError(t, st.Add(ctx, salt()))

	assert.Equal(t, []int{0, 1, 2}, units)
	assert.Equal(t, []string{"load", "add", "add"}, ops)
}

func TestMergeOnLoginFoldsAnonymousCart(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	svc := cart.NewService(b)
	user := cart.Identity{UserID: "u-1"}
	guest := cart.Identity{SessionID: "sess-1"}

	mine, err := svc.Open(ctx, user)
	require.NoError(t, err)
	require.NoError(t, mine.Add(ctx, wolf("Paperback")))

	theirs, err := svc.Open(ctx, guest)
	require.NoError(t, err)
	require.NoError(t, theirs.Add(ctx, wolf("Paperback")))
	require.NoError(t, theirs.Add(ctx, salt()))

	require.NoError(t, svc.MergeOnLogin(ctx, guest.SessionID, user.UserID))

	assert.False(t, b.hasCart(guest.Owner()))
	after, err := svc.Open(ctx, user)
	require.NoError(t, err)
	assert.Len(t, after.Items(), 2)
	assert.Equal(t, 3, after.Count())
	assert.Equal(t, "58.00", after.Total().StringFixed(2))
}

func TestMergeOnLoginWithoutSessionIsNoop(t *testing.T) {
	svc := cart.NewService(newMemBackend())
	assert.NoError(t, svc.MergeOnLogin(context.Background(), "", "u-1"))
	assert.NoError(t, svc.MergeOnLogin(context.Background(), "nobody", "u-1"))
}

func TestMergeOnLoginFailure(t *testing.T) {
	b := newMemBackend()
	b.fail(errBackendDown)
	err := cart.NewService(b).MergeOnLogin(context.Background(), "sess-1", "u-1")
	assert.ErrorIs(t, err, cart.ErrCartUnavailable)
}
