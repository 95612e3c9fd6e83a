package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
)

type adderFunc func(ctx context.Context, d domain.CartItemDraft) error

func (f adderFunc) Add(ctx context.Context, d domain.CartItemDraft) error { return f(ctx, d) }

const (
	shortAdded = 20 * time.Millisecond
	shortError = 30 * time.Millisecond
)

func TestAddControlSuccessRevertsToIdle(t *testing.T) {
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error { return nil }), shortAdded, shortError)
	defer c.Close()
	assert.Equal(t, "Add to Cart", c.Label())

	require.NoError(t, c.Invoke(context.Background(), wolf("Paperback")))

	assert.Equal(t, cart.StatusAdded, c.Status())
	assert.Equal(t, "Added", c.Label())
	assert.Eventually(t, func() bool { return c.Status() == cart.StatusIdle }, time.Second, 5*time.Millisecond)
}

func TestAddControlFailureShowsMessage(t *testing.T) {
	boom := errors.New("boom")
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error { return boom }), shortAdded, shortError)
	defer c.Close()

	err := c.Invoke(context.Background(), wolf("Paperback"))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, cart.StatusError, c.Status())
	assert.Equal(t, "Try Again", c.Label())
	assert.Equal(t, "Could not add book to your cart. Please try again.", c.Message())
	assert.Eventually(t, func() bool { return c.Status() == cart.StatusIdle && c.Message() == "" }, time.Second, 5*time.Millisecond)
}

func TestAddControlRejectsReentry(t *testing.T) {
	release := make(chan struct{})
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error {
		<-release
		return nil
	}), shortAdded, shortError)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Invoke(context.Background(), wolf("Paperback")) }()
	require.Eventually(t, func() bool { return c.Status() == cart.StatusLoading }, time.Second, time.Millisecond)
	assert.Equal(t, "Adding...", c.Label())

	assert.ErrorIs(t, c.Invoke(context.Background(), wolf("Paperback")), cart.ErrBusy)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, cart.StatusAdded, c.Status())
}

func TestAddControlCloseCancelsRevert(t *testing.T) {
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error { return nil }), shortAdded, shortError)
	require.NoError(t, c.Invoke(context.Background(), wolf("Paperback")))

	c.Close()
	time.Sleep(3 * shortAdded)

	assert.Equal(t, cart.StatusAdded, c.Status())
}

func TestAddControlNewInvokeRestartsTimer(t *testing.T) {
	fail := true
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}), time.Hour, shortError)
	defer c.Close()

	require.Error(t, c.Invoke(context.Background(), wolf("Paperback")))
	fail = false
	require.NoError(t, c.Invoke(context.Background(), wolf("Paperback")))

	// the stale error timer must not reset the fresh "added" state
	time.Sleep(3 * shortError)
	assert.Equal(t, cart.StatusAdded, c.Status())
	assert.Empty(t, c.Message())
}

func TestAddControlDefaultsDelays(t *testing.T) {
	c := cart.NewAddControl(adderFunc(func(context.Context, domain.CartItemDraft) error { return nil }), 0, 0)
	defer c.Close()
	require.NoError(t, c.Invoke(context.Background(), wolf("Paperback")))
	assert.Equal(t, cart.StatusAdded, c.Status())
}

func TestAddControlOverStore(t *testing.T) {
	st := loadedStore(t, newMemBackend(), anon)
	c := cart.NewAddControl(st, shortAdded, shortError)
	defer c.Close()

	require.NoError(t, c.Invoke(context.Background(), wolf("Paperback")))
	assert.Equal(t, 1, st.Count())
}
