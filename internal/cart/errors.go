package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityUnavailable is reported when the anonymous token cannot be
	// read or persisted; resolution still succeeds with a volatile token.
	ErrIdentityUnavailable = errors.New("cart: identity storage unavailable")
	ErrCartUnavailable     = errors.New("cart: cart unavailable")
	ErrItemPersistence     = errors.New("cart: item persistence failure")
	ErrItemNotFound        = fmt.Errorf("%w: item not found", ErrItemPersistence)
	ErrInvalidDraft        = errors.New("cart: invalid item")
	ErrQuantityRange       = fmt.Errorf("%w: quantity out of range", ErrInvalidDraft)
	ErrBusy                = errors.New("cart: add already in progress")
)
