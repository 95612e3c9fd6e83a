package cart

import (
	"context"
	"sync"
	"time"

	"indieconverters/internal/domain"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusAdded   Status = "added"
	StatusError   Status = "error"
)

const (
	DefaultAddedDelay = 2500 * time.Millisecond
	DefaultErrorDelay = 3 * time.Second

	addFailedMessage = "Could not add book to your cart. Please try again."
)

// Adder is satisfied by *Store.
type Adder interface {
	Add(ctx context.Context, d domain.CartItemDraft) error
}

// AddControl is the add-to-cart button: idle -> loading -> added|error,
// then back to idle after a delay. It rejects invocations while loading.
type AddControl struct {
	adder      Adder
	addedDelay time.Duration
	errorDelay time.Duration

	mu     sync.Mutex
	status Status
	msg    string
	gen    uint64
	timer  *time.Timer
}

func NewAddControl(adder Adder, addedDelay, errorDelay time.Duration) *AddControl {
	if addedDelay <= 0 {
		addedDelay = DefaultAddedDelay
	}
	if errorDelay <= 0 {
		errorDelay = DefaultErrorDelay
	}
	return &AddControl{adder: adder, addedDelay: addedDelay, errorDelay: errorDelay, status: StatusIdle}
}

func (c *AddControl) Invoke(ctx context.Context, d domain.CartItemDraft) error {
	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.stopLocked()
	c.status = StatusLoading
	c.msg = ""
	c.mu.Unlock()

	err := c.adder.Add(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = StatusError
		c.msg = addFailedMessage
		c.revertLocked(c.errorDelay)
		return err
	}
	c.status = StatusAdded
	c.revertLocked(c.addedDelay)
	return nil
}

func (c *AddControl) revertLocked(after time.Duration) {
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(after, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen && c.status != StatusLoading {
			c.status = StatusIdle
			c.msg = ""
			c.timer = nil
		}
	})
}

func (c *AddControl) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

// Close cancels a pending revert.
func (c *AddControl) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

func (c *AddControl) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Message is the user-facing error text, empty unless the last add failed.
func (c *AddControl) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg
}

func (c *AddControl) Label() string {
	switch c.Status() {
	case StatusLoading:
		return "Adding..."
	case StatusAdded:
		return "Added"
	case StatusError:
		return "Try Again"
	default:
		return "Add to Cart"
	}
}
