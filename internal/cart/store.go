package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"indieconverters/internal/domain"
)

// Snapshot is the read side handed to cart surfaces.
type Snapshot struct {
	Items      []domain.CartItem
	Loading    bool
	CartCount  int
	TotalPrice decimal.Decimal
}

// OpHook observes every completed store operation, e.g. for metrics.
type OpHook func(op string, err error)

// Store owns the in-memory cart of one identity and keeps it in step with
// the backend. Mutations apply the backend's confirmed result locally;
// changes made elsewhere (another tab, another device) are picked up by
// Refresh.
type Store struct {
	backend Backend
	owner   domain.Owner
	logger  *slog.Logger
	hook    OpHook

	// op serialises operations so a merge decision and its write see the
	// same list.
	op sync.Mutex

	mu      sync.Mutex
	cartID  string
	items   []domain.CartItem
	loaded  bool
	loading bool
	subs    map[int]func(Snapshot)
	nextSub int
}

type StoreOption func(*Store)

func WithLogger(l *slog.Logger) StoreOption { return func(s *Store) { s.logger = l } }

func WithOpHook(h OpHook) StoreOption { return func(s *Store) { s.hook = h } }

func NewStore(backend Backend, owner domain.Owner, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		owner:   owner,
		logger:  slog.Default(),
		subs:    map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Owner() domain.Owner { return s.owner }

// CartID is "" until a cart has been found or created.
func (s *Store) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.items...)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Count() int { return Count(s.Items()) }

func (s *Store) Total() decimal.Decimal { return Total(s.Items()) }

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := append([]domain.CartItem(nil), s.items...)
	return Snapshot{
		Items:      items,
		Loading:    s.loading,
		CartCount:  Count(items),
		TotalPrice: Total(items),
	}
}

// Subscribe registers fn for every state change and returns its cancel func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) done(op string, err error) error {
	if s.hook != nil {
		s.hook(op, err)
	}
	if err != nil {
		s.logger.Error("cart operation failed", "op", op, "cart_id", s.CartID(), "error", err)
		return err
	}
	s.notify()
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Load fetches the cart once. It never creates a cart; with no cart the
// list is simply empty.
func (s *Store) Load(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.done("load", s.reload(ctx))
}

// Refresh reloads the list from the backend unconditionally. No-op while
// the owner has no cart.
func (s *Store) Refresh(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.done("refresh", s.reload(ctx))
}

func (s *Store) reload(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	cartID := s.CartID()
	if cartID == "" {
		id, err := s.backend.FindCart(ctx, s.owner)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCartUnavailable, err)
		}
		if id == "" {
			s.mu.Lock()
			s.loaded = true
			s.items = nil
			s.mu.Unlock()
			return nil
		}
		cartID = id
	}

	items, err := s.backend.ListItems(ctx, cartID)
	if err != nil {
		return fmt.Errorf("%w: list: %w", ErrItemPersistence, err)
	}
	s.mu.Lock()
	s.cartID = cartID
	s.items = items
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) ensureCart(ctx context.Context) (string, error) {
	if id := s.CartID(); id != "" {
		return id, nil
	}
	id, err := s.backend.EnsureCart(ctx, s.owner)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	if id == "" {
		return "", ErrCartUnavailable
	}
	s.mu.Lock()
	s.cartID = id
	s.mu.Unlock()
	return id, nil
}

// MaxLineQuantity bounds the quantity of a single line.
const MaxLineQuantity = 9999

// Add puts a draft into the cart, creating the cart on first use. A draft
// whose merge key matches an existing line increases that line's quantity.
// The backend sums quantities on the merge key, so adds from a stale list
// still land on the stored line.
func (s *Store) Add(ctx context.Context, d domain.CartItemDraft) error {
	d, err := normalizeDraft(d)
	if err != nil {
		return s.done("add", err)
	}

	s.op.Lock()
	defer s.op.Unlock()
	return s.done("add", s.add(ctx, d))
}

func (s *Store) add(ctx context.Context, d domain.CartItemDraft) error {
	if existing, ok := s.lookup(d.Key()); ok && existing.Quantity > MaxLineQuantity-d.Quantity {
		return fmt.Errorf("%w: %d + %d exceeds %d", ErrQuantityRange, existing.Quantity, d.Quantity, MaxLineQuantity)
	}

	cartID, err := s.ensureCart(ctx)
	if err != nil {
		return err
	}

	row, err := s.backend.UpsertItem(ctx, domain.CartItem{
		ID:          uuid.NewString(),
		CartID:      cartID,
		Kind:        d.Kind,
		ItemID:      d.ItemID,
		Title:       d.Title,
		Price:       d.Price,
		ImageURL:    d.ImageURL,
		Description: d.Description,
		Quantity:    d.Quantity,
		Format:      d.Format,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %w", ErrItemPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A stale local line may carry an id the backend already replaced.
	for i := range s.items {
		if s.items[i].ID == row.ID || s.items[i].Key() == row.Key() {
			s.items[i] = row
			return nil
		}
	}
	s.items = append([]domain.CartItem{row}, s.items...)
	return nil
}

func (s *Store) lookup(k domain.MergeKey) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Key() == k {
			return it, true
		}
	}
	return domain.CartItem{}, false
}

// UpdateQuantity sets a line's quantity; anything below 1 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, qty int) error {
	s.op.Lock()
	defer s.op.Unlock()
	op := "update_quantity"
	if qty < 1 {
		op = "remove"
	}
	return s.done(op, s.updateQuantity(ctx, itemID, qty))
}

func (s *Store) updateQuantity(ctx context.Context, itemID string, qty int) error {
	if qty < 1 {
		return s.remove(ctx, itemID)
	}
	if qty > MaxLineQuantity {
		return fmt.Errorf("update %s: %w", itemID, ErrQuantityRange)
	}
	cartID := s.CartID()
	if cartID == "" {
		return fmt.Errorf("update %s: %w", itemID, ErrItemNotFound)
	}
	if err := s.backend.SetQuantity(ctx, cartID, itemID, qty); err != nil {
		return persistErr("update", itemID, err)
	}
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Quantity = qty
		}
	}
	s.mu.Unlock()
	return nil
}

// Remove deletes a line. Removing an unknown line is an error.
func (s *Store) Remove(ctx context.Context, itemID string) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.done("remove", s.remove(ctx, itemID))
}

func (s *Store) remove(ctx context.Context, itemID string) error {
	cartID := s.CartID()
	if cartID == "" {
		return fmt.Errorf("remove %s: %w", itemID, ErrItemNotFound)
	}
	if err := s.backend.DeleteItem(ctx, cartID, itemID); err != nil {
		return persistErr("remove", itemID, err)
	}
	s.mu.Lock()
	kept := s.items[:0:0]
	for _, it := range s.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()
	return nil
}

// Clear deletes every line of the cart. No-op while there is no cart.
func (s *Store) Clear(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	cartID := s.CartID()
	if cartID == "" {
		return nil
	}
	var err error
	if derr := s.backend.DeleteItems(ctx, cartID); derr != nil {
		err = fmt.Errorf("%w: clear: %w", ErrItemPersistence, derr)
	} else {
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()
	}
	return s.done("clear", err)
}

func persistErr(op, itemID string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", op, itemID, ErrItemNotFound)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrItemPersistence, op, itemID, err)
}

func normalizeDraft(d domain.CartItemDraft) (domain.CartItemDraft, error) {
	d.ItemID = strings.TrimSpace(d.ItemID)
	d.Title = strings.TrimSpace(d.Title)
	d.Format = strings.TrimSpace(d.Format)
	switch {
	case !d.Kind.Valid():
		return d, fmt.Errorf("%w: unknown item type %q", ErrInvalidDraft, d.Kind)
	case d.ItemID == "":
		return d, fmt.Errorf("%w: missing item id", ErrInvalidDraft)
	case d.Title == "":
		return d, fmt.Errorf("%w: missing title", ErrInvalidDraft)
	case d.Price.IsNegative():
		return d, fmt.Errorf("%w: negative price", ErrInvalidDraft)
	case d.Quantity < 0, d.Quantity > MaxLineQuantity:
		return d, fmt.Errorf("%w: %d", ErrQuantityRange, d.Quantity)
	}
	if d.Quantity == 0 {
		d.Quantity = 1
	}
	return d, nil
}
