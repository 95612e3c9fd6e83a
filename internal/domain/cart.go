package domain

import "github.com/shopspring/decimal"

// ItemKind is the closed set of purchasable kinds a cart line can hold.
type ItemKind string

const (
	KindBook    ItemKind = "book"
	KindService ItemKind = "service"
)

func (k ItemKind) Valid() bool { return k == KindBook || k == KindService }

// Owner binds a cart to exactly one of an authenticated user or an anonymous session.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Anonymous() bool { return o.UserID == "" }

type CartItem struct {
	ID          string          `db:"id" json:"id"`
	CartID      string          `db:"cart_id" json:"-"`
	Kind        ItemKind        `db:"item_type" json:"item_type"`
	ItemID      string          `db:"item_id" json:"item_id"`
	Title       string          `db:"title" json:"title"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ImageURL    string          `db:"image_url" json:"image_url,omitempty"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Format      string          `db:"format" json:"format,omitempty"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// MergeKey identifies a line for add-to-cart merging.
type MergeKey struct {
	Kind   ItemKind
	ItemID string
	Format string
}

func (it CartItem) Key() MergeKey {
	return MergeKey{Kind: it.Kind, ItemID: it.ItemID, Format: it.Format}
}

// CartItemDraft is what an add-to-cart surface submits. Quantity 0 means 1.
type CartItemDraft struct {
	Kind        ItemKind        `json:"item_type"`
	ItemID      string          `json:"item_id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity,omitempty"`
	Format      string          `json:"format,omitempty"`
}

func (d CartItemDraft) Key() MergeKey {
	return MergeKey{Kind: d.Kind, ItemID: d.ItemID, Format: d.Format}
}
