package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Genre struct {
	ID    string `db:"id" json:"id"`
	Slug  string `db:"slug" json:"slug"`
	Label string `db:"label" json:"label"`
}

type Author struct {
	ID          string `db:"id" json:"id"`
	Slug        string `db:"slug" json:"slug"`
	DisplayName string `db:"display_name" json:"display_name"`
	ShortBio    string `db:"short_bio" json:"short_bio,omitempty"`
	LongBio     string `db:"long_bio" json:"long_bio,omitempty"`
	PhotoURL    string `db:"photo_url" json:"photo_url,omitempty"`
}

type Book struct {
	ID           string `db:"id"`
	Slug         string `db:"slug"`
	Title        string `db:"title"`
	Subtitle     string `db:"subtitle"`
	Description  string `db:"description"`
	CoverURL     string `db:"cover_url"`
	PubDate      string `db:"pub_date"` // YYYY-MM-DD, may be empty
	FormatsJSON  string `db:"formats_json"`
	KeywordsJSON string `db:"keywords_json"`
	TagsJSON     string `db:"tags_json"`
	Published    bool   `db:"is_published"`
	CreatedAt    string `db:"created_at"`
}

// Formats decodes the stored format list (Hardcover, Paperback, eBook, Audiobook).
func (b Book) Formats() []string { return decodeList(b.FormatsJSON) }

func (b Book) Keywords() []string { return decodeList(b.KeywordsJSON) }

func (b Book) Tags() []string { return decodeList(b.TagsJSON) }

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// Service is a purchasable publishing service (editing, cover design, ...).
type Service struct {
	ID               string          `db:"id" json:"id"`
	Slug             string          `db:"slug" json:"slug"`
	Name             string          `db:"name" json:"name"`
	ShortDescription string          `db:"short_description" json:"short_description,omitempty"`
	IconURL          string          `db:"icon_url" json:"icon_url,omitempty"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Active           bool            `db:"is_active" json:"-"`
	DisplayOrder     int             `db:"display_order" json:"display_order"`
}
