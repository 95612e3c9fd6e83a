package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"indieconverters/internal/domain"
)

// formatPreference is the order a book page picks its default format in.
var formatPreference = []string{"Hardcover", "Paperback", "eBook", "Audiobook"}

var formatPrices = map[string]decimal.Decimal{
	"Hardcover": decimal.NewFromInt(28),
	"Paperback": decimal.NewFromInt(22),
	"eBook":     decimal.NewFromInt(14),
	"Audiobook": decimal.NewFromInt(18),
}

var fallbackPrice = decimal.NewFromInt(20)

// FormatPrice is the list price of a book in the given format.
func FormatPrice(format string) decimal.Decimal {
	if p, ok := formatPrices[format]; ok {
		return p
	}
	return fallbackPrice
}

// DefaultFormat picks the first preferred format a book is offered in,
// else its first format, else "".
func DefaultFormat(formats []string) string {
	for _, f := range formatPreference {
		if slices.Contains(formats, f) {
			return f
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return ""
}

// BookDraft builds the add-to-cart draft for a book in format.
func BookDraft(b domain.Book, format string) domain.CartItemDraft {
	return domain.CartItemDraft{
		Kind:        domain.KindBook,
		ItemID:      b.ID,
		Title:       b.Title,
		Price:       FormatPrice(format),
		ImageURL:    b.CoverURL,
		Description: b.Description,
		Format:      format,
	}
}

func ServiceDraft(s domain.Service) domain.CartItemDraft {
	return domain.CartItemDraft{
		Kind:        domain.KindService,
		ItemID:      s.ID,
		Title:       s.Name,
		Price:       s.Price,
		ImageURL:    s.IconURL,
		Description: s.ShortDescription,
	}
}

// ErrUnknownItem is returned when a cart request names nothing the
// catalog sells.
var ErrUnknownItem = errors.New("unknown catalog item")

// Draft prices a cart request from the catalog. Client-supplied prices
// and titles are never trusted.
func (s *CatalogService) Draft(ctx context.Context, kind domain.ItemKind, itemID, format string, qty int) (domain.CartItemDraft, error) {
	var d domain.CartItemDraft
	switch kind {
	case domain.KindBook:
		b, err := s.Books.Get(ctx, itemID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !b.Published) {
			return d, fmt.Errorf("%w: book %q", ErrUnknownItem, itemID)
		}
		if err != nil {
			return d, err
		}
		formats := b.Formats()
		if format == "" {
			format = DefaultFormat(formats)
		} else if !slices.Contains(formats, format) {
			return d, fmt.Errorf("%w: %q is not offered as %q", ErrUnknownItem, itemID, format)
		}
		d = BookDraft(b, format)
	case domain.KindService:
		svc, err := s.Services.Get(ctx, itemID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !svc.Active) {
			return d, fmt.Errorf("%w: service %q", ErrUnknownItem, itemID)
		}
		if err != nil {
			return d, err
		}
		d = ServiceDraft(svc)
	default:
		return d, fmt.Errorf("%w: item type %q", ErrUnknownItem, kind)
	}
	d.Quantity = qty
	return d, nil
}
