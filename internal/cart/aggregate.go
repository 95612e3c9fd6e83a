package cart

import (
	"github.com/shopspring/decimal"

	"indieconverters/internal/domain"
)

// Count is the number of units across all lines.
func Count(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Total is Σ price × quantity. The sum is exact; round only for display.
func Total(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it))
	}
	return total
}

func LineTotal(it domain.CartItem) decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
