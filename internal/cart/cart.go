// Package cart implements the cart line model, totals arithmetic and the
// cart store that owns the persisted cart representation.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product has no valid identifier")
)

// Line is one product-and-quantity entry in a cart. Name, price and image are
// captured at add time so the cart renders without re-fetching the catalog,
// even if the product has since changed or disappeared.
type Line struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Pricing holds the parameters of the totals calculation.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultPricing returns the storefront defaults: 8% tax, free shipping from
// 50 upward, 9.99 flat fee below that.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.NewFromFloat(9.99),
	}
}

// Totals is the derived money summary of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives the totals of the given lines. Pure: no side effects,
// identical inputs yield identical output, and the subtotal does not depend
// on line order. Shipping is free when the subtotal reaches the threshold.
func ComputeTotals(lines []Line, pricing Pricing) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	shipping := decimal.Zero
	if subtotal.LessThan(pricing.FreeShippingThreshold) {
		shipping = pricing.FlatShippingFee
	}
	tax := subtotal.Mul(pricing.TaxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// TotalQuantity sums the quantities of all lines.
func TotalQuantity(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}
