// Package catalog provides the product model, product sources and the query
// pipeline that turns a product set plus filters into an ordered result page.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a read-only catalog entry. Prices are decimal to keep money
// arithmetic exact.
type Product struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Price         decimal.Decimal   `json:"price"`
	OriginalPrice *decimal.Decimal  `json:"original_price,omitempty"`
	Rating        float64           `json:"rating"`
	ReviewCount   int               `json:"review_count"`
	Category      string            `json:"category"`
	Brand         string            `json:"brand"`
	Image         string            `json:"image"`
	Description   string            `json:"description"`
	Stock         *int32            `json:"stock,omitempty"`
	Specs         map[string]string `json:"specifications,omitempty"`
	Images        []string          `json:"images,omitempty"`
}

// Source supplies the product set consumed by the query pipeline. Products
// are treated as already validated and static per call.
type Source interface {
	// Products returns all products in catalog order.
	// Returns an empty slice if the catalog is empty.
	Products(ctx context.Context) ([]Product, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*Product, error)
}
