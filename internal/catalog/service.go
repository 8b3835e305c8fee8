package catalog

import (
	"context"
	"fmt"
)

// Service ties a product source to the query pipeline. It is the entry point
// transport uses; the pipeline itself stays pure and separately testable.
type Service struct {
	source   Source
	pageSize int
}

// DefaultPageSize is the browse page size used when none is configured.
const DefaultPageSize = 8

func NewService(source Source, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Service{source: source, pageSize: pageSize}
}

// Browse runs the query over the full product set and returns the cumulative
// page view. Changing any part of the query resets pagination by convention:
// the caller passes page 1 again.
func (s *Service) Browse(ctx context.Context, q Query, page int) (PageResult, error) {
	products, err := s.source.Products(ctx)
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to fetch products: %w", err)
	}
	return Paginate(Run(products, q), page, s.pageSize), nil
}

// FindByID retrieves a single product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*Product, error) {
	product, err := s.source.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	return product, nil
}
