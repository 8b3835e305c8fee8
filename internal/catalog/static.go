package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed mock_products.json
var mockCatalog []byte

// StaticSource serves a fixed product set loaded once at construction time.
// It backs the default deployment, where the catalog is the bundled mock set.
type StaticSource struct {
	products []Product
	byID     map[int64]int
}

// NewStaticSource builds a source from the bundled catalog.
func NewStaticSource() (*StaticSource, error) {
	return newStaticSource(mockCatalog)
}

// NewStaticSourceFromFile builds a source from a JSON catalog file,
// overriding the bundled set.
func NewStaticSourceFromFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return newStaticSource(data)
}

func newStaticSource(data []byte) (*StaticSource, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	byID := make(map[int64]int, len(products))
	for i, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog entry %d has invalid id %d", i, p.ID)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog contains duplicate id %d", p.ID)
		}
		byID[p.ID] = i
	}
	return &StaticSource{products: products, byID: byID}, nil
}

// Products returns the catalog in its stored order. The returned slice is a
// copy; callers may reorder it freely.
func (s *StaticSource) Products(_ context.Context) ([]Product, error) {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// FindByID retrieves a product by its identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *StaticSource) FindByID(_ context.Context, id int64) (*Product, error) {
	i, ok := s.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := s.products[i]
	return &p, nil
}
