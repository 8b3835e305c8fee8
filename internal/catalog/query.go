package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey selects the ordering of a query result.
type SortKey string

const (
	SortRelevance  SortKey = "relevance"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortRating     SortKey = "rating"
	SortNewest     SortKey = "newest"
	SortPopularity SortKey = "popularity"
)

// ParseSortKey maps a raw string to a SortKey. Unknown values fall back to
// relevance (input order) rather than failing, since the sort selector is
// driven by an untrusted query parameter.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortPriceLow, SortPriceHigh, SortRating, SortNewest, SortPopularity:
		return SortKey(s)
	default:
		return SortRelevance
	}
}

// PriceRange is an inclusive price interval. A nil bound is open. A range
// with Min > Max matches nothing; a confused client can produce it and must
// not cause an error.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (pr *PriceRange) contains(price decimal.Decimal) bool {
	if pr.Min != nil && pr.Max != nil && pr.Min.GreaterThan(*pr.Max) {
		return false
	}
	if pr.Min != nil && price.LessThan(*pr.Min) {
		return false
	}
	if pr.Max != nil && price.GreaterThan(*pr.Max) {
		return false
	}
	return true
}

// FilterState is the set of selections applied to the catalog. Empty
// category/brand selections mean "show all", not "match nothing".
type FilterState struct {
	Categories []string
	Brands     []string
	Price      *PriceRange
}

// Query is one full recomputation request over a product set.
type Query struct {
	Search  string
	Filters FilterState
	Sort    SortKey
}

// Result is the ordered product sequence satisfying a Query.
type Result struct {
	Products []Product
	Total    int
}

// Run applies the query pipeline in fixed order: search, category filter,
// brand filter, price range, stable sort. The input slice is not modified.
func Run(products []Product, q Query) Result {
	filtered := make([]Product, 0, len(products))

	term := strings.ToLower(strings.TrimSpace(q.Search))
	categories := toSet(q.Filters.Categories)
	brands := toSet(q.Filters.Brands)

	for _, p := range products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[p.Category]; !ok {
				continue
			}
		}
		if len(brands) > 0 {
			if _, ok := brands[p.Brand]; !ok {
				continue
			}
		}
		if pr := q.Filters.Price; pr != nil && !pr.contains(p.Price) {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, q.Sort)
	return Result{Products: filtered, Total: len(filtered)}
}

// sortProducts orders in place. Stability is required: products comparing
// equal keep their relative input order.
func sortProducts(products []Product, key SortKey) {
	switch key {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.GreaterThan(products[j].Price)
		})
	case SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rating > products[j].Rating
		})
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].ID > products[j].ID
		})
	case SortPopularity:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].ReviewCount > products[j].ReviewCount
		})
	default:
		// relevance: input order unchanged
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
