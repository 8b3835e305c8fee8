package catalog

// PageResult is the cumulatively visible slice of a Result after "load more"
// has been pressed page-1 times. Page n contains the items of pages 1..n, so
// the client appends nothing itself; it renders what it is given.
type PageResult struct {
	Products  []Product
	Total     int
	Page      int
	Exhausted bool
}

// Paginate cuts a Result into the cumulative view for the given page number.
// Pages are 1-based; page values below 1 are treated as 1. Exhausted reports
// that no further pages exist, which the caller uses to hide the "load more"
// affordance.
func Paginate(r Result, page, pageSize int) PageResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	end := page * pageSize
	exhausted := end >= len(r.Products)
	if end > len(r.Products) {
		end = len(r.Products)
	}
	return PageResult{
		Products:  r.Products[:end],
		Total:     r.Total,
		Page:      page,
		Exhausted: exhausted,
	}
}
