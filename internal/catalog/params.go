package catalog

import (
	"fmt"
	"strconv"
)

// PageLimit is the catalog page size.
const PageLimit = 12

// SortBy is a product list sort field.
type SortBy string

const (
	SortByTitle  SortBy = "title"
	SortByPrice  SortBy = "price"
	SortByRating SortBy = "rating"
)

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Params is the full filter/page state of a product listing. Category and
// Query are mutually exclusive on the remote API; transitions keep that
// invariant by clearing one when the other is set.
type Params struct {
	Page     int
	Limit    int
	Category string
	Query    string
	SortBy   SortBy
	Order    Order
}

// DefaultParams returns the initial listing state: first page, no filters.
func DefaultParams() Params {
	return Params{Page: 1, Limit: PageLimit}
}

// WithPage returns params moved to the given page. Pure page navigation
// preserves every other filter.
func (p Params) WithPage(page int) Params {
	if page < 1 {
		page = 1
	}
	p.Page = page
	return p
}

// WithCategory selects a category filter. Any category change, including
// re-selecting the current one, resets to page 1; the search query is
// dropped because category and search are mutually exclusive.
func (p Params) WithCategory(category string) Params {
	p.Category = category
	p.Query = ""
	p.Page = 1
	return p
}

// WithQuery sets a search query, clearing the category filter and resetting
// to page 1.
func (p Params) WithQuery(query string) Params {
	p.Query = query
	p.Category = ""
	p.Page = 1
	return p
}

// WithSort changes the sort field/direction and resets to page 1.
func (p Params) WithSort(sortBy SortBy, order Order) Params {
	p.SortBy = sortBy
	p.Order = order
	p.Page = 1
	return p
}

// WithoutFilters drops every filter and returns to the first page.
func (p Params) WithoutFilters() Params {
	p.Category = ""
	p.Query = ""
	p.Page = 1
	return p
}

// filterKey is the canonical encoding of the non-page parameters. Distinct
// filter combinations must occupy distinct cache slots.
func (p Params) filterKey() string {
	return fmt.Sprintf("category=%s&q=%s&sortBy=%s&order=%s", p.Category, p.Query, p.SortBy, p.Order)
}

func (p Params) pageKey() string {
	return strconv.Itoa(p.Page)
}
