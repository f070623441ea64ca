package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/abgdnv/storefront/pkg/api"
	"github.com/go-playground/validator/v10"
)

// API wraps the remote catalog endpoints. Every payload is schema-validated
// before it is allowed into the cache; malformed data is rejected, not
// silently coerced.
type API struct {
	client   *api.Client
	validate *validator.Validate
}

func NewAPI(client *api.Client) *API {
	return &API{
		client:   client,
		validate: validator.New(),
	}
}

// FetchPage retrieves one page of the product listing. Category and search
// are mutually exclusive: a category request ignores the query and vice
// versa, mirroring the remote API's routes.
func (a *API) FetchPage(ctx context.Context, p Params) (Page, error) {
	if p.Limit <= 0 {
		p.Limit = PageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("skip", strconv.Itoa((p.Page-1)*p.Limit))
	if p.SortBy != "" {
		q.Set("sortBy", string(p.SortBy))
	}
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}

	path := "/products"
	switch {
	case p.Category != "" && p.Query == "":
		path = "/products/category/" + url.PathEscape(p.Category)
	case p.Query != "" && p.Category == "":
		path = "/products/search"
		q.Set("q", p.Query)
	}

	var page Page
	if err := a.client.Get(ctx, path+"?"+q.Encode(), &page); err != nil {
		return Page{}, fmt.Errorf("fetch product page: %w", err)
	}
	if err := a.validate.Struct(page); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(page.Products) > page.Limit {
		return Page{}, fmt.Errorf("%w: %d products exceed page limit %d", ErrInvalidPayload, len(page.Products), page.Limit)
	}
	return page, nil
}

// FetchProduct retrieves a single product by its identifier.
func (a *API) FetchProduct(ctx context.Context, id ProductID) (Product, error) {
	var product Product
	err := a.client.Get(ctx, "/products/"+id.String(), &product)
	if err != nil {
		if api.IsStatus(err, 404) {
			return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return Product{}, fmt.Errorf("fetch product %s: %w", id, err)
	}
	if err := a.validate.Struct(product); err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return product, nil
}

// FetchCategories retrieves the list of category slugs.
func (a *API) FetchCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := a.client.Get(ctx, "/products/category-list", &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	for _, c := range categories {
		if c == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidPayload)
		}
	}
	return categories, nil
}
