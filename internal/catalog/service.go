package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/querycache"
)

// Cache retention for catalog entries. Listing pages are immutable for the
// process lifetime (the demo catalog does not change under us) but are
// collected after an hour of inactivity; the category list is refreshed
// daily; coordinator-triggered prefetches use a short freshness window so a
// later real navigation can still revalidate.
const (
	listGCTime          = time.Hour
	categoriesStaleTime = 24 * time.Hour
	prefetchStaleTime   = 5 * time.Minute
)

// Remote is the slice of the catalog API the service needs.
type Remote interface {
	FetchPage(ctx context.Context, p Params) (Page, error)
	FetchProduct(ctx context.Context, id ProductID) (Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// Service serves catalog data out of the query cache, loading from the
// remote API on miss, and runs the prefetch coordinator.
type Service struct {
	remote Remote
	cache  *querycache.Cache
	logger *slog.Logger
}

func NewService(remote Remote, cache *querycache.Cache, logger *slog.Logger) *Service {
	return &Service{
		remote: remote,
		cache:  cache,
		logger: logger.With("component", "catalog"),
	}
}

// Page returns one page of the product listing for the given filter state.
func (s *Service) Page(ctx context.Context, p Params) (Page, error) {
	return querycache.Fetch(ctx, s.cache, ListKey(p), func(ctx context.Context) (Page, error) {
		return s.remote.FetchPage(ctx, p)
	}, querycache.Options{StaleTime: querycache.StaleForever, GCTime: listGCTime})
}

// PageState describes the cached listing for p, for the prefetch
// coordinator. A filter set whose page has never resolved is a placeholder.
func (s *Service) PageState(p Params) PageState {
	page, ok := querycache.GetData[Page](s.cache, ListKey(p))
	if !ok {
		return PageState{Page: p.Page, Limit: p.Limit, Placeholder: true}
	}
	return PageState{Page: p.Page, Total: page.Total, Limit: page.Limit}
}

// Product returns a single product. A cache miss is first seeded from any
// cached listing page containing the product, so that navigating from a list
// to a detail view does not refetch data that is already resident.
func (s *Service) Product(ctx context.Context, id ProductID) (Product, error) {
	if _, ok := querycache.GetData[Product](s.cache, EntityKey(id)); !ok {
		if seed, ok := s.findInListings(id); ok {
			querycache.SetData(s.cache, EntityKey(id), func(Product, bool) Product { return seed })
		}
	}
	return querycache.Fetch(ctx, s.cache, EntityKey(id), func(ctx context.Context) (Product, error) {
		return s.remote.FetchProduct(ctx, id)
	}, querycache.Options{StaleTime: querycache.StaleForever, GCTime: listGCTime})
}

// Categories returns the category slugs, cached for a day.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return querycache.Fetch(ctx, s.cache, CategoriesKey(), func(ctx context.Context) ([]string, error) {
		return s.remote.FetchCategories(ctx)
	}, querycache.Options{StaleTime: categoriesStaleTime})
}

// MaybePrefetchNext consults the coordinator and, when allowed, warms the
// page after requestedPage in the background. Failures are swallowed by the
// cache's prefetch path.
func (s *Service) MaybePrefetchNext(ctx context.Context, p Params, requestedPage int) {
	next, ok := DecideNextPrefetch(s.PageState(p), requestedPage)
	if !ok {
		return
	}
	target := p.WithPage(next)
	querycache.Prefetch(ctx, s.cache, ListKey(target), func(ctx context.Context) (Page, error) {
		return s.remote.FetchPage(ctx, target)
	}, querycache.Options{StaleTime: prefetchStaleTime, GCTime: listGCTime})
}

// ResolveProduct answers "what do we currently know about this product"
// from cache alone: single-product entries first, then every cached listing
// page. It never touches the network; an unresolved product is simply
// reported absent.
func (s *Service) ResolveProduct(id ProductID) (Product, bool) {
	if p, ok := querycache.GetData[Product](s.cache, EntityKey(id)); ok {
		return p, true
	}
	return s.findInListings(id)
}

func (s *Service) findInListings(id ProductID) (Product, bool) {
	for _, page := range querycache.GetAll[Page](s.cache, ListPrefix()) {
		for _, p := range page.Products {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Product{}, false
}
