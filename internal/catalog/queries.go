package catalog

import "github.com/abgdnv/storefront/pkg/querycache"

// Namespace is the cache key namespace for all catalog entries.
const Namespace = "products"

// ListKey is the cache key for one page of a filtered product listing.
func ListKey(p Params) querycache.Key {
	return querycache.NewKey(Namespace, "list", p.pageKey(), p.filterKey())
}

// ListPrefix matches every cached product listing page across all filters.
func ListPrefix() querycache.Key {
	return querycache.NewKey(Namespace, "list")
}

// EntityKey is the cache key for a single product.
func EntityKey(id ProductID) querycache.Key {
	return querycache.NewKey(Namespace, "entity", id.String())
}

// EntityPrefix matches every cached single-product entry.
func EntityPrefix() querycache.Key {
	return querycache.NewKey(Namespace, "entity")
}

// CategoriesKey is the cache key for the category list.
func CategoriesKey() querycache.Key {
	return querycache.NewKey(Namespace, "categories")
}
