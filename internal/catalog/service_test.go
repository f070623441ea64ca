package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// mockRemote is a mock implementation of the Remote interface.
type mockRemote struct {
	mu           sync.Mutex
	pages        map[int]Page
	product      Product
	categories   []string
	err          error
	pageCalls    []Params
	productCalls int
}

func (m *mockRemote) FetchPage(_ context.Context, p Params) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageCalls = append(m.pageCalls, p)
	if m.err != nil {
		return Page{}, m.err
	}
	return m.pages[p.Page], nil
}

func (m *mockRemote) FetchProduct(_ context.Context, _ ProductID) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productCalls++
	if m.err != nil {
		return Product{}, m.err
	}
	return m.product, nil
}

func (m *mockRemote) FetchCategories(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

func (m *mockRemote) pageCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pageCalls)
}

func (m *mockRemote) lastPageCall() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageCalls[len(m.pageCalls)-1]
}

func newCatalogFixture(t *testing.T) (*Service, *mockRemote, *querycache.Cache) {
	t.Helper()
	cache := querycache.New(testLogger(), 0)
	t.Cleanup(cache.Close)
	remote := &mockRemote{pages: map[int]Page{}}
	return NewService(remote, cache, testLogger()), remote, cache
}

func listingProduct(id ProductID, title string) Product {
	return Product{
		ID:          id,
		Title:       title,
		Description: "d",
		Category:    "beauty",
		Price:       10,
		Images:      []string{"https://cdn.example.com/p.png"},
		Thumbnail:   "https://cdn.example.com/p-thumb.png",
	}
}

func Test_Service_Page_SecondReadIsCacheHit(t *testing.T) {
	// given
	service, remote, _ := newCatalogFixture(t)
	remote.pages[1] = Page{Products: []Product{listingProduct(1, "Mascara")}, Total: 1, Limit: 12}

	// when
	first, err1 := service.Page(context.Background(), DefaultParams())
	second, err2 := service.Page(context.Background(), DefaultParams())

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, remote.pageCallCount(), "a resolved listing page never refetches")
}

func Test_Service_Product_SeededFromCachedListing(t *testing.T) {
	// given: a cached listing page containing the product
	service, remote, _ := newCatalogFixture(t)
	remote.pages[1] = Page{Products: []Product{listingProduct(7, "Perfume")}, Total: 1, Limit: 12}
	_, err := service.Page(context.Background(), DefaultParams())
	require.NoError(t, err)

	// when
	product, err := service.Product(context.Background(), 7)

	// then: answered entirely from the listing, no entity fetch
	require.NoError(t, err)
	assert.Equal(t, "Perfume", product.Title)
	assert.Zero(t, remote.productCalls)
}

func Test_Service_Product_FetchesOnColdCache(t *testing.T) {
	// given
	service, remote, _ := newCatalogFixture(t)
	remote.product = listingProduct(7, "Perfume")

	// when
	product, err := service.Product(context.Background(), 7)

	// then
	require.NoError(t, err)
	assert.Equal(t, ProductID(7), product.ID)
	assert.Equal(t, 1, remote.productCalls)
}

func Test_Service_ResolveProduct(t *testing.T) {
	// given
	service, remote, cache := newCatalogFixture(t)
	remote.pages[1] = Page{Products: []Product{listingProduct(3, "Soap")}, Total: 1, Limit: 12}
	_, err := service.Page(context.Background(), DefaultParams())
	require.NoError(t, err)
	querycache.SetData(cache, EntityKey(9), func(Product, bool) Product { return listingProduct(9, "Brush") })

	// when / then: entity entries win, listings fill the gaps, misses are clean
	p, ok := service.ResolveProduct(9)
	require.True(t, ok)
	assert.Equal(t, "Brush", p.Title)

	p, ok = service.ResolveProduct(3)
	require.True(t, ok)
	assert.Equal(t, "Soap", p.Title)

	_, ok = service.ResolveProduct(999)
	assert.False(t, ok)
}

func Test_Service_MaybePrefetchNext_WarmsPageAfterRequested(t *testing.T) {
	// given: page 1 resolved with plenty of pages behind it
	service, remote, _ := newCatalogFixture(t)
	remote.pages[1] = Page{Products: []Product{listingProduct(1, "A")}, Total: 100, Limit: 12}
	remote.pages[3] = Page{Products: []Product{listingProduct(30, "C")}, Total: 100, Limit: 12}
	_, err := service.Page(context.Background(), DefaultParams())
	require.NoError(t, err)

	// when: the user navigates forward to page 2
	service.MaybePrefetchNext(context.Background(), DefaultParams(), 2)

	// then: page 3 is warmed in the background
	assert.Eventually(t, func() bool {
		return remote.pageCallCount() == 2 && remote.lastPageCall().Page == 3
	}, time.Second, 10*time.Millisecond)
}

func Test_Service_MaybePrefetchNext_NoopWithoutResolvedListing(t *testing.T) {
	// given: nothing cached for this filter state
	service, remote, _ := newCatalogFixture(t)

	// when
	service.MaybePrefetchNext(context.Background(), DefaultParams(), 2)
	time.Sleep(50 * time.Millisecond)

	// then
	assert.Zero(t, remote.pageCallCount())
}

func Test_Service_MaybePrefetchNext_NoopNearEndOfSet(t *testing.T) {
	// given: 3 pages in total, so there is no page 4 to warm
	service, remote, _ := newCatalogFixture(t)
	remote.pages[1] = Page{Products: []Product{listingProduct(1, "A")}, Total: 36, Limit: 12}
	_, err := service.Page(context.Background(), DefaultParams())
	require.NoError(t, err)

	// when
	service.MaybePrefetchNext(context.Background(), DefaultParams(), 2)
	time.Sleep(50 * time.Millisecond)

	// then: only the initial page load hit the remote
	assert.Equal(t, 1, remote.pageCallCount())
}

func Test_Service_Categories_Cached(t *testing.T) {
	// given
	service, remote, _ := newCatalogFixture(t)
	remote.categories = []string{"beauty", "fragrances"}

	// when
	first, err1 := service.Categories(context.Background())
	remote.categories = []string{"changed"}
	second, err2 := service.Categories(context.Background())

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, []string{"beauty", "fragrances"}, first)
	assert.Equal(t, first, second)
}
