package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Params_Transitions(t *testing.T) {
	testCases := []struct {
		name     string
		start    Params
		apply    func(Params) Params
		expected Params
	}{
		{
			name:     "page change preserves filters",
			start:    DefaultParams().WithCategory("beauty").WithSort(SortByPrice, OrderDesc),
			apply:    func(p Params) Params { return p.WithPage(3) },
			expected: Params{Page: 3, Limit: PageLimit, Category: "beauty", SortBy: SortByPrice, Order: OrderDesc},
		},
		{
			name:     "category change resets page and drops query",
			start:    Params{Page: 4, Limit: PageLimit, Query: "phone"},
			apply:    func(p Params) Params { return p.WithCategory("beauty") },
			expected: Params{Page: 1, Limit: PageLimit, Category: "beauty"},
		},
		{
			name:     "re-selecting the same category still resets the page",
			start:    Params{Page: 4, Limit: PageLimit, Category: "beauty"},
			apply:    func(p Params) Params { return p.WithCategory("beauty") },
			expected: Params{Page: 1, Limit: PageLimit, Category: "beauty"},
		},
		{
			name:     "query change resets page and drops category",
			start:    Params{Page: 4, Limit: PageLimit, Category: "beauty"},
			apply:    func(p Params) Params { return p.WithQuery("mascara") },
			expected: Params{Page: 1, Limit: PageLimit, Query: "mascara"},
		},
		{
			name:     "sort change resets page and keeps filter",
			start:    Params{Page: 4, Limit: PageLimit, Category: "beauty"},
			apply:    func(p Params) Params { return p.WithSort(SortByRating, OrderAsc) },
			expected: Params{Page: 1, Limit: PageLimit, Category: "beauty", SortBy: SortByRating, Order: OrderAsc},
		},
		{
			name:     "clearing filters returns to the first unfiltered page",
			start:    Params{Page: 4, Limit: PageLimit, Category: "beauty", SortBy: SortByPrice, Order: OrderDesc},
			apply:    func(p Params) Params { return p.WithoutFilters() },
			expected: Params{Page: 1, Limit: PageLimit, SortBy: SortByPrice, Order: OrderDesc},
		},
		{
			name:     "page below one clamps to one",
			start:    DefaultParams(),
			apply:    func(p Params) Params { return p.WithPage(0) },
			expected: Params{Page: 1, Limit: PageLimit},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.apply(tc.start))
		})
	}
}

func Test_ListKey_DistinctFilterStatesGetDistinctKeys(t *testing.T) {
	// given
	base := DefaultParams()
	variants := []Params{
		base,
		base.WithPage(2),
		base.WithCategory("beauty"),
		base.WithQuery("beauty"),
		base.WithSort(SortByPrice, OrderAsc),
		base.WithSort(SortByPrice, OrderDesc),
	}

	// then
	seen := make(map[string]int)
	for i, p := range variants {
		k := ListKey(p).String()
		if prev, dup := seen[k]; dup {
			t.Fatalf("params %d and %d share cache key %q", prev, i, k)
		}
		seen[k] = i
	}
}

func Test_ListKey_SamePageSameFilterIsStable(t *testing.T) {
	a := DefaultParams().WithCategory("beauty").WithPage(2)
	b := DefaultParams().WithCategory("beauty").WithPage(2)

	assert.Equal(t, ListKey(a), ListKey(b))
}
