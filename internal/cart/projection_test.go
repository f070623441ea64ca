package cart

import (
	"testing"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DiscountPercent(t *testing.T) {
	testCases := []struct {
		name     string
		price    float64
		quantity int
		expected float64
	}{
		{name: "base discount", price: 10, quantity: 1, expected: 5},
		{name: "price exactly 50 stays base", price: 50, quantity: 1, expected: 5},
		{name: "price above 50", price: 50.01, quantity: 1, expected: 10},
		{name: "price above 100 stacks both steps", price: 101, quantity: 1, expected: 20},
		{name: "quantity exactly 3 stays base", price: 10, quantity: 3, expected: 5},
		{name: "quantity above 3", price: 10, quantity: 4, expected: 10},
		{name: "quantity above 5 stacks", price: 10, quantity: 6, expected: 20},
		{name: "quantity above 7 stacks all three", price: 10, quantity: 8, expected: 35},
		{name: "price and quantity steps combine", price: 120, quantity: 8, expected: 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DiscountPercent(tc.price, tc.quantity))
		})
	}
}

func resolverFor(products map[catalog.ProductID]catalog.Product) func(catalog.ProductID) (catalog.Product, bool) {
	return func(id catalog.ProductID) (catalog.Product, bool) {
		p, ok := products[id]
		return p, ok
	}
}

func Test_Project_ComputesLineAndAggregateTotals(t *testing.T) {
	// given
	resolve := resolverFor(map[catalog.ProductID]catalog.Product{
		1: {ID: 1, Title: "Mascara", Price: 10},
		2: {ID: 2, Title: "Perfume", Price: 120},
	})
	lines := []Line{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 1},
	}

	// when
	projection := Project(lines, resolve)

	// then
	require.Len(t, projection.Lines, 2)

	mascara := projection.Lines[0]
	assert.Equal(t, 10.0, mascara.DiscountPercentage, "price 10 quantity 4")
	assert.Equal(t, 40.0, mascara.LineTotal)
	assert.InDelta(t, 36.0, mascara.LineDiscountedTotal, 1e-9)

	perfume := projection.Lines[1]
	assert.Equal(t, 20.0, perfume.DiscountPercentage, "price 120 quantity 1")
	assert.Equal(t, 120.0, perfume.LineTotal)
	assert.InDelta(t, 96.0, perfume.LineDiscountedTotal, 1e-9)

	assert.Equal(t, 160.0, projection.Total)
	assert.InDelta(t, 132.0, projection.DiscountedTotal, 1e-9)
	assert.Equal(t, 5, projection.TotalQuantity)
}

func Test_Project_DropsUnresolvedProducts(t *testing.T) {
	// given: only one of two cart lines resolves
	resolve := resolverFor(map[catalog.ProductID]catalog.Product{
		1: {ID: 1, Title: "Mascara", Price: 10},
	})
	lines := []Line{
		{ProductID: 1, Quantity: 2},
		{ProductID: 99, Quantity: 5},
	}

	// when
	projection := Project(lines, resolve)

	// then: totals reflect only the resolved portion
	require.Len(t, projection.Lines, 1)
	assert.Equal(t, catalog.ProductID(1), projection.Lines[0].ProductID)
	assert.Equal(t, 20.0, projection.Total)
	assert.Equal(t, 2, projection.TotalQuantity)
}

func Test_Project_EmptyCart(t *testing.T) {
	projection := Project(nil, resolverFor(nil))

	assert.Empty(t, projection.Lines)
	assert.Zero(t, projection.Total)
	assert.Zero(t, projection.DiscountedTotal)
	assert.Zero(t, projection.TotalQuantity)
}

func Test_Project_QuantityChangeMovesDiscountTier(t *testing.T) {
	// given
	resolve := resolverFor(map[catalog.ProductID]catalog.Product{
		1: {ID: 1, Title: "Mascara", Price: 10},
	})

	// when: the same product projected at quantities across a tier boundary
	before := Project([]Line{{ProductID: 1, Quantity: 3}}, resolve)
	after := Project([]Line{{ProductID: 1, Quantity: 4}}, resolve)

	// then
	assert.Equal(t, 5.0, before.Lines[0].DiscountPercentage)
	assert.Equal(t, 10.0, after.Lines[0].DiscountPercentage)
}
