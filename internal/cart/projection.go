package cart

import "github.com/abgdnv/storefront/internal/catalog"

// ProjectedLine is one cart line joined with its catalog product. It is
// derived on every read and never persisted, so prices always reflect the
// current catalog cache.
type ProjectedLine struct {
	ProductID           catalog.ProductID `json:"productId"`
	Title               string            `json:"title"`
	Price               float64           `json:"price"`
	Thumbnail           string            `json:"thumbnail"`
	Quantity            int               `json:"quantity"`
	DiscountPercentage  float64           `json:"discountPercentage"`
	LineTotal           float64           `json:"lineTotal"`
	LineDiscountedTotal float64           `json:"lineDiscountedTotal"`
}

// Projection is the derived view of the whole cart.
type Projection struct {
	Lines           []ProjectedLine `json:"lines"`
	Total           float64         `json:"total"`
	DiscountedTotal float64         `json:"discountedTotal"`
	TotalQuantity   int             `json:"totalQuantity"`
}

// DiscountPercent computes the discount for one line. The breakpoints are
// fixed business rules: a 5% base, price steps at 50 and 100, quantity steps
// at 3, 5 and 7.
func DiscountPercent(price float64, quantity int) float64 {
	discount := 5.0
	if price > 50 {
		discount += 5
	}
	if price > 100 {
		discount += 10
	}
	if quantity > 3 {
		discount += 5
	}
	if quantity > 5 {
		discount += 10
	}
	if quantity > 7 {
		discount += 15
	}
	return discount
}

// Project joins cart lines with catalog products via resolve and computes
// per-line pricing plus aggregate totals. Lines whose product cannot be
// resolved are dropped from the projection: an unresolved reference is a
// degraded-but-valid state, not an error. Totals are recomputed from the
// full projected list on every call; nothing is maintained incrementally.
func Project(lines []Line, resolve func(catalog.ProductID) (catalog.Product, bool)) Projection {
	projection := Projection{Lines: make([]ProjectedLine, 0, len(lines))}

	for _, l := range lines {
		product, ok := resolve(l.ProductID)
		if !ok {
			continue
		}
		discount := DiscountPercent(product.Price, l.Quantity)
		lineTotal := product.Price * float64(l.Quantity)
		projection.Lines = append(projection.Lines, ProjectedLine{
			ProductID:           l.ProductID,
			Title:               product.Title,
			Price:               product.Price,
			Thumbnail:           product.Thumbnail,
			Quantity:            l.Quantity,
			DiscountPercentage:  discount,
			LineTotal:           lineTotal,
			LineDiscountedTotal: lineTotal * (1 - discount/100),
		})
	}

	for _, pl := range projection.Lines {
		projection.Total += pl.LineTotal
		projection.DiscountedTotal += pl.LineDiscountedTotal
		projection.TotalQuantity += pl.Quantity
	}
	return projection
}
