package cart

import "github.com/abgdnv/storefront/internal/catalog"

// ActionKind enumerates the cart mutations.
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionRemove
	ActionSetQuantity
	ActionClear
)

// Action is one cart mutation intent.
type Action struct {
	Kind      ActionKind
	ProductID catalog.ProductID
	Quantity  int
}

func Add(id catalog.ProductID) Action {
	return Action{Kind: ActionAdd, ProductID: id}
}

func Remove(id catalog.ProductID) Action {
	return Action{Kind: ActionRemove, ProductID: id}
}

func SetQuantity(id catalog.ProductID, quantity int) Action {
	return Action{Kind: ActionSetQuantity, ProductID: id, Quantity: quantity}
}

func Clear() Action {
	return Action{Kind: ActionClear}
}

// Reduce applies one action to the cart and returns the next state. It is a
// pure function: the input slice is never modified.
//
// Add is a no-op when the product is already present; quantities below 1 in
// SetQuantity are clamped to 1 so the invariant holds inside the store
// rather than relying on whoever renders the controls.
func Reduce(lines []Line, a Action) []Line {
	switch a.Kind {
	case ActionAdd:
		for _, l := range lines {
			if l.ProductID == a.ProductID {
				return append([]Line(nil), lines...)
			}
		}
		next := append([]Line(nil), lines...)
		return append(next, Line{ProductID: a.ProductID, Quantity: 1})

	case ActionRemove:
		next := make([]Line, 0, len(lines))
		for _, l := range lines {
			if l.ProductID != a.ProductID {
				next = append(next, l)
			}
		}
		return next

	case ActionSetQuantity:
		quantity := a.Quantity
		if quantity < 1 {
			quantity = 1
		}
		next := append([]Line(nil), lines...)
		for i := range next {
			if next[i].ProductID == a.ProductID {
				next[i].Quantity = quantity
			}
		}
		return next

	case ActionClear:
		return []Line{}

	default:
		return append([]Line(nil), lines...)
	}
}
