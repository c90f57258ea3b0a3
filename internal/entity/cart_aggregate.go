package entity

import "github.com/shopspring/decimal"

// CartSnapshot is the server-truth list of the current user's cart lines.
// It is replaced wholesale on every refresh and never patched in place.
type CartSnapshot struct {
	UserID string
	Items  []CartItem
}

// NewCartSnapshot copies items so later changes to the source slice cannot
// leak into the snapshot.
func NewCartSnapshot(userID string, items []CartItem) CartSnapshot {
	cp := make([]CartItem, len(items))
	copy(cp, items)
	return CartSnapshot{UserID: userID, Items: cp}
}

// Total is the fold of price × quantity over the snapshot. Rounding is left
// to rendering.
func (s CartSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (s CartSnapshot) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s CartSnapshot) Empty() bool {
	return len(s.Items) == 0
}

// Find returns the line with the given cart item id.
func (s CartSnapshot) Find(cartItemID string) (CartItem, bool) {
	for _, item := range s.Items {
		if item.ID == cartItemID {
			return item, true
		}
	}
	return CartItem{}, false
}
