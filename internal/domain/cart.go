package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// CartNamespace is the fixed storage namespace for persisted carts.
const CartNamespace = "blinkit-cart"

// CartSnapshotVersion is the current snapshot serialization version.
const CartSnapshotVersion = 1

var (
	// ErrInvalidQuantity is returned for negative quantities.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	// ErrInvalidPrice is returned for negative unit prices.
	ErrInvalidPrice = errors.New("price must not be negative")
)

// CartKey returns the storage key of a visitor's cart.
func CartKey(visitorID string) string {
	return CartNamespace + ":" + visitorID
}

// Item is a product as it is put into a cart.
type Item struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
	Image     string          `json:"image"`
}

// Validate reports whether the item may enter a cart.
func (it Item) Validate() error {
	if it.ID <= 0 {
		return ErrInvalidProductID
	}
	if it.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// CartLine is one product entry in a cart. Quantity is always >= 1.
type CartLine struct {
	Item
	Quantity int `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is the persisted form of a cart.
type CartSnapshot struct {
	Version    int             `json:"version"`
	Items      []CartLine      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Cart is the shopping-cart aggregate. Totals are maintained incrementally
// on every mutation. A Cart is not safe for concurrent use.
type Cart struct {
	lines      []CartLine
	totalItems int
	totalPrice decimal.Decimal
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{totalPrice: decimal.Zero}
}

// RestoreCart rehydrates a cart from a snapshot. Lines with a quantity below
// one are dropped and duplicate ids are merged. Totals are recomputed from
// the lines; repaired reports whether the stored totals disagreed.
func RestoreCart(s CartSnapshot) (c *Cart, repaired bool) {
	c = NewCart()
	for _, l := range s.Items {
		if l.Quantity < 1 {
			repaired = true
			continue
		}
		if i := c.index(l.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			repaired = true
		} else {
			c.lines = append(c.lines, l)
		}
		c.totalItems += l.Quantity
		c.totalPrice = c.totalPrice.Add(l.Subtotal())
	}
	if c.totalItems != s.TotalItems || !c.totalPrice.Equal(s.TotalPrice) {
		repaired = true
	}
	return c, repaired
}

func (c *Cart) index(id int64) int {
	for i := range c.lines {
		if c.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem adds one unit of item, inserting a new line when needed. A line
// keeps the price it was first added at; later adds of the same id are
// charged at that price.
func (c *Cart) AddItem(item Item) {
	price := item.UnitPrice
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		price = c.lines[i].UnitPrice
	} else {
		c.lines = append(c.lines, CartLine{Item: item, Quantity: 1})
	}
	c.totalItems++
	c.totalPrice = c.totalPrice.Add(price)
}

// RemoveItem deletes the line with the given id. Unknown ids are ignored.
func (c *Cart) RemoveItem(id int64) {
	i := c.index(id)
	if i < 0 {
		return
	}
	l := c.lines[i]
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.totalItems -= l.Quantity
	c.totalPrice = c.totalPrice.Sub(l.Subtotal())
}

// UpdateQuantity sets the quantity of an existing line. Zero removes the
// line; negative quantities are rejected and leave the cart unchanged.
func (c *Cart) UpdateQuantity(id int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	i := c.index(id)
	if i < 0 {
		return nil
	}
	if quantity == 0 {
		c.RemoveItem(id)
		return nil
	}
	diff := quantity - c.lines[i].Quantity
	c.lines[i].Quantity = quantity
	c.totalItems += diff
	c.totalPrice = c.totalPrice.Add(c.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(diff))))
	return nil
}

// DecrementItem lowers a line's quantity by one, removing it at one.
func (c *Cart) DecrementItem(id int64) {
	i := c.index(id)
	if i < 0 {
		return
	}
	if q := c.lines[i].Quantity; q > 1 {
		_ = c.UpdateQuantity(id, q-1)
		return
	}
	c.RemoveItem(id)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.totalItems = 0
	c.totalPrice = decimal.Zero
}

// RemoveOrdered subtracts ordered quantities from the matching lines,
// dropping lines that reach zero. Units added after the order was taken stay
// in the cart.
func (c *Cart) RemoveOrdered(items []OrderItem) {
	for _, it := range items {
		i := c.index(it.ProductID)
		if i < 0 {
			continue
		}
		if left := c.lines[i].Quantity - it.Quantity; left > 0 {
			_ = c.UpdateQuantity(it.ProductID, left)
		} else {
			c.RemoveItem(it.ProductID)
		}
	}
}

// Line returns the line with the given id.
func (c *Cart) Line(id int64) (CartLine, bool) {
	if i := c.index(id); i >= 0 {
		return c.lines[i], true
	}
	return CartLine{}, false
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems returns the sum of all line quantities.
func (c *Cart) TotalItems() int { return c.totalItems }

// TotalPrice returns the sum of all line subtotals.
func (c *Cart) TotalPrice() decimal.Decimal { return c.totalPrice }

// Snapshot returns the persistable form of the cart.
func (c *Cart) Snapshot() CartSnapshot {
	return CartSnapshot{
		Version:    CartSnapshotVersion,
		Items:      c.Lines(),
		TotalItems: c.totalItems,
		TotalPrice: c.totalPrice,
	}
}

// OrderItems converts the lines into the order placement payload.
func (c *Cart) OrderItems() []OrderItem {
	out := make([]OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, OrderItem{ProductID: l.ID, Quantity: l.Quantity})
	}
	return out
}

// CartRepository is the port for cart persistence.
type CartRepository interface {
	// LoadCart returns nil, nil when no cart is stored under key.
	LoadCart(ctx context.Context, key string) (*CartSnapshot, error)
	SaveCart(ctx context.Context, key string, s CartSnapshot) error
	// DeleteCart removes the stored cart. Deleting an absent key is not an
	// error.
	DeleteCart(ctx context.Context, key string) error
}
