package cart

import (
	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart. Name and UnitPrice are captured when
// the product is first added and are not re-read from the catalog.
type LineItem struct {
	ProductID int64           `json:"producto_id"`
	Name      string          `json:"nombre"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Quantity  int             `json:"cantidad"`
}

// Subtotal is UnitPrice times Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart keeps at most one line item per product, in insertion order, and
// every quantity at least 1. A Cart is not safe for concurrent use; the
// Registry serialises access per terminal.
type Cart struct {
	items []LineItem
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(productID int64) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart.
func (c *Cart) Add(p domain.Product) {
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.SalePrice,
		Quantity:  1,
	})
}

// SetQuantity sets the quantity of an item already in the cart. Zero or a
// negative quantity removes it. Unknown ids are ignored.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		c.removeAt(i)
		return
	}
	c.items[i].Quantity = quantity
}

func (c *Cart) Remove(productID int64) {
	if i := c.index(productID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// Total is recomputed from the current items on every call.
func (c *Cart) Total() decimal.Decimal {
	return Total(c.items)
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the line items.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Total sums the subtotals of items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}
