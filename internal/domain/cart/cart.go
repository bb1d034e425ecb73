package cart

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
	ErrUserRequired    = errors.New("cart: user id is required")
)

// Line is one product selection. UnitPrice mirrors the catalog price the
// last time the cart was priced; it is never used as a purchase price.
type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a user's working set of selections, unique by product.
type Cart struct {
	UserID    string    `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns the empty cart a user gets on first access.
func New(userID string) *Cart {
	return &Cart{UserID: userID, Lines: []Line{}, UpdatedAt: time.Now().UTC()}
}

// AddItem merges quantity into an existing line for the product or appends a
// new one.
func (c *Cart) AddItem(p *catalog.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity += quantity
			c.Lines[i].ProductName = p.Name
			c.Lines[i].UnitPrice = p.Price
			c.touch()
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    quantity,
	})
	c.touch()
	return nil
}

// UpdateItemQuantity replaces the quantity of the matching line. A zero
// quantity removes the line; no matching line is a no-op.
func (c *Cart) UpdateItemQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if quantity == 0 {
		c.RemoveItem(productID)
		return nil
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = quantity
			c.touch()
			return nil
		}
	}
	return nil
}

func (c *Cart) RemoveItem(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.touch()
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Lines = []Line{}
	c.touch()
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Quantity returns the quantity held for a product, zero when absent.
func (c *Cart) Quantity(productID string) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Reprice refreshes names and unit prices from the catalog. Products missing
// from the map keep their last known values.
func (c *Cart) Reprice(products map[string]*catalog.Product) {
	for i := range c.Lines {
		if p, ok := products[c.Lines[i].ProductID]; ok && p != nil {
			c.Lines[i].ProductName = p.Name
			c.Lines[i].UnitPrice = p.Price
		}
	}
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	if clone.Lines == nil {
		clone.Lines = []Line{}
	}
	return &clone
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Repository stores one cart per user. Get never reports a missing cart; it
// returns a fresh empty one instead.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}
