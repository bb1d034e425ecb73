package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("catalog: product not found")
	ErrInvalidProduct = errors.New("catalog: invalid product")
)

// Product is the catalog view the order workflow depends on: a name, a unit
// price and the stock counter the inventory ledger mutates.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewProduct(id, name string, price decimal.Decimal, stock int) (*Product, error) {
	if id == "" || name == "" {
		return nil, errors.Join(ErrInvalidProduct, errors.New("id and name are required"))
	}
	if price.IsNegative() {
		return nil, errors.Join(ErrInvalidProduct, errors.New("price must be zero or greater"))
	}
	if stock < 0 {
		return nil, errors.Join(ErrInvalidProduct, errors.New("stock must be zero or greater"))
	}
	now := time.Now().UTC()
	return &Product{
		ID:            id,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (p *Product) ChangePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must be zero or greater"))
	}
	p.Price = price
	p.touch()
	return nil
}

func (p *Product) Rename(name string) error {
	if name == "" {
		return errors.Join(ErrInvalidProduct, errors.New("name is required"))
	}
	p.Name = name
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, p *Product) error
}
