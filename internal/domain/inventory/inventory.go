package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Ledger is the authoritative stock counter. Reserve and Restore must be
// single atomic compare-and-update operations against the stored counter.
type Ledger interface {
	// Reserve decrements stock by quantity when enough is available and
	// returns the remaining quantity.
	Reserve(ctx context.Context, productID string, quantity int) (int, error)
	// Restore increments stock by quantity and returns the new quantity.
	Restore(ctx context.Context, productID string, quantity int) (int, error)
	Available(ctx context.Context, productID string) (int, error)
}

// Line is a requested quantity of one product.
type Line struct {
	ProductID string
	Quantity  int
}

// Deduct applies a conditional decrement to an in-hand counter.
func Deduct(current, quantity int) (int, error) {
	if quantity <= 0 {
		return current, ErrInvalidQuantity
	}
	if quantity > current {
		return current, ErrInsufficientStock
	}
	return current - quantity, nil
}

// Merge folds lines for the same product together, keeping first-seen order.
func Merge(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// CheckAvailability validates every line against current stock without
// mutating anything. The first shortfall is reported.
func CheckAvailability(ctx context.Context, ledger Ledger, lines []Line) error {
	for _, l := range Merge(lines) {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		available, err := ledger.Available(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if available < l.Quantity {
			return fmt.Errorf("%w: product %s requested %d, available %d",
				ErrInsufficientStock, l.ProductID, l.Quantity, available)
		}
	}
	return nil
}
