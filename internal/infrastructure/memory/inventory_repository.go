package memory

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
)

// stockLedger mutates the stock counter on the product record. The store
// mutex makes each check-and-decrement atomic.
type stockLedger struct{ t *txn }

func (l stockLedger) Reserve(ctx context.Context, productID string, quantity int) (int, error) {
	_ = ctx
	p, ok := l.t.product(productID)
	if !ok {
		return 0, inventory.ErrNotFound
	}
	remaining, err := inventory.Deduct(p.StockQuantity, quantity)
	if err != nil {
		return p.StockQuantity, err
	}
	l.write(productID, remaining)
	return remaining, nil
}

func (l stockLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	_ = ctx
	if quantity <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	p, ok := l.t.product(productID)
	if !ok {
		return 0, inventory.ErrNotFound
	}
	total := p.StockQuantity + quantity
	l.write(productID, total)
	return total, nil
}

func (l stockLedger) Available(ctx context.Context, productID string) (int, error) {
	_ = ctx
	p, ok := l.t.product(productID)
	if !ok {
		return 0, inventory.ErrNotFound
	}
	return p.StockQuantity, nil
}

func (l stockLedger) write(productID string, quantity int) {
	p, _ := l.t.product(productID)
	next := p.Clone()
	next.StockQuantity = quantity
	next.UpdatedAt = time.Now().UTC()
	l.t.products[productID] = next
}
