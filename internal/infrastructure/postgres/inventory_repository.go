package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
)

// stockLedger keeps stock on products.stock_quantity. Reserve is a single
// conditional UPDATE so concurrent transactions cannot both take the last unit.
type stockLedger struct {
	db *gorm.DB
}

func (l stockLedger) Reserve(ctx context.Context, productID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	res := l.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reserve %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		available, err := l.Available(ctx, productID)
		if err != nil {
			return 0, err
		}
		return available, inventory.ErrInsufficientStock
	}
	return l.Available(ctx, productID)
}

func (l stockLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, inventory.ErrInvalidQuantity
	}
	res := l.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("restore %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, inventory.ErrNotFound
	}
	return l.Available(ctx, productID)
}

func (l stockLedger) Available(ctx context.Context, productID string) (int, error) {
	var row productRow
	err := l.db.WithContext(ctx).Select("stock_quantity").Where("id = ?", productID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, inventory.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stock of %s: %w", productID, err)
	}
	return row.StockQuantity, nil
}
