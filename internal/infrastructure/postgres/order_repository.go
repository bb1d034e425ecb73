package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

type orderRepository struct {
	db *gorm.DB
}

func (r orderRepository) Insert(ctx context.Context, o *domorder.Order) error {
	row := toOrderRow(o)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domorder.ErrConflict
		}
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	if len(row.Lines) > 0 {
		if err := db.Create(&row.Lines).Error; err != nil {
			return fmt.Errorf("insert order lines %s: %w", o.ID, err)
		}
	}
	if row.Payment != nil {
		if err := r.savePayment(db, row.Payment); err != nil {
			return err
		}
	}
	return nil
}

// Update persists status and payment changes. Lines are immutable after insert.
func (r orderRepository) Update(ctx context.Context, o *domorder.Order) error {
	row := toOrderRow(o)
	db := r.db.WithContext(ctx)

	res := db.Model(&orderRow{}).Where("id = ?", o.ID).Updates(map[string]any{
		"status":     row.Status,
		"updated_at": row.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update order %s: %w", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domorder.ErrNotFound
	}
	if row.Payment != nil {
		return r.savePayment(db, row.Payment)
	}
	return nil
}

func (r orderRepository) savePayment(db *gorm.DB, p *paymentRow) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "transaction_id", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

func (r orderRepository) FindByID(ctx context.Context, id string) (*domorder.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindForUpdate takes a row lock on the order held until the transaction ends.
func (r orderRepository) FindForUpdate(ctx context.Context, id string) (*domorder.Order, error) {
	var locked orderRow
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").Where("id = ?", id).Take(&locked).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domorder.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", id, err)
	}
	return r.FindByID(ctx, id)
}

func (r orderRepository) ListByUser(ctx context.Context, userID string) ([]*domorder.Order, error) {
	var rows []orderRow
	err := r.preload(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	out := make([]*domorder.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r orderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domorder.Order, error) {
	if key == "" {
		return nil, domorder.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("user_id = ? AND idempotency_key = ?", userID, key))
}

func (r orderRepository) first(q *gorm.DB) (*domorder.Order, error) {
	var row orderRow
	err := r.preload(q).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domorder.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return row.toDomain(), nil
}

func (r orderRepository) preload(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Payment")
}
