package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

// Open connects to postgres. Driver errors are translated so duplicate keys
// surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&productRow{}, &orderRow{}, &orderLineRow{}, &paymentRow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Store runs each unit of work in one database transaction.
type Store struct {
	db *gorm.DB
}

var _ application.UnitOfWork = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txn{db: tx})
	})
}

// Seed inserts the products that do not exist yet. Existing rows keep their
// price and stock so restarts never reset inventory.
func (s *Store) Seed(ctx context.Context, products ...*catalog.Product) error {
	return s.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		for _, p := range products {
			_, err := tx.Products().FindByID(ctx, p.ID)
			switch {
			case err == nil:
				continue
			case !errors.Is(err, catalog.ErrNotFound):
				return err
			}
			if err := tx.Products().Save(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type txn struct {
	db *gorm.DB
}

func (t *txn) Products() catalog.Repository { return productRepository{db: t.db} }
func (t *txn) Stock() inventory.Ledger       { return stockLedger{db: t.db} }
func (t *txn) Orders() order.Repository      { return orderRepository{db: t.db} }
