package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(ctx, db))

	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	p, err := catalog.NewProduct("p1", "Widget", decimal.RequireFromString("10.00"), 10)
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, p))
	return store
}

func newOrder(t *testing.T, id, key string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, "u1", []domorder.Line{
		{ProductID: "p1", ProductName: "Widget", Quantity: 3, PriceAtPurchase: decimal.RequireFromString("10.00")},
		{ProductID: "p1", ProductName: "Widget", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("10.00")},
	}, domorder.ShippingAddress{
		AddressLine1: "1 Main St", City: "Springfield", State: "IL",
		PostalCode: "62701", Country: "US", PhoneNumber: "555-0100",
	}, key)
	require.NoError(t, err)
	return o
}

func stockOf(t *testing.T, s *Store) int {
	t.Helper()
	var qty int
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx application.Tx) error {
		var err error
		qty, err = tx.Stock().Available(ctx, "p1")
		return err
	}))
	return qty
}

func TestStore_OrderRoundTripAndRollback(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	o := newOrder(t, "o1", "key-1")
	require.NoError(t, store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		if err := tx.Orders().Insert(ctx, o); err != nil {
			return err
		}
		if _, err := tx.Stock().Reserve(ctx, "p1", 4); err != nil {
			return err
		}
		require.NoError(t, o.AttachPayment(&dompay.Payment{
			ID: "pay-1", OrderID: o.ID, Method: dompay.MethodPayPal, Amount: o.Total,
			TransactionID: "TXN-ABCDEF12", Status: dompay.StatusCompleted, PaidAt: time.Now().UTC(),
		}))
		require.NoError(t, o.MarkPaid())
		return tx.Orders().Update(ctx, o)
	}))
	assert.Equal(t, 6, stockOf(t, store))

	boom := errors.New("boom")
	err := store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		if _, err := tx.Stock().Restore(ctx, "p1", 4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 6, stockOf(t, store))

	require.NoError(t, store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		got, err := tx.Orders().FindForUpdate(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, domorder.StatusProcessing, got.Status)
		assert.Equal(t, "40.00", got.Total.StringFixed(2))
		require.Len(t, got.Lines, 2)
		assert.Equal(t, 3, got.Lines[0].Quantity)
		require.NotNil(t, got.Payment)
		assert.Equal(t, dompay.StatusCompleted, got.Payment.Status)

		replay, err := tx.Orders().FindByIdempotency(ctx, "u1", "key-1")
		require.NoError(t, err)
		assert.Equal(t, "o1", replay.ID)
		return nil
	}))

	err = store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		return tx.Orders().Insert(ctx, newOrder(t, "o2", "key-1"))
	})
	assert.ErrorIs(t, err, domorder.ErrConflict)
}

func TestStockLedger_ConditionalReserve(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
				_, err := tx.Stock().Reserve(ctx, "p1", 1)
				return err
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	assert.Equal(t, 0, stockOf(t, store))

	err := store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		_, err := tx.Stock().Restore(ctx, "missing", 1)
		return err
	})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestProductRepository_SaveUpserts(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		p, err := tx.Products().FindByID(ctx, "p1")
		require.NoError(t, err)
		require.NoError(t, p.ChangePrice(decimal.RequireFromString("12.34")))
		return tx.Products().Save(ctx, p)
	}))

	require.NoError(t, store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		products, err := tx.Products().List(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "12.34", products[0].Price.StringFixed(2))

		_, err = tx.Products().FindByID(ctx, "nope")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		return nil
	}))
}
