package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

func newService(t *testing.T) (*Service, *memory.Store, *observabilitytest.Recorder) {
	t.Helper()
	store := memory.NewStore()
	for _, p := range []struct {
		id, name, price string
		stock           int
	}{
		{"p1", "Widget", "10.00", 5},
		{"p2", "Gadget", "2.50", 100},
	} {
		prod, err := catalog.NewProduct(p.id, p.name, decimal.RequireFromString(p.price), p.stock)
		require.NoError(t, err)
		store.Seed(prod)
	}
	tel := observabilitytest.New()
	return NewService(memory.NewCartRepository(), store, tel), store, tel
}

func TestAddItem_MergesLines(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 4)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	require.Len(t, c.Lines, 2)
	assert.Equal(t, 3, c.Quantity("p1"))
	assert.Equal(t, "40.00", c.Total().StringFixed(2))
}

func TestAddItem_Rejections(t *testing.T) {
	svc, _, tel := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddItem(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, "u1", "p1", 4)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p1", 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.AddItem(ctx, "", "p1", 1)
	assert.ErrorIs(t, err, domcart.ErrUserRequired)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Quantity("p1"))

	assert.Equal(t, 4.0, tel.Count(observability.MUsecaseRequests,
		observability.L("use_case", useCaseCartAdd), observability.L("outcome", "error")))
}

func TestUpdateItemQuantity(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	c, err := svc.UpdateItemQuantity(ctx, "u1", "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Quantity("p1"))

	_, err = svc.UpdateItemQuantity(ctx, "u1", "p1", 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.UpdateItemQuantity(ctx, "u1", "p1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	c, err = svc.UpdateItemQuantity(ctx, "u1", "p1", 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", "p2", 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Quantity("p1"))
	assert.Equal(t, 1, c.Quantity("p2"))

	require.NoError(t, svc.Clear(ctx, "u1"))
	c, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestGetCart_RepricesFromCatalog(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	require.NoError(t, store.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		p, err := tx.Products().FindByID(ctx, "p1")
		if err != nil {
			return err
		}
		require.NoError(t, p.ChangePrice(decimal.RequireFromString("11.00")))
		return tx.Products().Save(ctx, p)
	}))

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "22.00", c.Total().StringFixed(2))
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddItem(ctx, "u1", "p2", 1)
		}()
	}
	wg.Wait()

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, c.Quantity("p2"))
}

func TestCheckout_ClearsOnlyOnSuccess(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	boom := errors.New("order rejected")
	err = svc.Checkout(ctx, "u1", func(_ context.Context, c *domcart.Cart) error {
		assert.Equal(t, 2, c.Quantity("p1"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Quantity("p1"))

	require.NoError(t, svc.Checkout(ctx, "u1", func(context.Context, *domcart.Cart) error { return nil }))
	c, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	assert.ErrorIs(t, svc.Checkout(ctx, "", func(context.Context, *domcart.Cart) error { return nil }), domcart.ErrUserRequired)
}

func TestCheckout_HoldsOffConcurrentMutations(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, "u1", "p1", 1)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	checkoutDone := make(chan error, 1)
	go func() {
		checkoutDone <- svc.Checkout(ctx, "u1", func(context.Context, *domcart.Cart) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	addDone := make(chan error, 1)
	go func() {
		_, err := svc.AddItem(ctx, "u1", "p2", 3)
		addDone <- err
	}()
	select {
	case <-addDone:
		t.Fatal("cart mutated while a checkout held it")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-checkoutDone)
	require.NoError(t, <-addDone)

	c, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Quantity("p1"))
	assert.Equal(t, 3, c.Quantity("p2"), "an item added during checkout must survive the clear")
}

type saveFailingCarts struct {
	domcart.Repository
	err error
}

func (r saveFailingCarts) Save(context.Context, *domcart.Cart) error { return r.err }

func TestCheckout_ReportsClearFailure(t *testing.T) {
	carts := memory.NewCartRepository()
	c := domcart.New("u1")
	p, err := catalog.NewProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(p, 1))
	require.NoError(t, carts.Save(context.Background(), c))

	svc := NewService(saveFailingCarts{Repository: carts, err: errors.New("redis down")}, memory.NewStore(), observabilitytest.New())
	err = svc.Checkout(context.Background(), "u1", func(context.Context, *domcart.Cart) error { return nil })
	assert.ErrorIs(t, err, ErrClearFailed)
}
