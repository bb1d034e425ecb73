package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

type capture struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (c *capture) Publish(_ context.Context, e domoutbox.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func newService(t *testing.T) (*Service, *capture) {
	t.Helper()
	store := memory.NewStore()
	p, err := catalog.NewProduct("p1", "Widget", decimal.RequireFromString("10.00"), 2)
	require.NoError(t, err)
	store.Seed(p)
	events := &capture{}
	return NewService(store, events, observabilitytest.New()), events
}

func TestRestock(t *testing.T) {
	svc, events := newService(t)
	ctx := context.Background()

	level, err := svc.Restock(ctx, RestockInput{Admin: true, ProductID: "p1", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, level)

	got, err := svc.StockLevel(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	require.Len(t, events.events, 1)
	e, ok := events.events[0].(dominv.StockRestockedEvent)
	require.True(t, ok)
	assert.Equal(t, 5, e.Added)
	assert.Equal(t, 7, e.Quantity)
}

func TestRestock_Rejections(t *testing.T) {
	svc, events := newService(t)
	ctx := context.Background()

	_, err := svc.Restock(ctx, RestockInput{ProductID: "p1", Quantity: 5})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Restock(ctx, RestockInput{Admin: true, ProductID: "p1", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Restock(ctx, RestockInput{Admin: true, ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.StockLevel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	level, err := svc.StockLevel(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, level)
	assert.Empty(t, events.events)
}

func TestRestock_PublishFailureIsNotFatal(t *testing.T) {
	store := memory.NewStore()
	p, err := catalog.NewProduct("p1", "Widget", decimal.RequireFromString("10.00"), 2)
	require.NoError(t, err)
	store.Seed(p)

	tel := observabilitytest.New()
	failing := domoutbox.PublisherFunc(func(context.Context, domoutbox.Event) error {
		return errors.New("bus stopped")
	})
	svc := NewService(store, failing, tel)

	level, err := svc.Restock(context.Background(), RestockInput{Admin: true, ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, level)
	assert.Equal(t, 1.0, tel.Count(observability.MExternalRequests,
		observability.L("peer", "outbox"),
		observability.L("endpoint", "inventory.restocked"),
		observability.L("outcome", "error"),
	))
	done := tel.Entries("use_case_done")
	require.NotEmpty(t, done)
	assert.Equal(t, "EVENT_PUBLISH_FAILED", done[len(done)-1].Fields["status"])
}
