package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

type subscriber map[string]domoutbox.Handler

func (s subscriber) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

type levels map[string]int

func (l levels) StockLevel(_ context.Context, productID string) (int, error) {
	n, ok := l[productID]
	if !ok {
		return 0, errors.New("unknown product")
	}
	return n, nil
}

func TestWorker_WarnsOnLowStock(t *testing.T) {
	rec := observabilitytest.New()
	sub := subscriber{}
	New(sub, levels{"p1": 2, "p2": 40}, 3, rec.Logger()).Start()

	h, ok := sub[domorder.OrderCreatedEvent{}.EventName()]
	require.True(t, ok)

	err := h(context.Background(), domorder.OrderCreatedEvent{
		OrderID: "o1",
		Lines: []domorder.EventLine{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
			{ProductID: "gone", Quantity: 1},
		},
	})
	require.NoError(t, err)

	low := rec.Entries("stock_low")
	require.Len(t, low, 1)
	assert.Equal(t, "p1", low[0].Fields["product_id"])
	assert.Equal(t, 2, low[0].Fields["stock_quantity"])
	assert.Equal(t, "o1", low[0].Fields["order_id"])
	assert.Len(t, rec.Entries("stock_level_lookup_failed"), 1)
}

func TestWorker_IgnoresOtherEvents(t *testing.T) {
	rec := observabilitytest.New()
	sub := subscriber{}
	New(sub, levels{}, 3, rec.Logger()).Start()

	err := sub[domorder.OrderCreatedEvent{}.EventName()](context.Background(), domorder.OrderCancelledEvent{OrderID: "o1"})
	assert.NoError(t, err)
	assert.Empty(t, rec.Entries("stock_low"))
}
