package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

type subscriber map[string]domoutbox.Handler

func (s subscriber) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

func TestWorker_AuditsLifecycle(t *testing.T) {
	rec := observabilitytest.New()
	sub := subscriber{}
	New(sub, rec.Logger()).Start()
	require.Len(t, sub, 3)

	ctx := context.Background()
	require.NoError(t, sub["order.created"](ctx, domorder.OrderCreatedEvent{
		OrderID: "o1", UserID: "u1", Status: domorder.StatusProcessing,
		PaymentStatus: string(dompay.StatusCompleted), Total: "30.00",
	}))
	require.NoError(t, sub["order.status_changed"](ctx, domorder.OrderStatusChangedEvent{
		OrderID: "o1", From: domorder.StatusProcessing, To: domorder.StatusShipped,
	}))
	require.NoError(t, sub["order.cancelled"](ctx, domorder.OrderCancelledEvent{
		OrderID: "o2", UserID: "u1", From: domorder.StatusPending, Refunded: true,
	}))

	audit := rec.Entries("order_audit")
	require.Len(t, audit, 3)
	assert.Equal(t, "30.00", audit[0].Fields["total"])
	assert.Equal(t, "SHIPPED", audit[1].Fields["to"])
	assert.Equal(t, "true", audit[2].Fields["refunded"])
	assert.Equal(t, "order_audit", audit[2].Fields["component"])
}

func TestWorker_WarnsOnDeclinedPayment(t *testing.T) {
	rec := observabilitytest.New()
	sub := subscriber{}
	New(sub, rec.Logger()).Start()

	require.NoError(t, sub["order.created"](context.Background(), domorder.OrderCreatedEvent{
		OrderID: "o1", Status: domorder.StatusPending, PaymentStatus: string(dompay.StatusFailed),
	}))

	declined := rec.Entries("order_payment_declined")
	require.Len(t, declined, 1)
	assert.Equal(t, "warn", declined[0].Level)
	assert.Empty(t, rec.Entries("order_audit"))
}
