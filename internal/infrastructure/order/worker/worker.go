package worker

import (
	"context"
	"strconv"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/worker"
)

// Worker writes one audit line per order lifecycle event. Orders left
// PENDING by a declined payment are logged at warn level.
type Worker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		log:        logger.With(observability.F("component", "order_audit")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handleCreated)
	w.subscriber.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), w.handleStatusChanged)
	w.subscriber.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handleCancelled)
}

func (w *Worker) handleCreated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}
	_, logger := workerpresentation.WithEventContext(ctx, w.log, evt.EventName(), "", map[string]string{
		"order_id": evt.OrderID,
		"user_id":  evt.UserID,
	})
	fields := []observability.Field{
		observability.F("status", string(evt.Status)),
		observability.F("total", evt.Total),
		observability.F("payment_status", evt.PaymentStatus),
		observability.F("lines", len(evt.Lines)),
	}
	if evt.Status == domorder.StatusPending && evt.PaymentStatus == string(dompay.StatusFailed) {
		logger.Warn("order_payment_declined", fields...)
		return nil
	}
	logger.Info("order_audit", fields...)
	return nil
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderStatusChangedEvent)
	if !ok {
		return nil
	}
	_, logger := workerpresentation.WithEventContext(ctx, w.log, evt.EventName(), "", map[string]string{
		"order_id": evt.OrderID,
	})
	logger.Info("order_audit",
		observability.F("from", string(evt.From)),
		observability.F("to", string(evt.To)),
	)
	return nil
}

func (w *Worker) handleCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCancelledEvent)
	if !ok {
		return nil
	}
	_, logger := workerpresentation.WithEventContext(ctx, w.log, evt.EventName(), "", map[string]string{
		"order_id": evt.OrderID,
		"user_id":  evt.UserID,
		"refunded": strconv.FormatBool(evt.Refunded),
	})
	logger.Info("order_audit", observability.F("from", string(evt.From)))
	return nil
}
