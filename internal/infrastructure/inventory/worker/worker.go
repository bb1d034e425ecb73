package worker

import (
	"context"

	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/worker"
)

type stockReader interface {
	StockLevel(ctx context.Context, productID string) (int, error)
}

// Worker watches committed orders and warns when a purchased product drops
// to the low-stock threshold.
type Worker struct {
	subscriber domoutbox.Subscriber
	stock      stockReader
	threshold  int
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, stock stockReader, threshold int, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		stock:      stock,
		threshold:  threshold,
		log:        logger.With(observability.F("component", "inventory_worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.stock == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handleOrderCreated)
}

func (w *Worker) handleOrderCreated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}
	ctx, logger := workerpresentation.WithEventContext(ctx, w.log, evt.EventName(), "", map[string]string{
		"order_id": evt.OrderID,
	})

	seen := make(map[string]bool, len(evt.Lines))
	for _, l := range evt.Lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true

		level, err := w.stock.StockLevel(ctx, l.ProductID)
		if err != nil {
			logger.Warn("stock_level_lookup_failed",
				observability.F("product_id", l.ProductID),
				observability.Err(err),
			)
			continue
		}
		if level <= w.threshold {
			logger.Warn("stock_low",
				observability.F("product_id", l.ProductID),
				observability.F("stock_quantity", level),
				observability.F("threshold", w.threshold),
			)
		}
	}
	return nil
}
