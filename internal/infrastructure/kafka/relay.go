package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/worker"
)

const relayPeer = "kafka"

// RelayedEvents are the bus events forwarded to the broker.
var RelayedEvents = []string{
	domorder.OrderCreatedEvent{}.EventName(),
	domorder.OrderStatusChangedEvent{}.EventName(),
	domorder.OrderCancelledEvent{}.EventName(),
	dominv.StockRestockedEvent{}.EventName(),
}

type producer interface {
	Produce(ctx context.Context, msgs ...Message) error
}

// Relay forwards domain events from the in-process bus to Kafka as JSON.
type Relay struct {
	producer producer
	log      observability.Logger
	extReq   observability.Counter
	extDur   observability.Histogram
}

func NewRelay(p producer, tel observability.Observability) *Relay {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Relay{
		producer: p,
		log:      tel.Logger().With(observability.F("component", "kafka_relay")),
		extReq:   tel.Metrics().Counter(observability.MExternalRequests),
		extDur:   tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Register subscribes the relay to every relayed event.
func (r *Relay) Register(sub domoutbox.Subscriber) {
	for _, name := range RelayedEvents {
		sub.Subscribe(name, r.Handle)
	}
}

func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	key, attrs := describe(e)
	ctx, logger := workerpresentation.WithEventContext(ctx, r.log, e.EventName(), "", attrs)

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.extReq.Add(1,
			observability.L("peer", relayPeer),
			observability.L("endpoint", e.EventName()),
			observability.L("outcome", outcome),
		)
		r.extDur.Observe(time.Since(start).Seconds(),
			observability.L("peer", relayPeer),
			observability.L("endpoint", e.EventName()),
		)
	}()

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	err = r.producer.Produce(ctx, Message{
		Key:     key,
		Value:   payload,
		Headers: map[string]string{"event_type": e.EventName()},
	})
	if err != nil {
		return err
	}
	logger.Debug("event_relayed", observability.F("key", key))
	return nil
}

func describe(e domoutbox.Event) (string, map[string]string) {
	switch ev := e.(type) {
	case domorder.OrderCreatedEvent:
		return ev.OrderID, map[string]string{"order_id": ev.OrderID}
	case domorder.OrderStatusChangedEvent:
		return ev.OrderID, map[string]string{"order_id": ev.OrderID}
	case domorder.OrderCancelledEvent:
		return ev.OrderID, map[string]string{"order_id": ev.OrderID}
	case dominv.StockRestockedEvent:
		return ev.ProductID, map[string]string{"product_id": ev.ProductID}
	default:
		return e.EventName(), nil
	}
}
