package order

import "time"

type EventLine struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

// OrderCreatedEvent is emitted once the creation transaction has committed.
type OrderCreatedEvent struct {
	OrderID       string      `json:"order_id"`
	UserID        string      `json:"user_id"`
	Status        Status      `json:"status"`
	Total         string      `json:"total"`
	PaymentStatus string      `json:"payment_status,omitempty"`
	Lines         []EventLine `json:"lines"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	lines := make([]EventLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, EventLine{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase.StringFixed(2),
		})
	}
	evt := OrderCreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.Total.StringFixed(2),
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
	if o.Payment != nil {
		evt.PaymentStatus = string(o.Payment.Status)
	}
	return evt
}

// OrderStatusChangedEvent is emitted for administrative lifecycle moves.
type OrderStatusChangedEvent struct {
	OrderID    string    `json:"order_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order, from Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted after stock was restored and any payment refunded.
type OrderCancelledEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	From       Status    `json:"from"`
	Refunded   bool      `json:"refunded"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, from Status, refunded bool) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		From:       from,
		Refunded:   refunded,
		OccurredAt: time.Now().UTC(),
	}
}
