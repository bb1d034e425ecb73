package inventory

import "time"

// StockRestockedEvent is emitted when an operator adds stock for a product.
type StockRestockedEvent struct {
	ProductID  string    `json:"product_id"`
	Added      int       `json:"added"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StockRestockedEvent) EventName() string { return "inventory.restocked" }

func NewStockRestockedEvent(productID string, added, quantity int) StockRestockedEvent {
	return StockRestockedEvent{
		ProductID:  productID,
		Added:      added,
		Quantity:   quantity,
		OccurredAt: time.Now().UTC(),
	}
}
