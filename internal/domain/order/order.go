package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: conflict")
	ErrForbidden              = errors.New("order: forbidden")
	ErrEmptyCart              = errors.New("order: cart is empty")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrInvalidStatus          = errors.New("order: unknown status")
	ErrInvalidLine            = errors.New("order: invalid line")
	ErrInvalidAddress         = errors.New("order: invalid shipping address")
	ErrPaymentMismatch        = errors.New("order: payment does not match order")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Line is a frozen copy of what was bought and at which unit price.
type Line struct {
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type ShippingAddress struct {
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	PhoneNumber  string
}

func (a ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
		{"phone_number", a.PhoneNumber},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	return nil
}

type Order struct {
	ID              string
	UserID          string
	Lines           []Line
	Total           decimal.Decimal
	ShippingAddress ShippingAddress
	Status          Status
	Payment         *payment.Payment
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New builds a PENDING order. Lines are copied and the total is derived from
// their prices at purchase; neither changes afterwards.
func New(id, userID string, lines []Line, address ShippingAddress, idempotencyKey string) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}
	frozen := make([]Line, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 || l.PriceAtPurchase.IsNegative() {
			return nil, fmt.Errorf("%w: product %q quantity %d", ErrInvalidLine, l.ProductID, l.Quantity)
		}
		frozen[i] = l
		total = total.Add(l.Subtotal())
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		UserID:          userID,
		Lines:           frozen,
		Total:           total,
		ShippingAddress: address,
		Status:          StatusPending,
		IdempotencyKey:  idempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// AttachPayment links the order's only payment, or replaces it with a newer
// version of the same payment.
func (o *Order) AttachPayment(p *payment.Payment) error {
	if p == nil {
		return fmt.Errorf("%w: nil payment", ErrPaymentMismatch)
	}
	if o.Payment != nil && o.Payment.ID != p.ID {
		return fmt.Errorf("%w: order already has payment %s", ErrPaymentMismatch, o.Payment.ID)
	}
	if p.OrderID != o.ID || !p.Amount.Equal(o.Total) {
		return fmt.Errorf("%w: amount %s for order total %s", ErrPaymentMismatch, p.Amount, o.Total)
	}
	o.Payment = p.Clone()
	o.touch()
	return nil
}

func (o *Order) CanTransitionTo(target Status) bool {
	_, err := dispatch(stateFor(o.Status), target)
	return err == nil
}

// TransitionTo moves the order along the lifecycle table.
func (o *Order) TransitionTo(target Status) error {
	next, err := dispatch(stateFor(o.Status), target)
	if err != nil {
		return fmt.Errorf("%w: %s -> %s", err, o.Status, target)
	}
	o.Status = next.Status()
	o.touch()
	return nil
}

func (o *Order) MarkPaid() error { return o.TransitionTo(StatusProcessing) }

func (o *Order) Cancel() error { return o.TransitionTo(StatusCancelled) }

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	c.Payment = o.Payment.Clone()
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
