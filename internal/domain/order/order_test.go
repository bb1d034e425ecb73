package order

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func address() ShippingAddress {
	return ShippingAddress{
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "US",
		PhoneNumber:  "555-0100",
	}
}

func newOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("o1", "u1", []Line{
		{ProductID: "p1", ProductName: "Widget", Quantity: 3, PriceAtPurchase: decimal.RequireFromString("10.00")},
		{ProductID: "p2", ProductName: "Gadget", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("2.50")},
	}, address(), "")
	require.NoError(t, err)
	return o
}

func TestNew_FreezesTotal(t *testing.T) {
	o := newOrder(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("32.50")))
	assert.True(t, o.Lines[0].Subtotal().Equal(decimal.RequireFromString("30.00")))
}

func TestNew_CopiesLines(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("1.00")}}
	o, err := New("o1", "u1", lines, address(), "")
	require.NoError(t, err)

	lines[0].PriceAtPurchase = decimal.RequireFromString("99.00")

	assert.True(t, o.Lines[0].PriceAtPurchase.Equal(decimal.RequireFromString("1.00")))
}

func TestNew_Validation(t *testing.T) {
	_, err := New("o1", "u1", nil, address(), "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = New("o1", "u1", []Line{{ProductID: "p1", Quantity: 0}}, address(), "")
	assert.ErrorIs(t, err, ErrInvalidLine)

	bad := address()
	bad.City = ""
	_, err = New("o1", "u1", []Line{{ProductID: "p1", Quantity: 1}}, bad, "")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestShippingAddress_AddressLine2Optional(t *testing.T) {
	a := address()
	a.AddressLine2 = ""
	assert.NoError(t, a.Validate())
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[Status][]Status{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped, StatusCancelled},
		StatusShipped:    {StatusDelivered},
		StatusDelivered:  {},
		StatusCancelled:  {},
	}

	for _, from := range all {
		for _, to := range all {
			o := newOrder(t)
			o.Status = from
			want := contains(allowed[from], to)

			err := o.TransitionTo(to)
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, o.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidStateTransition, "%s -> %s", from, to)
				assert.Equal(t, from, o.Status)
			}
		}
	}
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCancel_TerminalOnceCancelled(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.Cancel())
	assert.ErrorIs(t, o.Cancel(), ErrInvalidStateTransition)
	assert.False(t, o.CanTransitionTo(StatusProcessing))
}

func TestAttachPayment(t *testing.T) {
	o := newOrder(t)
	p := &payment.Payment{ID: "pay1", OrderID: o.ID, Amount: decimal.RequireFromString("32.5"), Status: payment.StatusCompleted}

	require.NoError(t, o.AttachPayment(p))
	require.NotNil(t, o.Payment)

	// the stored payment is a copy
	p.Status = payment.StatusFailed
	assert.Equal(t, payment.StatusCompleted, o.Payment.Status)

	other := &payment.Payment{ID: "pay2", OrderID: o.ID, Amount: o.Total}
	assert.ErrorIs(t, o.AttachPayment(other), ErrPaymentMismatch)

	refunded := o.Payment.Clone()
	require.NoError(t, refunded.MarkRefunded())
	require.NoError(t, o.AttachPayment(refunded))
	assert.Equal(t, payment.StatusRefunded, o.Payment.Status)
}

func TestAttachPayment_AmountMustMatchTotal(t *testing.T) {
	o := newOrder(t)
	p := &payment.Payment{ID: "pay1", OrderID: o.ID, Amount: decimal.RequireFromString("1.00")}
	assert.ErrorIs(t, o.AttachPayment(p), ErrPaymentMismatch)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("LOST")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestClone_Independent(t *testing.T) {
	o := newOrder(t)
	c := o.Clone()
	c.Lines[0].Quantity = 99
	c.Status = StatusCancelled

	assert.Equal(t, 3, o.Lines[0].Quantity)
	assert.Equal(t, StatusPending, o.Status)
}
