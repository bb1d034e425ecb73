package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("payment: not found")
	ErrInvalidInfo     = errors.New("payment: invalid payment info")
	ErrOperationFailed = errors.New("payment: operation failed")
	ErrAlreadyRefunded = errors.New("payment: already refunded")
)

type Method string

const (
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodPayPal       Method = "PAYPAL"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Info carries the method plus whatever fields that method needs.
type Info struct {
	Method Method

	CardNumber     string
	CardHolderName string
	ExpiryDate     string
	CVV            string

	PayPalEmail string

	AccountNumber string
	BankName      string
}

func (i Info) Validate() error {
	switch i.Method {
	case MethodCreditCard:
		if i.CardNumber == "" || i.CardHolderName == "" || i.ExpiryDate == "" || i.CVV == "" {
			return fmt.Errorf("%w: card number, holder name, expiry date and cvv are required", ErrInvalidInfo)
		}
	case MethodPayPal:
		if !strings.Contains(i.PayPalEmail, "@") {
			return fmt.Errorf("%w: paypal email is required", ErrInvalidInfo)
		}
	case MethodBankTransfer:
		if i.AccountNumber == "" || i.BankName == "" {
			return fmt.Errorf("%w: account number and bank name are required", ErrInvalidInfo)
		}
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidInfo, i.Method)
	}
	return nil
}

// MaskedAccount keeps the last four characters of whichever account
// reference the method uses.
func (i Info) MaskedAccount() string {
	var ref string
	switch i.Method {
	case MethodCreditCard:
		ref = i.CardNumber
	case MethodPayPal:
		return i.PayPalEmail
	case MethodBankTransfer:
		ref = i.AccountNumber
	}
	if len(ref) <= 4 {
		return ref
	}
	return strings.Repeat("*", len(ref)-4) + ref[len(ref)-4:]
}

type Payment struct {
	ID            string
	OrderID       string
	Method        Method
	Account       string
	Amount        decimal.Decimal
	TransactionID string
	Status        Status
	PaidAt        time.Time
	UpdatedAt     time.Time
}

// Refundable reports whether a refund may still be requested.
func (p *Payment) Refundable() bool {
	return p != nil && p.Status != StatusRefunded
}

// MarkRefunded records a successful refund.
func (p *Payment) MarkRefunded() error {
	if p.Status == StatusRefunded {
		return ErrAlreadyRefunded
	}
	p.Status = StatusRefunded
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// NewTransactionID returns a processor-style reference such as TXN-1A2B3C4D.
func NewTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:8])
}

// Request is what the gateway needs to charge an order.
type Request struct {
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Info      Info
}

// Gateway abstracts the external payment processor. A declined charge is a
// normal outcome reported as StatusFailed; errors mean the processor could
// not be reached or refused the operation outright. Refund is idempotent per
// payment ID: refunding a payment the processor already refunded returns
// that refund without moving money again.
type Gateway interface {
	Process(ctx context.Context, req Request) (*Payment, error)
	Refund(ctx context.Context, p *Payment) (*Payment, error)
}
