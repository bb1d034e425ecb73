package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

type stubProcessor struct {
	process func(req dompay.Request) (*dompay.Payment, error)
	refund  func(p *dompay.Payment) (*dompay.Payment, error)
}

func (s stubProcessor) Process(_ context.Context, req dompay.Request) (*dompay.Payment, error) {
	return s.process(req)
}

func (s stubProcessor) Refund(_ context.Context, p *dompay.Payment) (*dompay.Payment, error) {
	return s.refund(p)
}

func echo(status dompay.Status) func(dompay.Request) (*dompay.Payment, error) {
	return func(req dompay.Request) (*dompay.Payment, error) {
		return &dompay.Payment{
			ID:            req.PaymentID,
			OrderID:       req.OrderID,
			Method:        req.Info.Method,
			Amount:        req.Amount,
			TransactionID: "TXN-ABCDEFGH",
			Status:        status,
		}, nil
	}
}

func request() dompay.Request {
	return dompay.Request{
		PaymentID: "pay-1",
		OrderID:   "o1",
		Amount:    decimal.RequireFromString("30.00"),
		Info:      dompay.Info{Method: dompay.MethodPayPal, PayPalEmail: "ada@example.com"},
	}
}

func externalCount(tel *observabilitytest.Recorder, endpoint, outcome string) float64 {
	return tel.Count(observability.MExternalRequests,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
}

func TestProcess_Outcomes(t *testing.T) {
	tel := observabilitytest.New()

	p, err := NewInstrumentedGateway(stubProcessor{process: echo(dompay.StatusCompleted)}, tel).Process(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusCompleted, p.Status)

	p, err = NewInstrumentedGateway(stubProcessor{process: echo(dompay.StatusFailed)}, tel).Process(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusFailed, p.Status)

	assert.Equal(t, 1.0, externalCount(tel, endpointProcess, outcomeSucceeded))
	assert.Equal(t, 1.0, externalCount(tel, endpointProcess, outcomeDeclined))
	assert.Len(t, tel.Entries("payment_call_done"), 2)
}

func TestProcess_Failures(t *testing.T) {
	tel := observabilitytest.New()
	ctx := context.Background()

	broken := stubProcessor{process: func(dompay.Request) (*dompay.Payment, error) {
		return nil, errors.New("connection reset")
	}}
	_, err := NewInstrumentedGateway(broken, tel).Process(ctx, request())
	assert.ErrorIs(t, err, ErrOperationFailed)

	wrongAmount := stubProcessor{process: func(req dompay.Request) (*dompay.Payment, error) {
		p, _ := echo(dompay.StatusCompleted)(req)
		p.Amount = decimal.RequireFromString("1.00")
		return p, nil
	}}
	_, err = NewInstrumentedGateway(wrongAmount, tel).Process(ctx, request())
	assert.ErrorIs(t, err, ErrOperationFailed)

	bad := request()
	bad.Info.PayPalEmail = ""
	_, err = NewInstrumentedGateway(stubProcessor{process: echo(dompay.StatusCompleted)}, tel).Process(ctx, bad)
	assert.ErrorIs(t, err, dompay.ErrInvalidInfo)

	assert.Equal(t, 3.0, externalCount(tel, endpointProcess, outcomeFailure))
	assert.Len(t, tel.Entries("payment_call_failed"), 3)
}

func TestRefund(t *testing.T) {
	tel := observabilitytest.New()
	ctx := context.Background()
	paid, _ := echo(dompay.StatusCompleted)(request())

	ok := stubProcessor{refund: func(p *dompay.Payment) (*dompay.Payment, error) {
		require.NoError(t, p.MarkRefunded())
		return p, nil
	}}
	refunded, err := NewInstrumentedGateway(ok, tel).Refund(ctx, paid)
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusRefunded, refunded.Status)
	assert.Equal(t, dompay.StatusCompleted, paid.Status, "caller's payment is not mutated")

	_, err = NewInstrumentedGateway(ok, tel).Refund(ctx, refunded)
	assert.ErrorIs(t, err, ErrAlreadyRefunded)

	unconfirmed := stubProcessor{refund: func(p *dompay.Payment) (*dompay.Payment, error) { return p, nil }}
	_, err = NewInstrumentedGateway(unconfirmed, tel).Refund(ctx, paid)
	assert.ErrorIs(t, err, ErrOperationFailed)

	_, err = NewInstrumentedGateway(ok, tel).Refund(ctx, nil)
	assert.ErrorIs(t, err, ErrOperationFailed)

	assert.Equal(t, 1.0, externalCount(tel, endpointRefund, outcomeSucceeded))
	assert.Equal(t, 1.0, externalCount(tel, endpointRefund, outcomeFailure))
}
