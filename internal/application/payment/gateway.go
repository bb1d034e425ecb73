package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService   = "payment-gateway"
	gatewayPeer      = "payment-gateway"
	endpointProcess  = "payment.process"
	endpointRefund   = "payment.refund"
	spanProcess      = "Payment.Process"
	spanRefund       = "Payment.Refund"
	outcomeDeclined  = "declined"
	outcomeFailure   = "error"
	outcomeSucceeded = "success"
)

var (
	ErrOperationFailed = dompay.ErrOperationFailed
	ErrAlreadyRefunded = dompay.ErrAlreadyRefunded
)

// InstrumentedGateway wraps a processor with the external-call metrics, a
// client span per call and result checks. Every processor failure surfaces
// as ErrOperationFailed.
type InstrumentedGateway struct {
	next dompay.Gateway
	inst application.Instruments
}

var _ dompay.Gateway = (*InstrumentedGateway)(nil)

func NewInstrumentedGateway(next dompay.Gateway, tel observability.Observability) *InstrumentedGateway {
	return &InstrumentedGateway{
		next: next,
		inst: application.NewInstruments(tel, paymentService),
	}
}

func (g *InstrumentedGateway) Process(ctx context.Context, req dompay.Request) (_ *dompay.Payment, err error) {
	ctx, span := g.inst.Tracer.Start(ctx, spanProcess,
		attribute.String("order.id", req.OrderID),
		attribute.String("payment.method", string(req.Info.Method)),
		attribute.String("payment.amount", req.Amount.StringFixed(2)),
	)
	start := time.Now()
	outcome := outcomeSucceeded
	var result *dompay.Payment

	defer func() {
		g.inst.ObserveExternal(gatewayPeer, endpointProcess, outcome, start)
		fields := []observability.Field{
			observability.F("order_id", req.OrderID),
			observability.F("method", string(req.Info.Method)),
			observability.F("account", req.Info.MaskedAccount()),
			observability.F("outcome", outcome),
			observability.F("latency_seconds", time.Since(start).Seconds()),
		}
		if result != nil {
			fields = append(fields,
				observability.F("payment_status", string(result.Status)),
				observability.F("transaction_id", result.TransactionID),
			)
			span.SetAttributes(attribute.String("payment.status", string(result.Status)))
		}
		endSpan(span, err)
		logger := logctx.FromOr(ctx, g.inst.Log)
		if err != nil {
			logger.Warn("payment_call_failed", append(fields, observability.Err(err))...)
			return
		}
		logger.Info("payment_call_done", fields...)
	}()

	if err := req.Info.Validate(); err != nil {
		outcome = outcomeFailure
		return nil, err
	}

	p, err := g.next.Process(ctx, req)
	if err != nil {
		outcome = outcomeFailure
		return nil, wrapOperation(err)
	}
	if p == nil || p.OrderID != req.OrderID || !p.Amount.Equal(req.Amount) {
		outcome = outcomeFailure
		return nil, fmt.Errorf("%w: processor returned a payment that does not match the request", ErrOperationFailed)
	}
	switch p.Status {
	case dompay.StatusCompleted:
	case dompay.StatusFailed:
		outcome = outcomeDeclined
	default:
		outcome = outcomeFailure
		return nil, fmt.Errorf("%w: unexpected status %s", ErrOperationFailed, p.Status)
	}
	result = p
	return p, nil
}

func (g *InstrumentedGateway) Refund(ctx context.Context, p *dompay.Payment) (_ *dompay.Payment, err error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no payment to refund", ErrOperationFailed)
	}
	if !p.Refundable() {
		return nil, ErrAlreadyRefunded
	}

	ctx, span := g.inst.Tracer.Start(ctx, spanRefund,
		attribute.String("payment.id", p.ID),
		attribute.String("order.id", p.OrderID),
	)
	start := time.Now()
	outcome := outcomeSucceeded

	defer func() {
		g.inst.ObserveExternal(gatewayPeer, endpointRefund, outcome, start)
		endSpan(span, err)
		fields := []observability.Field{
			observability.F("payment_id", p.ID),
			observability.F("order_id", p.OrderID),
			observability.F("transaction_id", p.TransactionID),
			observability.F("outcome", outcome),
			observability.F("latency_seconds", time.Since(start).Seconds()),
		}
		logger := logctx.FromOr(ctx, g.inst.Log)
		if err != nil {
			logger.Warn("payment_refund_failed", append(fields, observability.Err(err))...)
			return
		}
		logger.Info("payment_refund_done", fields...)
	}()

	refunded, err := g.next.Refund(ctx, p.Clone())
	if err != nil {
		outcome = outcomeFailure
		return nil, wrapOperation(err)
	}
	if refunded == nil || refunded.ID != p.ID || refunded.Status != dompay.StatusRefunded {
		outcome = outcomeFailure
		return nil, fmt.Errorf("%w: refund was not confirmed", ErrOperationFailed)
	}
	return refunded, nil
}

func wrapOperation(err error) error {
	if errors.Is(err, ErrOperationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOperationFailed, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "OK")
	}
	span.End()
}
