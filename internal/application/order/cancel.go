package order

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderCancel = "order.cancel"

type CancelOrderInput struct {
	UserID  string
	OrderID string
}

// CancelOrderUseCase lets the owner cancel a PENDING or PROCESSING order,
// returning its stock and refunding its payment.
type CancelOrderUseCase struct {
	uow        application.UnitOfWork
	compensate compensator
	events     eventPublisher
	inst       application.Instruments
}

func NewCancelOrderUseCase(
	uow application.UnitOfWork,
	gateway dompay.Gateway,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		uow:        uow,
		compensate: compensator{gateway: gateway},
		events:     newEventPublisher(publisher, tel),
		inst:       application.NewInstruments(tel, orderService),
	}
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, cmd CancelOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.user_id", cmd.UserID),
	)
	defer func() { run.End(err) }()
	run.Field(observability.F("order_id", cmd.OrderID))

	if cmd.OrderID == "" || cmd.UserID == "" {
		status, wrapped := classify(application.Validation("order id and user id are required"))
		run.Fail(status)
		return nil, wrapped
	}

	var (
		cancelled *domain.Order
		from      domain.Status
		refunded  bool
	)
	txErr := uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		o, err := tx.Orders().FindForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if !o.OwnedBy(cmd.UserID) {
			return ErrForbidden
		}
		from = o.Status
		cancelled = o
		refunded, err = uc.compensate.cancel(ctx, tx, o)
		return err
	})
	if txErr != nil {
		if refunded {
			uc.compensate.unrecorded(run, cancelled, txErr)
		}
		status, wrapped := classify(txErr)
		run.Fail(status)
		return nil, wrapped
	}

	run.Field(
		observability.F("from_status", string(from)),
		observability.F("refunded", refunded),
	)
	uc.events.publish(ctx, run, domain.NewOrderCancelledEvent(cancelled, from, refunded))
	return cancelled, nil
}

// compensator reverses an order's effects. It must run inside the
// transaction that holds the order row so that only one caller can observe
// a cancellable status.
//
// The refund reaches the processor before the transaction commits. Gateways
// refund idempotently per payment, so a cancellation retried after a failed
// commit gets the recorded refund back instead of a second one.
type compensator struct {
	gateway dompay.Gateway
}

// cancel reports refunded as soon as the processor confirmed the refund,
// including when a later step fails.
func (c compensator) cancel(ctx context.Context, tx application.Tx, o *domain.Order) (refunded bool, err error) {
	if !o.CanTransitionTo(domain.StatusCancelled) {
		return false, fmt.Errorf("%w: order %s is %s", ErrInvalidStateTransition, o.ID, o.Status)
	}

	for _, l := range o.Lines {
		if _, err := tx.Stock().Restore(ctx, l.ProductID, l.Quantity); err != nil {
			return false, fmt.Errorf("restore %s: %w", l.ProductID, err)
		}
	}

	if o.Payment.Refundable() {
		p, err := c.gateway.Refund(ctx, o.Payment)
		if err != nil {
			return false, err
		}
		refunded = true
		if err := o.AttachPayment(p); err != nil {
			return refunded, err
		}
	}

	if err := o.Cancel(); err != nil {
		return refunded, err
	}
	if err := tx.Orders().Update(ctx, o); err != nil {
		return refunded, err
	}
	return refunded, nil
}

// unrecorded logs a refund the processor made for a cancellation that did
// not commit.
func (c compensator) unrecorded(run *application.Run, o *domain.Order, cause error) {
	fields := []observability.Field{observability.Err(cause)}
	if o != nil && o.Payment != nil {
		fields = append(fields,
			observability.F("payment_id", o.Payment.ID),
			observability.F("transaction_id", o.Payment.TransactionID),
		)
	}
	run.Field(observability.F("refund_unrecorded", true))
	run.Logger().Warn("refund_not_recorded", fields...)
}
