package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderStatus = "order.update_status"

type UpdateOrderStatusInput struct {
	ActorID string
	Admin   bool
	OrderID string
	Status  domain.Status
}

// UpdateOrderStatusUseCase is the administrative lifecycle move. Targets are
// checked against the transition table; CANCELLED runs the same compensation
// as an owner cancellation.
type UpdateOrderStatusUseCase struct {
	uow        application.UnitOfWork
	compensate compensator
	events     eventPublisher
	inst       application.Instruments
}

func NewUpdateOrderStatusUseCase(
	uow application.UnitOfWork,
	gateway dompay.Gateway,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UpdateOrderStatusUseCase {
	return &UpdateOrderStatusUseCase{
		uow:        uow,
		compensate: compensator{gateway: gateway},
		events:     newEventPublisher(publisher, tel),
		inst:       application.NewInstruments(tel, orderService),
	}
}

func (uc *UpdateOrderStatusUseCase) Execute(ctx context.Context, cmd UpdateOrderStatusInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", string(cmd.Status)),
	)
	defer func() { run.End(err) }()
	run.Field(
		observability.F("order_id", cmd.OrderID),
		observability.F("actor_id", cmd.ActorID),
		observability.F("target_status", string(cmd.Status)),
	)
	fail := func(e error) (*domain.Order, error) {
		status, wrapped := classify(e)
		run.Fail(status)
		return nil, wrapped
	}

	if !cmd.Admin {
		return fail(ErrForbidden)
	}
	if cmd.OrderID == "" {
		return fail(application.Validation("order id is required"))
	}
	target, err := domain.ParseStatus(string(cmd.Status))
	if err != nil {
		return fail(err)
	}

	var (
		updated  *domain.Order
		from     domain.Status
		refunded bool
	)
	txErr := uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		o, err := tx.Orders().FindForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		from = o.Status
		updated = o
		if target == domain.StatusCancelled {
			refunded, err = uc.compensate.cancel(ctx, tx, o)
			if err != nil {
				return err
			}
		} else {
			if err := o.TransitionTo(target); err != nil {
				return err
			}
			if err := tx.Orders().Update(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if refunded {
			uc.compensate.unrecorded(run, updated, txErr)
		}
		return fail(txErr)
	}

	run.Field(observability.F("from_status", string(from)))
	events := []domoutbox.Event{domain.NewOrderStatusChangedEvent(updated, from)}
	if updated.Status == domain.StatusCancelled {
		events = append(events, domain.NewOrderCancelledEvent(updated, from, refunded))
	}
	uc.events.publish(ctx, run, events...)
	return updated, nil
}
