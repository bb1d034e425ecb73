package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderGet  = "order.get"
	useCaseOrderList = "order.list"
)

type GetOrderInput struct {
	UserID  string
	Admin   bool
	OrderID string
}

type GetOrderUseCase struct {
	uow  application.UnitOfWork
	inst application.Instruments
}

func NewGetOrderUseCase(uow application.UnitOfWork, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{uow: uow, inst: application.NewInstruments(tel, orderService)}
}

// Execute returns the order when the caller owns it or is an administrator.
func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	var found *domain.Order
	err = uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		o, err := tx.Orders().FindByID(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if !cmd.Admin && !o.OwnedBy(cmd.UserID) {
			return ErrForbidden
		}
		found = o
		return nil
	})
	if err != nil {
		status, wrapped := classify(err)
		run.Fail(status)
		return nil, wrapped
	}
	return found, nil
}

type ListOrdersInput struct {
	UserID string
}

type ListOrdersUseCase struct {
	uow  application.UnitOfWork
	inst application.Instruments
}

func NewListOrdersUseCase(uow application.UnitOfWork, tel observability.Observability) *ListOrdersUseCase {
	return &ListOrdersUseCase{uow: uow, inst: application.NewInstruments(tel, orderService)}
}

// Execute lists the user's orders, newest first.
func (uc *ListOrdersUseCase) Execute(ctx context.Context, cmd ListOrdersInput) (_ []*domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderList, "ListOrders")
	defer func() { run.End(err) }()

	if cmd.UserID == "" {
		status, wrapped := classify(application.Validation("user id is required"))
		run.Fail(status)
		return nil, wrapped
	}

	var orders []*domain.Order
	err = uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		var err error
		orders, err = tx.Orders().ListByUser(ctx, cmd.UserID)
		return err
	})
	if err != nil {
		status, wrapped := classify(err)
		run.Fail(status)
		return nil, wrapped
	}
	run.Field(observability.F("count", len(orders)))
	return orders, nil
}
