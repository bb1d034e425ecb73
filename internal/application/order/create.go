package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseOrderCreate = "order.create"
	reversalTimeout    = 5 * time.Second
)

var errReplayed = errors.New("order: idempotent replay")

// CartCheckout hands a user's cart to fn under the guard that serializes cart
// mutations and empties the cart once fn succeeds.
type CartCheckout interface {
	Checkout(ctx context.Context, userID string, fn func(ctx context.Context, c *domcart.Cart) error) error
}

type CreateOrderInput struct {
	UserID          string
	IdempotencyKey  string
	ShippingAddress domain.ShippingAddress
	Payment         dompay.Info
}

// CreateOrderUseCase turns the user's cart into an order. Stock reservation,
// order persistence and the payment record commit together or not at all.
type CreateOrderUseCase struct {
	uow     application.UnitOfWork
	carts   CartCheckout
	gateway dompay.Gateway
	ids     application.IDGenerator
	events  eventPublisher
	inst    application.Instruments
}

func NewCreateOrderUseCase(
	uow application.UnitOfWork,
	carts CartCheckout,
	gateway dompay.Gateway,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		uow:     uow,
		carts:   carts,
		gateway: gateway,
		ids:     ids,
		events:  newEventPublisher(publisher, tel),
		inst:    application.NewInstruments(tel, orderService),
	}
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.user_id", cmd.UserID),
	)
	defer func() { run.End(err) }()
	fail := func(e error) (*domain.Order, error) {
		status, wrapped := classify(e)
		run.Fail(status)
		return nil, wrapped
	}

	if cmd.UserID == "" {
		return fail(application.Validation("user id is required"))
	}
	if err := cmd.ShippingAddress.Validate(); err != nil {
		return fail(err)
	}
	if err := cmd.Payment.Validate(); err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if cmd.IdempotencyKey != "" {
		existing, lookupErr := uc.findByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey)
		switch {
		case lookupErr == nil:
			uc.replayed(run, existing)
			return existing, nil
		case errors.Is(lookupErr, domain.ErrNotFound):
		default:
			return fail(lookupErr)
		}
	}

	var created, replay *domain.Order
	checkoutErr := uc.carts.Checkout(ctx, cmd.UserID, func(ctx context.Context, cart *domcart.Cart) error {
		// a request with the same key may have committed while this one waited
		if cmd.IdempotencyKey != "" {
			existing, lookupErr := uc.findByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey)
			switch {
			case lookupErr == nil:
				replay = existing
				return errReplayed
			case !errors.Is(lookupErr, domain.ErrNotFound):
				return lookupErr
			}
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}

		o, err := uc.commit(ctx, run, cmd, cart)
		if errors.Is(err, domain.ErrConflict) && cmd.IdempotencyKey != "" {
			if existing, lookupErr := uc.findByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey); lookupErr == nil {
				replay = existing
				return errReplayed
			}
		}
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	switch {
	case replay != nil:
		uc.replayed(run, replay)
		return replay, nil
	case created == nil:
		return fail(checkoutErr)
	}

	run.Field(
		observability.F("order_id", created.ID),
		observability.F("order_status", string(created.Status)),
		observability.F("total", created.Total.StringFixed(2)),
	)
	run.Span().SetAttributes(
		attribute.String("order.id", created.ID),
		attribute.String("order.status", string(created.Status)),
	)
	if created.Status == domain.StatusPending {
		run.Status("PAYMENT_DECLINED")
	}
	if checkoutErr != nil {
		run.Status("CART_CLEAR_FAILED")
		run.Logger().Warn("cart_clear_failed",
			observability.F("order_id", created.ID),
			observability.Err(checkoutErr),
		)
	}

	run.Span().AddEvent("order.created", trace.WithAttributes(attribute.String("order.id", created.ID)))
	uc.events.publish(ctx, run, domain.NewOrderCreatedEvent(created))

	return created, nil
}

// commit places the order in one transaction. A charge taken inside a
// transaction that then fails to commit is refunded before returning.
func (uc *CreateOrderUseCase) commit(ctx context.Context, run *application.Run, cmd CreateOrderInput, cart *domcart.Cart) (*domain.Order, error) {
	var (
		created *domain.Order
		charged *dompay.Payment
	)
	err := uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		o, p, err := uc.place(ctx, tx, cmd, cart)
		created, charged = o, p
		return err
	})
	if err != nil {
		if charged != nil && charged.Status == dompay.StatusCompleted {
			uc.reverse(ctx, run, charged)
		}
		return nil, err
	}
	return created, nil
}

// reverse refunds a charge whose order was never stored. It runs detached
// from the request so a cancelled caller still gets its money back.
func (uc *CreateOrderUseCase) reverse(ctx context.Context, run *application.Run, p *dompay.Payment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reversalTimeout)
	defer cancel()

	fields := []observability.Field{
		observability.F("payment_id", p.ID),
		observability.F("order_id", p.OrderID),
		observability.F("transaction_id", p.TransactionID),
	}
	if _, err := uc.gateway.Refund(ctx, p); err != nil {
		run.Field(observability.F("payment_reversed", false))
		run.Logger().Error("payment_reversal_failed", append(fields, observability.Err(err))...)
		return
	}
	run.Field(observability.F("payment_reversed", true))
	run.Logger().Warn("payment_reversed", fields...)
}

// place runs inside the transaction. Every line is validated before the
// first write so that a shortfall leaves nothing behind even without a
// rollback. The charge is returned whenever the gateway took one, even
// alongside an error.
func (uc *CreateOrderUseCase) place(ctx context.Context, tx application.Tx, cmd CreateOrderInput, cart *domcart.Cart) (*domain.Order, *dompay.Payment, error) {
	products := make(map[string]*catalog.Product, len(cart.Lines))
	stockLines := make([]dominv.Line, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		p, err := tx.Products().FindByID(ctx, l.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("product %s: %w", l.ProductID, err)
		}
		products[p.ID] = p
		stockLines = append(stockLines, dominv.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if err := dominv.CheckAvailability(ctx, tx.Stock(), stockLines); err != nil {
		return nil, nil, err
	}

	// price-at-purchase comes from the catalog as read in this transaction
	cart.Reprice(products)
	lines := make([]domain.Line, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, domain.Line{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.UnitPrice,
		})
	}
	o, err := domain.New(uc.ids.NewID(), cmd.UserID, lines, cmd.ShippingAddress, cmd.IdempotencyKey)
	if err != nil {
		return nil, nil, err
	}
	if !o.Total.Equal(cart.Total()) {
		return nil, nil, fmt.Errorf("order total %s differs from cart total %s", o.Total, cart.Total())
	}
	if err := tx.Orders().Insert(ctx, o); err != nil {
		return nil, nil, err
	}

	for _, l := range dominv.Merge(stockLines) {
		if _, err := tx.Stock().Reserve(ctx, l.ProductID, l.Quantity); err != nil {
			return nil, nil, fmt.Errorf("reserve %s: %w", l.ProductID, err)
		}
	}

	p, err := uc.gateway.Process(ctx, dompay.Request{
		PaymentID: uc.ids.NewID(),
		OrderID:   o.ID,
		Amount:    o.Total,
		Info:      cmd.Payment,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := o.AttachPayment(p); err != nil {
		return nil, p, err
	}
	if p.Status == dompay.StatusCompleted {
		if err := o.MarkPaid(); err != nil {
			return nil, p, err
		}
	}
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, p, err
	}
	return o, p, nil
}

func (uc *CreateOrderUseCase) findByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	var found *domain.Order
	err := uc.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		o, err := tx.Orders().FindByIdempotency(ctx, userID, key)
		found = o
		return err
	})
	return found, err
}

func (uc *CreateOrderUseCase) replayed(run *application.Run, o *domain.Order) {
	run.Status("IDEMPOTENT_REPLAY")
	run.Field(observability.F("order_id", o.ID))
	run.Span().SetAttributes(attribute.String("order.status", string(o.Status)))
	run.Span().AddEvent("order.idempotent_replay",
		trace.WithAttributes(attribute.String("order.id", o.ID)),
	)
}
