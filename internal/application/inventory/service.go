package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"

	useCaseRestock    = "inventory.restock"
	useCaseStockLevel = "inventory.level"

	publishTimeout = 300 * time.Millisecond
)

var (
	ErrNotFound        = dominv.ErrNotFound
	ErrInvalidQuantity = dominv.ErrInvalidQuantity
	ErrForbidden       = errors.New("inventory: administrator role required")
)

type RestockInput struct {
	Admin     bool
	ProductID string
	Quantity  int
}

type Service struct {
	uow       application.UnitOfWork
	publisher domoutbox.Publisher
	inst      application.Instruments
}

func NewService(uow application.UnitOfWork, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	return &Service{
		uow:       uow,
		publisher: publisher,
		inst:      application.NewInstruments(tel, inventoryService),
	}
}

// Restock adds quantity to a product's stock and returns the new level.
func (s *Service) Restock(ctx context.Context, cmd RestockInput) (_ int, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseRestock, "Restock",
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("quantity", cmd.Quantity),
	)
	defer func() { run.End(err) }()

	if !cmd.Admin {
		run.Fail(classify(ErrForbidden))
		return 0, ErrForbidden
	}

	var level int
	err = s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		var err error
		level, err = tx.Stock().Restore(ctx, cmd.ProductID, cmd.Quantity)
		return err
	})
	if err != nil {
		run.Fail(classify(err))
		return 0, err
	}
	run.Field(
		observability.F("product_id", cmd.ProductID),
		observability.F("stock_quantity", level),
	)

	if s.publisher != nil {
		e := dominv.NewStockRestockedEvent(cmd.ProductID, cmd.Quantity, level)
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		start := time.Now()
		outcome := "success"
		if perr := s.publisher.Publish(pubCtx, e); perr != nil {
			outcome = "error"
			run.Status("EVENT_PUBLISH_FAILED")
			run.Field(observability.F("event_publish_error", perr.Error()))
		}
		cancel()
		run.External("outbox", e.EventName(), outcome, start)
	}
	return level, nil
}

func (s *Service) StockLevel(ctx context.Context, productID string) (_ int, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseStockLevel, "StockLevel", attribute.String("product.id", productID))
	defer func() { run.End(err) }()

	var level int
	err = s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		var err error
		level, err = tx.Stock().Available(ctx, productID)
		return err
	})
	if err != nil {
		run.Fail(classify(err))
		return 0, err
	}
	return level, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, dominv.ErrInvalidQuantity):
		return "VALIDATION_FAILED"
	case errors.Is(err, dominv.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_FAILED"
	}
}
