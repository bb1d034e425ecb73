package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"

	useCaseProductList   = "catalog.list"
	useCaseProductGet    = "catalog.get"
	useCaseProductUpsert = "catalog.upsert"
)

var (
	ErrNotFound       = domain.ErrNotFound
	ErrInvalidProduct = domain.ErrInvalidProduct
	ErrForbidden      = errors.New("catalog: administrator role required")
)

type UpsertProductInput struct {
	Admin         bool
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

type Service struct {
	uow  application.UnitOfWork
	inst application.Instruments
}

func NewService(uow application.UnitOfWork, tel observability.Observability) *Service {
	return &Service{uow: uow, inst: application.NewInstruments(tel, catalogService)}
}

func (s *Service) ListProducts(ctx context.Context) (_ []*domain.Product, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseProductList, "ListProducts")
	defer func() { run.End(err) }()

	var products []*domain.Product
	err = s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		var err error
		products, err = tx.Products().List(ctx)
		return err
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	run.Field(observability.F("count", len(products)))
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseProductGet, "GetProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	var product *domain.Product
	err = s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		var err error
		product, err = tx.Products().FindByID(ctx, id)
		return err
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	return product, nil
}

// UpsertProduct creates the product or replaces its name, price and stock.
func (s *Service) UpsertProduct(ctx context.Context, cmd UpsertProductInput) (_ *domain.Product, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseProductUpsert, "UpsertProduct", attribute.String("product.id", cmd.ID))
	defer func() { run.End(err) }()

	if !cmd.Admin {
		run.Fail(classify(ErrForbidden))
		return nil, ErrForbidden
	}
	if cmd.StockQuantity < 0 {
		err = errors.Join(ErrInvalidProduct, errors.New("stock must be zero or greater"))
		run.Fail(classify(err))
		return nil, err
	}

	var saved *domain.Product
	created := false
	err = s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		p, err := tx.Products().FindByID(ctx, cmd.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p, err = domain.NewProduct(cmd.ID, cmd.Name, cmd.Price, cmd.StockQuantity)
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			if err := p.Rename(cmd.Name); err != nil {
				return err
			}
			if err := p.ChangePrice(cmd.Price); err != nil {
				return err
			}
			p.StockQuantity = cmd.StockQuantity
		}
		if err := tx.Products().Save(ctx, p); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	run.Field(
		observability.F("product_id", saved.ID),
		observability.F("created", created),
	)
	return saved, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, domain.ErrInvalidProduct):
		return "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_FAILED"
	}
}
