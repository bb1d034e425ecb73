package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService = "cart-service"

	useCaseCartGet    = "cart.get"
	useCaseCartAdd    = "cart.add_item"
	useCaseCartUpdate = "cart.update_item"
	useCaseCartRemove = "cart.remove_item"
	useCaseCartClear  = "cart.clear"
)

var (
	ErrProductNotFound   = catalog.ErrNotFound
	ErrInsufficientStock = dominv.ErrInsufficientStock
	ErrInvalidQuantity   = domcart.ErrInvalidQuantity

	// ErrClearFailed reports a checkout that succeeded but left the cart
	// behind.
	ErrClearFailed = errors.New("cart: clear after checkout failed")
)

// Service manages pre-order carts. Reads are repriced against the catalog;
// mutations for one user are serialized so read-modify-write cycles on the
// stored cart never interleave.
type Service struct {
	carts domcart.Repository
	uow   application.UnitOfWork
	sfg   singleflight.Group
	locks sync.Map // userID -> *sync.Mutex
	inst  application.Instruments
}

func NewService(carts domcart.Repository, uow application.UnitOfWork, tel observability.Observability) *Service {
	return &Service{
		carts: carts,
		uow:   uow,
		inst:  application.NewInstruments(tel, cartService),
	}
}

// GetCart returns the cart with current catalog names and prices. Products
// that left the catalog keep their last known snapshot.
func (s *Service) GetCart(ctx context.Context, userID string) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseCartGet, "GetCart", attribute.String("cart.user_id", userID))
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail(classify(domcart.ErrUserRequired))
		return nil, domcart.ErrUserRequired
	}

	// collapse concurrent reads for the same user into one repository hit
	v, err, shared := s.sfg.Do(userID, func() (any, error) {
		c, err := s.carts.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.reprice(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	c := v.(*domcart.Cart).Clone()
	run.Field(
		observability.F("lines", len(c.Lines)),
		observability.F("shared", shared),
	)
	return c, nil
}

// AddItem adds quantity of a product, merging with an existing line. The
// resulting line quantity may not exceed the product's current stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseCartAdd, "AddItem",
		attribute.String("cart.user_id", userID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { run.End(err) }()

	c, err := s.mutate(ctx, userID, func(c *domcart.Cart) error {
		if quantity <= 0 {
			return ErrInvalidQuantity
		}
		p, err := s.product(ctx, productID)
		if err != nil {
			return err
		}
		if want := c.Quantity(productID) + quantity; want > p.StockQuantity {
			return fmt.Errorf("%w: product %s requested %d, available %d",
				ErrInsufficientStock, productID, want, p.StockQuantity)
		}
		return c.AddItem(p, quantity)
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	return c, nil
}

// UpdateItemQuantity sets a line's quantity; zero removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseCartUpdate, "UpdateItemQuantity",
		attribute.String("cart.user_id", userID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	)
	defer func() { run.End(err) }()

	c, err := s.mutate(ctx, userID, func(c *domcart.Cart) error {
		if quantity > 0 {
			p, err := s.product(ctx, productID)
			if err != nil {
				return err
			}
			if quantity > p.StockQuantity {
				return fmt.Errorf("%w: product %s requested %d, available %d",
					ErrInsufficientStock, productID, quantity, p.StockQuantity)
			}
		}
		return c.UpdateItemQuantity(productID, quantity)
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Begin(ctx, useCaseCartRemove, "RemoveItem",
		attribute.String("cart.user_id", userID),
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	c, err := s.mutate(ctx, userID, func(c *domcart.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
	if err != nil {
		run.Fail(classify(err))
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, userID string) (err error) {
	ctx, run := s.inst.Begin(ctx, useCaseCartClear, "ClearCart", attribute.String("cart.user_id", userID))
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail(classify(domcart.ErrUserRequired))
		return domcart.ErrUserRequired
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.carts.Delete(ctx, userID); err != nil {
		run.Fail(classify(err))
		return err
	}
	return nil
}

// Checkout hands the user's cart to fn while holding the lock that guards
// every cart mutation, then empties the cart once fn succeeds. Two checkouts
// of one cart run one after the other and the second sees it empty.
//
// TODO: the lock is per process; running several replicas against the redis
// cart store needs a WATCH on the cart key around the clear.
func (s *Service) Checkout(ctx context.Context, userID string, fn func(ctx context.Context, c *domcart.Cart) error) error {
	if userID == "" {
		return domcart.ErrUserRequired
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if err := fn(ctx, c.Clone()); err != nil {
		return err
	}
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return fmt.Errorf("%w: %w", ErrClearFailed, err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(c *domcart.Cart) error) (*domcart.Cart, error) {
	if userID == "" {
		return nil, domcart.ErrUserRequired
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) lock(userID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) product(ctx context.Context, productID string) (*catalog.Product, error) {
	var found *catalog.Product
	err := s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		p, err := tx.Products().FindByID(ctx, productID)
		found = p
		return err
	})
	return found, err
}

func (s *Service) reprice(ctx context.Context, c *domcart.Cart) error {
	if c.IsEmpty() {
		return nil
	}
	products := make(map[string]*catalog.Product, len(c.Lines))
	err := s.uow.Do(ctx, func(ctx context.Context, tx application.Tx) error {
		for _, l := range c.Lines {
			p, err := tx.Products().FindByID(ctx, l.ProductID)
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			products[p.ID] = p
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Reprice(products)
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, domcart.ErrUserRequired), errors.Is(err, domcart.ErrInvalidQuantity):
		return "VALIDATION_FAILED"
	case errors.Is(err, catalog.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, dominv.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "REPO_FAILED"
	}
}
