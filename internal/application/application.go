package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Tx exposes the repositories that share one transaction.
type Tx interface {
	Products() catalog.Repository
	Stock() inventory.Ledger
	Orders() order.Repository
}

// UnitOfWork runs fn inside a transaction. Every write made through tx is
// committed when fn returns nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type IDGenerator interface {
	NewID() string
}

// ErrValidation marks input rejected before any work was attempted.
var ErrValidation = errors.New("validation failed")

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
