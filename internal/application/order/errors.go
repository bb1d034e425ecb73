package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
)

var (
	ErrNotFound               = domain.ErrNotFound
	ErrForbidden              = domain.ErrForbidden
	ErrEmptyCart              = domain.ErrEmptyCart
	ErrInvalidStateTransition = domain.ErrInvalidStateTransition
	ErrInsufficientStock      = dominv.ErrInsufficientStock
	ErrPaymentOperationFailed = dompay.ErrOperationFailed
	ErrRepository             = errors.New("order: repository failure")
)

// classify maps an error to the status code logged on use_case_done and
// wraps anything unrecognised as a repository failure.
func classify(err error) (string, error) {
	switch {
	case err == nil:
		return "OK", nil
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, dompay.ErrInvalidInfo),
		errors.Is(err, dominv.ErrInvalidQuantity):
		return "VALIDATION_FAILED", err
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND", err
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, dominv.ErrNotFound):
		return "PRODUCT_NOT_FOUND", err
	case errors.Is(err, domain.ErrForbidden):
		return "FORBIDDEN", err
	case errors.Is(err, domain.ErrEmptyCart):
		return "EMPTY_CART", err
	case errors.Is(err, dominv.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK", err
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "STATE_TRANSITION_FAILED", err
	case errors.Is(err, dompay.ErrOperationFailed), errors.Is(err, dompay.ErrAlreadyRefunded):
		return "PAYMENT_OPERATION_FAILED", err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED", err
	case errors.Is(err, ErrRepository):
		return "REPO_FAILED", err
	default:
		return "REPO_FAILED", fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
