// Package logctx carries the request- or event-scoped logger on a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

type ctxKey struct{}

func With(ctx context.Context, l observability.Logger) context.Context {
	if ctx == nil || l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the scoped logger, or nil when none was attached.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(ctxKey{}).(observability.Logger)
	return l
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l := From(ctx); l != nil {
		return l
	}
	return fallback
}

// Append binds extra fields to the scoped logger (or a no-op one) and stores
// the result back on the context.
func Append(ctx context.Context, fields ...observability.Field) (context.Context, observability.Logger) {
	l := FromOr(ctx, observability.NopLogger()).With(fields...)
	return With(ctx, l), l
}
