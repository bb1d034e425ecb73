package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

// WithEventContext puts a logger for one background event handling on ctx.
// It carries the event name, an event id (generated when empty), the trace
// ids when ctx holds a valid span, and any extra low-cardinality attributes.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	eventName string,
	eventID string,
	attrs map[string]string,
) (context.Context, observability.Logger) {
	base = logctx.FromOr(ctx, base)
	if base == nil {
		base = observability.NopLogger()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))
	fields = append(fields,
		observability.F("event", eventName),
		observability.F("event_id", eventID),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	for k, v := range attrs {
		if k == "event" || k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	logger := base.With(fields...)
	return logctx.With(ctx, logger), logger
}
