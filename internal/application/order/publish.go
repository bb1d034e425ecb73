package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

const (
	orderService   = "order-service"
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// eventPublisher publishes after commit. Failures are recorded but never
// fail the use case: the state change is already durable.
type eventPublisher struct {
	publisher domoutbox.Publisher
	failures  observability.Counter
}

func newEventPublisher(publisher domoutbox.Publisher, tel observability.Observability) eventPublisher {
	if tel == nil {
		tel = observability.Nop()
	}
	return eventPublisher{
		publisher: publisher,
		failures:  tel.Metrics().Counter(observability.MEventPublishFailures),
	}
}

func (p eventPublisher) publish(ctx context.Context, run *application.Run, events ...domoutbox.Event) {
	if p.publisher == nil {
		return
	}
	for _, e := range events {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		start := time.Now()
		outcome := "success"

		err := p.publisher.Publish(pubCtx, e)
		if err == nil && pubCtx.Err() != nil {
			err = pubCtx.Err()
			outcome = "canceled"
		} else if err != nil {
			outcome = "error"
		}
		cancel()

		run.External(publishPeer, e.EventName(), outcome, start)
		if err != nil {
			p.failures.Add(1, observability.L("event", e.EventName()))
			run.Status("EVENT_PUBLISH_FAILED")
			run.Field(observability.F("event_publish_error", err.Error()))
			run.Span().RecordError(err)
		}
	}
}
