// Package outbox holds the ports for post-commit domain events.
package outbox

import "context"

// Event names are dotted, e.g. "order.created", and double as routing keys.
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
