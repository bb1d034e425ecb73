package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/observabilitytest"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(observabilitytest.New())
	var (
		mu  sync.Mutex
		got []string
		wg  sync.WaitGroup
	)
	wg.Add(2)
	for _, tag := range []string{"a", "b"} {
		bus.Subscribe("order.created", func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			got = append(got, tag+":"+e.EventName())
			mu.Unlock()
			wg.Done()
			return nil
		})
	}
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), namedEvent("order.created")))
	require.NoError(t, bus.Publish(context.Background(), namedEvent("order.unrelated")))
	wg.Wait()

	assert.ElementsMatch(t, []string{"a:order.created", "b:order.created"}, got)
}

func TestBus_RecoversFromHandlerPanicAndCountsErrors(t *testing.T) {
	tel := observabilitytest.New()
	bus := NewBus(tel)
	delivered := make(chan struct{})
	bus.Subscribe("order.cancelled", func(context.Context, domoutbox.Event) error {
		panic("boom")
	})
	bus.Subscribe("order.cancelled", func(context.Context, domoutbox.Event) error {
		return errors.New("broker unavailable")
	})
	bus.Subscribe("order.cancelled", func(context.Context, domoutbox.Event) error {
		close(delivered)
		return nil
	})
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), namedEvent("order.cancelled")))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler was not called")
	}
	bus.Stop(context.Background())

	assert.Equal(t, 2.0, tel.Count(observability.MEventPublishFailures, observability.L("event", "order.cancelled")))
	assert.Len(t, tel.Entries("event_handler_panic"), 1)
}

func TestBus_StopDrainsQueueAndRejectsLatePublishes(t *testing.T) {
	bus := NewBus(observabilitytest.New())
	var (
		mu    sync.Mutex
		count int
	)
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), namedEvent("order.created")))
	}
	bus.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	bus.Stop(ctx)

	mu.Lock()
	assert.Equal(t, 5, count)
	mu.Unlock()
	assert.ErrorIs(t, bus.Publish(context.Background(), namedEvent("order.created")), ErrBusStopped)
}

func TestBus_PublishHonoursContextWhenQueueIsFull(t *testing.T) {
	bus := NewBus(observabilitytest.New(), WithQueueSize(1))
	require.NoError(t, bus.Publish(context.Background(), namedEvent("x")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.Publish(ctx, namedEvent("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
