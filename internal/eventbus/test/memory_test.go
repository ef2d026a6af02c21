package eventbus_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"

	"github.com/stretchr/testify/require"
)

func TestMemoryBusFanOut(t *testing.T) {
	bus := eventbus.NewMemoryBus()
	subA := bus.Subscribe("events")
	subB := bus.Subscribe("events")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gotA := make(chan eventbus.Message, 1)
	gotB := make(chan eventbus.Message, 1)
	go func() {
		_ = subA.Receive(ctx, func(_ context.Context, msg eventbus.Message) error {
			gotA <- msg
			return nil
		})
	}()
	go func() {
		_ = subB.Receive(ctx, func(_ context.Context, msg eventbus.Message) error {
			gotB <- msg
			return nil
		})
	}()

	msg := eventbus.Message{Data: []byte("payload"), Attributes: map[string]string{"event_type": "upload.finished"}}
	require.NoError(t, bus.Topic("events").Publish(ctx, msg))

	for _, ch := range []chan eventbus.Message{gotA, gotB} {
		select {
		case got := <-ch:
			require.Equal(t, msg.Data, got.Data)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestMemoryBusRedeliversOnHandlerError(t *testing.T) {
	bus := eventbus.NewMemoryBus()
	sub := bus.Subscribe("events")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = sub.Receive(ctx, func(_ context.Context, _ eventbus.Message) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			close(done)
			return nil
		})
	}()

	require.NoError(t, bus.Topic("events").Publish(ctx, eventbus.Message{Data: []byte("x")}))

	select {
	case <-done:
		require.Equal(t, int32(3), attempts.Load())
	case <-time.After(time.Second):
		t.Fatal("handler retries did not complete")
	}
}

func TestMemoryBusReceiveStopsOnCancel(t *testing.T) {
	bus := eventbus.NewMemoryBus()
	sub := bus.Subscribe("events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sub.Receive(ctx, func(context.Context, eventbus.Message) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
