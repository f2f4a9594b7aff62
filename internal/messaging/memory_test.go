package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_PublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, err := bus.Subscribe(ctx, "topic.a")
	require.NoError(t, err)
	ch2, err := bus.Subscribe(ctx, "topic.a")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "topic.a", map[string]string{"hello": "world"}))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			require.Contains(t, string(msg), "hello")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestInMemoryBus_SubscribersOnOtherTopicsUnaffected(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "topic.b")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, "topic.other", "ignored"))

	select {
	case <-ch:
		t.Fatal("subscriber on a different topic should not receive the message")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestInMemoryBus_SubscriptionRemovedOnContextCancel(t *testing.T) {
	bus := NewInMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "topic.c")
	require.NoError(t, err)
	cancel()

	// The channel is left open by design (see Subscribe); cancellation
	// unregisters it so later publishes no longer reach it.
	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subs["topic.c"]) == 0
	}, time.Second, 5*time.Millisecond, "subscription was not removed after context cancellation")

	require.NoError(t, bus.Publish(context.Background(), "topic.c", "late"))
	select {
	case <-ch:
		t.Fatal("cancelled subscription still received a message")
	case <-time.After(20 * time.Millisecond):
	}
}
