package eventmux

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAttach_ReceivesEmit(t *testing.T) {
	m := New()
	received := make(chan interface{}, 1)
	m.Attach(EventReceiverTransactionPrepared, func(p interface{}) { received <- p }, nil)

	m.Emit(EventReceiverTransactionPrepared, "payload-1")
	require.Equal(t, "payload-1", <-received)

	// Attach (not once) fires again.
	m.Emit(EventReceiverTransactionPrepared, "payload-2")
	require.Equal(t, "payload-2", <-received)
}

func TestAttachOnce_FiresExactlyOnce(t *testing.T) {
	m := New()
	count := 0
	m.AttachOnce(EventReceiverTransactionFulfilled, func(interface{}) { count++ }, nil)

	m.Emit(EventReceiverTransactionFulfilled, nil)
	m.Emit(EventReceiverTransactionFulfilled, nil)
	require.Equal(t, 1, count)
}

func TestFilter_RejectsNonMatching(t *testing.T) {
	m := New()
	fired := false
	filter := func(p interface{}) bool { return p == "wanted" }
	m.Attach(EventSenderTransactionPrepared, func(interface{}) { fired = true }, filter)

	m.Emit(EventSenderTransactionPrepared, "unwanted")
	require.False(t, fired)

	m.Emit(EventSenderTransactionPrepared, "wanted")
	require.True(t, fired)
}

func TestDetach_TwiceIsNoop(t *testing.T) {
	m := New()
	tok := m.Attach(EventSenderTransactionPrepared, func(interface{}) {}, nil)
	m.Detach(tok)
	require.NotPanics(t, func() { m.Detach(tok) })
}

func TestDetachAll_RemovesEverything(t *testing.T) {
	m := New()
	fired := false
	m.Attach(EventSenderTransactionPrepared, func(interface{}) { fired = true }, nil)
	m.Detach()
	m.Emit(EventSenderTransactionPrepared, nil)
	require.False(t, fired)
}

func TestWaitFor_ResolvesOnMatchingEmit(t *testing.T) {
	m := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan interface{}, 1)
	go func() {
		payload, err := m.WaitFor(ctx, EventReceiverTransactionFulfilled, nil)
		require.NoError(t, err)
		done <- payload
	}()

	time.Sleep(20 * time.Millisecond)
	m.Emit(EventReceiverTransactionFulfilled, "fulfilled-tx")
	require.Equal(t, "fulfilled-tx", <-done)
}

func TestWaitFor_TimesOut(t *testing.T) {
	m := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.WaitFor(ctx, EventReceiverTransactionFulfilled, nil)
	require.Error(t, err)
}

func TestWaitFor_MissesEventsBeforeRegistration(t *testing.T) {
	m := New()
	// Emit before any registration exists — must not be observed later.
	m.Emit(EventReceiverTransactionFulfilled, "early")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.WaitFor(ctx, EventReceiverTransactionFulfilled, nil)
	require.Error(t, err)
}
