package messaging

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// InMemoryBus is a single-process Bus implementation backed by fan-out
// channels instead of Redis. It satisfies the same Bus contract as RedisBus
// and exists for unit tests and the cmd/nxtpctl demo driver, which run
// without a Redis instance available.
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

// NewInMemoryBus returns an empty InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan []byte)}
}

func (b *InMemoryBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.Wrap(types.KindRpcError, types.NonRetryable, "marshal bus payload", err)
	}
	b.mu.Lock()
	subs := append([]chan []byte{}, b.subs[topic]...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *InMemoryBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		peers := b.subs[topic]
		for i, c := range peers {
			if c == ch {
				b.subs[topic] = append(peers[:i], peers[i+1:]...)
				break
			}
		}
		// Deliberately not closed: Publish may already hold a reference to ch
		// copied out from subs before this goroutine took the lock, and
		// sending on a closed channel panics. The channel is simply dropped
		// once unreferenced; callers stop reading once ctx is done anyway.
	}()
	return ch, nil
}

func (b *InMemoryBus) Close() error { return nil }
