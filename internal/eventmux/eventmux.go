// Package eventmux implements C7 EventMux: the event subscription surface
// (attach/attachOnce/waitFor/detach) the orchestrator uses to react to
// indexer-observed chain events. Registrations are scoped by a Token the
// caller can later pass to Detach; calling Detach with no token removes
// every registration, matching spec.md §4.7 and §3's ownership note ("the
// indexer holds the callback weakly, by token").
package eventmux

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Event names the closed set of events the orchestrator waits on.
type Event string

const (
	EventSenderTransactionPrepared   Event = "SenderTransactionPrepared"
	EventReceiverTransactionPrepared Event = "ReceiverTransactionPrepared"
	EventReceiverTransactionFulfilled Event = "ReceiverTransactionFulfilled"
	EventReceiverTransactionCancelled Event = "ReceiverTransactionCancelled"
	EventSenderTransactionFulfilled  Event = "SenderTransactionFulfilled"
	EventSenderTransactionCancelled  Event = "SenderTransactionCancelled"
)

// Filter narrows a registration to payloads matching some predicate (e.g.
// transactionId equality). A nil Filter matches everything.
type Filter func(payload interface{}) bool

// Token identifies a single registration for later Detach.
type Token uint64

// Mux is the C7 contract.
type Mux struct {
	mu        sync.Mutex
	nextToken uint64
	handlers  map[Token]registration
}

type registration struct {
	event  Event
	filter Filter
	fn     func(payload interface{})
	once   bool
}

// New returns an empty Mux.
func New() *Mux {
	return &Mux{handlers: make(map[Token]registration)}
}

// Attach registers fn to run on every future Emit of evt matching filter.
// Returns a Token usable with Detach.
func (m *Mux) Attach(evt Event, fn func(payload interface{}), filter Filter) Token {
	return m.register(evt, fn, filter, false)
}

// AttachOnce registers fn to run at most once; it auto-detaches itself
// after the first matching Emit.
func (m *Mux) AttachOnce(evt Event, fn func(payload interface{}), filter Filter) Token {
	return m.register(evt, fn, filter, true)
}

func (m *Mux) register(evt Event, fn func(payload interface{}), filter Filter, once bool) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := Token(atomic.AddUint64(&m.nextToken, 1))
	m.handlers[tok] = registration{event: evt, filter: filter, fn: fn, once: once}
	return tok
}

// Detach removes a single registration by token, or every registration when
// no token is given. Detaching an already-removed token, or calling Detach
// twice, is a no-op (spec.md §8 invariant 5).
func (m *Mux) Detach(tok ...Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(tok) == 0 {
		m.handlers = make(map[Token]registration)
		return
	}
	for _, t := range tok {
		delete(m.handlers, t)
	}
}

// Emit delivers payload to every registration matching evt whose filter (if
// any) accepts payload. Matching AttachOnce registrations are removed after
// firing. Handlers run synchronously on the calling goroutine, preserving
// the single cooperative-thread scheduling model of spec.md §5.
func (m *Mux) Emit(evt Event, payload interface{}) {
	m.mu.Lock()
	var fire []registration
	var onceTokens []Token
	for tok, reg := range m.handlers {
		if reg.event != evt {
			continue
		}
		if reg.filter != nil && !reg.filter(payload) {
			continue
		}
		fire = append(fire, reg)
		if reg.once {
			onceTokens = append(onceTokens, tok)
		}
	}
	for _, tok := range onceTokens {
		delete(m.handlers, tok)
	}
	m.mu.Unlock()

	for _, reg := range fire {
		reg.fn(payload)
	}
}

// WaitFor blocks until a matching evt is emitted, ctx is cancelled, or no
// event arrives before ctx's deadline. Registration happens synchronously
// before WaitFor returns control to the scheduler, so events emitted after
// this call (not before it — spec.md §5's "no replay" rule) are observed.
func (m *Mux) WaitFor(ctx context.Context, evt Event, filter Filter) (interface{}, error) {
	result := make(chan interface{}, 1)
	tok := m.AttachOnce(evt, func(payload interface{}) {
		select {
		case result <- payload:
		default:
		}
	}, filter)

	select {
	case payload := <-result:
		return payload, nil
	case <-ctx.Done():
		m.Detach(tok)
		return nil, types.Wrap(types.KindMetaTxTimeout, types.Retryable, "waitFor timed out", ctx.Err())
	}
}
