package indexergate

import (
	"context"
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/eventmux"
	"github.com/blockcoders/nxtp-sdk/internal/messaging"
	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Watcher bridges C4 IndexerGate's "event emission" contract (spec.md §4.4)
// into C7 EventMux: it polls ActiveTransactions for one chain+user pair and
// calls Mux.Emit whenever a transaction's observed status changes, giving
// Orchestrator.FulfillTransfer's mux.AttachOnce(EventReceiverTransactionFulfilled,
// ...) registration a real source instead of always running out the clock.
type Watcher struct {
	gate Gate
	mux  *eventmux.Mux
	seen map[types.TransactionId]types.TransferStatus
}

// NewWatcher builds a Watcher polling gate and emitting transitions onto mux.
func NewWatcher(gate Gate, mux *eventmux.Mux) *Watcher {
	return &Watcher{gate: gate, mux: mux, seen: make(map[types.TransactionId]types.TransferStatus)}
}

// Poll runs one ActiveTransactions query for user on chainId and emits an
// event for every transaction whose status differs from the last Poll saw.
// A transaction that disappears from the active set (fulfilled or cancelled)
// is picked up on the poll immediately preceding its removal, since the
// subgraph still reports its terminal status right up to that point.
func (w *Watcher) Poll(ctx context.Context, chainId types.ChainId, user types.Address) error {
	txs, err := w.gate.ActiveTransactions(ctx, chainId, user)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		w.emitOnTransition(chainId, tx.TxData, tx.Status)
	}
	return nil
}

func (w *Watcher) emitOnTransition(chainId types.ChainId, txData types.InvariantTransactionData, status types.TransferStatus) {
	id := txData.TransactionId
	if w.seen[id] == status {
		return
	}
	w.seen[id] = status

	sending := chainId == txData.SendingChainId
	switch status {
	case types.StatusSenderPrepared:
		if sending {
			w.mux.Emit(eventmux.EventSenderTransactionPrepared, txData)
		}
	case types.StatusReceiverPrepared:
		if !sending {
			w.mux.Emit(eventmux.EventReceiverTransactionPrepared, txData)
		}
	case types.StatusFulfilled:
		if !sending {
			w.mux.Emit(eventmux.EventReceiverTransactionFulfilled, messaging.ReceiverTransactionFulfilled{
				TransactionId: id.Hex(),
			})
		}
	case types.StatusCancelled:
		if sending {
			w.mux.Emit(eventmux.EventSenderTransactionCancelled, txData)
		} else {
			w.mux.Emit(eventmux.EventReceiverTransactionCancelled, txData)
		}
	}
}

// Run polls chainId/user on interval until ctx is cancelled. Poll errors are
// transient subgraph hiccups and are swallowed so one bad tick doesn't kill
// the loop; the next tick retries.
func (w *Watcher) Run(ctx context.Context, chainId types.ChainId, user types.Address, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.Poll(ctx, chainId, user)
		}
	}
}
