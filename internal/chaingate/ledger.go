package chaingate

import (
	"fmt"
	"sync"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// ApprovalLedger tracks which (chain, asset) approvals have already been
// issued for a given amount, so a repeated ApproveIfNeeded call with an
// unchanged allowance is a no-op rather than a duplicate on-chain
// submission. Adapted from the teacher's
// storage.TransactionStateStore (src/chainadapter/storage/store.go):
// same "idempotent Set, thread-safe" contract, narrowed from a full
// transaction-broadcast ledger to a single approval-amount cache since
// ChainGate never itself broadcasts.
type ApprovalLedger struct {
	mu      sync.Mutex
	entries map[string]string // key -> amount decimal string already approved
}

// NewApprovalLedger returns an empty ledger.
func NewApprovalLedger() *ApprovalLedger {
	return &ApprovalLedger{entries: make(map[string]string)}
}

func approvalKey(chainId types.ChainId, asset types.Address) string {
	return fmt.Sprintf("%d:%s", chainId, asset.Hex())
}

// Has reports whether key was already recorded for exactly amount.
func (l *ApprovalLedger) Has(key string, amount types.Amount) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	recorded, ok := l.entries[key]
	return ok && recorded == amount.String()
}

// Record idempotently stores that key has been handled for amount.
func (l *ApprovalLedger) Record(key string, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = amount.String()
}

// Reset clears a single key, allowing a fresh approval attempt. EVMGate does
// not call it.
func (l *ApprovalLedger) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
