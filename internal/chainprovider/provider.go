// Package chainprovider abstracts blockchain read access away from any
// specific RPC vendor, the same role the teacher's internal/provider and
// src/chainadapter/provider packages play for BlockchainProvider — narrowed
// here from "any chain, any data shape" to the handful of read operations
// ChainGate needs against an EVM chain: code-at-address, a view call, and
// gas-price data for fee estimation.
package chainprovider

import (
	"context"
	"math/big"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Provider abstracts read access to one EVM chain from whatever RPC vendor
// backs it (Alchemy, Infura, a self-hosted node, ...).
//
// Contract Guarantees (mirrors the teacher's BlockchainProvider):
//   - All methods are thread-safe and idempotent (safe to retry)
//   - Context cancellation is respected
//   - Errors are *types.SdkError with KindRpcError and a Retryable/
//     NonRetryable classification set appropriately
type Provider interface {
	// ChainId returns the chain this provider instance is bound to.
	ChainId() types.ChainId

	// CodeAt returns the bytecode deployed at address, or an empty slice if
	// the address is an externally-owned account (no code).
	CodeAt(ctx context.Context, address types.Address) ([]byte, error)

	// Call executes a read-only contract call (eth_call) against to with
	// the given ABI-encoded calldata, returning the raw ABI-encoded result.
	Call(ctx context.Context, to types.Address, data []byte) ([]byte, error)

	// SuggestGasPrice returns the provider's current gas price suggestion,
	// in wei.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// Close releases any underlying connection resources.
	Close() error
}

// IsContract reports whether address has deployed bytecode on the given
// provider — the primitive behind ChainGate.isContract.
func IsContract(ctx context.Context, p Provider, address types.Address) (bool, error) {
	code, err := p.CodeAt(ctx, address)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}
