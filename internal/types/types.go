// Package types defines the wire- and domain-level data model shared by every
// component of the transfer-orchestration SDK: chain identifiers, the
// invariant transaction payload, auction bids/responses, and the ephemeral
// per-transfer state record.
package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ChainId identifies an EVM chain. Always positive.
type ChainId uint64

// Bytes32 is a fixed 32-byte blob (keccak hashes, transaction ids).
type Bytes32 = common.Hash

// Address is a 20-byte EVM address, always handled in its checksummed form.
type Address = common.Address

// Signature is a 65-byte ECDSA signature: 32 bytes R, 32 bytes S, 1 byte V.
type Signature [65]byte

// Amount is an arbitrary-precision non-negative integer.
type Amount struct {
	v *big.Int
}

// NewAmount wraps an existing *big.Int. A nil input is treated as zero.
func NewAmount(v *big.Int) Amount {
	if v == nil {
		return Amount{v: big.NewInt(0)}
	}
	return Amount{v: new(big.Int).Set(v)}
}

// ZeroAmount is the additive identity.
func ZeroAmount() Amount { return NewAmount(big.NewInt(0)) }

// ParseAmount parses a base-10 decimal-string encoded integer amount.
func ParseAmount(s string) (Amount, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, false
	}
	return NewAmount(v), true
}

// Int returns the underlying *big.Int. Callers must not mutate it.
func (a Amount) Int() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// String renders the amount as a base-10 decimal string.
func (a Amount) String() string { return a.Int().String() }

// MarshalText encodes the amount as a base-10 decimal string, so JSON
// carries it as a quoted string.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText parses a base-10 decimal string produced by MarshalText.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, ok := ParseAmount(string(text))
	if !ok {
		return fmt.Errorf("invalid amount %q", text)
	}
	*a = parsed
	return nil
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.Int().Sign() == 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.Int().Sign() > 0 }

// Cmp compares a to b, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.Int().Cmp(b.Int()) }

// Sub returns a - b. Negative results are not clamped; callers validate
// non-negativity where the protocol requires it (e.g. amountReceived - gas).
func (a Amount) Sub(b Amount) Amount { return NewAmount(new(big.Int).Sub(a.Int(), b.Int())) }

// MulPercentFloor returns floor(a * pct / 100) where pct is expressed with
// two fractional digits worth of precision already folded into num/den
// (see bidcrypto/slippage.go for the exact construction from a percent string).
func (a Amount) MulPercentFloor(num, den *big.Int) Amount {
	product := new(big.Int).Mul(a.Int(), num)
	return NewAmount(product.Div(product, den))
}

// TransactionId is a user-chosen 32-byte identifier. Re-use across transfers
// by the same user is a documented user responsibility (signature replay risk).
type TransactionId = Bytes32

// InvariantTransactionData is the subset of a transfer that is identical on
// both the sending and receiving chain and is covered by the router's bid
// signature.
type InvariantTransactionData struct {
	ReceivingChainTxManagerAddress Address
	User                           Address
	Router                         Address
	Initiator                      Address
	SendingAssetId                 Address
	ReceivingAssetId               Address
	SendingChainFallback           Address // always == User
	CallTo                         Address
	ReceivingAddress               Address
	SendingChainId                 ChainId
	ReceivingChainId               ChainId
	CallDataHash                   Bytes32
	TransactionId                  TransactionId
}

// AuctionBid is a router's signed offer to fulfill a transfer.
type AuctionBid struct {
	User                Address
	Router              Address
	Initiator           Address
	SendingChainId      ChainId
	SendingAssetId      Address
	Amount              Amount
	ReceivingChainId    ChainId
	ReceivingAssetId    Address
	AmountReceived      Amount
	ReceivingAddress    Address
	TransactionId       TransactionId
	Expiry              time.Time
	CallDataHash        Bytes32
	CallTo              Address
	EncryptedCallData   []byte
	BidExpiry           time.Time
}

// AuctionResponse pairs a bid with the router's signature over its canonical
// encoding and the gas fee (in the receiving asset) the router is charging.
type AuctionResponse struct {
	Bid                    AuctionBid
	BidSignature           Signature
	GasFeeInReceivingToken Amount
}

// PrepareParams is the argument to ChainGate.preparePrepareRequest.
type PrepareParams struct {
	TxData            InvariantTransactionData
	Amount            Amount
	Expiry            time.Time
	EncryptedCallData []byte
	BidSignature      Signature
	EncodedBid        []byte
}

// FulfillParams is the argument to ChainGate.prepareFulfillRequest.
type FulfillParams struct {
	TxData            InvariantTransactionData
	Amount            Amount
	RelayerFee        Amount
	Signature         Signature
	CallData          []byte
}

// CancelParams is the argument to ChainGate.prepareCancelRequest.
type CancelParams struct {
	TxData InvariantTransactionData
	// RelayerFee is only meaningful when the cancel is relayed.
	RelayerFee Amount
	Signature  Signature
}

// TxRequest is an unsigned, ready-to-sign-and-submit call the caller (not the
// SDK) is responsible for broadcasting.
type TxRequest struct {
	ChainId ChainId
	To      Address
	Data    []byte
	Value   Amount
}

// TransferStatus enumerates the lifecycle of a single in-flight transfer.
type TransferStatus string

const (
	StatusQuoting          TransferStatus = "Quoting"
	StatusQuoted           TransferStatus = "Quoted"
	StatusSenderPrepared   TransferStatus = "SenderPrepared"
	StatusReceiverPrepared TransferStatus = "ReceiverPrepared"
	StatusFulfilled        TransferStatus = "Fulfilled"
	StatusCancelled        TransferStatus = "Cancelled"
	StatusFailed           TransferStatus = "Failed"
)

// TransferState is an ephemeral, in-memory record of one in-flight
// auction/transfer. It is never persisted across restarts; Orchestrator
// keeps no TransferState of its own.
type TransferState struct {
	InboxId          string
	DeadlineMonotonic time.Time
	Bids             []AuctionResponse
	Status           TransferStatus
}

// SubgraphSyncRecord reports an indexer's view of how caught-up it is with
// chain head for a given chain.
type SubgraphSyncRecord struct {
	Synced      bool
	SyncedBlock uint64
	LatestBlock uint64
}

// IsStale reports whether the indexer has fallen more than buffer blocks
// behind chain head.
func (r SubgraphSyncRecord) IsStale(buffer uint64) bool {
	if r.LatestBlock <= r.SyncedBlock {
		return false
	}
	return r.LatestBlock-r.SyncedBlock > buffer
}

// ActiveTransaction and HistoricalTransaction are the two enumeration shapes
// IndexerGate returns; both wrap an InvariantTransactionData with chain-side
// status observed by the subgraph.
type ActiveTransaction struct {
	TxData InvariantTransactionData
	Status TransferStatus
	Amount Amount
}

type HistoricalTransaction struct {
	TxData    InvariantTransactionData
	Status    TransferStatus
	Amount    Amount
	FinishedAt time.Time
}
