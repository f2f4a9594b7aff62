package validation

import (
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// ValidateAuctionBid checks the structural and numeric ranges of a bid
// arriving off the auction bus, before any cryptographic or on-chain check
// runs (spec.md §4.1). It does not check signatures or liquidity — those are
// C2/C3 concerns invoked later in AuctionClient's per-bid validation pass.
func ValidateAuctionBid(b types.AuctionBid, now time.Time) error {
	if b.SendingChainId == b.ReceivingChainId {
		return fail("sendingChainId", "sending and receiving chain must differ")
	}
	if !b.Amount.IsPositive() {
		return fail("amount", "bid amount must be greater than zero")
	}
	if !b.AmountReceived.IsPositive() {
		return fail("amountReceived", "bid amountReceived must be greater than zero")
	}
	if b.Router == (types.Address{}) {
		return fail("router", "router address is required")
	}
	if b.TransactionId == (types.Bytes32{}) {
		return fail("transactionId", "transactionId is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	if !b.BidExpiry.After(now) {
		return types.New(types.KindInvalidExpiry, types.NonRetryable, "bidExpiry has already passed")
	}
	return nil
}

// ValidatePrepareEvent checks an indexer-delivered "receiver prepared" event
// payload has the fields prepareTransfer/fulfillTransfer depend on.
func ValidatePrepareEvent(e types.ActiveTransaction) error {
	if e.TxData.TransactionId == (types.Bytes32{}) {
		return fail("transactionId", "prepare event missing transactionId")
	}
	if e.TxData.SendingChainId == e.TxData.ReceivingChainId {
		return fail("chainId", "prepare event has identical sending/receiving chain")
	}
	return nil
}

// ValidateCancel checks the parameters of a cancel() call.
func ValidateCancel(c types.CancelParams) error {
	if c.TxData.TransactionId == (types.Bytes32{}) {
		return fail("transactionId", "cancel missing transactionId")
	}
	if c.TxData.User == (types.Address{}) {
		return fail("user", "cancel missing user address")
	}
	return nil
}
