// Package orchestrator implements C6 TransferOrchestrator: the top-level
// state machine driving quote → prepare → fulfill/cancel by calling C1-C5.
package orchestrator

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blockcoders/nxtp-sdk/internal/auction"
	"github.com/blockcoders/nxtp-sdk/internal/bidcrypto"
	"github.com/blockcoders/nxtp-sdk/internal/chaingate"
	"github.com/blockcoders/nxtp-sdk/internal/eventmux"
	"github.com/blockcoders/nxtp-sdk/internal/indexergate"
	"github.com/blockcoders/nxtp-sdk/internal/messaging"
	"github.com/blockcoders/nxtp-sdk/internal/types"
	"github.com/blockcoders/nxtp-sdk/internal/validation"
)

// MetaTxTimeout bounds a relayed fulfill (spec.md §5).
const MetaTxTimeout = 300 * time.Second

// EncryptionKeyResolver fetches a user's call-data encryption public key
// over the out-of-band "wallet request channel" spec.md §4.6 step 4 names
// without specifying a transport; callers supply one (typically backed by
// a wallet-connect style RPC).
type EncryptionKeyResolver func(ctx context.Context, user types.Address) (*ecdsa.PublicKey, error)

// Orchestrator is the C6 contract.
type Orchestrator struct {
	gate       chaingate.Gate
	indexer    indexergate.Gate
	auction    *auction.Client
	bus        messaging.Bus
	mux        *eventmux.Mux
	resolveKey EncryptionKeyResolver
}

// New builds an Orchestrator wiring together the already-constructed C1-C5
// collaborators plus C7's EventMux. In-flight auction state is owned by
// auction.Client (keyed by inboxId, per spec.md §3's ownership note); the
// Orchestrator itself is stateless between calls.
func New(gate chaingate.Gate, indexer indexergate.Gate, auc *auction.Client, bus messaging.Bus, mux *eventmux.Mux, resolveKey EncryptionKeyResolver) *Orchestrator {
	return &Orchestrator{
		gate:       gate,
		indexer:    indexer,
		auction:    auc,
		bus:        bus,
		mux:        mux,
		resolveKey: resolveKey,
	}
}

// GetTransferQuote runs the validate → freshness-check → encrypt → auction
// pipeline described in spec.md §4.6.
func (o *Orchestrator) GetTransferQuote(ctx context.Context, params validation.QuoteParams, user types.Address, policy auction.Policy) (types.AuctionResponse, error) {
	if err := validation.ValidateQuoteParams(params); err != nil {
		return types.AuctionResponse{}, err
	}

	sendingSync, err := o.indexer.SyncStatus(ctx, params.SendingChainId)
	if err != nil {
		return types.AuctionResponse{}, err
	}
	receivingSync, err := o.indexer.SyncStatus(ctx, params.ReceivingChainId)
	if err != nil {
		return types.AuctionResponse{}, err
	}
	if !sendingSync.Synced || !receivingSync.Synced {
		return types.AuctionResponse{}, types.New(types.KindSubgraphsNotSynced, types.Retryable, "one or both chains are not synced")
	}

	var callDataHash types.Bytes32
	var encryptedCallData []byte
	if params.CallData != "" && params.CallData != "0x" {
		if o.resolveKey == nil {
			return types.AuctionResponse{}, types.New(types.KindEncryptionError, types.NonRetryable, "no encryption key resolver configured")
		}
		pub, err := o.resolveKey(ctx, user)
		if err != nil {
			return types.AuctionResponse{}, types.Wrap(types.KindEncryptionError, types.Retryable, "fetch user encryption key", err)
		}
		plain := []byte(params.CallData)
		sealed, err := bidcrypto.SealCallData(pub, plain)
		if err != nil {
			return types.AuctionResponse{}, types.Wrap(types.KindEncryptionError, types.NonRetryable, "encrypt callData", err)
		}
		encryptedCallData = sealed
		callDataHash = bidcrypto.CallDataHash(plain)
	}

	req := auction.Request{
		User:              user,
		SendingChainId:    params.SendingChainId,
		ReceivingChainId:  params.ReceivingChainId,
		Amount:            params.Amount,
		ReceivingAddress:  common.HexToAddress(params.ReceivingAddress),
		CallDataHash:      callDataHash,
		SlippageTolerance: params.SlippageTolerance,
	}
	resp, err := o.auction.RunAuction(ctx, req, params.SlippageTolerance, policy)
	if err != nil {
		return types.AuctionResponse{}, err
	}
	resp.Bid.EncryptedCallData = encryptedCallData
	return resp, nil
}

// ApproveForPrepare passes through to ChainGate.ApproveIfNeeded; a nil
// result means no approval transaction is needed (native asset or
// sufficient existing allowance).
func (o *Orchestrator) ApproveForPrepare(ctx context.Context, resp types.AuctionResponse, infinite bool) (*types.TxRequest, error) {
	return o.gate.ApproveIfNeeded(ctx, resp.Bid.SendingChainId, resp.Bid.SendingAssetId, resp.Bid.Amount, infinite)
}

// PrepareTransfer validates resp and constructs the sender-chain prepare
// TxRequest (spec.md §4.6 "prepareTransfer").
func (o *Orchestrator) PrepareTransfer(ctx context.Context, resp types.AuctionResponse) (types.TxRequest, error) {
	if resp.BidSignature == (types.Signature{}) {
		return types.TxRequest{}, types.New(types.KindInvalidBidSignature, types.NonRetryable, "bidSignature is required")
	}
	if resp.Bid.CallTo != (types.Address{}) {
		isContract, err := o.gate.IsContract(ctx, resp.Bid.ReceivingChainId, resp.Bid.CallTo)
		if err != nil {
			return types.TxRequest{}, err
		}
		if !isContract {
			return types.TxRequest{}, types.New(types.KindInvalidCallTo, types.NonRetryable, "callTo is not a contract on the receiving chain")
		}
	}

	encodedBid, err := bidcrypto.EncodeBid(resp.Bid)
	if err != nil {
		return types.TxRequest{}, types.Wrap(types.KindInvalidParamStructure, types.NonRetryable, "encode bid", err)
	}

	txData := types.InvariantTransactionData{
		User:                 resp.Bid.User,
		Router:               resp.Bid.Router,
		Initiator:            resp.Bid.Initiator,
		SendingAssetId:       resp.Bid.SendingAssetId,
		ReceivingAssetId:     resp.Bid.ReceivingAssetId,
		SendingChainFallback: resp.Bid.User,
		CallTo:               resp.Bid.CallTo,
		ReceivingAddress:     resp.Bid.ReceivingAddress,
		SendingChainId:       resp.Bid.SendingChainId,
		ReceivingChainId:     resp.Bid.ReceivingChainId,
		CallDataHash:         resp.Bid.CallDataHash,
		TransactionId:        resp.Bid.TransactionId,
	}

	params := types.PrepareParams{
		TxData:            txData,
		Amount:            resp.Bid.Amount,
		Expiry:            resp.Bid.Expiry,
		EncryptedCallData: resp.Bid.EncryptedCallData,
		BidSignature:      resp.BidSignature,
		EncodedBid:        encodedBid,
	}
	return o.gate.PreparePrepareRequest(ctx, resp.Bid.SendingChainId, params)
}

// FulfillResult is the outcome of FulfillTransfer. The direct path sets
// FulfillRequest; the relayed path leaves it nil and sets RelayedTxHash to
// the matched event's TxHash, which is empty when the event came from
// indexergate.Watcher.
type FulfillResult struct {
	FulfillRequest *types.TxRequest
	RelayedTxHash  string
}

// FulfillTransfer builds or relays the fulfill call for event, per spec.md
// §4.6. When useRelayers is true, a MetaTxRequest is published and the
// call concurrently waits (via EventMux) for ReceiverTransactionFulfilled
// filtered by transactionId, bounded by MetaTxTimeout.
func (o *Orchestrator) FulfillTransfer(ctx context.Context, event types.ActiveTransaction, fulfillSignature types.Signature, decryptedCallData []byte, relayerFee types.Amount, useRelayers bool) (FulfillResult, error) {
	if err := validation.ValidatePrepareEvent(event); err != nil {
		return FulfillResult{}, err
	}

	if !useRelayers {
		req, err := o.gate.PrepareFulfillRequest(ctx, event.TxData.ReceivingChainId, types.FulfillParams{
			TxData:     event.TxData,
			Amount:     event.Amount,
			RelayerFee: relayerFee,
			Signature:  fulfillSignature,
			CallData:   decryptedCallData,
		})
		if err != nil {
			return FulfillResult{}, err
		}
		return FulfillResult{FulfillRequest: &req}, nil
	}

	txIdHex := event.TxData.TransactionId.Hex()
	metaCtx, cancel := context.WithTimeout(ctx, MetaTxTimeout)
	defer cancel()

	// Attach synchronously before publishing the meta-tx request: a relayer
	// on a fast bus (e.g. InMemoryBus) can observe and fulfill before a
	// goroutine spawned after Publish gets scheduled, so the registration
	// must exist first or the event is missed entirely.
	resultCh := make(chan string, 1)
	tok := o.mux.AttachOnce(eventmux.EventReceiverTransactionFulfilled, func(p interface{}) {
		if fulfilled, ok := p.(messaging.ReceiverTransactionFulfilled); ok {
			select {
			case resultCh <- fulfilled.TxHash:
			default:
			}
		}
	}, func(p interface{}) bool {
		fulfilled, ok := p.(messaging.ReceiverTransactionFulfilled)
		return ok && fulfilled.TransactionId == txIdHex
	})
	defer o.mux.Detach(tok)

	if err := o.bus.Publish(metaCtx, "meta_tx.request", messaging.MetaTxRequest{
		Type:          "Fulfill",
		TransactionId: txIdHex,
		Data:          decryptedCallData,
	}); err != nil {
		return FulfillResult{}, types.Wrap(types.KindRpcError, types.Retryable, "publish meta-tx fulfill request", err)
	}

	select {
	case txHash := <-resultCh:
		return FulfillResult{RelayedTxHash: txHash}, nil
	case <-metaCtx.Done():
		return FulfillResult{}, types.New(types.KindMetaTxTimeout, types.Retryable, "meta-tx fulfill did not complete before deadline")
	}
}

// Cancel validates and builds a cancel TxRequest for chainId.
func (o *Orchestrator) Cancel(ctx context.Context, params types.CancelParams, chainId types.ChainId) (types.TxRequest, error) {
	if err := validation.ValidateCancel(params); err != nil {
		return types.TxRequest{}, err
	}
	return o.gate.PrepareCancelRequest(ctx, chainId, params)
}

// EstimateFulfillFee returns ChainGate's fulfill gas estimate, which is in
// the receiving chain's native units (see CalculateGasInTokenForFulfill); a
// zero result from ChainGate is surfaced as InvalidParamStructure.
func (o *Orchestrator) EstimateFulfillFee(ctx context.Context, txData types.InvariantTransactionData, sig types.Signature, relayerFee types.Amount) (types.Amount, error) {
	fee, err := o.gate.CalculateGasInTokenForFulfill(ctx, txData.ReceivingChainId, types.FulfillParams{
		TxData:     txData,
		RelayerFee: relayerFee,
		Signature:  sig,
	})
	if err != nil {
		return types.Amount{}, err
	}
	if fee.IsZero() {
		return types.Amount{}, types.New(types.KindInvalidParamStructure, types.NonRetryable, "fulfill fee estimation returned zero")
	}
	return fee, nil
}
