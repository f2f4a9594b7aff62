package auction

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/blockcoders/nxtp-sdk/internal/bidcrypto"
	"github.com/blockcoders/nxtp-sdk/internal/messaging"
	"github.com/blockcoders/nxtp-sdk/internal/types"
)

var errLiquidityUnavailable = errors.New("rpc unavailable")

// fakeGate stubs chaingate.Gate's RouterLiquidity for auction tests; the
// remaining methods are never called by AuctionClient and panic if they are.
type fakeGate struct {
	liquidity types.Amount
	liquidityErr error
}

func (f *fakeGate) IsContract(context.Context, types.ChainId, types.Address) (bool, error) {
	panic("not used by auction")
}
func (f *fakeGate) RouterLiquidity(context.Context, types.ChainId, types.Address, types.Address) (types.Amount, error) {
	return f.liquidity, f.liquidityErr
}
func (f *fakeGate) ApproveIfNeeded(context.Context, types.ChainId, types.Address, types.Amount, bool) (*types.TxRequest, error) {
	panic("not used by auction")
}
func (f *fakeGate) PreparePrepareRequest(context.Context, types.ChainId, types.PrepareParams) (types.TxRequest, error) {
	panic("not used by auction")
}
func (f *fakeGate) PrepareFulfillRequest(context.Context, types.ChainId, types.FulfillParams) (types.TxRequest, error) {
	panic("not used by auction")
}
func (f *fakeGate) PrepareCancelRequest(context.Context, types.ChainId, types.CancelParams) (types.TxRequest, error) {
	panic("not used by auction")
}
func (f *fakeGate) TxManagerAddress(context.Context, types.ChainId) (types.Address, error) {
	panic("not used by auction")
}
func (f *fakeGate) CalculateGasInTokenForFulfill(context.Context, types.ChainId, types.FulfillParams) (types.Amount, error) {
	panic("not used by auction")
}

// newBidAndSig builds a bid whose router matches priv's derived address,
// signed over the canonical encoding, for a given amountReceived.
func newBidAndSig(t *testing.T, amountReceived int64) (types.AuctionBid, types.Signature) {
	t.Helper()
	return newBidAndSigWithExpiry(t, amountReceived, time.Now().Add(time.Minute))
}

// newBidAndSigWithExpiry is newBidAndSig with an explicit bidExpiry, for
// tests pinning the expiry gate.
func newBidAndSigWithExpiry(t *testing.T, amountReceived int64, bidExpiry time.Time) (types.AuctionBid, types.Signature) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	router := crypto.PubkeyToAddress(priv.PublicKey)

	bid := types.AuctionBid{
		User:             types.Address{0x01},
		Router:           router,
		Initiator:        types.Address{0x01},
		SendingChainId:   1,
		SendingAssetId:   types.Address{0x02},
		Amount:           types.NewAmount(big.NewInt(1_000_000)),
		ReceivingChainId: 137,
		ReceivingAssetId: types.Address{0x03},
		AmountReceived:   types.NewAmount(big.NewInt(amountReceived)),
		ReceivingAddress: types.Address{0x04},
		TransactionId:    types.Bytes32{0xAA},
		Expiry:           time.Now().Add(72 * time.Hour),
		BidExpiry:        bidExpiry,
	}
	return bid, signBid(t, bid, priv)
}

func signBid(t *testing.T, bid types.AuctionBid, priv *ecdsa.PrivateKey) types.Signature {
	t.Helper()
	digest, err := bidcrypto.BidDigest(bid)
	require.NoError(t, err)
	sigBytes, err := crypto.Sign(digest, priv)
	require.NoError(t, err)
	var sig types.Signature
	copy(sig[:], sigBytes)
	return sig
}

func publishResponse(t *testing.T, bus messaging.Bus, inboxId string, bid types.AuctionBid, sig types.Signature, gasFee string) {
	t.Helper()
	gf := gasFee
	err := bus.Publish(context.Background(), "auction.response", map[string]interface{}{
		"inboxId":                inboxId,
		"bid":                    bid,
		"bidSignature":           sig,
		"gasFeeInReceivingToken": gf,
	})
	require.NoError(t, err)
}

// inboxCapturingBus wraps an InMemoryBus and exposes the last inboxId the
// client published, so tests can address replies to the right auction.
type inboxCapturingBus struct {
	*messaging.InMemoryBus
	lastInboxId chan string
}

func newInboxCapturingBus() *inboxCapturingBus {
	return &inboxCapturingBus{InMemoryBus: messaging.NewInMemoryBus(), lastInboxId: make(chan string, 8)}
}

func (b *inboxCapturingBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	if topic == "auction.request" {
		if req, ok := payload.(messaging.AuctionRequest); ok {
			b.lastInboxId <- req.InboxId
		}
	}
	return b.InMemoryBus.Publish(ctx, topic, payload)
}

func TestRunAuction_OpenAuction_RanksByAmountDescending(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client := NewClient(bus, gate)

	go func() {
		inboxId := <-bus.lastInboxId
		lowBid, lowSig := newBidAndSig(t, 100)
		highBid, highSig := newBidAndSig(t, 500)
		publishResponse(t, bus, inboxId, lowBid, lowSig, "0")
		publishResponse(t, bus, inboxId, highBid, highSig, "0")
	}()

	winner, err := client.RunAuction(context.Background(), Request{}, "0", OpenAuction())
	require.NoError(t, err)
	require.Equal(t, int64(500), winner.Bid.AmountReceived.Int().Int64())
}

func TestRunAuction_NoBids_ReturnsNoBids(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client := NewClient(bus, gate)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.RunAuction(ctx, Request{}, "0", OpenAuction())
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindNoBids))
}

func TestRunAuction_LowLiquidity_NoValidBids(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(1))}
	client := NewClient(bus, gate)

	go func() {
		inboxId := <-bus.lastInboxId
		bid, sig := newBidAndSig(t, 1000)
		publishResponse(t, bus, inboxId, bid, sig, "0")
	}()

	_, err := client.RunAuction(context.Background(), Request{}, "0", OpenAuction())
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindNoValidBids))
}

func TestRunAuction_WrongSigner_Rejected(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client := NewClient(bus, gate)

	go func() {
		inboxId := <-bus.lastInboxId
		bid, _ := newBidAndSig(t, 1000)
		// Sign with a different key than the one that derived bid.Router.
		otherPriv, _ := crypto.GenerateKey()
		digest, _ := bidcrypto.BidDigest(bid)
		sigBytes, _ := crypto.Sign(digest, otherPriv)
		var sig types.Signature
		copy(sig[:], sigBytes)
		publishResponse(t, bus, inboxId, bid, sig, "0")
	}()

	_, err := client.RunAuction(context.Background(), Request{}, "0", OpenAuction())
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindNoValidBids))
}

func TestRunAuction_DryRun_AcceptsFirstValidBid(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client := NewClient(bus, gate)

	go func() {
		inboxId := <-bus.lastInboxId
		bid, sig := newBidAndSig(t, 1000)
		publishResponse(t, bus, inboxId, bid, sig, "0")
	}()

	winner, err := client.RunAuction(context.Background(), Request{}, "0", DryRun())
	require.NoError(t, err)
	require.Equal(t, int64(1000), winner.Bid.AmountReceived.Int().Int64())
}

func TestRunAuction_PreferredRouters_WaitsForMatchingRouter(t *testing.T) {
	bus := newInboxCapturingBus()
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client := NewClient(bus, gate)

	nonPreferredBid, nonPreferredSig := newBidAndSig(t, 1000)
	preferredBid, preferredSig := newBidAndSig(t, 500)

	go func() {
		inboxId := <-bus.lastInboxId
		publishResponse(t, bus, inboxId, nonPreferredBid, nonPreferredSig, "0")
		publishResponse(t, bus, inboxId, preferredBid, preferredSig, "0")
	}()

	winner, err := client.RunAuction(context.Background(), Request{}, "0", PreferredRouters([]types.Address{preferredBid.Router}))
	require.NoError(t, err)
	require.Equal(t, preferredBid.Router, winner.Bid.Router)
}

func TestValidateOne_RouterLiquidityErrorRejectsBid(t *testing.T) {
	client := &Client{}
	client.gate = &fakeGate{liquidityErr: errLiquidityUnavailable}

	bid, sig := newBidAndSig(t, 100)
	resp := types.AuctionResponse{Bid: bid, BidSignature: sig, GasFeeInReceivingToken: types.ZeroAmount()}
	ok, reason := client.validateOne(context.Background(), resp, "0")
	require.False(t, ok)
	require.Equal(t, "Error getting router liquidity", reason)
}

func TestValidateOne_DecimalSlippageToleranceIsParsed(t *testing.T) {
	// "1.00" must parse as a decimal percent rather than be rejected with
	// "Invalid slippage tolerance" (big.Int.SetString alone would reject the
	// decimal point). A 99 bid passes at 1% as well as at 0%, so this does
	// not pin the scaling itself; bidcrypto.ParseSlippageTolerance's exact
	// num/den output is checked in internal/bidcrypto/slippage_test.go.
	client := &Client{}
	client.gate = &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}

	bid, sig := newBidAndSig(t, 99)
	resp := types.AuctionResponse{Bid: bid, BidSignature: sig, GasFeeInReceivingToken: types.ZeroAmount()}
	ok, reason := client.validateOne(context.Background(), resp, "1.00")
	require.True(t, ok, reason)
}

func TestValidateOne_MalformedSlippageToleranceRejected(t *testing.T) {
	client := &Client{}
	client.gate = &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}

	bid, sig := newBidAndSig(t, 100)
	resp := types.AuctionResponse{Bid: bid, BidSignature: sig, GasFeeInReceivingToken: types.ZeroAmount()}
	ok, reason := client.validateOne(context.Background(), resp, "not-a-number")
	require.False(t, ok)
	require.Equal(t, "Invalid slippage tolerance", reason)
}

func TestValidateOne_ExpiredBidRejected(t *testing.T) {
	client := &Client{}
	client.gate = &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}

	bid, sig := newBidAndSigWithExpiry(t, 100, time.Now().Add(-time.Minute))
	resp := types.AuctionResponse{Bid: bid, BidSignature: sig, GasFeeInReceivingToken: types.ZeroAmount()}

	ok, reason := client.validateOne(context.Background(), resp, "0")
	require.False(t, ok)
	require.Equal(t, "Bid expired or malformed", reason)
}

func TestValidateOne_SlippageLowerBoundNeverExceedsAmountReceived(t *testing.T) {
	// amtMinusGas <= amountReceived and the tolerance factor is <= 1, so
	// lowerBound can never exceed amountReceived — this pins that
	// arithmetic fact for the exact formula spec.md §4.5 step 5c defines.
	client := &Client{}
	gate := &fakeGate{liquidity: types.NewAmount(big.NewInt(10_000_000))}
	client.gate = gate

	bid, sig := newBidAndSig(t, 100)
	resp := types.AuctionResponse{Bid: bid, BidSignature: sig, GasFeeInReceivingToken: types.NewAmount(big.NewInt(40))}
	ok, reason := client.validateOne(context.Background(), resp, "10")
	require.True(t, ok, reason)
}
