// Package auction implements C5 AuctionClient, the algorithmic heart of the
// SDK: publish an auction request on the message bus, collect router bids
// within a bounded window, validate and rank them, and return a winner.
package auction

import (
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/bidcrypto"
	"github.com/blockcoders/nxtp-sdk/internal/chaingate"
	"github.com/blockcoders/nxtp-sdk/internal/messaging"
	"github.com/blockcoders/nxtp-sdk/internal/types"
	"github.com/blockcoders/nxtp-sdk/internal/validation"
)

// AuctionTimeout bounds bid collection for DryRun/OpenAuction; doubled for
// PreferredRouters (spec.md §5 concurrency model).
const AuctionTimeout = 6 * time.Second

// Policy selects how runAuction waits for and accepts bids (spec.md §4.5).
type Policy struct {
	kind              policyKind
	preferredRouters  map[types.Address]bool
}

type policyKind int

const (
	kindOpenAuction policyKind = iota
	kindDryRun
	kindPreferredRouters
)

// OpenAuction collects all bids during AuctionTimeout, then validates and
// ranks them.
func OpenAuction() Policy { return Policy{kind: kindOpenAuction} }

// DryRun accepts the first non-error bid within AuctionTimeout, skipping
// ranking against competitors.
func DryRun() Policy { return Policy{kind: kindDryRun} }

// PreferredRouters waits up to 2×AuctionTimeout for the first valid bid
// whose router is in routers.
func PreferredRouters(routers []types.Address) Policy {
	set := make(map[types.Address]bool, len(routers))
	for _, r := range routers {
		set[r] = true
	}
	return Policy{kind: kindPreferredRouters, preferredRouters: set}
}

// Request is the payload published alongside a fresh inboxId on
// "auction.request" (spec.md §6).
type Request struct {
	User             types.Address `json:"user"`
	SendingChainId   types.ChainId `json:"sendingChainId"`
	SendingAssetId   types.Address `json:"sendingAssetId"`
	Amount           types.Amount  `json:"amount"`
	ReceivingChainId types.ChainId `json:"receivingChainId"`
	ReceivingAssetId types.Address `json:"receivingAssetId"`
	ReceivingAddress types.Address `json:"receivingAddress"`
	TransactionId    types.TransactionId `json:"transactionId"`
	Expiry           time.Time     `json:"expiry"`
	CallDataHash     types.Bytes32 `json:"callDataHash"`
	CallTo           types.Address `json:"callTo"`
	SlippageTolerance string       `json:"slippageTolerance"`
}

type incomingResponse struct {
	InboxId string               `json:"inboxId"`
	Bid     *types.AuctionBid     `json:"bid,omitempty"`
	BidSignature *types.Signature `json:"bidSignature,omitempty"`
	GasFeeInReceivingToken *string `json:"gasFeeInReceivingToken,omitempty"`
	Err     string               `json:"err,omitempty"`
}

// Client is the C5 contract.
type Client struct {
	bus   messaging.Bus
	gate  chaingate.Gate
	slippagePercent *big.Int // numerator over 100, e.g. "1" = 1%
}

// NewClient builds an AuctionClient publishing/subscribing over bus and
// validating bids' liquidity/slippage through gate.
func NewClient(bus messaging.Bus, gate chaingate.Gate) *Client {
	return &Client{bus: bus, gate: gate}
}

const auctionResponseTopic = "auction.response"
const auctionRequestTopic = "auction.request"

// candidate pairs a validated-or-rejected response with its arrival order,
// the stable tie-break key spec.md §4.5 step 6 requires.
type candidate struct {
	response types.AuctionResponse
	seq      int
}

// RunAuction publishes request on the bus, collects bids under policy, and
// returns the winning AuctionResponse or a NoValidBids/NoBids *types.SdkError.
func (c *Client) RunAuction(ctx context.Context, request Request, slippageTolerance string, policy Policy) (types.AuctionResponse, error) {
	inboxId, err := messaging.NewInboxId()
	if err != nil {
		return types.AuctionResponse{}, types.Wrap(types.KindUnknownAuctionError, types.NonRetryable, "generate inboxId", err)
	}

	timeout := AuctionTimeout
	if policy.kind == kindPreferredRouters {
		timeout = 2 * AuctionTimeout
	}
	auctionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs, err := c.bus.Subscribe(auctionCtx, auctionResponseTopic)
	if err != nil {
		return types.AuctionResponse{}, types.Wrap(types.KindUnknownAuctionError, types.Retryable, "subscribe to auction responses", err)
	}

	if err := c.bus.Publish(auctionCtx, auctionRequestTopic, messaging.AuctionRequest{Payload: request, InboxId: inboxId}); err != nil {
		return types.AuctionResponse{}, types.Wrap(types.KindUnknownAuctionError, types.Retryable, "publish auction request", err)
	}

	received := 0
	var candidates []candidate
	seq := 0

	for {
		select {
		case raw, ok := <-msgs:
			if !ok {
				return c.resolve(ctx, request, slippageTolerance, policy, candidates, received)
			}
			var resp incomingResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				continue // malformed message, ignored per spec.md §4.5 edge policy
			}
			if resp.InboxId != inboxId {
				continue // belongs to a different in-flight auction
			}
			if resp.Err != "" || resp.Bid == nil || resp.BidSignature == nil {
				continue // errored response, logged-and-ignored
			}
			received++

			gasFee := types.ZeroAmount()
			if resp.GasFeeInReceivingToken != nil {
				if amt, ok := types.ParseAmount(*resp.GasFeeInReceivingToken); ok {
					gasFee = amt
				}
			}
			ar := types.AuctionResponse{Bid: *resp.Bid, BidSignature: *resp.BidSignature, GasFeeInReceivingToken: gasFee}
			seq++
			cand := candidate{response: ar, seq: seq}

			if policy.kind == kindDryRun {
				valid, _ := c.validateOne(auctionCtx, cand.response, slippageTolerance)
				if valid {
					return cand.response, nil
				}
				continue
			}
			if policy.kind == kindPreferredRouters {
				if !policy.preferredRouters[ar.Bid.Router] {
					continue
				}
				valid, _ := c.validateOne(auctionCtx, cand.response, slippageTolerance)
				if valid {
					return cand.response, nil
				}
				continue
			}
			candidates = append(candidates, cand)

		case <-auctionCtx.Done():
			return c.resolve(ctx, request, slippageTolerance, policy, candidates, received)
		}
	}
}

// resolve runs at window close: for OpenAuction it validates and ranks the
// accumulated set; for DryRun/PreferredRouters reaching here means no valid
// bid arrived in time.
func (c *Client) resolve(ctx context.Context, request Request, slippageTolerance string, policy Policy, candidates []candidate, received int) (types.AuctionResponse, error) {
	if received == 0 {
		return types.AuctionResponse{}, types.New(types.KindNoBids, types.NonRetryable, "no bids received before auction window closed")
	}
	if policy.kind != kindOpenAuction {
		return types.AuctionResponse{}, (&types.NoValidBidsError{Reasons: []string{"no valid bid arrived before deadline"}}).AsSdkError()
	}

	var survivors []candidate
	var reasons []string
	for _, cand := range candidates {
		ok, reason := c.validateOne(ctx, cand.response, slippageTolerance)
		if !ok {
			reasons = append(reasons, reason)
			continue
		}
		survivors = append(survivors, cand)
	}
	if len(survivors) == 0 {
		return types.AuctionResponse{}, (&types.NoValidBidsError{Reasons: reasons}).AsSdkError()
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		cmp := survivors[i].response.Bid.AmountReceived.Cmp(survivors[j].response.Bid.AmountReceived)
		if cmp != 0 {
			return cmp > 0
		}
		return survivors[i].seq < survivors[j].seq
	})
	return survivors[0].response, nil
}

// validateOne applies spec.md §4.1's structural bid checks (including
// bidExpiry) followed by §4.5 step 5's gates a/b/c. The returned reason
// string is populated only when ok is false.
func (c *Client) validateOne(ctx context.Context, resp types.AuctionResponse, slippageTolerance string) (bool, string) {
	if err := validation.ValidateAuctionBid(resp.Bid, time.Now()); err != nil {
		return false, "Bid expired or malformed"
	}

	signer, err := bidcrypto.RecoverBidSigner(resp.Bid, resp.BidSignature)
	if err != nil || signer != resp.Bid.Router {
		return false, "Invalid router signature on bid"
	}

	liquidity, err := c.gate.RouterLiquidity(ctx, resp.Bid.ReceivingChainId, resp.Bid.Router, resp.Bid.ReceivingAssetId)
	if err != nil {
		return false, "Error getting router liquidity"
	}
	if liquidity.Cmp(resp.Bid.AmountReceived) < 0 {
		return false, "Router's liquidity low"
	}

	num, den, err := bidcrypto.ParseSlippageTolerance(slippageTolerance)
	if err != nil {
		return false, "Invalid slippage tolerance"
	}
	amtMinusGas := resp.Bid.AmountReceived.Sub(resp.GasFeeInReceivingToken)
	lowerBound := amtMinusGas.MulPercentFloor(num, den)
	if resp.Bid.AmountReceived.Cmp(lowerBound) < 0 {
		return false, "Invalid bid price"
	}
	return true, ""
}
