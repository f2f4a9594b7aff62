// Package indexergate implements C4 IndexerGate: subgraph freshness status
// and active/historical transfer enumeration over a GraphQL endpoint. No
// GraphQL client library appears anywhere in the example corpus, so the
// transport here is stdlib net/http + encoding/json issuing a raw
// {query, variables} POST body, mirroring the exact request/parse shape
// the teacher's internal/provider/alchemy.go already uses for its
// JSON-RPC transport (same http.Client + json.Unmarshal pattern, a
// different wire verb).
package indexergate

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/chainprovider"
	"github.com/blockcoders/nxtp-sdk/internal/registry"
	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Gate is the C4 IndexerGate contract (spec.md §4.4).
type Gate interface {
	SyncStatus(ctx context.Context, chainId types.ChainId) (types.SubgraphSyncRecord, error)
	ActiveTransactions(ctx context.Context, chainId types.ChainId, user types.Address) ([]types.ActiveTransaction, error)
	HistoricalTransactions(ctx context.Context, chainId types.ChainId, user types.Address) ([]types.HistoricalTransaction, error)
}

// SubgraphGate queries one bundled (or overridden) subgraph URL per chain,
// cross-checked against a chain-head read from providers so "synced" reflects
// the actual indexer lag rather than the subgraph's own say-so.
type SubgraphGate struct {
	registry   *registry.Registry
	overrides  map[types.ChainId]string
	providers  map[types.ChainId]chainprovider.Provider
	httpClient *http.Client
}

// NewSubgraphGate builds a Gate resolving subgraph URLs through reg, with
// per-chain overrides taking precedence (spec.md §6). providers supplies the
// chain-head source SyncStatus compares the subgraph's synced block against.
func NewSubgraphGate(reg *registry.Registry, overrides map[types.ChainId]string, providers map[types.ChainId]chainprovider.Provider) *SubgraphGate {
	if overrides == nil {
		overrides = map[types.ChainId]string{}
	}
	if providers == nil {
		providers = map[types.ChainId]chainprovider.Provider{}
	}
	return &SubgraphGate{
		registry:  reg,
		overrides: overrides,
		providers: providers,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (g *SubgraphGate) query(ctx context.Context, chainId types.ChainId, query string, vars map[string]interface{}, out interface{}) error {
	url, err := registry.ResolveSubgraph(g.registry, chainId, g.overrides[chainId])
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return types.Wrap(types.KindRpcError, types.NonRetryable, "marshal subgraph query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.Wrap(types.KindRpcError, types.NonRetryable, "build subgraph request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return types.Wrap(types.KindRpcError, types.Retryable, "subgraph request failed", err)
	}
	defer resp.Body.Close()

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return types.Wrap(types.KindRpcError, types.Retryable, "decode subgraph response", err)
	}
	if len(gqlResp.Errors) > 0 {
		return types.New(types.KindRpcError, types.NonRetryable, gqlResp.Errors[0].Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return types.Wrap(types.KindRpcError, types.NonRetryable, "parse subgraph data", err)
	}
	return nil
}

// SyncStatus reports the indexer's view of chain-head catch-up for chainId:
// the subgraph's own synced block compared against the real chain head read
// through a chainprovider.Provider, per spec.md §3's "stale if latestBlock −
// syncedBlock > buffer" invariant. Any query failure (subgraph or provider)
// degrades to the documented default {synced:false, 0, 0} rather than
// propagating the transport error, per spec.md §4.4.
func (g *SubgraphGate) SyncStatus(ctx context.Context, chainId types.ChainId) (types.SubgraphSyncRecord, error) {
	var result struct {
		Meta struct {
			Block struct {
				Number uint64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	const q = `query { _meta { block { number } } }`
	if err := g.query(ctx, chainId, q, nil, &result); err != nil {
		return types.SubgraphSyncRecord{}, nil
	}

	provider, ok := g.providers[chainId]
	if !ok {
		return types.SubgraphSyncRecord{}, nil
	}
	latestBlock, err := provider.BlockNumber(ctx)
	if err != nil {
		return types.SubgraphSyncRecord{}, nil
	}

	syncedBlock := result.Meta.Block.Number
	record := types.SubgraphSyncRecord{SyncedBlock: syncedBlock, LatestBlock: latestBlock}

	buffer := uint64(0)
	if entry, ok := g.registry.Lookup(chainId); ok {
		buffer = entry.SubgraphSyncBuffer
	}
	record.Synced = !record.IsStale(buffer)
	return record, nil
}

type transactionNode struct {
	TransactionID    string `json:"transactionId"`
	User             string `json:"user"`
	Router           string `json:"router"`
	Initiator        string `json:"initiator"`
	SendingAssetID   string `json:"sendingAssetId"`
	ReceivingAssetID string `json:"receivingAssetId"`
	CallTo           string `json:"callTo"`
	ReceivingAddress string `json:"receivingAddress"`
	CallDataHash     string `json:"callDataHash"`
	SendingChainID   string `json:"sendingChainId"`
	ReceivingChainID string `json:"receivingChainId"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
}

func (n transactionNode) toInvariantData() types.InvariantTransactionData {
	return types.InvariantTransactionData{
		User:             types.Address(hexToAddress(n.User)),
		Router:           types.Address(hexToAddress(n.Router)),
		Initiator:        types.Address(hexToAddress(n.Initiator)),
		SendingAssetId:   types.Address(hexToAddress(n.SendingAssetID)),
		ReceivingAssetId: types.Address(hexToAddress(n.ReceivingAssetID)),
		CallTo:           types.Address(hexToAddress(n.CallTo)),
		ReceivingAddress: types.Address(hexToAddress(n.ReceivingAddress)),
		TransactionId:    hexToHash(n.TransactionID),
		CallDataHash:     hexToHash(n.CallDataHash),
	}
}

// ActiveTransactions returns in-flight transfers for user on chainId.
func (g *SubgraphGate) ActiveTransactions(ctx context.Context, chainId types.ChainId, user types.Address) ([]types.ActiveTransaction, error) {
	var result struct {
		Transactions []transactionNode `json:"transactions"`
	}
	const q = `query($user: String!) { transactions(where: {user: $user, status_not_in: ["Fulfilled","Cancelled"]}) { transactionId user router initiator sendingAssetId receivingAssetId callTo receivingAddress callDataHash amount status } }`
	if err := g.query(ctx, chainId, q, map[string]interface{}{"user": user.Hex()}, &result); err != nil {
		return nil, err
	}

	out := make([]types.ActiveTransaction, 0, len(result.Transactions))
	for _, n := range result.Transactions {
		amount, _ := types.ParseAmount(n.Amount)
		out = append(out, types.ActiveTransaction{
			TxData: n.toInvariantData(),
			Status: types.TransferStatus(n.Status),
			Amount: amount,
		})
	}
	return out, nil
}

// HistoricalTransactions returns completed (fulfilled or cancelled)
// transfers for user on chainId.
func (g *SubgraphGate) HistoricalTransactions(ctx context.Context, chainId types.ChainId, user types.Address) ([]types.HistoricalTransaction, error) {
	var result struct {
		Transactions []struct {
			transactionNode
			FinishedAt string `json:"finishedAt"`
		} `json:"transactions"`
	}
	const q = `query($user: String!) { transactions(where: {user: $user, status_in: ["Fulfilled","Cancelled"]}) { transactionId user router initiator sendingAssetId receivingAssetId callTo receivingAddress callDataHash amount status finishedAt } }`
	if err := g.query(ctx, chainId, q, map[string]interface{}{"user": user.Hex()}, &result); err != nil {
		return nil, err
	}

	out := make([]types.HistoricalTransaction, 0, len(result.Transactions))
	for _, n := range result.Transactions {
		amount, _ := types.ParseAmount(n.Amount)
		finishedAt, _ := time.Parse(time.RFC3339, n.FinishedAt)
		out = append(out, types.HistoricalTransaction{
			TxData:     n.toInvariantData(),
			Status:     types.TransferStatus(n.Status),
			Amount:     amount,
			FinishedAt: finishedAt,
		})
	}
	return out, nil
}

func hexToAddress(s string) types.Address {
	var a types.Address
	copyHex(a[:], s)
	return a
}

func hexToHash(s string) types.Bytes32 {
	var h types.Bytes32
	copyHex(h[:], s)
	return h
}

// copyHex decodes a "0x"-prefixed hex string right-aligned into dst,
// tolerating malformed/short input since subgraph data is best-effort.
func copyHex(dst []byte, s string) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) == 0 {
		return
	}
	if len(b) > len(dst) {
		b = b[len(b)-len(dst):]
	}
	copy(dst[len(dst)-len(b):], b)
}
