package chainprovider

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// alchemyNetworks maps a chainId to its Alchemy JSON-RPC base URL, the same
// lookup table shape as the teacher's alchemyNetworks map in
// internal/provider/alchemy/alchemy.go, keyed by chainId instead of a
// "name-network" string since this SDK only ever talks to EVM chains.
var alchemyNetworks = map[types.ChainId]string{
	1:     "https://eth-mainnet.g.alchemy.com/v2",
	137:   "https://polygon-mainnet.g.alchemy.com/v2",
	42161: "https://arb-mainnet.g.alchemy.com/v2",
	10:    "https://opt-mainnet.g.alchemy.com/v2",
}

// AlchemyProvider implements Provider over Alchemy's JSON-RPC endpoint.
type AlchemyProvider struct {
	chainId    types.ChainId
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAlchemyProvider builds a Provider for chainId. If customEndpoint is
// non-empty it overrides the bundled Alchemy URL lookup (spec.md §6: "If
// addresses are absent, resolve from a bundled registry").
func NewAlchemyProvider(chainId types.ChainId, apiKey, customEndpoint string) (*AlchemyProvider, error) {
	if apiKey == "" && customEndpoint == "" {
		return nil, types.New(types.KindChainNotConfigured, types.NonRetryable, "alchemy API key is required")
	}

	baseURL := customEndpoint
	if baseURL == "" {
		u, ok := alchemyNetworks[chainId]
		if !ok {
			return nil, types.New(types.KindChainNotConfigured, types.NonRetryable,
				fmt.Sprintf("no alchemy endpoint bundled for chain %d", chainId))
		}
		baseURL = u
	}

	return &AlchemyProvider{
		chainId: chainId,
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (a *AlchemyProvider) ChainId() types.ChainId { return a.chainId }

func (a *AlchemyProvider) Close() error { return nil }

// rpcCall performs a single JSON-RPC 2.0 call against Alchemy, classifying
// transport/HTTP failures as Retryable and JSON-RPC application errors as
// NonRetryable — the same split the teacher's rpcCall draws between
// provider.NewProviderError(..., retryable bool, ...) cases.
func (a *AlchemyProvider) rpcCall(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	url := a.baseURL
	if a.apiKey != "" {
		url = fmt.Sprintf("%s/%s", a.baseURL, a.apiKey)
	}

	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "marshal rpc request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqJSON)))
	if err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "build rpc request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, types.Wrap(types.KindRpcError, types.Retryable, "rpc call failed", err).WithContext("method", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Wrap(types.KindRpcError, types.Retryable, "read rpc response", err)
	}

	if resp.StatusCode != http.StatusOK {
		class := types.NonRetryable
		if resp.StatusCode >= 500 {
			class = types.Retryable
		}
		return nil, types.New(types.KindRpcError, class,
			fmt.Sprintf("rpc http %d: %s", resp.StatusCode, string(body)))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result,omitempty"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "parse rpc response", err)
	}
	if rpcResp.Error != nil {
		retryable := rpcResp.Error.Code <= -32000 && rpcResp.Error.Code >= -32099
		class := types.NonRetryable
		if retryable {
			class = types.Retryable
		}
		return nil, types.New(types.KindRpcError, class, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (a *AlchemyProvider) CodeAt(ctx context.Context, address types.Address) ([]byte, error) {
	result, err := a.rpcCall(ctx, "eth_getCode", []interface{}{address.Hex(), "latest"})
	if err != nil {
		return nil, err
	}
	var codeHex string
	if err := json.Unmarshal(result, &codeHex); err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "parse eth_getCode result", err)
	}
	return hex.DecodeString(strings.TrimPrefix(codeHex, "0x"))
}

func (a *AlchemyProvider) Call(ctx context.Context, to types.Address, data []byte) ([]byte, error) {
	callObj := map[string]interface{}{
		"to":   to.Hex(),
		"data": "0x" + hex.EncodeToString(data),
	}
	result, err := a.rpcCall(ctx, "eth_call", []interface{}{callObj, "latest"})
	if err != nil {
		return nil, err
	}
	var resHex string
	if err := json.Unmarshal(result, &resHex); err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "parse eth_call result", err)
	}
	return hex.DecodeString(strings.TrimPrefix(resHex, "0x"))
}

func (a *AlchemyProvider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	result, err := a.rpcCall(ctx, "eth_gasPrice", []interface{}{})
	if err != nil {
		return nil, err
	}
	var priceHex string
	if err := json.Unmarshal(result, &priceHex); err != nil {
		return nil, types.Wrap(types.KindRpcError, types.NonRetryable, "parse eth_gasPrice result", err)
	}
	price, ok := new(big.Int).SetString(strings.TrimPrefix(priceHex, "0x"), 16)
	if !ok {
		return nil, types.New(types.KindRpcError, types.NonRetryable, "malformed eth_gasPrice result")
	}
	return price, nil
}

func (a *AlchemyProvider) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := a.rpcCall(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, err
	}
	var numHex string
	if err := json.Unmarshal(result, &numHex); err != nil {
		return 0, types.Wrap(types.KindRpcError, types.NonRetryable, "parse eth_blockNumber result", err)
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(numHex, "0x"), 16)
	if !ok {
		return 0, types.New(types.KindRpcError, types.NonRetryable, "malformed eth_blockNumber result")
	}
	return n.Uint64(), nil
}
