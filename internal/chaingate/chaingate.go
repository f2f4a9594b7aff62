// Package chaingate implements C3 ChainGate: a thin read/write port over the
// configured EVM chains, adapted from the teacher's
// src/chainadapter/ethereum adapter generalized from "sign and broadcast"
// to "construct an unsigned TxRequest" — the SDK never holds a key or
// broadcasts (spec.md §1 Non-goals).
package chaingate

import (
	"context"
	"math/big"

	"github.com/blockcoders/nxtp-sdk/internal/chainprovider"
	"github.com/blockcoders/nxtp-sdk/internal/registry"
	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Gate is the C3 ChainGate contract. Every operation returns a Retryable/
// NonRetryable classified *types.SdkError on failure, the same contract the
// teacher's ErrorClassification gives src/chainadapter callers.
type Gate interface {
	IsContract(ctx context.Context, chainId types.ChainId, address types.Address) (bool, error)
	RouterLiquidity(ctx context.Context, chainId types.ChainId, router, asset types.Address) (types.Amount, error)
	ApproveIfNeeded(ctx context.Context, chainId types.ChainId, asset types.Address, amount types.Amount, infinite bool) (*types.TxRequest, error)
	PreparePrepareRequest(ctx context.Context, chainId types.ChainId, params types.PrepareParams) (types.TxRequest, error)
	PrepareFulfillRequest(ctx context.Context, chainId types.ChainId, params types.FulfillParams) (types.TxRequest, error)
	PrepareCancelRequest(ctx context.Context, chainId types.ChainId, params types.CancelParams) (types.TxRequest, error)
	TxManagerAddress(ctx context.Context, chainId types.ChainId) (types.Address, error)
	CalculateGasInTokenForFulfill(ctx context.Context, chainId types.ChainId, params types.FulfillParams) (types.Amount, error)
}

// EVMGate is the concrete Gate implementation: one chainprovider.Provider
// per configured chain, a bundled registry for transaction-manager address
// resolution, and an idempotency ledger guarding ApproveIfNeeded against
// duplicate submissions (adapted from src/chainadapter/storage).
type EVMGate struct {
	providers map[types.ChainId]chainprovider.Provider
	registry  *registry.Registry
	overrides map[types.ChainId]types.Address // per-chain tx-manager overrides
	ledger    *ApprovalLedger
	recorder  MetricsRecorder
}

// MetricsRecorder is the narrow slice of telemetry.Recorder ChainGate needs,
// kept as an interface here so chaingate has no import-time dependency on
// the concrete Prometheus wiring (mirrors the teacher's ChainMetrics
// interface shape in src/chainadapter/metrics/metrics.go).
type MetricsRecorder interface {
	RecordRPCCall(method string, chainId types.ChainId, success bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordRPCCall(string, types.ChainId, bool) {}

// NewEVMGate builds a Gate over providers, one per configured chain.
func NewEVMGate(providers map[types.ChainId]chainprovider.Provider, reg *registry.Registry, overrides map[types.ChainId]types.Address) *EVMGate {
	if overrides == nil {
		overrides = map[types.ChainId]types.Address{}
	}
	return &EVMGate{
		providers: providers,
		registry:  reg,
		overrides: overrides,
		ledger:    NewApprovalLedger(),
		recorder:  noopRecorder{},
	}
}

// WithRecorder swaps in a telemetry recorder; returns the same *EVMGate for
// chaining at construction time.
func (g *EVMGate) WithRecorder(r MetricsRecorder) *EVMGate {
	g.recorder = r
	return g
}

func (g *EVMGate) provider(chainId types.ChainId) (chainprovider.Provider, error) {
	p, ok := g.providers[chainId]
	if !ok {
		return nil, types.New(types.KindChainNotConfigured, types.NonRetryable, "chain not configured").
			WithContext("chainId", chainId)
	}
	return p, nil
}

func (g *EVMGate) IsContract(ctx context.Context, chainId types.ChainId, address types.Address) (bool, error) {
	p, err := g.provider(chainId)
	if err != nil {
		return false, err
	}
	isContract, err := chainprovider.IsContract(ctx, p, address)
	g.recorder.RecordRPCCall("eth_getCode", chainId, err == nil)
	if err != nil {
		return false, err
	}
	return isContract, nil
}

// RouterLiquidity calls the transaction manager's `routerBalances(router,
// asset)` view function and decodes the returned uint256. The selector is
// the keccak256 prefix of the fixed signature in abi.go; chainprovider only
// forwards the encoded calldata and supplies no ABI of its own.
func (g *EVMGate) RouterLiquidity(ctx context.Context, chainId types.ChainId, router, asset types.Address) (types.Amount, error) {
	p, err := g.provider(chainId)
	if err != nil {
		return types.Amount{}, err
	}
	txMgr, err := g.TxManagerAddress(ctx, chainId)
	if err != nil {
		return types.Amount{}, err
	}
	data := encodeRouterBalancesCall(router, asset)
	result, err := p.Call(ctx, txMgr, data)
	g.recorder.RecordRPCCall("eth_call:routerBalances", chainId, err == nil)
	if err != nil {
		return types.Amount{}, types.Wrap(types.KindRpcError, types.Retryable, "routerLiquidity call failed", err)
	}
	return types.NewAmount(new(big.Int).SetBytes(result)), nil
}

// ApproveIfNeeded returns an unsigned approve() TxRequest, or nil if the
// current allowance already covers amount, or asset is the native coin
// (zero address), per spec.md §4.3. Once a call for the exact
// (chainId, asset, amount) tuple has returned a request or found the
// allowance sufficient, further calls with that tuple return nil without an
// RPC call, preventing double-submission of the same approval (grounded in
// storage.TransactionStateStore idempotency). EVMGate offers no way to
// clear that record.
func (g *EVMGate) ApproveIfNeeded(ctx context.Context, chainId types.ChainId, asset types.Address, amount types.Amount, infinite bool) (*types.TxRequest, error) {
	if asset == (types.Address{}) {
		return nil, nil
	}
	key := approvalKey(chainId, asset)
	if g.ledger.Has(key, amount) {
		return nil, nil
	}

	p, err := g.provider(chainId)
	if err != nil {
		return nil, err
	}
	txMgr, err := g.TxManagerAddress(ctx, chainId)
	if err != nil {
		return nil, err
	}

	allowanceData := encodeAllowanceCall(asset, txMgr)
	result, err := p.Call(ctx, asset, allowanceData)
	g.recorder.RecordRPCCall("eth_call:allowance", chainId, err == nil)
	if err != nil {
		return nil, types.Wrap(types.KindRpcError, types.Retryable, "allowance check failed", err)
	}
	current := new(big.Int).SetBytes(result)
	if current.Cmp(amount.Int()) >= 0 {
		g.ledger.Record(key, amount)
		return nil, nil
	}

	approveAmount := amount.Int()
	if infinite {
		approveAmount = maxUint256()
	}
	g.ledger.Record(key, amount)
	return &types.TxRequest{
		ChainId: chainId,
		To:      asset,
		Data:    encodeApproveCall(txMgr, approveAmount),
		Value:   types.ZeroAmount(),
	}, nil
}

func (g *EVMGate) PreparePrepareRequest(ctx context.Context, chainId types.ChainId, params types.PrepareParams) (types.TxRequest, error) {
	if _, err := g.provider(chainId); err != nil {
		return types.TxRequest{}, err
	}
	txMgr, err := g.TxManagerAddress(ctx, chainId)
	if err != nil {
		return types.TxRequest{}, err
	}
	value := types.ZeroAmount()
	if params.TxData.SendingAssetId == (types.Address{}) {
		value = params.Amount
	}
	return types.TxRequest{
		ChainId: chainId,
		To:      txMgr,
		Data:    encodePrepareCall(params),
		Value:   value,
	}, nil
}

func (g *EVMGate) PrepareFulfillRequest(ctx context.Context, chainId types.ChainId, params types.FulfillParams) (types.TxRequest, error) {
	if _, err := g.provider(chainId); err != nil {
		return types.TxRequest{}, err
	}
	txMgr, err := g.TxManagerAddress(ctx, chainId)
	if err != nil {
		return types.TxRequest{}, err
	}
	return types.TxRequest{
		ChainId: chainId,
		To:      txMgr,
		Data:    encodeFulfillCall(params),
		Value:   types.ZeroAmount(),
	}, nil
}

func (g *EVMGate) PrepareCancelRequest(ctx context.Context, chainId types.ChainId, params types.CancelParams) (types.TxRequest, error) {
	if _, err := g.provider(chainId); err != nil {
		return types.TxRequest{}, err
	}
	txMgr, err := g.TxManagerAddress(ctx, chainId)
	if err != nil {
		return types.TxRequest{}, err
	}
	return types.TxRequest{
		ChainId: chainId,
		To:      txMgr,
		Data:    encodeCancelCall(params),
		Value:   types.ZeroAmount(),
	}, nil
}

func (g *EVMGate) TxManagerAddress(ctx context.Context, chainId types.ChainId) (types.Address, error) {
	if _, err := g.provider(chainId); err != nil {
		return types.Address{}, err
	}
	return registry.ResolveTransactionManager(g.registry, chainId, g.overrides[chainId])
}

// CalculateGasInTokenForFulfill prices the fulfill call as the chain's
// suggested gas price times a fixed 250,000 gas units, in the chain's native
// units; no conversion into the receiving asset is applied. A provider
// failure surfaces as RpcError and a zero price as InvalidParamStructure.
func (g *EVMGate) CalculateGasInTokenForFulfill(ctx context.Context, chainId types.ChainId, params types.FulfillParams) (types.Amount, error) {
	p, err := g.provider(chainId)
	if err != nil {
		return types.Amount{}, err
	}
	gasPrice, err := p.SuggestGasPrice(ctx)
	g.recorder.RecordRPCCall("eth_gasPrice", chainId, err == nil)
	if err != nil {
		return types.Amount{}, types.Wrap(types.KindRpcError, types.Retryable, "gas price lookup failed", err)
	}
	if gasPrice.Sign() <= 0 {
		return types.Amount{}, types.New(types.KindInvalidParamStructure, types.NonRetryable, "gas price unavailable")
	}
	const fulfillGasUnits = 250_000
	return types.NewAmount(new(big.Int).Mul(gasPrice, big.NewInt(fulfillGasUnits))), nil
}

func maxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}
