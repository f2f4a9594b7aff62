package chaingate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// selector returns the 4-byte function selector for a Solidity-style
// signature, the same keccak256-prefix scheme go-ethereum's bound
// contracts use (abigen-generated code computes these at build time; here
// they're computed once at package init since the bundled TransactionManager
// ABI is fixed).
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func mustArgs(typeNames ...string) abi.Arguments {
	args := make(abi.Arguments, len(typeNames))
	for i, tn := range typeNames {
		t, err := abi.NewType(tn, "", nil)
		if err != nil {
			panic(err)
		}
		args[i] = abi.Argument{Type: t}
	}
	return args
}

var (
	selRouterBalances = selector("routerBalances(address,address)")
	selAllowance      = selector("allowance(address,address)")
	selApprove        = selector("approve(address,uint256)")
	selPrepare        = selector("prepare((address,address,address,address,address,address,address,address,uint256,uint256,bytes32,uint256),uint256,uint256,bytes,bytes,bytes)")
	selFulfill        = selector("fulfill((address,address,address,address,address,address,address,address,uint256,uint256,bytes32,uint256),uint256,uint256,bytes,bytes)")
	selCancel         = selector("cancel((address,address,address,address,address,address,address,address,uint256,uint256,bytes32,uint256),uint256,bytes)")

	argsRouterBalances = mustArgs("address", "address")
	argsAllowance      = mustArgs("address", "address")
	argsApprove        = mustArgs("address", "uint256")
)

func encodeRouterBalancesCall(router, asset types.Address) []byte {
	packed, _ := argsRouterBalances.Pack(router, asset)
	return append(append([]byte{}, selRouterBalances...), packed...)
}

func encodeAllowanceCall(asset, spender types.Address) []byte {
	packed, _ := argsAllowance.Pack(asset, spender)
	return append(append([]byte{}, selAllowance...), packed...)
}

func encodeApproveCall(spender types.Address, amount *big.Int) []byte {
	packed, _ := argsApprove.Pack(spender, amount)
	return append(append([]byte{}, selApprove...), packed...)
}

// txDataArgs packs an InvariantTransactionData tuple in field order, used by
// prepare/fulfill/cancel. Flattened rather than nested so Pack doesn't need
// a matching Go struct tag scheme.
var txDataArgs = mustArgs(
	"address", "address", "address", "address", "address",
	"address", "address", "address", "uint256", "uint256",
	"bytes32", "uint256",
)

func packTxData(d types.InvariantTransactionData) ([]byte, error) {
	return txDataArgs.Pack(
		d.ReceivingChainTxManagerAddress,
		d.User,
		d.Router,
		d.Initiator,
		d.SendingAssetId,
		d.ReceivingAssetId,
		d.SendingChainFallback,
		d.CallTo,
		new(big.Int).SetUint64(uint64(d.SendingChainId)),
		new(big.Int).SetUint64(uint64(d.ReceivingChainId)),
		[32]byte(d.CallDataHash),
		new(big.Int).SetBytes(d.TransactionId[:]),
	)
}

func encodePrepareCall(p types.PrepareParams) []byte {
	txData, _ := packTxData(p.TxData)
	rest, _ := mustArgs("uint256", "uint256", "bytes", "bytes", "bytes").Pack(
		p.Amount.Int(),
		big.NewInt(p.Expiry.Unix()),
		p.EncryptedCallData,
		p.BidSignature[:],
		p.EncodedBid,
	)
	out := make([]byte, 0, 4+len(txData)+len(rest))
	out = append(out, selPrepare...)
	out = append(out, txData...)
	out = append(out, rest...)
	return out
}

func encodeFulfillCall(p types.FulfillParams) []byte {
	txData, _ := packTxData(p.TxData)
	rest, _ := mustArgs("uint256", "uint256", "bytes", "bytes").Pack(
		p.Amount.Int(),
		p.RelayerFee.Int(),
		p.Signature[:],
		p.CallData,
	)
	out := make([]byte, 0, 4+len(txData)+len(rest))
	out = append(out, selFulfill...)
	out = append(out, txData...)
	out = append(out, rest...)
	return out
}

func encodeCancelCall(p types.CancelParams) []byte {
	txData, _ := packTxData(p.TxData)
	rest, _ := mustArgs("uint256", "bytes").Pack(
		p.RelayerFee.Int(),
		p.Signature[:],
	)
	out := make([]byte, 0, 4+len(txData)+len(rest))
	out = append(out, selCancel...)
	out = append(out, txData...)
	out = append(out, rest...)
	return out
}
