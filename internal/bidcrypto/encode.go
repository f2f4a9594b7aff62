// Package bidcrypto implements BidCrypto (spec.md C2): canonical bid
// encoding for signature recovery, and the fulfill hash-to-sign. It follows
// the same primitives the teacher's ethereum adapter already uses for
// address derivation (github.com/ethereum/go-ethereum/crypto), generalized
// from "derive my own address" to "recover someone else's signer."
package bidcrypto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// bidArguments is the fixed field order from spec.md §6: "Concatenate in
// this exact order, each field ABI-encoded."
var bidArguments = mustArguments(
	"address", // user
	"address", // router
	"address", // initiator
	"uint256", // sendingChainId
	"address", // sendingAssetId
	"uint256", // amount
	"uint256", // receivingChainId
	"address", // receivingAssetId
	"uint256", // amountReceived
	"address", // receivingAddress
	"bytes32", // transactionId
	"uint256", // expiry
	"bytes32", // callDataHash
	"address", // callTo
	"bytes",   // encryptedCallData
	"uint256", // bidExpiry
)

func mustArguments(typeNames ...string) abi.Arguments {
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

// EncodeBid produces the canonical byte encoding of a bid used both to sign
// and to recover its signer.
func EncodeBid(b types.AuctionBid) ([]byte, error) {
	return bidArguments.Pack(
		b.User,
		b.Router,
		b.Initiator,
		new(big.Int).SetUint64(uint64(b.SendingChainId)),
		b.SendingAssetId,
		b.Amount.Int(),
		new(big.Int).SetUint64(uint64(b.ReceivingChainId)),
		b.ReceivingAssetId,
		b.AmountReceived.Int(),
		b.ReceivingAddress,
		[32]byte(b.TransactionId),
		big.NewInt(b.Expiry.Unix()),
		[32]byte(b.CallDataHash),
		b.CallTo,
		b.EncryptedCallData,
		big.NewInt(b.BidExpiry.Unix()),
	)
}

// BidDigest returns keccak256 of the canonical bid encoding — the message
// routers sign and the SDK verifies against.
func BidDigest(b types.AuctionBid) ([]byte, error) {
	enc, err := EncodeBid(b)
	if err != nil {
		return nil, err
	}
	digest := crypto.Keccak256(enc)
	return digest, nil
}

// RecoverBidSigner recovers the address that produced sig over b's canonical
// encoding. A mismatch against bid.Router is not itself an error here — the
// caller (AuctionClient) treats it as bid rejection, per spec.md §4.2.
func RecoverBidSigner(b types.AuctionBid, sig types.Signature) (types.Address, error) {
	digest, err := BidDigest(b)
	if err != nil {
		return types.Address{}, err
	}
	pub, err := crypto.SigToPub(digest, sig[:])
	if err != nil {
		return types.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// FulfillHashToSign computes keccak256(abi.encode(transactionId, relayerFee,
// receivingChainId, txManagerAddress)) per spec.md §6.
func FulfillHashToSign(transactionId types.TransactionId, relayerFee types.Amount, receivingChainId types.ChainId, txManagerAddress types.Address) ([]byte, error) {
	args := mustArguments("bytes32", "uint256", "uint256", "address")
	enc, err := args.Pack(
		[32]byte(transactionId),
		relayerFee.Int(),
		new(big.Int).SetUint64(uint64(receivingChainId)),
		txManagerAddress,
	)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(enc), nil
}

// CallDataHash computes keccak256(callData), the invariant the
// InvariantTransactionData.CallDataHash field must satisfy (spec.md §3, §8
// invariant 4).
func CallDataHash(callData []byte) types.Bytes32 {
	return common.BytesToHash(crypto.Keccak256(callData))
}
