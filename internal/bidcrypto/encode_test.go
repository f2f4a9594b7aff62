package bidcrypto

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

func sampleBid(t *testing.T, router types.Address) types.AuctionBid {
	t.Helper()
	return types.AuctionBid{
		User:             types.Address{0x01},
		Router:           router,
		Initiator:        types.Address{0x01},
		SendingChainId:   1,
		SendingAssetId:   types.Address{0x02},
		Amount:           types.NewAmount(big.NewInt(1_000_000)),
		ReceivingChainId: 137,
		ReceivingAssetId: types.Address{0x03},
		AmountReceived:   types.NewAmount(big.NewInt(990_000)),
		ReceivingAddress: types.Address{0x04},
		TransactionId:    types.Bytes32{0xAA},
		Expiry:           time.Unix(2_000_000_000, 0),
		CallDataHash:     types.Bytes32{},
		CallTo:           types.Address{},
		EncryptedCallData: nil,
		BidExpiry:        time.Unix(2_000_000_100, 0),
	}
}

// TestRecoverBidSigner_Roundtrip is invariant 1 from spec.md §8: for a
// validly signed bid, recovering the signer yields the router address.
func TestRecoverBidSigner_Roundtrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	router := crypto.PubkeyToAddress(priv.PublicKey)

	bid := sampleBid(t, router)
	digest, err := BidDigest(bid)
	require.NoError(t, err)

	sigBytes, err := crypto.Sign(digest, priv)
	require.NoError(t, err)
	var sig types.Signature
	copy(sig[:], sigBytes)

	recovered, err := RecoverBidSigner(bid, sig)
	require.NoError(t, err)
	require.Equal(t, router, recovered)
}

// TestRecoverBidSigner_WrongSigner shows S3: a signature from a different
// key recovers to an address that does not match bid.Router.
func TestRecoverBidSigner_WrongSigner(t *testing.T) {
	signerPriv, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherPriv, err := crypto.GenerateKey()
	require.NoError(t, err)

	claimedRouter := crypto.PubkeyToAddress(otherPriv.PublicKey)
	bid := sampleBid(t, claimedRouter)

	digest, err := BidDigest(bid)
	require.NoError(t, err)
	sigBytes, err := crypto.Sign(digest, signerPriv)
	require.NoError(t, err)
	var sig types.Signature
	copy(sig[:], sigBytes)

	recovered, err := RecoverBidSigner(bid, sig)
	require.NoError(t, err)
	require.NotEqual(t, claimedRouter, recovered)
}

// TestEncodeBid_Deterministic is invariant 2's precondition: the same bid
// always encodes to the same bytes.
func TestEncodeBid_Deterministic(t *testing.T) {
	bid := sampleBid(t, types.Address{0x09})
	a, err := EncodeBid(bid)
	require.NoError(t, err)
	b, err := EncodeBid(bid)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCallDataHash(t *testing.T) {
	data := []byte("hello transfer")
	h := CallDataHash(data)
	require.Equal(t, h, CallDataHash(data))
	require.NotEqual(t, h, CallDataHash([]byte("different")))
}

func TestSealCallData_Roundtrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	plaintext := []byte(`{"to":"0xabc","data":"0x1234"}`)
	sealed, err := SealCallData(&priv.PublicKey, plaintext)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "abc")

	opened, err := OpenCallData(priv, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealCallData_WrongKeyFails(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	wrongPriv, err := crypto.GenerateKey()
	require.NoError(t, err)

	sealed, err := SealCallData(&priv.PublicKey, []byte("secret"))
	require.NoError(t, err)

	_, err = OpenCallData(wrongPriv, sealed)
	require.Error(t, err)
}

func TestFulfillHashToSign_Deterministic(t *testing.T) {
	txId := types.Bytes32{0x01}
	fee := types.NewAmount(big.NewInt(100))
	txMgr := types.Address{0x02}

	a, err := FulfillHashToSign(txId, fee, 137, txMgr)
	require.NoError(t, err)
	b, err := FulfillHashToSign(txId, fee, 137, txMgr)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := FulfillHashToSign(txId, fee, 138, txMgr)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

