package bidcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

var newSHA256 = sha256.New

// nonceLen matches the teacher's internal/services/crypto/encryption.go
// (AESNonceLen = 12, a 96-bit GCM nonce).
const nonceLen = 12

// SealCallData encrypts callData to recipientPub (an uncompressed secp256k1
// public key) so that only the holder of the matching private key can read
// it. This answers spec.md §4.6 step 4 ("encrypt callData") and §4.2's
// open question on the encryption scheme: ephemeral-key ECDH + HKDF-SHA256
// + AES-256-GCM, the same "derive key, then AES-256-GCM seal" shape the
// teacher already uses for mnemonic-at-rest encryption, with the key
// derived from a Diffie-Hellman shared point instead of a password.
//
// Wire format: ephemeralPubKey(65) || nonce(12) || ciphertext+tag.
func SealCallData(recipientPub *ecdsa.PublicKey, callData []byte) ([]byte, error) {
	ephemeral, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}

	sharedX, _ := crypto.S256().ScalarMult(recipientPub.X, recipientPub.Y, ephemeral.D.Bytes())
	key, err := deriveKey(sharedX.Bytes())
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, callData, nil)
	ephemeralBytes := crypto.FromECDSAPub(&ephemeral.PublicKey)

	out := make([]byte, 0, len(ephemeralBytes)+len(nonce)+len(ciphertext))
	out = append(out, ephemeralBytes...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// OpenCallData reverses SealCallData given the recipient's private key.
func OpenCallData(recipientPriv *ecdsa.PrivateKey, sealed []byte) ([]byte, error) {
	const pubLen = 65
	if len(sealed) < pubLen+nonceLen {
		return nil, fmt.Errorf("sealed payload too short")
	}
	ephemeralPub, err := crypto.UnmarshalPubkey(sealed[:pubLen])
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral public key: %w", err)
	}
	nonce := sealed[pubLen : pubLen+nonceLen]
	ciphertext := sealed[pubLen+nonceLen:]

	sharedX, _ := crypto.S256().ScalarMult(ephemeralPub.X, ephemeralPub.Y, recipientPriv.D.Bytes())
	key, err := deriveKey(sharedX.Bytes())
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// deriveKey stretches a raw ECDH shared-secret x-coordinate into a 32-byte
// AES-256 key via HKDF-SHA256.
func deriveKey(sharedSecret []byte) ([]byte, error) {
	h := hkdf.New(newSHA256, sharedSecret, nil, []byte("nxtp-sdk call-data seal v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
