// Package validation implements ValidationKit (spec.md C1): pure predicates
// that every user-facing SDK call runs before touching the network. No
// method here performs I/O; callers never reach the chain without a schema
// match first, mirroring the single-validator chokepoint the teacher's
// FFI layer enforces at the process boundary (internal/lib/errors.go).
package validation

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// Bounds on the optional user-supplied expiry, per spec.md §4.1.
const (
	MinExpiryOffset = 2*24*time.Hour + time.Hour // 2d1h
	MaxExpiryOffset = 4 * 24 * time.Hour         // 4d
)

// Slippage tolerance bounds, a decimal percent string with two fractional digits.
const (
	MinSlippagePercent = 0.01
	MaxSlippagePercent = 15.00
)

// QuoteParams is the user-supplied input to TransferOrchestrator.getTransferQuote.
type QuoteParams struct {
	SendingChainId     types.ChainId
	ReceivingChainId   types.ChainId
	Amount             types.Amount
	ReceivingAddress   string
	SlippageTolerance  string
	Expiry             *time.Time
	CallData           string // hex, "0x" for none
	ConfiguredChains   map[types.ChainId]bool
	Now                time.Time
}

func fail(path, msg string) error {
	return (&types.InvalidParamStructure{Path: path, Msg: msg}).AsSdkError()
}

// ValidateQuoteParams checks the structural and numeric invariants named in
// spec.md §4.1 and returns the first violation found.
func ValidateQuoteParams(p QuoteParams) error {
	if p.SendingChainId == p.ReceivingChainId {
		return fail("sendingChainId", "sending and receiving chain must differ")
	}
	if p.ConfiguredChains != nil {
		if !p.ConfiguredChains[p.SendingChainId] {
			return types.New(types.KindChainNotConfigured, types.NonRetryable,
				"sending chain is not configured").WithContext("chainId", p.SendingChainId)
		}
		if !p.ConfiguredChains[p.ReceivingChainId] {
			return types.New(types.KindChainNotConfigured, types.NonRetryable,
				"receiving chain is not configured").WithContext("chainId", p.ReceivingChainId)
		}
	}
	if !p.Amount.IsPositive() {
		return fail("amount", "amount must be greater than zero")
	}
	if !common.IsHexAddress(p.ReceivingAddress) {
		return fail("receivingAddress", "not a valid address")
	}
	if err := validateSlippage(p.SlippageTolerance); err != nil {
		return err
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	if p.Expiry != nil {
		lower := now.Add(MinExpiryOffset)
		upper := now.Add(MaxExpiryOffset)
		if p.Expiry.Before(lower) || p.Expiry.After(upper) {
			return types.New(types.KindInvalidExpiry, types.NonRetryable,
				"expiry must be between 2d1h and 4d from now").WithContext("expiry", p.Expiry)
		}
	}
	if p.CallData != "" && p.CallData != "0x" {
		hx := strings.TrimPrefix(p.CallData, "0x")
		if len(hx)%2 != 0 {
			return fail("callData", "callData must be valid hex")
		}
		if _, err := hex.DecodeString(hx); err != nil {
			return fail("callData", "callData must be valid hex")
		}
	}
	return nil
}

// validateSlippage parses a two-fractional-digit percent string and checks
// it falls in [MinSlippagePercent, MaxSlippagePercent].
func validateSlippage(s string) error {
	if s == "" {
		return types.New(types.KindInvalidSlippage, types.NonRetryable, "slippageTolerance is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return types.New(types.KindInvalidSlippage, types.NonRetryable, "slippageTolerance is not numeric")
	}
	if v < MinSlippagePercent || v > MaxSlippagePercent {
		return types.New(types.KindInvalidSlippage, types.NonRetryable,
			"slippageTolerance must be within [0.01, 15.00]").WithContext("value", s)
	}
	return nil
}
