package bidcrypto

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/blockcoders/nxtp-sdk/internal/types"
)

// ParseSlippageTolerance turns the spec's "decimal string in percent with
// two fractional digits" (spec.md §6, e.g. "0.10", "1.00") into the exact
// num/den pair types.Amount.MulPercentFloor expects for
// floor(amtMinusGas * (1 - tolerance/100)). big.Int.SetString cannot parse
// a string containing a decimal point, so the percent is scaled into
// hundredths first and everything stays integer arithmetic — no float
// rounding ever touches an on-chain amount.
func ParseSlippageTolerance(tolerance string) (num, den *big.Int, err error) {
	intPart, fracPart, ok := strings.Cut(tolerance, ".")
	whole, convErr := strconv.ParseInt(intPart, 10, 64)
	if convErr != nil {
		return nil, nil, types.New(types.KindInvalidSlippage, types.NonRetryable,
			"slippageTolerance is not numeric").WithContext("value", tolerance)
	}
	hundredths := whole * 100
	if ok {
		switch len(fracPart) {
		case 0:
			// "1." - no fractional digits, nothing to add.
		case 1:
			frac, convErr := strconv.ParseInt(fracPart, 10, 64)
			if convErr != nil {
				return nil, nil, types.New(types.KindInvalidSlippage, types.NonRetryable,
					"slippageTolerance is not numeric").WithContext("value", tolerance)
			}
			hundredths += frac * 10
		default:
			// Only the spec's two fractional digits are significant;
			// spec.md §6: "always take the integer portion."
			frac, convErr := strconv.ParseInt(fracPart[:2], 10, 64)
			if convErr != nil {
				return nil, nil, types.New(types.KindInvalidSlippage, types.NonRetryable,
					"slippageTolerance is not numeric").WithContext("value", tolerance)
			}
			hundredths += frac
		}
	}

	den = big.NewInt(10000)
	num = new(big.Int).Sub(den, big.NewInt(hundredths))
	return num, den, nil
}
