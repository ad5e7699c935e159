package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal converts a raw on-chain integer into a decimal using the token's precision.
// Example: amount=1234500000000000000, decimals=18 => 1.2345
func ToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ToFloat is ToDecimal narrowed to float64 for valuation math.
func ToFloat(amount *big.Int, decimals uint8) float64 {
	return ToDecimal(amount, decimals).InexactFloat64()
}

// FormatBigInt converts a big.Int value to a human-readable string without trailing zeros.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	return ToDecimal(amount, decimals).String()
}

// ScaleFixedPoint divides a fixed-point integer by 10^decimals, e.g. Aave's 1e18 health factor.
func ScaleFixedPoint(value *big.Int, decimals uint8) float64 {
	return ToFloat(value, decimals)
}
