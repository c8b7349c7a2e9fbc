package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kycdao/kycdao-go/types"
)

// DefaultDecimalDigits is the number of significant fractional digits kept
// by DecimalText when callers have no stronger requirement.
const DefaultDecimalDigits = 3

// DecimalText converts an amount in on-chain base units (e.g. wei) into a
// human readable decimal string for a given divisor.
//
// The fractional part keeps at most digitsAfterLeadingZeros significant
// characters after the leading zeros implied by the divisor's magnitude.
// Truncation never rounds, it only drops precision. Trailing zeros are
// stripped from the assembled fraction, so an exact multiple of the divisor
// renders with a bare trailing separator ("5,"). The separator is a literal
// comma for compatibility with the display strings already in production.
func DecimalText(value *big.Int, divisor *big.Int, digitsAfterLeadingZeros uint) string {
	remainder := new(big.Int)
	whole, _ := new(big.Int).QuoRem(value, divisor, remainder)

	leadingZeros := len(divisor.String()) - len(remainder.String()) - 1
	if leadingZeros < 0 {
		leadingZeros = 0
	}

	fraction := remainder.String()
	if uint(len(fraction)) > digitsAfterLeadingZeros {
		fraction = fraction[:digitsAfterLeadingZeros]
	}
	fraction = strings.Repeat("0", leadingZeros) + fraction
	fraction = strings.TrimRight(fraction, "0")

	return whole.String() + "," + fraction
}

// NativeDecimalText renders an amount of a network's native currency using
// the currency's configured decimals.
func NativeDecimalText(value *big.Int, currency types.NativeCurrency) string {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(currency.Decimals)), nil)
	return DecimalText(value, divisor, DefaultDecimalDigits)
}

// NativeDecimal converts base units into a full-precision decimal amount of
// the currency, for callers that compute with amounts instead of displaying
// them.
func NativeDecimal(value *big.Int, currency types.NativeCurrency) decimal.Decimal {
	return decimal.NewFromBigInt(value, -int32(currency.Decimals))
}
