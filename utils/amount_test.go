package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kycdao/kycdao-go/types"
)

func TestDecimalText(t *testing.T) {
	t.Run("whole and fraction", func(t *testing.T) {
		got := DecimalText(big.NewInt(1234567), big.NewInt(1000), 3)
		assert.Equal(t, "1234,567", got)
	})

	t.Run("fraction needs leading zeros", func(t *testing.T) {
		got := DecimalText(big.NewInt(1007), big.NewInt(1000), 3)
		assert.Equal(t, "1,007", got)
	})

	t.Run("truncates instead of rounding", func(t *testing.T) {
		// 1.56789 keeps three significant characters, no rounding up
		got := DecimalText(big.NewInt(156789), big.NewInt(100000), 3)
		assert.Equal(t, "1,567", got)
	})

	t.Run("strips trailing zeros from the fraction", func(t *testing.T) {
		got := DecimalText(big.NewInt(1560), big.NewInt(1000), 3)
		assert.Equal(t, "1,56", got)
	})

	t.Run("leading zeros survive trailing-zero stripping", func(t *testing.T) {
		// 700/10000 = 0.07
		got := DecimalText(big.NewInt(700), big.NewInt(10000), 3)
		assert.Equal(t, "0,07", got)
	})

	t.Run("exact multiple keeps the bare separator", func(t *testing.T) {
		got := DecimalText(big.NewInt(5000), big.NewInt(1000), 3)
		assert.Equal(t, "5,", got)
	})

	t.Run("value smaller than divisor", func(t *testing.T) {
		got := DecimalText(big.NewInt(7), big.NewInt(1000), 3)
		assert.Equal(t, "0,007", got)
	})

	t.Run("zero value", func(t *testing.T) {
		got := DecimalText(big.NewInt(0), big.NewInt(1000), 3)
		assert.Equal(t, "0,", got)
	})

	t.Run("divmod reconstructs the value", func(t *testing.T) {
		value := big.NewInt(98765432109)
		divisor := big.NewInt(100000)

		remainder := new(big.Int)
		whole, _ := new(big.Int).QuoRem(value, divisor, remainder)

		reconstructed := new(big.Int).Add(new(big.Int).Mul(whole, divisor), remainder)
		assert.Zero(t, reconstructed.Cmp(value))
	})
}

func TestNativeDecimalText(t *testing.T) {
	currency := types.NativeCurrency{Name: "Matic", Symbol: "MATIC", Decimals: 18}

	// 1.5 MATIC in wei
	value, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1,5", NativeDecimalText(value, currency))

	// 2 MATIC exactly
	value, _ = new(big.Int).SetString("2000000000000000000", 10)
	assert.Equal(t, "2,", NativeDecimalText(value, currency))
}

func TestNativeDecimal(t *testing.T) {
	currency := types.NativeCurrency{Name: "Matic", Symbol: "MATIC", Decimals: 18}

	value, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.True(t, NativeDecimal(value, currency).Equal(decimal.RequireFromString("1.5")))

	// full precision is kept, unlike the display rendering
	value, _ = new(big.Int).SetString("1000000000000000001", 10)
	assert.Equal(t, "1.000000000000000001", NativeDecimal(value, currency).String())
}
