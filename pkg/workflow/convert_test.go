package workflow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

func TestCalculateConvertedAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{name: "par rate", amount: "3.00", rate: "1000000000000000000", want: "3000000"},
		{name: "premium rate floors down", amount: "1.00", rate: "1030000000000000000", want: "970873"},
		{name: "discount rate", amount: "1.00", rate: "990000000000000000", want: "1010101"},
		{name: "minimum amount", amount: "0.10", rate: "1000000000000000000", want: "100000"},
		{name: "maximum amount", amount: "10000.00", rate: "1000000000000000000", want: "10000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateConvertedAmount(tt.amount, tt.rate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCalculateConvertedAmountDeterministic(t *testing.T) {
	first, err := CalculateConvertedAmount("250.75", "1013370000000000000")
	require.NoError(t, err)
	second, err := CalculateConvertedAmount("250.75", "1013370000000000000")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cmp(second))
}

func TestCalculateConvertedAmountMonotonic(t *testing.T) {
	// A higher rate can never produce a larger token amount.
	low, err := CalculateConvertedAmount("100.00", "990000000000000000")
	require.NoError(t, err)
	high, err := CalculateConvertedAmount("100.00", "1050000000000000000")
	require.NoError(t, err)
	assert.True(t, high.Cmp(low) < 0)
}

func TestCalculateConvertedAmountRejectsBadInput(t *testing.T) {
	_, err := CalculateConvertedAmount("abc", "1000000000000000000")
	assert.Error(t, err)

	_, err = CalculateConvertedAmount("1.00", "0")
	assert.Error(t, err)

	_, err = CalculateConvertedAmount("1.00", "-5")
	assert.Error(t, err)

	_, err = CalculateConvertedAmount("1.00", "1.05")
	assert.Error(t, err)
}

func TestCurrencyHash(t *testing.T) {
	// keccak256("USD"), fixed on-chain identifier.
	assert.Equal(t,
		"0xc4ae21aac0c6549d71dd96035b7e0bdb6c79ebdba8891b666115bc976d16a29e",
		CurrencyHash(models.CurrencyUSD).Hex())

	assert.NotEqual(t, CurrencyHash(models.CurrencyEUR), CurrencyHash(models.CurrencyGBP))
}

func TestRateScale(t *testing.T) {
	expected, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, 0, rateScale.Cmp(expected))
}
