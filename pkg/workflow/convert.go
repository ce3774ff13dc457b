package workflow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

// rateScale is the fixed-point scale of liquidity-provider conversion rates.
var rateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CalculateConvertedAmount converts a fiat amount string into the token amount
// to lock, using the quote's conversion rate. The result is
// floor(amount * 10^6 * 10^18 / rate), kept in integer math throughout so two
// calls with the same inputs always agree to the smallest token unit.
func CalculateConvertedAmount(amount, conversionRate string) (*big.Int, error) {
	fiat, err := models.ParseUnits(amount, models.TokenDecimals)
	if err != nil {
		return nil, err
	}
	rate, ok := new(big.Int).SetString(conversionRate, 10)
	if !ok || rate.Sign() <= 0 {
		return nil, fmt.Errorf("invalid conversion rate: %s", conversionRate)
	}

	scaled := new(big.Int).Mul(fiat, rateScale)
	return scaled.Div(scaled, rate), nil
}

// CurrencyHash returns the keccak256 hash of the currency code, the on-chain
// identifier the escrow and gating service both expect.
func CurrencyHash(currency models.Currency) common.Hash {
	return crypto.Keccak256Hash([]byte(currency))
}
