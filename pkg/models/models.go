package models

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Platform is a supported payment platform.
type Platform string

const (
	PlatformVenmo   Platform = "venmo"
	PlatformRevolut Platform = "revolut"
)

// Currency is a supported fiat currency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// platformCurrencies maps each platform to the currencies it can settle
var platformCurrencies = map[Platform][]Currency{
	PlatformVenmo:   {CurrencyUSD},
	PlatformRevolut: {CurrencyUSD, CurrencyEUR, CurrencyGBP},
}

// ParsePlatform validates and normalizes a platform name
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformVenmo, PlatformRevolut:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

// ParseCurrency validates and normalizes a currency code
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP:
		return c, nil
	}
	return "", fmt.Errorf("unsupported currency: %s", s)
}

// PlatformSupportsCurrency reports whether the platform can settle the currency
func PlatformSupportsCurrency(p Platform, c Currency) bool {
	for _, supported := range platformCurrencies[p] {
		if supported == c {
			return true
		}
	}
	return false
}

// TokenDecimals is the settlement token's precision (USDC, 6 decimals)
const TokenDecimals = 6

// ParseUnits converts a decimal string into an integer scaled by the given
// number of decimals. Excess fractional digits are rejected, not truncated.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole = amount[:i]
		frac = amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	result, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || result.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	return result, nil
}

// ValidateFiatAmount checks a user-facing fiat amount string against the
// configured business bounds. Bounds are inclusive.
func ValidateFiatAmount(amount string, min, max *big.Int) error {
	parsed, err := ParseUnits(amount, TokenDecimals)
	if err != nil {
		return err
	}
	if parsed.Cmp(min) < 0 {
		return fmt.Errorf("amount %s is below the minimum", amount)
	}
	if parsed.Cmp(max) > 0 {
		return fmt.Errorf("amount %s is above the maximum", amount)
	}
	return nil
}

// Quote is an ephemeral projection of one liquidity-provider deposit,
// selected once per intent and never mutated.
type Quote struct {
	DepositID      string `json:"depositId"`
	ConversionRate string `json:"conversionRate"`
	PayeeAddress   string `json:"payeeAddress"`
	PaymentMethod  string `json:"paymentMethod"`
	// PayeeDetails is the opaque handle the details endpoint resolves
	PayeeDetails string `json:"payeeDetails"`
	FiatAmount   string `json:"fiatAmount"`
	TokenAmount  string `json:"tokenAmount"`
}

// PayeeDetails is the resolved payee information for a selected quote.
type PayeeDetails struct {
	ID              int    `json:"id"`
	ProcessorName   string `json:"processorName"`
	HashedOnchainID string `json:"hashedOnchainId"`
	Username        string `json:"username,omitempty"`
}

// QuoteResult pairs a selected quote with its resolved payee details.
type QuoteResult struct {
	Intent  Quote        `json:"intent"`
	Details PayeeDetails `json:"details"`
}

// IntentMetadata carries the user-facing fields persisted alongside an intent.
type IntentMetadata struct {
	Recipient string   `json:"recipient"`
	Amount    string   `json:"amount"`
	Platform  Platform `json:"platform"`
}

// IntentRecord is the single pending-intent document kept per user.
type IntentRecord struct {
	Email      string    `json:"email" bson:"email"`
	IntentHash string    `json:"intentHash" bson:"intent_hash"`
	TxHash     string    `json:"txHash" bson:"tx_hash"`
	Recipient  string    `json:"recipient" bson:"recipient"`
	Amount     string    `json:"amount" bson:"amount"`
	Platform   Platform  `json:"platform" bson:"platform"`
	Currency   Currency  `json:"currency" bson:"currency"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

// UserRecord maps a user to their deployed escrow-wrapper contract.
type UserRecord struct {
	Email           string    `json:"email" bson:"email"`
	WrapperContract string    `json:"wrapperContract" bson:"wrapper_contract"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
}
