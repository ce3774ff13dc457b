package zkp2p

import (
	"github.com/samba-xyz/samba-relay/pkg/models"
)

// QuoteRequest describes the quote lookup sent to the quote service.
type QuoteRequest struct {
	PaymentPlatforms   []string `json:"paymentPlatforms"`
	FiatCurrency       string   `json:"fiatCurrency"`
	User               string   `json:"user"`
	Recipient          string   `json:"recipient"`
	DestinationChainID int64    `json:"destinationChainId"`
	DestinationToken   string   `json:"destinationToken"`
	ExactFiatAmount    string   `json:"exactFiatAmount"`
}

// quoteEnvelope is the wire shape of the quote service response.
type quoteEnvelope struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseObject struct {
		Quotes []models.Quote `json:"quotes"`
	} `json:"responseObject"`
}

// payeeDetailsEnvelope is the wire shape of the maker details response.
type payeeDetailsEnvelope struct {
	Success        bool                `json:"success"`
	Message        string              `json:"message"`
	ResponseObject models.PayeeDetails `json:"responseObject"`
}

// PayeeValidationRequest describes the payee hashing request. Exactly one of
// the username fields is set, matching the platform.
type PayeeValidationRequest struct {
	DepositData   DepositData `json:"depositData"`
	ProcessorName string      `json:"processorName"`
}

type DepositData struct {
	VenmoUsername   string `json:"venmoUsername,omitempty"`
	RevolutUsername string `json:"revolutUsername,omitempty"`
}

// NewPayeeValidationRequest builds the validation payload for a platform username.
func NewPayeeValidationRequest(username string, platform models.Platform) PayeeValidationRequest {
	req := PayeeValidationRequest{ProcessorName: string(platform)}
	switch platform {
	case models.PlatformVenmo:
		req.DepositData.VenmoUsername = username
	case models.PlatformRevolut:
		req.DepositData.RevolutUsername = username
	}
	return req
}

// validationEnvelope is the wire shape of the maker creation response.
type validationEnvelope struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseObject struct {
		ID              int    `json:"id"`
		ProcessorName   string `json:"processorName"`
		HashedOnchainID string `json:"hashedOnchainId"`
	} `json:"responseObject"`
}

// IntentSignalRequest is the admission-control payload sent to the gating service.
type IntentSignalRequest struct {
	ProcessorName    string `json:"processorName"`
	DepositID        string `json:"depositId"`
	TokenAmount      string `json:"tokenAmount"`
	PayeeDetails     string `json:"payeeDetails"`
	ToAddress        string `json:"toAddress"`
	FiatCurrencyCode string `json:"fiatCurrencyCode"`
	ChainID          string `json:"chainId"`
}

// IntentData is the signed intent envelope the gating service returns.
type IntentData struct {
	DepositID              string `json:"depositId"`
	TokenAmount            string `json:"tokenAmount"`
	RecipientAddress       string `json:"recipientAddress"`
	VerifierAddress        string `json:"verifierAddress"`
	CurrencyCodeHash       string `json:"currencyCodeHash"`
	GatingServiceSignature string `json:"gatingServiceSignature"`
}

// gatingEnvelope is the wire shape of the gating service response.
type gatingEnvelope struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseObject struct {
		IntentData IntentData `json:"intentData"`
	} `json:"responseObject"`
}
