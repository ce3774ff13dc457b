package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samba-xyz/samba-relay/pkg/escrow"
	"github.com/samba-xyz/samba-relay/pkg/models"
	"github.com/samba-xyz/samba-relay/pkg/proofs"
	"github.com/samba-xyz/samba-relay/pkg/store"
	"github.com/samba-xyz/samba-relay/pkg/workflow"
	"github.com/samba-xyz/samba-relay/pkg/zkp2p"
)

type quoteRequestBody struct {
	Platform string `json:"platform"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	User     string `json:"user"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	platform, err := models.ParsePlatform(body.Platform)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := models.ParseCurrency(body.Currency)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := models.ValidateFiatAmount(body.Amount, s.cfg.MinFiatAmount, s.cfg.MaxFiatAmount); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.wf.GetQuote(r.Context(), platform, currency, body.Amount, body.User, userFrom(r).Email)
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type validatePayeeBody struct {
	DepositData   zkp2p.DepositData `json:"depositData"`
	ProcessorName string            `json:"processorName"`
}

// payeeUsername picks the username field matching the processor.
func (b validatePayeeBody) payeeUsername(platform models.Platform) string {
	switch platform {
	case models.PlatformVenmo:
		return b.DepositData.VenmoUsername
	case models.PlatformRevolut:
		return b.DepositData.RevolutUsername
	default:
		return ""
	}
}

func (s *Server) handleValidatePayee(w http.ResponseWriter, r *http.Request) {
	var body validatePayeeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	platform, err := models.ParsePlatform(body.ProcessorName)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	username := body.payeeUsername(platform)
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "depositData username is required")
		return
	}

	hashed, err := s.wf.ValidatePayee(r.Context(), username, platform)
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"hashedOnchainId": hashed})
}

func (s *Server) handleIntentGating(w http.ResponseWriter, r *http.Request) {
	var body zkp2p.IntentSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if body.DepositID == "" || body.TokenAmount == "" || body.ToAddress == "" {
		respondWithError(w, http.StatusBadRequest, "depositId, tokenAmount and toAddress are required")
		return
	}

	data, err := s.wf.GatingIntent(r.Context(), body)
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"responseObject": map[string]interface{}{"intentData": data},
	})
}

type signalMetadata struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Platform  string `json:"platform"`
}

type signalRequestBody struct {
	Quote    models.Quote        `json:"quote"`
	Details  models.PayeeDetails `json:"details"`
	Amount   string              `json:"amount"`
	Verifier string              `json:"verifier"`
	Currency string              `json:"currency"`
	Metadata signalMetadata      `json:"metadata"`
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var body signalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if body.Metadata.Recipient == "" {
		respondWithError(w, http.StatusBadRequest, "metadata recipient is required")
		return
	}
	platform, err := models.ParsePlatform(body.Metadata.Platform)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := models.ParseCurrency(body.Currency)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !models.PlatformSupportsCurrency(platform, currency) {
		respondWithError(w, http.StatusBadRequest, "platform does not support this currency")
		return
	}
	if err := models.ValidateFiatAmount(body.Amount, s.cfg.MinFiatAmount, s.cfg.MaxFiatAmount); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Quote.DepositID == "" || body.Quote.ConversionRate == "" {
		respondWithError(w, http.StatusBadRequest, "quote is required")
		return
	}

	result, err := s.wf.Signal(r.Context(), userFrom(r).Email, workflow.SignalRequest{
		Quote:     body.Quote,
		Details:   body.Details,
		Amount:    body.Amount,
		Verifier:  body.Verifier,
		Platform:  platform,
		Currency:  currency,
		Recipient: body.Metadata.Recipient,
	})
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleSignalStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.wf.PendingIntent(r.Context(), userFrom(r).Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "no pending intent")
			return
		}
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

type fulfillRequestBody struct {
	OnrampProof         json.RawMessage `json:"onrampProof"`
	IsAppclipProof      bool            `json:"isAppclipProof"`
	IntentHash          string          `json:"intentHash"`
	Amount              string          `json:"amount"`
	ConversionRate      string          `json:"conversionRate"`
	Currency            string          `json:"currency"`
	DestinationUsername string          `json:"destinationUsername"`
	DestinationPlatform string          `json:"destinationPlatform"`
	PayeeDetails        string          `json:"payeeDetails"`
}

func (s *Server) handleOnramp(w http.ResponseWriter, r *http.Request) {
	var body fulfillRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	platform, err := models.ParsePlatform(body.DestinationPlatform)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := models.ParseCurrency(body.Currency)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.IntentHash == "" {
		respondWithError(w, http.StatusBadRequest, "intentHash is required")
		return
	}
	if body.DestinationUsername == "" {
		respondWithError(w, http.StatusBadRequest, "destinationUsername is required")
		return
	}
	parse := proofs.ParseExtensionProof
	if body.IsAppclipProof {
		parse = proofs.ParseAppClipProof
	}
	proof, err := parse(body.OnrampProof)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid payment proof")
		return
	}

	result, err := s.wf.Fulfill(r.Context(), userFrom(r).Email, workflow.FulfillRequest{
		Proof:          proof,
		IntentHash:     body.IntentHash,
		Amount:         body.Amount,
		ConversionRate: body.ConversionRate,
		Platform:       platform,
		Currency:       currency,
		PayeeUsername:  body.DestinationUsername,
		PayeeDetails:   body.PayeeDetails,
	})
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	txHash, err := s.wf.Cancel(r.Context(), userFrom(r).Email)
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"txHash": txHash})
}

func (s *Server) handleGetWrapper(w http.ResponseWriter, r *http.Request) {
	address, err := s.wf.WrapperContract(r.Context(), userFrom(r).Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "no wrapper contract deployed")
			return
		}
		s.respondWorkflowError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"wrapperContract": address})
}

type deployWrapperBody struct {
	OwnerAddress string `json:"ownerAddress"`
}

func (s *Server) handleDeployWrapper(w http.ResponseWriter, r *http.Request) {
	var body deployWrapperBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if body.OwnerAddress == "" {
		respondWithError(w, http.StatusBadRequest, "ownerAddress is required")
		return
	}

	address, created, err := s.wf.EnsureWrapper(r.Context(), userFrom(r).Email, body.OwnerAddress)
	if err != nil {
		s.respondWorkflowError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, map[string]interface{}{"wrapperContract": address, "created": created})
}

// respondWorkflowError maps workflow errors onto HTTP responses. External
// service bodies are logged, never surfaced.
func (s *Server) respondWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	var gatingErr *zkp2p.GatingError
	var svcErr *zkp2p.ServiceError
	var schemaErr *zkp2p.SchemaError
	var contractErr *escrow.ContractError

	switch {
	case errors.Is(err, zkp2p.ErrNoLiquidity):
		respondWithError(w, http.StatusNotFound, "no liquidity available for the requested amount")
	case errors.Is(err, zkp2p.ErrServiceUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please retry")
	case errors.Is(err, workflow.ErrNothingToCancel):
		respondWithError(w, http.StatusNotFound, "no pending intent to cancel")
	case errors.Is(err, workflow.ErrNoWrapperContract):
		respondWithError(w, http.StatusConflict, "no wrapper contract deployed for this account")
	case errors.Is(err, workflow.ErrPayeeMismatch):
		respondWithError(w, http.StatusConflict, "destination payee does not match the signaled intent")
	case errors.Is(err, workflow.ErrNoSignaledIntent):
		respondWithError(w, http.StatusConflict, "no signaled intent to fulfill")
	case errors.Is(err, escrow.ErrUnfulfilledIntentExists):
		respondWithError(w, http.StatusConflict, "an unfulfilled intent already exists, cancel it first")
	case errors.Is(err, escrow.ErrInsufficientFunds):
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "transaction could not be submitted")
	case errors.As(err, &gatingErr):
		respondWithError(w, http.StatusForbidden, "intent was rejected by the gating service")
	case errors.As(err, &svcErr):
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusBadGateway, "upstream service error, please retry")
	case errors.As(err, &schemaErr):
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusBadGateway, "upstream service returned an unexpected response")
	case errors.As(err, &contractErr):
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "on-chain transaction failed")
	default:
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
