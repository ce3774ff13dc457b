// Package workflow orchestrates the intent lifecycle: quote, signal, prove,
// fulfill, cancel.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/samba-xyz/samba-relay/pkg/config"
	"github.com/samba-xyz/samba-relay/pkg/escrow"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/metrics"
	"github.com/samba-xyz/samba-relay/pkg/models"
	"github.com/samba-xyz/samba-relay/pkg/proofs"
	"github.com/samba-xyz/samba-relay/pkg/store"
	"github.com/samba-xyz/samba-relay/pkg/zkp2p"
)

// allowedPayerAddress is the single address permitted to pay out fulfilled
// intents, ABI-encoded into each verifier's offramp payload.
const allowedPayerAddress = "0x0636c417755E3ae25C6c166D181c0607F4C572A3"

// ErrNothingToCancel is returned when a cancel request finds no pending intent.
var ErrNothingToCancel = errors.New("no pending intent to cancel")

// ErrNoWrapperContract is returned when an operation needs the user's wrapper
// contract and none has been deployed.
var ErrNoWrapperContract = errors.New("no wrapper contract deployed for this account")

// ErrPayeeMismatch is returned when the destination payee re-validated at
// fulfillment time does not match the one the intent was signaled for.
var ErrPayeeMismatch = errors.New("destination payee does not match the signaled intent")

// ErrNoSignaledIntent is returned when fulfillment is attempted for a user
// whose session never reached the signaled phase.
var ErrNoSignaledIntent = errors.New("no signaled intent to fulfill")

// Quoter is the subset of the ZKP2P client the workflow needs.
type Quoter interface {
	FetchQuotes(ctx context.Context, req zkp2p.QuoteRequest) ([]models.Quote, error)
	FetchPayeeDetails(ctx context.Context, platform models.Platform, payeeDetailsRef string) (*models.PayeeDetails, error)
	ValidatePayee(ctx context.Context, username string, platform models.Platform) (string, error)
	VerifyIntent(ctx context.Context, req zkp2p.IntentSignalRequest) (*zkp2p.IntentData, error)
}

// Chain is the subset of the escrow client the workflow needs.
type Chain interface {
	SignalIntent(ctx context.Context, wrapper common.Address, depositID, amount *big.Int, verifier common.Address, currency [32]byte, gatingSignature []byte) (common.Hash, common.Hash, error)
	FulfillAndOfframp(ctx context.Context, wrapper common.Address, amount *big.Int, intentHash [32]byte, paymentProof []byte, intent escrow.OfframpIntent) (string, common.Hash, error)
	CancelIntent(ctx context.Context, wrapper common.Address, intentHash [32]byte) (common.Hash, error)
	DeployWrapper(ctx context.Context, owner common.Address) (common.Address, common.Hash, error)
}

// Service runs the intent fulfillment workflow.
type Service struct {
	cfg    *config.Config
	zk     Quoter
	chain  Chain
	store  store.Store
	logger logger.Logger
}

// New creates a workflow service.
func New(cfg *config.Config, zk Quoter, chain Chain, st store.Store, log logger.Logger) *Service {
	return &Service{cfg: cfg, zk: zk, chain: chain, store: st, logger: log}
}

// GetQuote validates the request, fetches candidate quotes, selects one, and
// resolves its payee details. Invalid input never reaches the network. The
// user field is the caller-supplied identity forwarded to the quote service;
// the recipient is always the caller's wrapper contract.
func (s *Service) GetQuote(ctx context.Context, platform models.Platform, currency models.Currency, amount, user, userEmail string) (*models.QuoteResult, error) {
	defer s.observePhase("quote", time.Now())

	if !models.PlatformSupportsCurrency(platform, currency) {
		return nil, fmt.Errorf("platform %s does not support currency %s", platform, currency)
	}
	if err := models.ValidateFiatAmount(amount, s.cfg.MinFiatAmount, s.cfg.MaxFiatAmount); err != nil {
		return nil, err
	}
	wrapper, err := s.store.GetWrapperContract(ctx, userEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoWrapperContract
		}
		return nil, err
	}

	quotes, err := s.zk.FetchQuotes(ctx, zkp2p.QuoteRequest{
		PaymentPlatforms:   []string{string(platform)},
		FiatCurrency:       string(currency),
		User:               user,
		Recipient:          wrapper,
		DestinationChainID: s.cfg.ChainID,
		DestinationToken:   s.cfg.TokenAddress,
		ExactFiatAmount:    amount,
	})
	if err != nil {
		return nil, err
	}

	selected, err := zkp2p.SelectQuote(quotes, s.cfg.DefaultPayee)
	if err != nil {
		return nil, err
	}

	details, err := s.zk.FetchPayeeDetails(ctx, platform, selected.PayeeDetails)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithPlatform(string(platform), "Selected quote from deposit %s at rate %s", selected.DepositID, selected.ConversionRate)
	return &models.QuoteResult{Intent: *selected, Details: *details}, nil
}

// ValidatePayee resolves a platform username to its hashed on-chain identifier.
func (s *Service) ValidatePayee(ctx context.Context, username string, platform models.Platform) (string, error) {
	return s.zk.ValidatePayee(ctx, username, platform)
}

// GatingIntent requests admission for an intent the caller has already
// assembled and returns the gating service's signed intent envelope. Used by
// the thin gating proxy route.
func (s *Service) GatingIntent(ctx context.Context, req zkp2p.IntentSignalRequest) (*zkp2p.IntentData, error) {
	return s.zk.VerifyIntent(ctx, req)
}

// SignalRequest carries a selected quote into the signal phase. Verifier is
// the caller-chosen verifier contract; when empty the platform's static
// verifier table is used.
type SignalRequest struct {
	Quote     models.Quote
	Details   models.PayeeDetails
	Amount    string
	Verifier  string
	Platform  models.Platform
	Currency  models.Currency
	Recipient string
}

// SignalResult is the on-chain outcome of a signaled intent.
type SignalResult struct {
	IntentHash string `json:"intentHash"`
	TxHash     string `json:"txHash"`
}

// Signal obtains the gating signature and submits signalIntent on the user's
// wrapper. The intent hash emitted on-chain is canonical; the stored record is
// a convenience and its persistence failure does not fail the signal.
func (s *Service) Signal(ctx context.Context, email string, req SignalRequest) (*SignalResult, error) {
	defer s.observePhase("signal", time.Now())
	platform := string(req.Platform)

	if err := models.ValidateFiatAmount(req.Amount, s.cfg.MinFiatAmount, s.cfg.MaxFiatAmount); err != nil {
		return nil, err
	}

	sess, err := s.SessionState(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := sess.Advance(PhaseQuoted); err != nil {
		metrics.IntentsSignaled.WithLabelValues(platform, "duplicate").Inc()
		return nil, escrow.ErrUnfulfilledIntentExists
	}
	if err := sess.Advance(PhaseSignaled); err != nil {
		return nil, err
	}

	wrapper, err := s.wrapperAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	verifier, err := s.resolveVerifier(req.Verifier, req.Platform)
	if err != nil {
		return nil, err
	}

	hashedPayee := req.Details.HashedOnchainID
	if hashedPayee == "" {
		details, err := s.zk.FetchPayeeDetails(ctx, req.Platform, req.Quote.PayeeDetails)
		if err != nil {
			return nil, err
		}
		hashedPayee = details.HashedOnchainID
	}

	converted, err := CalculateConvertedAmount(req.Amount, req.Quote.ConversionRate)
	if err != nil {
		return nil, err
	}
	currencyHash := CurrencyHash(req.Currency)

	gating, err := s.zk.VerifyIntent(ctx, zkp2p.IntentSignalRequest{
		ProcessorName:    platform,
		DepositID:        req.Quote.DepositID,
		TokenAmount:      converted.String(),
		PayeeDetails:     hashedPayee,
		ToAddress:        wrapper.Hex(),
		FiatCurrencyCode: currencyHash.Hex(),
		ChainID:          strconv.FormatInt(s.cfg.ChainID, 10),
	})
	if err != nil {
		metrics.IntentsSignaled.WithLabelValues(platform, "gating_rejected").Inc()
		return nil, err
	}
	gatingSignature, err := hexutil.Decode(gating.GatingServiceSignature)
	if err != nil {
		metrics.IntentsSignaled.WithLabelValues(platform, "gating_rejected").Inc()
		return nil, &zkp2p.SchemaError{Service: "intent_gating", Err: err}
	}

	depositID, ok := new(big.Int).SetString(req.Quote.DepositID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid deposit id: %s", req.Quote.DepositID)
	}

	intentHash, txHash, err := s.chain.SignalIntent(ctx, wrapper, depositID, converted, verifier, currencyHash, gatingSignature)
	if err != nil {
		metrics.IntentsSignaled.WithLabelValues(platform, "chain_error").Inc()
		return nil, err
	}
	metrics.IntentsSignaled.WithLabelValues(platform, "ok").Inc()
	s.logger.NoticeWithPlatform(platform, "Intent %s signaled in tx %s", intentHash.Hex(), txHash.Hex())

	record := &models.IntentRecord{
		Email:      email,
		IntentHash: intentHash.Hex(),
		TxHash:     txHash.Hex(),
		Recipient:  req.Recipient,
		Amount:     req.Amount,
		Platform:   req.Platform,
		Currency:   req.Currency,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertIntent(ctx, record); err != nil {
		s.logger.Error("Failed to persist intent record for %s: %v", email, err)
	}

	return &SignalResult{IntentHash: intentHash.Hex(), TxHash: txHash.Hex()}, nil
}

// PendingIntent returns the stored pending-intent record for the user, or
// store.ErrNotFound when none exists.
func (s *Service) PendingIntent(ctx context.Context, email string) (*models.IntentRecord, error) {
	return s.store.GetIntent(ctx, email)
}

// SessionState derives the user's lifecycle position from the record store.
// On-chain state is the source of truth; a stored record means an intent is
// signaled and awaiting proof.
func (s *Service) SessionState(ctx context.Context, email string) (State, error) {
	record, err := s.store.GetIntent(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return State{Phase: PhaseNone}, nil
		}
		return State{}, err
	}
	return State{Phase: PhaseSignaled, IntentHash: record.IntentHash}, nil
}

// FulfillRequest carries a generated proof into the fulfill phase.
// PayeeDetails is optional; when set it must match the freshly re-validated
// destination hash, when empty the re-validated hash is used directly.
type FulfillRequest struct {
	Proof          *proofs.Proof
	IntentHash     string
	Amount         string
	ConversionRate string
	Platform       models.Platform
	Currency       models.Currency
	PayeeUsername  string
	PayeeDetails   string
}

// FulfillResult is the on-chain outcome of a fulfilled intent.
type FulfillResult struct {
	DepositID string `json:"depositId"`
	TxHash    string `json:"txHash"`
}

// Fulfill re-validates the destination payee, encodes the proof, and submits
// fulfillAndOfframp. A missing DepositReceived event is reported as an empty
// deposit ID, not a failure. The converted amount uses the signal-time rate so
// it matches the locked amount exactly.
func (s *Service) Fulfill(ctx context.Context, email string, req FulfillRequest) (*FulfillResult, error) {
	defer s.observePhase("fulfill", time.Now())
	platform := string(req.Platform)

	sess, err := s.SessionState(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := sess.Advance(PhaseFulfilled); err != nil {
		metrics.IntentsFulfilled.WithLabelValues(platform, "not_signaled").Inc()
		return nil, ErrNoSignaledIntent
	}

	wrapper, err := s.wrapperAddress(ctx, email)
	if err != nil {
		return nil, err
	}
	verifier, err := s.verifierFor(req.Platform)
	if err != nil {
		return nil, err
	}

	hashed, err := s.zk.ValidatePayee(ctx, req.PayeeUsername, req.Platform)
	if err != nil {
		return nil, err
	}
	payeeHash := req.PayeeDetails
	if payeeHash == "" {
		payeeHash = hashed
	} else if hashed != payeeHash {
		metrics.IntentsFulfilled.WithLabelValues(platform, "payee_mismatch").Inc()
		return nil, ErrPayeeMismatch
	}

	converted, err := CalculateConvertedAmount(req.Amount, req.ConversionRate)
	if err != nil {
		return nil, err
	}

	encodedProof, err := proofs.EncodeProofAsBytes(req.Proof)
	if err != nil {
		return nil, err
	}

	allowlist, err := escrow.EncodeAddressList([]common.Address{common.HexToAddress(allowedPayerAddress)})
	if err != nil {
		return nil, err
	}

	intent := escrow.OfframpIntent{
		Verifiers: []common.Address{verifier},
		Data: []escrow.VerifierData{{
			IntentGatingService: common.HexToAddress(s.cfg.GatingSigner),
			PayeeDetails:        common.HexToHash(payeeHash),
			Data:                allowlist,
		}},
		Currencies: [][]escrow.CurrencyRate{{{
			Code:           CurrencyHash(req.Currency),
			ConversionRate: new(big.Int).Set(rateScale),
		}}},
	}

	depositID, txHash, err := s.chain.FulfillAndOfframp(ctx, wrapper, converted, common.HexToHash(req.IntentHash), encodedProof, intent)
	if err != nil {
		metrics.IntentsFulfilled.WithLabelValues(platform, "chain_error").Inc()
		return nil, err
	}
	metrics.IntentsFulfilled.WithLabelValues(platform, "ok").Inc()
	s.logger.NoticeWithPlatform(platform, "Intent %s fulfilled in tx %s", req.IntentHash, txHash.Hex())

	if err := s.store.DeleteIntent(ctx, email); err != nil {
		s.logger.Error("Failed to delete intent record for %s: %v", email, err)
	}

	return &FulfillResult{DepositID: depositID, TxHash: txHash.Hex()}, nil
}

// Cancel cancels the user's pending intent on-chain and removes its record.
func (s *Service) Cancel(ctx context.Context, email string) (string, error) {
	defer s.observePhase("cancel", time.Now())

	sess, err := s.SessionState(ctx, email)
	if err != nil {
		return "", err
	}
	intentHash := sess.IntentHash
	if err := sess.Advance(PhaseCanceled); err != nil {
		return "", ErrNothingToCancel
	}

	wrapper, err := s.wrapperAddress(ctx, email)
	if err != nil {
		return "", err
	}

	txHash, err := s.chain.CancelIntent(ctx, wrapper, common.HexToHash(intentHash))
	if err != nil {
		metrics.IntentsCanceled.WithLabelValues("chain_error").Inc()
		return "", err
	}
	metrics.IntentsCanceled.WithLabelValues("ok").Inc()
	s.logger.Notice("Intent %s canceled in tx %s", intentHash, txHash.Hex())

	if err := s.store.DeleteIntent(ctx, email); err != nil {
		s.logger.Error("Failed to delete intent record for %s: %v", email, err)
	}
	return txHash.Hex(), nil
}

// WrapperContract returns the user's wrapper contract address, or
// store.ErrNotFound when none is recorded.
func (s *Service) WrapperContract(ctx context.Context, email string) (string, error) {
	return s.store.GetWrapperContract(ctx, email)
}

// EnsureWrapper returns the user's wrapper contract, deploying one first when
// none exists. The second return reports whether a deployment happened.
func (s *Service) EnsureWrapper(ctx context.Context, email, owner string) (string, bool, error) {
	existing, err := s.store.GetWrapperContract(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}

	if !common.IsHexAddress(owner) {
		return "", false, fmt.Errorf("invalid owner address: %s", owner)
	}
	addr, txHash, err := s.chain.DeployWrapper(ctx, common.HexToAddress(owner))
	if err != nil {
		return "", false, err
	}
	s.logger.Notice("Deployed wrapper %s for %s in tx %s", addr.Hex(), email, txHash.Hex())

	if err := s.store.SetWrapperContract(ctx, email, addr.Hex()); err != nil {
		s.logger.Error("Failed to persist wrapper contract for %s: %v", email, err)
	}
	return addr.Hex(), true, nil
}

func (s *Service) wrapperAddress(ctx context.Context, email string) (common.Address, error) {
	wrapper, err := s.store.GetWrapperContract(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.Address{}, ErrNoWrapperContract
		}
		return common.Address{}, err
	}
	return common.HexToAddress(wrapper), nil
}

// resolveVerifier prefers the caller-supplied verifier address, falling back
// to the platform's static table.
func (s *Service) resolveVerifier(verifier string, platform models.Platform) (common.Address, error) {
	if verifier != "" {
		if !common.IsHexAddress(verifier) {
			return common.Address{}, fmt.Errorf("invalid verifier address: %s", verifier)
		}
		return common.HexToAddress(verifier), nil
	}
	return s.verifierFor(platform)
}

func (s *Service) verifierFor(platform models.Platform) (common.Address, error) {
	switch platform {
	case models.PlatformVenmo:
		return common.HexToAddress(s.cfg.VenmoVerifier), nil
	case models.PlatformRevolut:
		return common.HexToAddress(s.cfg.RevolutVerifier), nil
	default:
		return common.Address{}, fmt.Errorf("unsupported platform: %s", platform)
	}
}

func (s *Service) observePhase(phase string, start time.Time) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
