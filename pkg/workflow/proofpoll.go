package workflow

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/samba-xyz/samba-relay/pkg/metrics"
	"github.com/samba-xyz/samba-relay/pkg/models"
	"github.com/samba-xyz/samba-relay/pkg/proofs"
)

// ProofState is the generation state reported by a proof source.
type ProofState string

const (
	ProofStateIdle       ProofState = "idle"
	ProofStateGenerating ProofState = "generating"
	ProofStateCompleted  ProofState = "completed"
	ProofStateFailed     ProofState = "failed"
)

// Transaction is one payment visible on the sender's platform account.
type Transaction struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// ProofSource produces TLS proofs of completed fiat payments. The production
// source is the browser extension bridge; tests use a scripted fake.
type ProofSource interface {
	Transactions(ctx context.Context, platform models.Platform) ([]Transaction, error)
	GenerateProof(ctx context.Context, platform models.Platform, transactionID, intentHash string) error
	ProofStatus(ctx context.Context) (ProofState, json.RawMessage, error)
}

// ProofOutcome is the terminal result of a proof poll.
type ProofOutcome int

const (
	ProofFound ProofOutcome = iota
	ProofFailed
	ProofTimedOut
	ProofCancelled
)

func (o ProofOutcome) String() string {
	switch o {
	case ProofFound:
		return "found"
	case ProofFailed:
		return "failed"
	case ProofTimedOut:
		return "timeout"
	case ProofCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProofRequest identifies the payment a proof is wanted for.
type ProofRequest struct {
	Platform   models.Platform
	Recipient  string
	Amount     string
	IntentHash string
}

// AwaitProof polls the source until a proof for the requested payment is
// produced, generation fails, the timeout elapses, or the context is canceled.
// The matching transaction is located first, then generation is kicked off
// with the intent hash in decimal form, the representation proof providers
// embed in the claim context.
func (s *Service) AwaitProof(ctx context.Context, source ProofSource, req ProofRequest) (*proofs.Proof, ProofOutcome, error) {
	intentHash := new(big.Int).SetBytes(common.HexToHash(req.IntentHash).Bytes()).String()

	ticker := time.NewTicker(s.cfg.ProofFetchInterval)
	defer ticker.Stop()
	timer := time.NewTimer(s.cfg.ProofTimeout)
	defer timer.Stop()

	generating := false
	for {
		select {
		case <-ctx.Done():
			metrics.ProofPollOutcomes.WithLabelValues(ProofCancelled.String()).Inc()
			return nil, ProofCancelled, ctx.Err()

		case <-timer.C:
			metrics.ProofPollOutcomes.WithLabelValues(ProofTimedOut.String()).Inc()
			s.logger.ErrorWithPlatform(string(req.Platform), "Proof generation timed out for intent %s", req.IntentHash)
			return nil, ProofTimedOut, nil

		case <-ticker.C:
			if !generating {
				txs, err := source.Transactions(ctx, req.Platform)
				if err != nil {
					s.logger.DebugWithPlatform(string(req.Platform), "Transaction listing failed, retrying: %v", err)
					continue
				}
				match, ok := matchTransaction(txs, req.Recipient, req.Amount)
				if !ok {
					continue
				}
				if err := source.GenerateProof(ctx, req.Platform, match.ID, intentHash); err != nil {
					s.logger.ErrorWithPlatform(string(req.Platform), "Proof generation request failed: %v", err)
					metrics.ProofPollOutcomes.WithLabelValues(ProofFailed.String()).Inc()
					return nil, ProofFailed, err
				}
				s.logger.InfoWithPlatform(string(req.Platform), "Matched payment %s, proof generation started", match.ID)
				generating = true
				continue
			}

			state, payload, err := source.ProofStatus(ctx)
			if err != nil {
				s.logger.DebugWithPlatform(string(req.Platform), "Proof status poll failed, retrying: %v", err)
				continue
			}
			switch state {
			case ProofStateCompleted:
				proof, err := proofs.ParseExtensionProof(payload)
				if err != nil {
					metrics.ProofPollOutcomes.WithLabelValues(ProofFailed.String()).Inc()
					return nil, ProofFailed, err
				}
				metrics.ProofPollOutcomes.WithLabelValues(ProofFound.String()).Inc()
				return proof, ProofFound, nil
			case ProofStateFailed:
				metrics.ProofPollOutcomes.WithLabelValues(ProofFailed.String()).Inc()
				return nil, ProofFailed, nil
			}
		}
	}
}

// debitPrefix is how platform activity feeds render an outgoing transfer,
// "3.00" appearing as "- $3.00".
const debitPrefix = "- $"

// matchTransaction finds the payment whose recipient and amount match the
// intent. Recipient comparison is case-insensitive; the amount must equal the
// platform-formatted debit string exactly, no numeric normalization.
func matchTransaction(txs []Transaction, recipient, amount string) (Transaction, bool) {
	want := amount
	if !strings.HasPrefix(want, debitPrefix) {
		want = debitPrefix + want
	}
	for _, tx := range txs {
		if strings.EqualFold(tx.Recipient, recipient) && tx.Amount == want {
			return tx, true
		}
	}
	return Transaction{}, false
}
