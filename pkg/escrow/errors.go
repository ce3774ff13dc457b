package escrow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnfulfilledIntentExists is returned when the escrow rejects a new intent
// because the account already holds one that has not been fulfilled or canceled.
var ErrUnfulfilledIntentExists = errors.New("account already has an unfulfilled intent")

// ErrInsufficientFunds is returned when the relay account cannot cover gas.
var ErrInsufficientFunds = errors.New("insufficient funds for transaction")

// ContractError wraps a revert or transaction failure with the operation that
// produced it and the revert reason when one could be extracted.
type ContractError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ContractError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s reverted: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// classifyContractError maps raw node errors onto the sentinel errors callers
// branch on. Revert reasons come back as free text, so matching is by substring.
func classifyContractError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unfulfilled intent"):
		return fmt.Errorf("%s: %w", op, ErrUnfulfilledIntentExists)
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%s: %w", op, ErrInsufficientFunds)
	case strings.Contains(msg, "execution reverted"):
		return &ContractError{Op: op, Reason: revertReason(err), Err: err}
	default:
		return &ContractError{Op: op, Err: err}
	}
}

// revertReason extracts the human-readable reason from an "execution reverted"
// error message, or returns empty if the node gave none.
func revertReason(err error) string {
	const marker = "execution reverted"
	msg := err.Error()
	idx := strings.Index(strings.ToLower(msg), marker)
	if idx < 0 {
		return ""
	}
	reason := strings.TrimLeft(msg[idx+len(marker):], ": ")
	return strings.TrimSpace(reason)
}
