package zkp2p

import (
	"errors"
	"fmt"
)

// ErrNoLiquidity is returned when the quote service has no candidate deposits
// for the requested platform/currency/amount.
var ErrNoLiquidity = errors.New("no liquidity available for the requested amount")

// ErrServiceUnavailable is returned when a circuit breaker is open for a service.
var ErrServiceUnavailable = errors.New("external service temporarily unavailable")

// ServiceError wraps a non-2xx or unreachable external service. The raw body
// is kept for logging, never surfaced to callers.
type ServiceError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s service error: status %d", e.Service, e.StatusCode)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// SchemaError marks a response that parsed as JSON but did not match the
// expected schema. Distinct from ServiceError so malformed payloads are not
// mistaken for outages.
type SchemaError struct {
	Service string
	Err     error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s service returned malformed response: %v", e.Service, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// GatingError marks an admission-control rejection from the intent gating
// service. Surfaced distinctly from on-chain failures.
type GatingError struct {
	StatusCode int
	Message    string
}

func (e *GatingError) Error() string {
	return fmt.Sprintf("intent gating rejected: %s", e.Message)
}
