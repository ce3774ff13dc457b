// Package zkp2p provides a client for the quoting, payee validation, and
// intent gating HTTP services.
package zkp2p

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samba-xyz/samba-relay/pkg/circuitbreaker"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/metrics"
	"github.com/samba-xyz/samba-relay/pkg/models"
)

const (
	serviceQuote      = "quote"
	serviceValidation = "payee_validation"
	serviceGating     = "intent_gating"

	quotesToReturn = 5
)

// Client is a client for the ZKP2P HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breakers   map[string]*circuitbreaker.CircuitBreaker
	logger     logger.Logger
}

// BreakerFactory builds a circuit breaker for one external service.
type BreakerFactory func() *circuitbreaker.CircuitBreaker

// New creates a new ZKP2P API client. Each service endpoint gets its own
// circuit breaker so a gating outage does not block quoting.
func New(baseURL, apiKey string, newBreaker BreakerFactory, logger logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: createHTTPClient(),
		breakers: map[string]*circuitbreaker.CircuitBreaker{
			serviceQuote:      newBreaker(),
			serviceValidation: newBreaker(),
			serviceGating:     newBreaker(),
		},
		logger: logger,
	}
}

// FetchQuotes requests candidate quotes for an exact fiat amount.
func (c *Client) FetchQuotes(ctx context.Context, req QuoteRequest) ([]models.Quote, error) {
	endpoint := fmt.Sprintf("%s/quote/exact-fiat?quotesToReturn=%d", c.baseURL, quotesToReturn)

	var envelope quoteEnvelope
	if err := c.post(ctx, serviceQuote, endpoint, req, &envelope); err != nil {
		return nil, err
	}
	return envelope.ResponseObject.Quotes, nil
}

// FetchPayeeDetails resolves the human-readable payee handle for a selected quote.
func (c *Client) FetchPayeeDetails(ctx context.Context, platform models.Platform, payeeDetailsRef string) (*models.PayeeDetails, error) {
	endpoint := fmt.Sprintf("%s/makers/%s/%s", c.baseURL, platform, url.PathEscape(payeeDetailsRef))

	var envelope payeeDetailsEnvelope
	if err := c.get(ctx, serviceQuote, endpoint, &envelope); err != nil {
		return nil, err
	}
	if envelope.ResponseObject.HashedOnchainID == "" {
		return nil, &SchemaError{Service: serviceQuote, Err: fmt.Errorf("missing hashedOnchainId")}
	}
	details := envelope.ResponseObject
	return &details, nil
}

// ValidatePayee resolves a platform username to its hashed on-chain identifier.
// The hash is deterministic: identical (username, platform) pairs resolve to
// the same identifier.
func (c *Client) ValidatePayee(ctx context.Context, username string, platform models.Platform) (string, error) {
	endpoint := c.baseURL + "/makers/create"

	var envelope validationEnvelope
	if err := c.post(ctx, serviceValidation, endpoint, NewPayeeValidationRequest(username, platform), &envelope); err != nil {
		return "", err
	}
	if envelope.ResponseObject.HashedOnchainID == "" {
		return "", &SchemaError{Service: serviceValidation, Err: fmt.Errorf("missing hashedOnchainId")}
	}
	return envelope.ResponseObject.HashedOnchainID, nil
}

// VerifyIntent requests admission from the gating service and returns the
// signed intent envelope. Rejections come back as GatingError so callers can
// distinguish admission control from on-chain failures.
func (c *Client) VerifyIntent(ctx context.Context, req IntentSignalRequest) (*IntentData, error) {
	endpoint := c.baseURL + "/verify/intent"

	var envelope gatingEnvelope
	if err := c.post(ctx, serviceGating, endpoint, req, &envelope); err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode >= 400 && svcErr.StatusCode < 500 {
			return nil, &GatingError{StatusCode: svcErr.StatusCode, Message: svcErr.Body}
		}
		return nil, err
	}

	data := envelope.ResponseObject.IntentData
	if data.GatingServiceSignature == "" {
		return nil, &SchemaError{Service: serviceGating, Err: fmt.Errorf("missing gatingServiceSignature")}
	}
	return &data, nil
}

func (c *Client) post(ctx context.Context, service, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", service, err)
	}
	return c.do(service, req, out)
}

func (c *Client) get(ctx context.Context, service, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", service, err)
	}
	return c.do(service, req, out)
}

func (c *Client) do(service string, req *http.Request, out interface{}) error {
	breaker := c.breakers[service]
	if breaker.IsOpen() {
		metrics.ExternalCalls.WithLabelValues(service, "breaker_open").Inc()
		return ErrServiceUnavailable
	}
	c.updateBreakerGauge(service, breaker)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		breaker.RecordFailure()
		c.updateBreakerGauge(service, breaker)
		metrics.ExternalCalls.WithLabelValues(service, "unreachable").Inc()
		return &ServiceError{Service: service, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Error("Failed to close %s response body: %v", service, closeErr)
		}
	}()

	// Read the response body regardless of status code
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		breaker.RecordFailure()
		c.updateBreakerGauge(service, breaker)
		metrics.ExternalCalls.WithLabelValues(service, "read_error").Inc()
		return &ServiceError{Service: service, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 4xx is a rejection, not an outage
		if resp.StatusCode >= 500 {
			breaker.RecordFailure()
			c.updateBreakerGauge(service, breaker)
		}
		metrics.ExternalCalls.WithLabelValues(service, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		c.logger.Error("%s service returned %d: %s", service, resp.StatusCode, string(bodyBytes))
		return &ServiceError{Service: service, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	breaker.RecordSuccess()
	metrics.ExternalCalls.WithLabelValues(service, "ok").Inc()

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return &SchemaError{Service: service, Err: err}
	}
	return nil
}

func (c *Client) updateBreakerGauge(service string, breaker *circuitbreaker.CircuitBreaker) {
	open := 0.0
	if breaker.IsOpen() {
		open = 1.0
	}
	metrics.CircuitBreakerOpen.WithLabelValues(service).Set(open)
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
