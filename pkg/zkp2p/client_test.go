package zkp2p

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samba-xyz/samba-relay/pkg/circuitbreaker"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	newBreaker := func() *circuitbreaker.CircuitBreaker {
		return circuitbreaker.NewCircuitBreaker(true, 3, time.Minute, time.Minute, &logger.EmptyLogger{})
	}
	return New(srv.URL, "test-key", newBreaker, &logger.EmptyLogger{})
}

func TestFetchQuotes(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "5", r.URL.Query().Get("quotesToReturn"))

		var req QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"venmo"}, req.PaymentPlatforms)
		assert.Equal(t, "3.00", req.ExactFiatAmount)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responseObject": map[string]interface{}{
				"quotes": []map[string]string{
					{"depositId": "7", "conversionRate": "1000000000000000000", "payeeAddress": "0xabc"},
				},
			},
		})
	})

	quotes, err := client.FetchQuotes(context.Background(), QuoteRequest{
		PaymentPlatforms: []string{"venmo"},
		FiatCurrency:     "USD",
		ExactFiatAmount:  "3.00",
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "7", quotes[0].DepositID)
}

func TestFetchQuotesServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FetchQuotes(context.Background(), QuoteRequest{})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, err := client.FetchQuotes(context.Background(), QuoteRequest{})
		require.Error(t, err)
	}

	// Breaker trips at 3 failures; the next call never reaches the server.
	_, err := client.FetchQuotes(context.Background(), QuoteRequest{})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestBreakersAreIndependentPerService(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/verify/intent" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responseObject": map[string]interface{}{
				"id": 1, "processorName": "venmo", "hashedOnchainId": "0xhash",
			},
		})
	})

	for i := 0; i < 4; i++ {
		_, err := client.VerifyIntent(context.Background(), IntentSignalRequest{})
		require.Error(t, err)
	}

	// The gating breaker is open, validation still works.
	hashed, err := client.ValidatePayee(context.Background(), "alice", models.PlatformVenmo)
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hashed)
}

func TestValidatePayeeIsDeterministic(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req PayeeValidationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.DepositData.VenmoUsername)
		assert.Empty(t, req.DepositData.RevolutUsername)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responseObject": map[string]interface{}{
				"id": 1, "processorName": "venmo", "hashedOnchainId": "0xsame",
			},
		})
	})

	first, err := client.ValidatePayee(context.Background(), "alice", models.PlatformVenmo)
	require.NoError(t, err)
	second, err := client.ValidatePayee(context.Background(), "alice", models.PlatformVenmo)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVerifyIntentRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"intent not allowed"}`, http.StatusForbidden)
	})

	_, err := client.VerifyIntent(context.Background(), IntentSignalRequest{})
	var gatingErr *GatingError
	require.ErrorAs(t, err, &gatingErr)
	assert.Equal(t, http.StatusForbidden, gatingErr.StatusCode)
}

func TestVerifyIntentSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req IntentSignalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "venmo", req.ProcessorName)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"responseObject": map[string]interface{}{
				"intentData": map[string]string{
					"depositId":              "7",
					"tokenAmount":            "3000000",
					"gatingServiceSignature": "0xsigned",
				},
			},
		})
	})

	data, err := client.VerifyIntent(context.Background(), IntentSignalRequest{ProcessorName: "venmo"})
	require.NoError(t, err)
	assert.Equal(t, "0xsigned", data.GatingServiceSignature)
	assert.Equal(t, "7", data.DepositID)
	assert.Equal(t, "3000000", data.TokenAmount)
}

func TestMalformedResponseIsSchemaError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.FetchQuotes(context.Background(), QuoteRequest{})
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}
