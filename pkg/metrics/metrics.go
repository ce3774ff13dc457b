package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	IntentsSignaled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_intents_signaled_total",
		Help: "The total number of signaled intents by outcome",
	}, []string{"platform", "status"})

	IntentsFulfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_intents_fulfilled_total",
		Help: "The total number of fulfilled intents by outcome",
	}, []string{"platform", "status"})

	IntentsCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_intents_canceled_total",
		Help: "The total number of canceled intents by outcome",
	}, []string{"status"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_phase_duration_seconds",
		Help:    "Time taken to complete each workflow phase",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"phase"})

	ExternalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_external_calls_total",
		Help: "Calls to external collaborators by service and status",
	}, []string{"service", "status"})

	ProofPollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_proof_poll_outcomes_total",
		Help: "Terminal outcomes of proof acquisition polling",
	}, []string{"outcome"})

	MissingDepositEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_missing_deposit_events_total",
		Help: "Fulfill transactions that succeeded without a DepositReceived event",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	}, []string{"method", "endpoint"})

	CircuitBreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_circuit_breaker_open",
		Help: "Whether the circuit breaker for an external service is open (1) or closed (0)",
	}, []string{"service"})
)
