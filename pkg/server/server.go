// Package server exposes the relay's HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samba-xyz/samba-relay/pkg/auth"
	"github.com/samba-xyz/samba-relay/pkg/config"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/metrics"
	"github.com/samba-xyz/samba-relay/pkg/models"
	"github.com/samba-xyz/samba-relay/pkg/workflow"
	"github.com/samba-xyz/samba-relay/pkg/zkp2p"
)

// Workflow is the lifecycle surface the HTTP layer drives.
type Workflow interface {
	GetQuote(ctx context.Context, platform models.Platform, currency models.Currency, amount, user, email string) (*models.QuoteResult, error)
	ValidatePayee(ctx context.Context, username string, platform models.Platform) (string, error)
	GatingIntent(ctx context.Context, req zkp2p.IntentSignalRequest) (*zkp2p.IntentData, error)
	Signal(ctx context.Context, email string, req workflow.SignalRequest) (*workflow.SignalResult, error)
	PendingIntent(ctx context.Context, email string) (*models.IntentRecord, error)
	Fulfill(ctx context.Context, email string, req workflow.FulfillRequest) (*workflow.FulfillResult, error)
	Cancel(ctx context.Context, email string) (string, error)
	WrapperContract(ctx context.Context, email string) (string, error)
	EnsureWrapper(ctx context.Context, email, owner string) (string, bool, error)
}

// Pinger is a dependency the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the relay HTTP server.
type Server struct {
	cfg      *config.Config
	wf       Workflow
	verifier auth.Verifier
	chain    Pinger
	db       Pinger
	logger   logger.Logger
	router   *mux.Router
	http     *http.Server
}

// New builds the server and registers all routes.
func New(cfg *config.Config, wf Workflow, verifier auth.Verifier, chain, db Pinger, log logger.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		wf:       wf,
		verifier: verifier,
		chain:    chain,
		db:       db,
		logger:   log,
		router:   mux.NewRouter(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/v1/health", s.instrument("health", s.handleHealth)).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler())).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/deposits/quote", s.authenticated("deposits_quote", s.handleQuote)).Methods(http.MethodPost)
	api.HandleFunc("/deposits/validate", s.authenticated("deposits_validate", s.handleValidatePayee)).Methods(http.MethodPost)
	api.HandleFunc("/intents", s.authenticated("intents_gating", s.handleIntentGating)).Methods(http.MethodPost)
	api.HandleFunc("/intents/cancel", s.authenticated("intents_cancel", s.handleCancel)).Methods(http.MethodPost)
	api.HandleFunc("/contract/signal", s.authenticated("contract_signal", s.handleSignal)).Methods(http.MethodPost)
	api.HandleFunc("/contract/signal", s.authenticated("contract_signal_status", s.handleSignalStatus)).Methods(http.MethodGet)
	api.HandleFunc("/contract/onramp", s.authenticated("contract_onramp", s.handleOnramp)).Methods(http.MethodPost)
	api.HandleFunc("/contract/wrapper", s.authenticated("contract_wrapper_get", s.handleGetWrapper)).Methods(http.MethodGet)
	api.HandleFunc("/contract/wrapper", s.authenticated("contract_wrapper_deploy", s.handleDeployWrapper)).Methods(http.MethodPost)
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving and blocks until the listener fails or closes.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on port %s", s.cfg.Port)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type contextKey int

const userContextKey contextKey = iota

// userFrom returns the authenticated user stored on the request context.
func userFrom(r *http.Request) *auth.AuthenticatedUser {
	user, _ := r.Context().Value(userContextKey).(*auth.AuthenticatedUser)
	return user
}

// statusRecorder captures the response code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request counting and latency observation.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(recorder.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// authenticated verifies the bearer token and stores the caller on the
// request context before invoking the handler.
func (s *Server) authenticated(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return s.instrument(endpoint, func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.respondAuthError(w, err)
			return
		}
		user, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.respondAuthError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) respondAuthError(w http.ResponseWriter, err error) {
	var authErr *auth.AuthenticationError
	if errors.As(err, &authErr) {
		respondWithError(w, authErr.StatusCode, authErr.Message)
		return
	}
	respondWithError(w, http.StatusUnauthorized, "authentication failed")
}

// metricsAuthMiddleware gates /metrics behind the configured key when one is set.
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.MetricsAPIKey != "" {
			token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil || token != s.cfg.MetricsAPIKey {
				respondWithError(w, http.StatusUnauthorized, "invalid metrics credentials")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

const healthProbeTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	for name, pinger := range map[string]Pinger{"rpc": s.chain, "database": s.db} {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		if err := pinger.Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
		} else {
			checks[name] = "ok"
		}
		cancel()
	}

	status := http.StatusOK
	result := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		result = "degraded"
	}
	respondWithJSON(w, status, map[string]interface{}{"status": result, "checks": checks})
}
