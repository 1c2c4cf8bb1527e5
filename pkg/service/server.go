package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/veeringman/KeyCortex/pkg/metrics"
)

// routes registers every endpoint on the service mux
func (s *Service) routes() {
	s.mux.HandleFunc("/wallet/create", s.handleWalletCreate)
	s.mux.HandleFunc("/wallet/restore", s.handleWalletRestore)
	s.mux.HandleFunc("/wallet/rename", s.handleWalletRename)
	s.mux.HandleFunc("/wallet/list", s.handleWalletList)
	s.mux.HandleFunc("/wallet/sign", s.handleWalletSign)
	s.mux.HandleFunc("/wallet/submit", s.handleWalletSubmit)
	s.mux.HandleFunc("/wallet/balance", s.handleWalletBalance)
	s.mux.HandleFunc("/wallet/nonce", s.handleWalletNonce)
	s.mux.HandleFunc("/wallet/tx/", s.handleWalletTxStatus)

	s.mux.HandleFunc("/auth/challenge", s.handleAuthChallenge)
	s.mux.HandleFunc("/auth/verify", s.handleAuthVerify)
	s.mux.HandleFunc("/auth/bind", s.handleAuthBind)

	s.mux.HandleFunc("/proofcortex/commitment", s.handleCommitment)
	s.mux.HandleFunc("/fortressdigital/wallet-status", s.handleWalletStatus)
	s.mux.HandleFunc("/chain/config", s.handleChainConfig)

	s.mux.HandleFunc("/ops/bindings/", s.handleOpsGetBinding)
	s.mux.HandleFunc("/ops/audit", s.handleOpsListAudit)

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReadyz)
	s.mux.HandleFunc("/startupz", s.handleStartupz)
	s.mux.HandleFunc("/version", s.handleVersion)
	s.mux.Handle("/metrics", metrics.Handler())
}

// statusRecorder captures the status code a handler writes
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts every request and observes its duration
func (s *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(recorder.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	})
}

// Handler returns the instrumented HTTP handler for embedding in tests
func (s *Service) Handler() http.Handler {
	return s.instrument(s.mux)
}

// Start serves the API until the listener fails or Shutdown is called
func (s *Service) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("serving KeyCortex API")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the idempotency janitor
func (s *Service) Shutdown(ctx context.Context) error {
	s.idemCache.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
