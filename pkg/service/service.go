// Package service implements the KeyCortex HTTP API: wallet custody,
// challenge-response authentication, identity binding, transfer
// submission and the ops/diagnostic surface. Handlers orchestrate the
// crypto, keystore, repository, challenge, identity and chain packages
// and never hold unwrapped key material beyond the request frame.
package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/config"
	"github.com/veeringman/KeyCortex/pkg/identity"
	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/log"
	"github.com/veeringman/KeyCortex/pkg/metrics"
	"github.com/veeringman/KeyCortex/pkg/repository"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// ServiceName identifies this service in health and version responses
const ServiceName = "keycortex"

// idempotencyTTL bounds how long a memoized submit response stays in
// the in-memory cache. The durable record outlives it.
const idempotencyTTL = 24 * time.Hour

// Options carries the wired dependencies into New
type Options struct {
	Config     *config.Config
	Store      keystore.Store
	Repository *repository.DualStore
	Challenges *challenge.Store
	Verifier   *identity.Verifier
	Chains     *chain.Registry
	Startup    *StartupReport
	Version    VersionInfo
}

// Service is the KeyCortex HTTP API. One instance serves all routes.
type Service struct {
	cfg        *config.Config
	store      keystore.Store
	repo       *repository.DualStore
	challenges *challenge.Store
	verifier   *identity.Verifier
	chains     *chain.Registry

	// idemCache fronts the durable idempotency records
	idemCache *ttlcache.Cache[string, types.WalletSubmitResponse]

	// nonceMu serializes the submit tail: nonce check, signing, chain
	// submission and persistence happen under it so at most one submit
	// per (wallet, nonce) can succeed
	nonceMu    sync.Mutex
	nonceHints map[string]uint64

	startup    *StartupReport
	version    VersionInfo
	logger     zerolog.Logger
	mux        *http.ServeMux
	httpServer *http.Server
	httpClient *http.Client
}

// New wires a Service and registers its routes
func New(opts Options) *Service {
	svc := &Service{
		cfg:        opts.Config,
		store:      opts.Store,
		repo:       opts.Repository,
		challenges: opts.Challenges,
		verifier:   opts.Verifier,
		chains:     opts.Chains,
		idemCache: ttlcache.New[string, types.WalletSubmitResponse](
			ttlcache.WithTTL[string, types.WalletSubmitResponse](idempotencyTTL),
		),
		nonceHints: make(map[string]uint64),
		startup:    opts.Startup,
		version:    opts.Version,
		logger:     log.WithComponent("service"),
		mux:        http.NewServeMux(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	if svc.repo == nil {
		svc.repo = repository.NewDualStore(opts.Store, nil, nil)
	}
	if svc.startup == nil {
		svc.startup = &StartupReport{}
	}

	svc.routes()
	go svc.idemCache.Start()
	return svc
}

// writeJSON writes v as the response body with the given status
func (s *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform error body
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, types.ErrorResponse{Error: message})
}

// internalError logs the cause and surfaces its message as a 500
func (s *Service) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

// requireMethod rejects mismatched methods with the uniform JSON error
func (s *Service) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// decodeJSON parses a required JSON request body
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeJSONOptional parses a JSON request body, tolerating an empty one
func decodeJSONOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// audit appends an event through the dual-write path. Append failures
// are logged and counted but never fail the request that produced them.
func (s *Service) audit(r *http.Request, event *types.AuditEvent) {
	if err := s.repo.AppendAudit(r.Context(), event); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", event.EventType).
			Msg("failed to append audit event")
	}
	metrics.AuditEventsTotal.WithLabelValues(event.EventType, string(event.Outcome)).Inc()
}

// assetSupported whitelists the MVP asset set. Matching is
// case-sensitive: PROOF and FloweR are the on-chain symbols.
func assetSupported(asset string) bool {
	return asset == "PROOF" || asset == "FloweR"
}
