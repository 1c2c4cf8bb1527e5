package service

import (
	"net/http"
)

// StartupReport captures what the process found while wiring itself.
// Written once before serving, read-only afterwards.
type StartupReport struct {
	StartedAtEpochMs   int64             `json:"started_at_epoch_ms"`
	KeystorePath       string            `json:"keystore_path"`
	KeystoreOK         bool              `json:"keystore_ok"`
	PostgresConfigured bool              `json:"postgres_configured"`
	PostgresConnected  bool              `json:"postgres_connected"`
	MigrationsApplied  int               `json:"migrations_applied"`
	MigrationErrors    []string          `json:"migration_errors"`
	JWKSSource         string            `json:"jwks_source"`
	ConfigSummary      map[string]string `json:"config_summary"`
}

// VersionInfo carries build identity injected through ldflags
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type healthResponse struct {
	Service                string            `json:"service"`
	Status                 string            `json:"status"`
	AuthMode               string            `json:"auth_mode"`
	JWKSSource             string            `json:"jwks_source,omitempty"`
	JWKSLoaded             bool              `json:"jwks_loaded"`
	LastJWKSRefreshEpochMs int64             `json:"last_jwks_refresh_epoch_ms,omitempty"`
	LastJWKSError          string            `json:"last_jwks_error,omitempty"`
	DBFallbackCounters     map[string]uint64 `json:"db_fallback_counters"`
}

type readyzResponse struct {
	Service       string `json:"service"`
	Ready         bool   `json:"ready"`
	KeystoreReady bool   `json:"keystore_ready"`
	AuthReady     bool   `json:"auth_ready"`
	AuthMode      string `json:"auth_mode"`
	JWKSReachable *bool  `json:"jwks_reachable,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type startupzResponse struct {
	Service string `json:"service"`
	*StartupReport
}

type versionResponse struct {
	Service string `json:"service"`
	VersionInfo
}

// handleHealth is the liveness view: the process is up, plus the JWKS
// and dual-write diagnostics an operator reaches for first
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	status := s.verifier.Status()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Service:                ServiceName,
		Status:                 "ok",
		AuthMode:               s.verifier.AuthMode(),
		JWKSSource:             status.Source,
		JWKSLoaded:             status.Loaded,
		LastJWKSRefreshEpochMs: status.LastRefreshEpochMs,
		LastJWKSError:          status.LastError,
		DBFallbackCounters:     s.repo.Counters().Snapshot(),
	})
}

// handleReadyz gates traffic on the keystore probe and the auth mode.
// JWKS reachability only matters when the deployment refreshes from a
// URL; the last refresh outcome stands in for a live probe.
func (s *Service) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	keystoreReady := s.store.Ping() == nil

	status := s.verifier.Status()
	authReady := status.Loaded || s.verifier.HasFallbackSecret()

	var jwksReachable *bool
	if status.Source == "url" {
		reachable := status.LastError == ""
		jwksReachable = &reachable
	}

	ready := keystoreReady && authReady && (jwksReachable == nil || *jwksReachable)

	reason := ""
	if !ready {
		switch {
		case !keystoreReady:
			reason = "keystore not ready"
		case jwksReachable != nil && !*jwksReachable:
			reason = "jwks endpoint not reachable"
		default:
			reason = "auth mode not ready"
		}
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, readyzResponse{
		Service:       ServiceName,
		Ready:         ready,
		KeystoreReady: keystoreReady,
		AuthReady:     authReady,
		AuthMode:      s.verifier.AuthMode(),
		JWKSReachable: jwksReachable,
		Reason:        reason,
	})
}

// handleStartupz replays the startup report
func (s *Service) handleStartupz(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	s.writeJSON(w, http.StatusOK, startupzResponse{
		Service:       ServiceName,
		StartupReport: s.startup,
	})
}

// handleVersion reports the build identity
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	s.writeJSON(w, http.StatusOK, versionResponse{
		Service:     ServiceName,
		VersionInfo: s.version,
	})
}
