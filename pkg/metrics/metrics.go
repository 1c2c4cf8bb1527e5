package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	WalletsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keycortex_wallets_total",
			Help: "Total number of custodied wallets",
		},
	)

	BindingsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keycortex_wallet_bindings_total",
			Help: "Total number of wallet-to-user bindings",
		},
	)

	ChallengesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keycortex_challenges_active",
			Help: "Number of challenges currently held in memory",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keycortex_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Signing and submission metrics
	SignaturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_signatures_total",
			Help: "Total number of signatures produced by purpose",
		},
		[]string{"purpose"},
	)

	SubmitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_submits_total",
			Help: "Total number of transfer submissions by acceptance",
		},
		[]string{"accepted"},
	)

	// Auth metrics
	ChallengesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keycortex_challenges_issued_total",
			Help: "Total number of auth challenges issued",
		},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_audit_events_total",
			Help: "Total number of audit events appended by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// JWKS metrics
	JWKSRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_jwks_refresh_total",
			Help: "Total number of JWKS refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	JWKSKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keycortex_jwks_keys",
			Help: "Number of keys in the loaded JWKS",
		},
	)

	// Dual-write metrics
	DBFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keycortex_db_fallback_total",
			Help: "Total number of Postgres failures absorbed by the local store",
		},
		[]string{"counter"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(WalletsTotal)
	prometheus.MustRegister(BindingsTotal)
	prometheus.MustRegister(ChallengesActive)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SignaturesTotal)
	prometheus.MustRegister(SubmitsTotal)
	prometheus.MustRegister(ChallengesIssuedTotal)
	prometheus.MustRegister(AuditEventsTotal)
	prometheus.MustRegister(JWKSRefreshTotal)
	prometheus.MustRegister(JWKSKeys)
	prometheus.MustRegister(DBFallbackTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
