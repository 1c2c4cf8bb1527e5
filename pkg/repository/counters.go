package repository

import (
	"sync/atomic"

	"github.com/veeringman/KeyCortex/pkg/metrics"
)

// Counter names as they appear in the /health db_fallback_counters map
const (
	CounterPostgresUnavailable       = "postgres_unavailable"
	CounterChallengePersistFailures  = "challenge_persist_failures"
	CounterChallengeMarkUsedFailures = "challenge_mark_used_failures"
	CounterBindingWriteFailures      = "binding_write_failures"
	CounterBindingReadFailures       = "binding_read_failures"
	CounterAuditWriteFailures        = "audit_write_failures"
	CounterAuditReadFailures         = "audit_read_failures"
)

// FallbackCounters tracks Postgres failures absorbed by the local
// store. Increments are atomic and mirrored to the Prometheus fallback
// counter vec.
type FallbackCounters struct {
	postgresUnavailable       atomic.Uint64
	challengePersistFailures  atomic.Uint64
	challengeMarkUsedFailures atomic.Uint64
	bindingWriteFailures      atomic.Uint64
	bindingReadFailures       atomic.Uint64
	auditWriteFailures        atomic.Uint64
	auditReadFailures         atomic.Uint64
}

// NewFallbackCounters creates a zeroed counter set
func NewFallbackCounters() *FallbackCounters {
	return &FallbackCounters{}
}

func bump(name string, v *atomic.Uint64) {
	v.Add(1)
	metrics.DBFallbackTotal.WithLabelValues(name).Inc()
}

// IncPostgresUnavailable records a failed connection attempt at startup
func (c *FallbackCounters) IncPostgresUnavailable() {
	bump(CounterPostgresUnavailable, &c.postgresUnavailable)
}

// IncChallengePersistFailures records a failed challenge mirror write
func (c *FallbackCounters) IncChallengePersistFailures() {
	bump(CounterChallengePersistFailures, &c.challengePersistFailures)
}

// IncChallengeMarkUsedFailures records a failed challenge mark-used
func (c *FallbackCounters) IncChallengeMarkUsedFailures() {
	bump(CounterChallengeMarkUsedFailures, &c.challengeMarkUsedFailures)
}

// IncBindingWriteFailures records a binding write that one path lost
func (c *FallbackCounters) IncBindingWriteFailures() {
	bump(CounterBindingWriteFailures, &c.bindingWriteFailures)
}

// IncBindingReadFailures records a binding read served by the fallback
func (c *FallbackCounters) IncBindingReadFailures() {
	bump(CounterBindingReadFailures, &c.bindingReadFailures)
}

// IncAuditWriteFailures records an audit append that one path lost
func (c *FallbackCounters) IncAuditWriteFailures() {
	bump(CounterAuditWriteFailures, &c.auditWriteFailures)
}

// IncAuditReadFailures records an audit read served by the fallback
func (c *FallbackCounters) IncAuditReadFailures() {
	bump(CounterAuditReadFailures, &c.auditReadFailures)
}

// Snapshot returns every counter plus a computed total, keyed by the
// names /health exposes
func (c *FallbackCounters) Snapshot() map[string]uint64 {
	snapshot := map[string]uint64{
		CounterPostgresUnavailable:       c.postgresUnavailable.Load(),
		CounterChallengePersistFailures:  c.challengePersistFailures.Load(),
		CounterChallengeMarkUsedFailures: c.challengeMarkUsedFailures.Load(),
		CounterBindingWriteFailures:      c.bindingWriteFailures.Load(),
		CounterBindingReadFailures:       c.bindingReadFailures.Load(),
		CounterAuditWriteFailures:        c.auditWriteFailures.Load(),
		CounterAuditReadFailures:         c.auditReadFailures.Load(),
	}

	var total uint64
	for _, v := range snapshot {
		total += v
	}
	snapshot["total"] = total
	return snapshot
}
