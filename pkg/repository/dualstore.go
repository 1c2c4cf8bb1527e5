package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/log"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// Primary is the Postgres surface the dual store mirrors. It is an
// interface so tests can stand in a failing primary.
type Primary interface {
	SaveWalletBinding(ctx context.Context, binding *types.WalletBinding) error
	LoadWalletBinding(ctx context.Context, walletAddress string) (*types.WalletBinding, error)
	AppendAuditEvent(ctx context.Context, event *types.AuditEvent) (string, error)
	ListAuditEvents(ctx context.Context, limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error)
	UpsertChallenge(ctx context.Context, record *types.ChallengeRecord) error
	MarkChallengeUsed(ctx context.Context, challenge string, usedAtEpochMs int64) error
}

// DualStore writes bindings and audit events to both Postgres and the
// local keystore and reads from Postgres first. Secondary failures are
// logged and counted, never propagated while the other path succeeded;
// with no primary configured everything goes straight to the keystore.
type DualStore struct {
	local    keystore.Store
	primary  Primary
	counters *FallbackCounters
	logger   zerolog.Logger
}

// NewDualStore wires the local keystore with an optional primary.
// primary may be nil.
func NewDualStore(local keystore.Store, primary Primary, counters *FallbackCounters) *DualStore {
	if counters == nil {
		counters = NewFallbackCounters()
	}
	return &DualStore{
		local:    local,
		primary:  primary,
		counters: counters,
		logger:   log.WithComponent("dualstore"),
	}
}

// HasPrimary reports whether a Postgres primary is configured
func (d *DualStore) HasPrimary() bool {
	return d.primary != nil
}

// Counters exposes the fallback counters for /health
func (d *DualStore) Counters() *FallbackCounters {
	return d.counters
}

// SaveBinding writes to both stores. The error surfaces only when no
// path took the write.
func (d *DualStore) SaveBinding(ctx context.Context, binding *types.WalletBinding) error {
	localErr := d.local.SaveWalletBinding(binding)

	var primaryErr error
	if d.primary != nil {
		primaryErr = d.primary.SaveWalletBinding(ctx, binding)
		if primaryErr != nil {
			d.counters.IncBindingWriteFailures()
			d.logger.Warn().Err(primaryErr).
				Str("wallet_address", binding.WalletAddress).
				Msg("failed to persist wallet binding in Postgres")
		}
	}

	if localErr != nil {
		if d.primary == nil || primaryErr != nil {
			return fmt.Errorf("failed to save wallet binding: %w", localErr)
		}
		d.counters.IncBindingWriteFailures()
		d.logger.Warn().Err(localErr).
			Str("wallet_address", binding.WalletAddress).
			Msg("failed to persist wallet binding in local store")
	}
	return nil
}

// LoadBinding prefers Postgres; absence there is authoritative. Only a
// primary error falls back to the keystore.
func (d *DualStore) LoadBinding(ctx context.Context, walletAddress string) (*types.WalletBinding, error) {
	if d.primary != nil {
		binding, err := d.primary.LoadWalletBinding(ctx, walletAddress)
		if err == nil {
			return binding, nil
		}
		d.counters.IncBindingReadFailures()
		d.logger.Warn().Err(err).
			Str("wallet_address", walletAddress).
			Msg("falling back to local store for wallet binding")
	}
	return d.local.LoadWalletBinding(walletAddress)
}

// AppendAudit assigns the event id and timestamp when absent and writes
// both paths so the stores agree on identity
func (d *DualStore) AppendAudit(ctx context.Context, event *types.AuditEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.TimestampEpochMs == 0 {
		event.TimestampEpochMs = time.Now().UnixMilli()
	}

	localErr := d.local.AppendAuditEvent(event)

	var primaryErr error
	if d.primary != nil {
		_, primaryErr = d.primary.AppendAuditEvent(ctx, event)
		if primaryErr != nil {
			d.counters.IncAuditWriteFailures()
			d.logger.Warn().Err(primaryErr).
				Str("event_type", event.EventType).
				Msg("failed to persist audit event in Postgres")
		}
	}

	if localErr != nil {
		if d.primary == nil || primaryErr != nil {
			return fmt.Errorf("failed to append audit event: %w", localErr)
		}
		d.counters.IncAuditWriteFailures()
		d.logger.Warn().Err(localErr).
			Str("event_type", event.EventType).
			Msg("failed to persist audit event in local store")
	}
	return nil
}

// ListAudit prefers Postgres and falls back to the keystore on error
func (d *DualStore) ListAudit(ctx context.Context, limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	if d.primary != nil {
		events, err := d.primary.ListAuditEvents(ctx, limit, eventType, walletAddress, outcome)
		if err == nil {
			return events, nil
		}
		d.counters.IncAuditReadFailures()
		d.logger.Warn().Err(err).Msg("falling back to local store for audit events")
	}
	return d.local.ListAuditEvents(limit, eventType, walletAddress, outcome)
}

// UpsertChallenge mirrors an issued challenge into Postgres. The
// in-memory store is authoritative; failures are counted, not returned.
func (d *DualStore) UpsertChallenge(ctx context.Context, record *types.ChallengeRecord) {
	if d.primary == nil {
		return
	}
	if err := d.primary.UpsertChallenge(ctx, record); err != nil {
		d.counters.IncChallengePersistFailures()
		d.logger.Warn().Err(err).Msg("failed to persist challenge in Postgres")
	}
}

// MarkChallengeUsed mirrors a consumed challenge into Postgres
func (d *DualStore) MarkChallengeUsed(ctx context.Context, challenge string, usedAtEpochMs int64) {
	if d.primary == nil {
		return
	}
	if err := d.primary.MarkChallengeUsed(ctx, challenge, usedAtEpochMs); err != nil {
		d.counters.IncChallengeMarkUsedFailures()
		d.logger.Warn().Err(err).Msg("failed to mark challenge used in Postgres")
	}
}
