package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/types"
)

var errPrimaryDown = errors.New("postgres down")

// fakePrimary is an in-memory Primary with a failure switch
type fakePrimary struct {
	bindings   map[string]*types.WalletBinding
	events     []*types.AuditEvent
	challenges map[string]*types.ChallengeRecord
	usedAt     map[string]int64
	fail       bool
}

func newFakePrimary() *fakePrimary {
	return &fakePrimary{
		bindings:   make(map[string]*types.WalletBinding),
		challenges: make(map[string]*types.ChallengeRecord),
		usedAt:     make(map[string]int64),
	}
}

func (f *fakePrimary) SaveWalletBinding(_ context.Context, binding *types.WalletBinding) error {
	if f.fail {
		return errPrimaryDown
	}
	copied := *binding
	f.bindings[binding.WalletAddress] = &copied
	return nil
}

func (f *fakePrimary) LoadWalletBinding(_ context.Context, walletAddress string) (*types.WalletBinding, error) {
	if f.fail {
		return nil, errPrimaryDown
	}
	return f.bindings[walletAddress], nil
}

func (f *fakePrimary) AppendAuditEvent(_ context.Context, event *types.AuditEvent) (string, error) {
	if f.fail {
		return "", errPrimaryDown
	}
	copied := *event
	f.events = append(f.events, &copied)
	return event.EventID, nil
}

func (f *fakePrimary) ListAuditEvents(_ context.Context, limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error) {
	if f.fail {
		return nil, errPrimaryDown
	}
	var out []*types.AuditEvent
	for _, event := range f.events {
		if eventType != "" && event.EventType != eventType {
			continue
		}
		if walletAddress != "" && event.WalletAddress != walletAddress {
			continue
		}
		if outcome != "" && string(event.Outcome) != outcome {
			continue
		}
		out = append(out, event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePrimary) UpsertChallenge(_ context.Context, record *types.ChallengeRecord) error {
	if f.fail {
		return errPrimaryDown
	}
	copied := *record
	f.challenges[record.Challenge] = &copied
	return nil
}

func (f *fakePrimary) MarkChallengeUsed(_ context.Context, challenge string, usedAtEpochMs int64) error {
	if f.fail {
		return errPrimaryDown
	}
	f.usedAt[challenge] = usedAtEpochMs
	return nil
}

func newTestLocal(t *testing.T) keystore.Store {
	t.Helper()

	store, err := keystore.NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testBinding(addr string) *types.WalletBinding {
	return &types.WalletBinding{
		WalletAddress:       addr,
		UserID:              "user-1",
		Chain:               "flowcortex-l1",
		LastVerifiedEpochMs: time.Now().UnixMilli(),
	}
}

func TestDualStoreBindingWritesBothPaths(t *testing.T) {
	local := newTestLocal(t)
	primary := newFakePrimary()
	store := NewDualStore(local, primary, NewFallbackCounters())
	ctx := context.Background()

	if err := store.SaveBinding(ctx, testBinding("0xabc")); err != nil {
		t.Fatalf("SaveBinding() error = %v", err)
	}

	if primary.bindings["0xabc"] == nil {
		t.Error("binding missing from primary")
	}
	fromLocal, err := local.LoadWalletBinding("0xabc")
	if err != nil || fromLocal == nil {
		t.Errorf("binding missing from local store: %v, err = %v", fromLocal, err)
	}

	loaded, err := store.LoadBinding(ctx, "0xabc")
	if err != nil {
		t.Fatalf("LoadBinding() error = %v", err)
	}
	if loaded == nil || loaded.UserID != "user-1" {
		t.Errorf("LoadBinding() = %+v, want user-1 binding", loaded)
	}
}

func TestDualStorePrimaryWriteFailureIsAbsorbed(t *testing.T) {
	local := newTestLocal(t)
	primary := newFakePrimary()
	primary.fail = true
	counters := NewFallbackCounters()
	store := NewDualStore(local, primary, counters)
	ctx := context.Background()

	if err := store.SaveBinding(ctx, testBinding("0xdef")); err != nil {
		t.Fatalf("SaveBinding() error = %v, want absorbed failure", err)
	}

	snapshot := counters.Snapshot()
	if snapshot[CounterBindingWriteFailures] != 1 {
		t.Errorf("binding_write_failures = %d, want 1", snapshot[CounterBindingWriteFailures])
	}
	if snapshot["total"] != 1 {
		t.Errorf("total = %d, want 1", snapshot["total"])
	}

	// The local copy still serves reads once the primary errors too
	loaded, err := store.LoadBinding(ctx, "0xdef")
	if err != nil {
		t.Fatalf("LoadBinding() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadBinding() = nil, want local fallback copy")
	}
	if counters.Snapshot()[CounterBindingReadFailures] != 1 {
		t.Error("binding_read_failures not incremented on fallback read")
	}
}

func TestDualStorePrimaryAbsenceIsAuthoritative(t *testing.T) {
	local := newTestLocal(t)
	if err := local.SaveWalletBinding(testBinding("0xonly-local")); err != nil {
		t.Fatalf("SaveWalletBinding() error = %v", err)
	}

	store := NewDualStore(local, newFakePrimary(), NewFallbackCounters())

	// The healthy primary has no row, so the stale local copy must not
	// resurrect it
	loaded, err := store.LoadBinding(context.Background(), "0xonly-local")
	if err != nil {
		t.Fatalf("LoadBinding() error = %v", err)
	}
	if loaded != nil {
		t.Errorf("LoadBinding() = %+v, want nil when primary lacks the row", loaded)
	}
}

func TestDualStoreWithoutPrimary(t *testing.T) {
	local := newTestLocal(t)
	store := NewDualStore(local, nil, nil)
	ctx := context.Background()

	if store.HasPrimary() {
		t.Error("HasPrimary() = true, want false")
	}

	if err := store.SaveBinding(ctx, testBinding("0x123")); err != nil {
		t.Fatalf("SaveBinding() error = %v", err)
	}
	loaded, err := store.LoadBinding(ctx, "0x123")
	if err != nil || loaded == nil {
		t.Fatalf("LoadBinding() = %v, err = %v", loaded, err)
	}

	// Challenge mirrors are no-ops without a primary
	store.UpsertChallenge(ctx, &types.ChallengeRecord{Challenge: "c-1"})
	store.MarkChallengeUsed(ctx, "c-1", time.Now().UnixMilli())

	if total := store.Counters().Snapshot()["total"]; total != 0 {
		t.Errorf("counters total = %d, want 0", total)
	}
}

func TestDualStoreAuditAssignsIdentity(t *testing.T) {
	local := newTestLocal(t)
	primary := newFakePrimary()
	store := NewDualStore(local, primary, NewFallbackCounters())
	ctx := context.Background()

	event := &types.AuditEvent{
		EventType: "auth_bind",
		Outcome:   types.OutcomeSuccess,
	}
	if err := store.AppendAudit(ctx, event); err != nil {
		t.Fatalf("AppendAudit() error = %v", err)
	}

	if event.EventID == "" {
		t.Error("AppendAudit() left EventID empty")
	}
	if event.TimestampEpochMs == 0 {
		t.Error("AppendAudit() left TimestampEpochMs zero")
	}
	if len(primary.events) != 1 || primary.events[0].EventID != event.EventID {
		t.Error("primary and local disagree on the audit event id")
	}
}

func TestDualStoreAuditListFallsBack(t *testing.T) {
	local := newTestLocal(t)
	primary := newFakePrimary()
	counters := NewFallbackCounters()
	store := NewDualStore(local, primary, counters)
	ctx := context.Background()

	if err := store.AppendAudit(ctx, &types.AuditEvent{
		EventType: "ops_access",
		Outcome:   types.OutcomeDenied,
	}); err != nil {
		t.Fatalf("AppendAudit() error = %v", err)
	}

	primary.fail = true
	events, err := store.ListAudit(ctx, 10, "ops_access", "", "")
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListAudit() returned %d events, want 1 from local fallback", len(events))
	}
	if counters.Snapshot()[CounterAuditReadFailures] != 1 {
		t.Error("audit_read_failures not incremented")
	}
}

func TestDualStoreChallengeMirrorFailuresAreCounted(t *testing.T) {
	local := newTestLocal(t)
	primary := newFakePrimary()
	primary.fail = true
	counters := NewFallbackCounters()
	store := NewDualStore(local, primary, counters)
	ctx := context.Background()

	store.UpsertChallenge(ctx, &types.ChallengeRecord{Challenge: "c-2"})
	store.MarkChallengeUsed(ctx, "c-2", time.Now().UnixMilli())

	snapshot := counters.Snapshot()
	if snapshot[CounterChallengePersistFailures] != 1 {
		t.Errorf("challenge_persist_failures = %d, want 1", snapshot[CounterChallengePersistFailures])
	}
	if snapshot[CounterChallengeMarkUsedFailures] != 1 {
		t.Errorf("challenge_mark_used_failures = %d, want 1", snapshot[CounterChallengeMarkUsedFailures])
	}
}
