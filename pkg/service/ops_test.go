package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeringman/KeyCortex/pkg/types"
)

// bindWallet binds a created wallet to the given user for ops fixtures
func bindWallet(t *testing.T, h *harness, walletAddress, userID string) {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/auth/bind",
		types.AuthBindRequest{WalletAddress: walletAddress, Chain: "flowcortex-l1"},
		bearer(mintToken(t, userID)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOpsAccessDenied(t *testing.T) {
	h := newHarness(t)

	// no token
	rec := h.do(t, http.MethodGet, "/ops/audit", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ops access denied", errorOf(t, rec))

	events, err := h.store.ListAuditEvents(10, "ops_access", "", "denied")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ops_list_audit: missing Authorization header", events[0].Message)
	assert.Empty(t, events[0].UserID)

	// authenticated but without the ops-admin role
	rec = h.do(t, http.MethodGet, "/ops/audit", nil, bearer(mintToken(t, "user-123")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "ops access denied", errorOf(t, rec))

	events, err = h.store.ListAuditEvents(10, "ops_access", "", "denied")
	require.NoError(t, err)
	require.Len(t, events, 2)
	messages := []string{events[0].Message, events[1].Message}
	assert.Contains(t, messages, "ops_list_audit: missing ops-admin role in JWT claims")
	for _, event := range events {
		if event.Message == "ops_list_audit: missing ops-admin role in JWT claims" {
			assert.Equal(t, "user-123", event.UserID)
		}
	}
}

func TestOpsListAudit(t *testing.T) {
	h := newHarness(t)
	created := h.createWallet(t, "")
	bindWallet(t, h, created.WalletAddress, "user-123")

	ops := bearer(mintToken(t, "admin-1", "ops-admin"))

	rec := h.do(t, http.MethodGet, "/ops/audit", nil, ops)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing types.OpsAuditResponse
	decodeBody(t, rec, &listing)
	require.NotEmpty(t, listing.Events)

	// the access grant itself was audited before the read ran
	granted := false
	for _, event := range listing.Events {
		if event.EventType == "ops_access" && event.Message == "ops_list_audit: access granted" {
			granted = true
		}
	}
	assert.True(t, granted, "expected the request's own access grant in the trail")

	// filters narrow to the bind success
	rec = h.do(t, http.MethodGet,
		"/ops/audit?event_type=auth_bind&outcome=success&wallet_address="+created.WalletAddress, nil, ops)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Events, 1)
	assert.Equal(t, "wallet binding persisted", listing.Events[0].Message)
	assert.Equal(t, "user-123", listing.Events[0].UserID)

	// limit clamps take effect
	rec = h.do(t, http.MethodGet, "/ops/audit?limit=1", nil, ops)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listing)
	assert.Len(t, listing.Events, 1)
}

func TestOpsGetBinding(t *testing.T) {
	h := newHarness(t)
	created := h.createWallet(t, "")
	bindWallet(t, h, created.WalletAddress, "user-123")

	ops := bearer(mintToken(t, "admin-1", "ops-admin"))

	rec := h.do(t, http.MethodGet, "/ops/bindings/"+created.WalletAddress, nil, ops)
	require.Equal(t, http.StatusOK, rec.Code)

	var binding types.WalletBinding
	decodeBody(t, rec, &binding)
	assert.Equal(t, created.WalletAddress, binding.WalletAddress)
	assert.Equal(t, "user-123", binding.UserID)
	assert.Equal(t, "flowcortex-l1", binding.Chain)
	assert.Greater(t, binding.LastVerifiedEpochMs, int64(0))

	rec = h.do(t, http.MethodGet, "/ops/bindings/0xunbound", nil, ops)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "wallet binding not found", errorOf(t, rec))

	rec = h.do(t, http.MethodGet, "/ops/bindings/", nil, ops)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "wallet_address is required", errorOf(t, rec))

	// the path wallet address lands in the access audit trail
	events, err := h.store.ListAuditEvents(10, "ops_access", created.WalletAddress, "success")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "ops_get_binding: access granted", events[0].Message)
}
