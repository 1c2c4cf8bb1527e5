package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeringman/KeyCortex/pkg/types"
)

func TestClientDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "wallet not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenameWallet("0xmissing", "x")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "wallet not found", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "wallet not found")
}

func TestClientSendsAuthAndIdempotencyHeaders(t *testing.T) {
	var gotAuth, gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		_ = json.NewEncoder(w).Encode(types.WalletSubmitResponse{Accepted: true, TxHash: "txn_1"})
	}))
	defer srv.Close()

	kc := NewClientWithToken(srv.URL, "token-abc")
	resp, err := kc.Submit(types.WalletSubmitRequest{From: "0xa", To: "0xb", Amount: "1", Asset: "PROOF", Chain: "flowcortex-l1", Nonce: 1}, "idem-cli-1")
	require.NoError(t, err)

	assert.True(t, resp.Accepted)
	assert.Equal(t, "txn_1", resp.TxHash)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "idem-cli-1", gotIdem)
}

func TestClientListAuditQuery(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(types.OpsAuditResponse{Events: []types.AuditEvent{{EventType: "auth_bind"}}})
	}))
	defer srv.Close()

	events, err := NewClientWithToken(srv.URL, "t").ListAudit("auth_bind", "0xabc", "denied", 25)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "/ops/audit", gotPath)
	assert.Contains(t, gotQuery, "event_type=auth_bind")
	assert.Contains(t, gotQuery, "wallet_address=0xabc")
	assert.Contains(t, gotQuery, "outcome=denied")
	assert.Contains(t, gotQuery, "limit=25")
}

func TestClientUnreachableServer(t *testing.T) {
	kc := NewClient("http://127.0.0.1:1")

	_, err := kc.Health()
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not APIErrors")
}
