package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/config"
	"github.com/veeringman/KeyCortex/pkg/identity"
	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/repository"
	"github.com/veeringman/KeyCortex/pkg/types"
)

const testSecret = "unit-test-authbuddy-secret"

type harness struct {
	svc     *Service
	store   keystore.Store
	mock    *chain.MockAdapter
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	return newHarnessCfg(t, nil)
}

// newHarnessCfg wires a full in-process service against a temp keystore,
// an HS256 verifier and the mock chain adapter
func newHarnessCfg(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.KeystorePath = t.TempDir()
	cfg.EncryptionKey = "unit-test-master-key"
	cfg.JWTSecret = testSecret
	cfg.ChallengeTTLSeconds = 60
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := keystore.NewBoltStore(cfg.KeystorePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mock := &chain.MockAdapter{Confirmed: true}
	registry := chain.NewRegistry()
	registry.Register(mock)

	svc := New(Options{
		Config:     &cfg,
		Store:      store,
		Repository: repository.NewDualStore(store, nil, nil),
		Challenges: challenge.NewStore(cfg.ChallengeTTL()),
		Verifier: identity.NewVerifier(identity.Config{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}),
		Chains: registry,
		Startup: &StartupReport{
			StartedAtEpochMs: time.Now().UnixMilli(),
			KeystorePath:     cfg.KeystorePath,
			KeystoreOK:       true,
			MigrationErrors:  []string{},
			ConfigSummary:    cfg.Summary(),
		},
		Version: VersionInfo{Version: "test", Commit: "none", BuildTime: "unknown"},
	})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	return &harness{svc: svc, store: store, mock: mock, handler: svc.Handler()}
}

// do drives one request through the full instrumented handler chain
func (h *harness) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	decodeBody(t, rec, &resp)
	return resp.Error
}

func (h *harness) createWallet(t *testing.T, label string) types.WalletCreateResponse {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/wallet/create", types.WalletCreateRequest{Label: label}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.WalletCreateResponse
	decodeBody(t, rec, &resp)
	return resp
}

func (h *harness) signPayload(t *testing.T, walletAddress string, payload []byte, purpose types.SignPurpose) string {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/wallet/sign", types.WalletSignRequest{
		WalletAddress: walletAddress,
		Payload:       base64.StdEncoding.EncodeToString(payload),
		Purpose:       purpose,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.WalletSignResponse
	decodeBody(t, rec, &resp)
	return resp.Signature
}

// mintToken signs an HS256 AuthBuddy token the harness verifier accepts
func mintToken(t *testing.T, sub string, roles ...string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
