package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/veeringman/KeyCortex/pkg/types"
)

// Client wraps the KeyCortex HTTP API for easy CLI usage
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// APIError is a non-2xx response decoded from the service's uniform
// error body
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keycortex api: %s (status %d)", e.Message, e.StatusCode)
}

// NewClient creates a new KeyCortex client against the given base URL,
// e.g. "http://localhost:8090"
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithToken creates a client that sends the given bearer token
// on every request. Required for /auth/bind and the /ops endpoints.
func NewClientWithToken(baseURL, token string) *Client {
	c := NewClient(baseURL)
	c.token = token
	return c
}

// CreateWallet creates a new custodial wallet
func (c *Client) CreateWallet(label string) (*types.WalletCreateResponse, error) {
	var resp types.WalletCreateResponse
	if err := c.post("/wallet/create", types.WalletCreateRequest{Label: label}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RestoreWallet re-derives a wallet from its passphrase
func (c *Client) RestoreWallet(passphrase, label string) (*types.WalletRestoreResponse, error) {
	var resp types.WalletRestoreResponse
	req := types.WalletRestoreRequest{Passphrase: passphrase, Label: label}
	if err := c.post("/wallet/restore", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenameWallet sets the display label of an existing wallet
func (c *Client) RenameWallet(walletAddress, label string) (*types.WalletRenameResponse, error) {
	var resp types.WalletRenameResponse
	req := types.WalletRenameRequest{WalletAddress: walletAddress, Label: label}
	if err := c.post("/wallet/rename", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListWallets lists every custodied wallet
func (c *Client) ListWallets() (*types.WalletListResponse, error) {
	var resp types.WalletListResponse
	if err := c.get("/wallet/list", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sign signs a base64 payload under the given purpose domain
func (c *Client) Sign(walletAddress, payloadB64 string, purpose types.SignPurpose) (*types.WalletSignResponse, error) {
	var resp types.WalletSignResponse
	req := types.WalletSignRequest{WalletAddress: walletAddress, Payload: payloadB64, Purpose: purpose}
	if err := c.post("/wallet/sign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit signs and submits a transfer. A non-empty idempotencyKey makes
// retries safe: replays return the first outcome.
func (c *Client) Submit(req types.WalletSubmitRequest, idempotencyKey string) (*types.WalletSubmitResponse, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var resp types.WalletSubmitResponse
	if err := c.do(http.MethodPost, "/wallet/submit", headers, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance queries the chain adapter for one asset balance
func (c *Client) Balance(walletAddress, chain, asset string) (*types.WalletBalanceResponse, error) {
	query := url.Values{}
	query.Set("wallet_address", walletAddress)
	if chain != "" {
		query.Set("chain", chain)
	}
	if asset != "" {
		query.Set("asset", asset)
	}

	var resp types.WalletBalanceResponse
	if err := c.get("/wallet/balance?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Nonce reports the last accepted nonce and the next usable one
func (c *Client) Nonce(walletAddress string) (*types.WalletNonceResponse, error) {
	query := url.Values{}
	query.Set("wallet_address", walletAddress)

	var resp types.WalletNonceResponse
	if err := c.get("/wallet/nonce?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TxStatus fetches the lifecycle state of a submitted transaction
func (c *Client) TxStatus(txHash string) (*types.WalletTxStatusResponse, error) {
	var resp types.WalletTxStatusResponse
	if err := c.get("/wallet/tx/"+url.PathEscape(txHash), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Challenge issues a fresh auth challenge
func (c *Client) Challenge() (*types.AuthChallengeResponse, error) {
	var resp types.AuthChallengeResponse
	if err := c.post("/auth/challenge", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify checks a wallet's signature over a previously issued challenge
func (c *Client) Verify(req types.AuthVerifyRequest) (*types.AuthVerifyResponse, error) {
	var resp types.AuthVerifyResponse
	if err := c.post("/auth/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bind links a wallet to the JWT principal. Requires a token.
func (c *Client) Bind(req types.AuthBindRequest) (*types.AuthBindResponse, error) {
	var resp types.AuthBindResponse
	if err := c.post("/auth/bind", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Commitment computes the deterministic proof commitment
func (c *Client) Commitment(req types.CommitmentRequest) (*types.CommitmentResponse, error) {
	var resp types.CommitmentResponse
	if err := c.post("/proofcortex/commitment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WalletStatus fetches the policy view of a wallet
func (c *Client) WalletStatus(req types.WalletStatusRequest) (*types.WalletStatusResponse, error) {
	var resp types.WalletStatusResponse
	if err := c.post("/fortressdigital/wallet-status", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChainConfig fetches the published chain parameters
func (c *Client) ChainConfig() (*types.ChainConfigResponse, error) {
	var resp types.ChainConfigResponse
	if err := c.get("/chain/config", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBinding reads one wallet binding. Requires an ops-admin token.
func (c *Client) GetBinding(walletAddress string) (*types.WalletBinding, error) {
	var resp types.WalletBinding
	if err := c.get("/ops/bindings/"+url.PathEscape(walletAddress), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAudit pages the audit trail newest-first. Empty filters match
// everything; limit <= 0 uses the server default. Requires an
// ops-admin token.
func (c *Client) ListAudit(eventType, walletAddress, outcome string, limit int) ([]types.AuditEvent, error) {
	query := url.Values{}
	if eventType != "" {
		query.Set("event_type", eventType)
	}
	if walletAddress != "" {
		query.Set("wallet_address", walletAddress)
	}
	if outcome != "" {
		query.Set("outcome", outcome)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/ops/audit"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp types.OpsAuditResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// HealthStatus mirrors the /health diagnostics body
type HealthStatus struct {
	Service                string            `json:"service"`
	Status                 string            `json:"status"`
	AuthMode               string            `json:"auth_mode"`
	JWKSSource             string            `json:"jwks_source,omitempty"`
	JWKSLoaded             bool              `json:"jwks_loaded"`
	LastJWKSRefreshEpochMs int64             `json:"last_jwks_refresh_epoch_ms,omitempty"`
	LastJWKSError          string            `json:"last_jwks_error,omitempty"`
	DBFallbackCounters     map[string]uint64 `json:"db_fallback_counters"`
}

// ReadyStatus mirrors the /readyz body
type ReadyStatus struct {
	Service       string `json:"service"`
	Ready         bool   `json:"ready"`
	KeystoreReady bool   `json:"keystore_ready"`
	AuthReady     bool   `json:"auth_ready"`
	AuthMode      string `json:"auth_mode"`
	JWKSReachable *bool  `json:"jwks_reachable,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// StartupStatus mirrors the /startupz body
type StartupStatus struct {
	Service            string            `json:"service"`
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

// VersionStatus mirrors the /version body
type VersionStatus struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Health fetches the liveness diagnostics
func (c *Client) Health() (*HealthStatus, error) {
	var resp HealthStatus
	if err := c.get("/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Readyz fetches readiness. A not-ready service answers 503, which
// surfaces here as an *APIError.
func (c *Client) Readyz() (*ReadyStatus, error) {
	var resp ReadyStatus
	if err := c.get("/readyz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Startupz fetches the report the server assembled while wiring itself
func (c *Client) Startupz() (*StartupStatus, error) {
	var resp StartupStatus
	if err := c.get("/startupz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version fetches the build identity
func (c *Client) Version() (*VersionStatus, error) {
	var resp VersionStatus
	if err := c.get("/version", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, nil, out)
}

func (c *Client) post(path string, body, out interface{}) error {
	return c.do(http.MethodPost, path, nil, body, out)
}

// do runs one request and decodes the JSON response. Non-2xx answers
// become *APIError carrying the service's error message.
func (c *Client) do(method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var apiErr types.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil || apiErr.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
