package types

// SignPurpose selects the signature domain for a signing operation
type SignPurpose string

const (
	PurposeTransaction SignPurpose = "transaction"
	PurposeAuth        SignPurpose = "auth"
	PurposeProof       SignPurpose = "proof"
)

// Valid reports whether the purpose is one of the known signing domains
func (p SignPurpose) Valid() bool {
	switch p {
	case PurposeTransaction, PurposeAuth, PurposeProof:
		return true
	}
	return false
}

// TxStatus represents the lifecycle state of a submitted transaction
type TxStatus string

const (
	TxStatusSubmitted TxStatus = "submitted"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusRejected  TxStatus = "rejected"
	TxStatusUnknown   TxStatus = "unknown"
)

// AuditOutcome is the result tag recorded on an audit event
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeDenied  AuditOutcome = "denied"
)

// --- Persisted records (compact JSON values in the keystore) ---

// WalletMeta holds label and public-key metadata alongside a wallet key
type WalletMeta struct {
	WalletAddress    string `json:"wallet_address"`
	PublicKey        string `json:"public_key"`
	Label            string `json:"label,omitempty"`
	CreatedAtEpochMs int64  `json:"created_at_epoch_ms"`
	UpdatedAtEpochMs int64  `json:"updated_at_epoch_ms"`
}

// WalletBinding maps a wallet address to an external user identity
type WalletBinding struct {
	WalletAddress       string `json:"wallet_address"`
	UserID              string `json:"user_id"`
	Chain               string `json:"chain"`
	LastVerifiedEpochMs int64  `json:"last_verified_epoch_ms"`
}

// AuditEvent is an append-only audit record
type AuditEvent struct {
	EventID          string       `json:"event_id"`
	EventType        string       `json:"event_type"`
	WalletAddress    string       `json:"wallet_address,omitempty"`
	UserID           string       `json:"user_id,omitempty"`
	Chain            string       `json:"chain,omitempty"`
	Outcome          AuditOutcome `json:"outcome"`
	Message          string       `json:"message,omitempty"`
	TimestampEpochMs int64        `json:"timestamp_epoch_ms"`
}

// SubmittedTx records a transfer handed to the chain adapter
type SubmittedTx struct {
	TxHash           string   `json:"tx_hash"`
	Chain            string   `json:"chain"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	Asset            string   `json:"asset"`
	Amount           string   `json:"amount"`
	Status           TxStatus `json:"status"`
	Accepted         bool     `json:"accepted"`
	SubmittedAtEpoch int64    `json:"submitted_at_epoch_ms"`
}

// WalletNonce tracks the last accepted nonce per wallet
type WalletNonce struct {
	WalletAddress    string `json:"wallet_address"`
	LastNonce        uint64 `json:"last_nonce"`
	UpdatedAtEpochMs int64  `json:"updated_at_epoch_ms"`
}

// SubmitIdempotency memoizes the response of a submit for replay
type SubmitIdempotency struct {
	IdempotencyKey   string `json:"idempotency_key"`
	Accepted         bool   `json:"accepted"`
	TxHash           string `json:"tx_hash"`
	Signature        string `json:"signature"`
	CreatedAtEpochMs int64  `json:"created_at_epoch_ms"`
}

// ChallengeRecord is the durable mirror of an issued challenge
type ChallengeRecord struct {
	Challenge       string `json:"challenge"`
	IssuedAtEpochMs int64  `json:"issued_at_epoch_ms"`
	ExpiresAtEpoch  int64  `json:"expires_at_epoch_ms"`
	Used            bool   `json:"used"`
	UsedAtEpochMs   int64  `json:"used_at_epoch_ms,omitempty"`
}

// --- Wallet API wire types ---

type WalletCreateRequest struct {
	Label string `json:"label,omitempty"`
}

type WalletCreateResponse struct {
	WalletAddress string `json:"wallet_address"`
	PublicKey     string `json:"public_key"`
	Chain         string `json:"chain"`
	Label         string `json:"label,omitempty"`
}

type WalletRestoreRequest struct {
	Passphrase string `json:"passphrase"`
	Label      string `json:"label,omitempty"`
}

type WalletRestoreResponse struct {
	WalletAddress  string `json:"wallet_address"`
	PublicKey      string `json:"public_key"`
	Chain          string `json:"chain"`
	Label          string `json:"label,omitempty"`
	AlreadyExisted bool   `json:"already_existed"`
}

type WalletRenameRequest struct {
	WalletAddress string `json:"wallet_address"`
	Label         string `json:"label"`
}

type WalletRenameResponse struct {
	WalletAddress string `json:"wallet_address"`
	Label         string `json:"label"`
}

// WalletSummary is one row of the wallet list
type WalletSummary struct {
	WalletAddress string `json:"wallet_address"`
	Chain         string `json:"chain"`
	BoundUserID   string `json:"bound_user_id,omitempty"`
	PublicKey     string `json:"public_key,omitempty"`
	Label         string `json:"label,omitempty"`
}

type WalletListResponse struct {
	Wallets []WalletSummary `json:"wallets"`
	Total   int             `json:"total"`
}

type WalletSignRequest struct {
	WalletAddress string      `json:"wallet_address"`
	Payload       string      `json:"payload"` // base64
	Purpose       SignPurpose `json:"purpose"`
}

type WalletSignResponse struct {
	Signature string `json:"signature"` // lowercase hex
}

type WalletBalanceResponse struct {
	WalletAddress string `json:"wallet_address"`
	Chain         string `json:"chain"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
}

type WalletSubmitRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Asset  string `json:"asset"`
	Chain  string `json:"chain"`
	Nonce  uint64 `json:"nonce"`
}

type WalletSubmitResponse struct {
	Accepted  bool   `json:"accepted"`
	TxHash    string `json:"tx_hash"`
	Signature string `json:"signature"`
}

type WalletNonceResponse struct {
	WalletAddress string `json:"wallet_address"`
	LastNonce     uint64 `json:"last_nonce"`
	NextNonce     uint64 `json:"next_nonce"`
}

type WalletTxStatusResponse struct {
	TxHash           string   `json:"tx_hash"`
	Status           TxStatus `json:"status"`
	Accepted         bool     `json:"accepted"`
	Chain            string   `json:"chain"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	Asset            string   `json:"asset"`
	Amount           string   `json:"amount"`
	SubmittedAtEpoch int64    `json:"submitted_at_epoch_ms"`
}

// --- Auth wire types ---

type AuthChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

type AuthVerifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Signature     string `json:"signature"` // hex
	Challenge     string `json:"challenge"`
}

type AuthVerifyResponse struct {
	Valid             bool   `json:"valid"`
	WalletAddress     string `json:"wallet_address"`
	VerifiedAtEpochMs int64  `json:"verified_at_epoch_ms"`
}

type AuthBindRequest struct {
	WalletAddress string `json:"wallet_address"`
	Chain         string `json:"chain"`
}

type AuthBindResponse struct {
	Bound          bool   `json:"bound"`
	UserID         string `json:"user_id"`
	WalletAddress  string `json:"wallet_address"`
	Chain          string `json:"chain"`
	BoundAtEpochMs int64  `json:"bound_at_epoch_ms"`
}

// BindCallbackPayload is POSTed to the identity provider after a bind
type BindCallbackPayload struct {
	UserID         string `json:"user_id"`
	WalletAddress  string `json:"wallet_address"`
	Chain          string `json:"chain"`
	BoundAtEpochMs int64  `json:"bound_at_epoch_ms"`
}

// --- ProofCortex wire types ---

type CommitmentRequest struct {
	WalletAddress      string `json:"wallet_address"`
	Challenge          string `json:"challenge"`
	VerificationResult bool   `json:"verification_result"`
	Chain              string `json:"chain"`
	TxHash             string `json:"tx_hash,omitempty"`
}

type CommitmentResponse struct {
	Commitment              string `json:"commitment"`
	WalletAddress           string `json:"wallet_address"`
	Chain                   string `json:"chain"`
	VerificationResult      bool   `json:"verification_result"`
	DomainSeparator         string `json:"domain_separator"`
	ProofInputSchemaVersion string `json:"proof_input_schema_version"`
	GeneratedAtEpochMs      int64  `json:"generated_at_epoch_ms"`
}

// --- FortressDigital wire types ---

type WalletStatusRequest struct {
	WalletAddress string `json:"wallet_address"`
	Chain         string `json:"chain"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
}

// WalletBindingStatus summarizes the binding for policy decisions
type WalletBindingStatus struct {
	Bound               bool   `json:"bound"`
	UserID              string `json:"user_id,omitempty"`
	LastVerifiedEpochMs *int64 `json:"last_verified_epoch_ms,omitempty"`
}

type WalletStatusResponse struct {
	WalletAddress          string              `json:"wallet_address"`
	Chain                  string              `json:"chain"`
	WalletExists           bool                `json:"wallet_exists"`
	BindingStatus          WalletBindingStatus `json:"binding_status"`
	KeyType                string              `json:"key_type"`
	LastVerificationEpoch  *int64              `json:"last_verification_epoch_ms,omitempty"`
	SignatureFrequencyHint string              `json:"signature_frequency_hint"`
	RiskSignals            []string            `json:"risk_signals"`
}

// --- Chain config wire types ---

type ChainDomainTags struct {
	TxDomainTag    string `json:"tx_domain_tag"`
	AuthDomainTag  string `json:"auth_domain_tag"`
	ProofDomainTag string `json:"proof_domain_tag"`
}

type ChainAssetInfo struct {
	Symbol            string `json:"symbol"`
	AssetType         string `json:"asset_type"`
	Decimals          int    `json:"decimals"`
	FeePaymentSupport bool   `json:"fee_payment_support"`
}

type ChainConfigResponse struct {
	ChainSlug       string           `json:"chain_slug"`
	ChainIDNumeric  *int64           `json:"chain_id_numeric"`
	SignatureScheme string           `json:"signature_scheme"`
	AddressScheme   string           `json:"address_scheme"`
	Domains         ChainDomainTags  `json:"domains"`
	Assets          []ChainAssetInfo `json:"assets"`
	FinalityRule    string           `json:"finality_rule"`
	Environment     string           `json:"environment"`
}

// --- Ops wire types ---

type OpsAuditResponse struct {
	Events []AuditEvent `json:"events"`
}

// ErrorResponse is the uniform error body for every endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}
