package keystore

import (
	"github.com/veeringman/KeyCortex/pkg/types"
)

// Store defines the interface for local wallet state storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Wallet keys (wrapped material only)
	SaveWalletKey(walletAddress string, encryptedKey []byte) error
	LoadWalletKey(walletAddress string) ([]byte, error)
	HasWalletKey(walletAddress string) (bool, error)
	WalletKeyEquals(walletAddress string, encryptedKey []byte) (bool, error)

	// Wallet metadata
	SaveWalletMeta(meta *types.WalletMeta) error
	LoadWalletMeta(walletAddress string) (*types.WalletMeta, error)
	ListWallets() ([]*types.WalletMeta, error)
	CountWallets() (int, error)

	// Bindings
	SaveWalletBinding(binding *types.WalletBinding) error
	LoadWalletBinding(walletAddress string) (*types.WalletBinding, error)
	CountBindings() (int, error)

	// Audit log (append-only)
	AppendAuditEvent(event *types.AuditEvent) error
	ListAuditEvents(limit int, eventType, walletAddress, outcome string) ([]*types.AuditEvent, error)

	// Submitted transactions
	SaveSubmittedTx(tx *types.SubmittedTx) error
	LoadSubmittedTx(txHash string) (*types.SubmittedTx, error)

	// Nonces
	SaveWalletNonce(nonce *types.WalletNonce) error
	LoadWalletNonce(walletAddress string) (*types.WalletNonce, error)

	// Submit idempotency
	SaveSubmitIdempotency(record *types.SubmitIdempotency) error
	LoadSubmitIdempotency(key string) (*types.SubmitIdempotency, error)

	// Utility
	Ping() error
	Close() error
}
