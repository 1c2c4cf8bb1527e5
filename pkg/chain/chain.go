package chain

import (
	"context"
)

// FlowCortexL1 is the chain tag for the only chain enabled in the MVP
const FlowCortexL1 = "flowcortex-l1"

// Adapter-level status strings. The service maps these onto the
// persisted transaction lifecycle.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// BalanceResult is a point-in-time balance read
type BalanceResult struct {
	WalletAddress string
	Chain         string
	Asset         string
	Amount        string
}

// SubmitRequest carries a signed transfer to the chain
type SubmitRequest struct {
	From          string
	To            string
	Amount        string
	Asset         string
	Chain         string
	SignedPayload string
}

// SubmitResult reports whether the chain accepted the transfer
type SubmitResult struct {
	TxHash   string
	Accepted bool
}

// StatusResult is the chain's view of a submitted transaction
type StatusResult struct {
	TxHash   string
	Status   string
	Accepted bool
}

// Adapter abstracts one chain. Implementations own their transport;
// all blocking calls take a context.
type Adapter interface {
	// ChainID returns the chain tag this adapter serves
	ChainID() string

	// GetBalance reads the balance of one asset for one address
	GetBalance(ctx context.Context, walletAddress, asset string) (*BalanceResult, error)

	// SubmitTransaction hands a signed transfer to the chain. A
	// structured rejection from the chain is not an error: it comes
	// back as Accepted=false with an informative tx hash.
	SubmitTransaction(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// GetTransactionStatus polls the chain for the state of a
	// submitted transaction
	GetTransactionStatus(ctx context.Context, txHash, chainID string) (*StatusResult, error)
}

// Registry maps chain tags to adapters. Populated once at startup,
// read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under its own chain tag
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.ChainID()] = adapter
}

// Adapter looks up the adapter for a chain tag
func (r *Registry) Adapter(chainID string) (Adapter, bool) {
	adapter, ok := r.adapters[chainID]
	return adapter, ok
}
