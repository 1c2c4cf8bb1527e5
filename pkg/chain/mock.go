package chain

import (
	"context"
	"fmt"
)

// MockAdapter is an in-memory Adapter for tests and local development.
// It accepts every transfer with the same deterministic hash derivation
// as the real adapter, unless configured to reject or fail.
type MockAdapter struct {
	// Chain overrides the chain tag; defaults to FlowCortexL1
	Chain string

	// Balances maps "<address>/<asset>" to an amount string; absent
	// entries read as "0"
	Balances map[string]string

	// Confirmed controls transaction status polls: true reports
	// confirmed, false reports pending
	Confirmed bool

	// RejectWith, when non-empty, makes submits come back rejected
	// with tx hash "failed:<RejectWith>"
	RejectWith string

	// Err, when set, is returned from every call to simulate a
	// transport failure
	Err error

	// Submitted records every accepted submit request
	Submitted []SubmitRequest
}

// ChainID returns the configured chain tag
func (m *MockAdapter) ChainID() string {
	if m.Chain != "" {
		return m.Chain
	}
	return FlowCortexL1
}

// GetBalance reads from the configured balance map
func (m *MockAdapter) GetBalance(ctx context.Context, walletAddress, asset string) (*BalanceResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	amount := "0"
	if m.Balances != nil {
		if v, ok := m.Balances[fmt.Sprintf("%s/%s", walletAddress, asset)]; ok {
			amount = v
		}
	}

	return &BalanceResult{
		WalletAddress: walletAddress,
		Chain:         m.ChainID(),
		Asset:         asset,
		Amount:        amount,
	}, nil
}

// SubmitTransaction accepts (or rejects, per RejectWith) the transfer
func (m *MockAdapter) SubmitTransaction(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	if m.RejectWith != "" {
		return &SubmitResult{
			TxHash:   "failed:" + m.RejectWith,
			Accepted: false,
		}, nil
	}

	m.Submitted = append(m.Submitted, req)
	return &SubmitResult{
		TxHash:   deriveTxHash(req.From, req.To, req.Asset, req.Amount, req.Chain),
		Accepted: true,
	}, nil
}

// GetTransactionStatus reports confirmed or pending per the Confirmed
// flag
func (m *MockAdapter) GetTransactionStatus(ctx context.Context, txHash, chainID string) (*StatusResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	status := StatusPending
	if m.Confirmed {
		status = StatusConfirmed
	}

	return &StatusResult{
		TxHash:   txHash,
		Status:   status,
		Accepted: true,
	}, nil
}
