package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// signature_frequency_hint thresholds
const (
	activeWindow = time.Hour
	recentWindow = 24 * time.Hour
)

// handleWalletStatus serves the FortressDigital policy read: wallet
// existence, binding state, a verification-freshness hint and the risk
// signals a downstream policy engine keys on
func (s *Service) handleWalletStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.WalletStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	chainID := req.Chain
	if chainID == "" {
		chainID = chain.FlowCortexL1
	}
	if chainID != chain.FlowCortexL1 {
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}

	exists, err := s.store.HasWalletKey(req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}

	binding, err := s.repo.LoadBinding(r.Context(), req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	hint := "unknown"
	bindingStatus := types.WalletBindingStatus{}
	var lastVerification *int64

	if binding != nil {
		verified := binding.LastVerifiedEpochMs
		bindingStatus = types.WalletBindingStatus{
			Bound:               true,
			UserID:              binding.UserID,
			LastVerifiedEpochMs: &verified,
		}
		lastVerification = &verified

		age := time.Duration(now-verified) * time.Millisecond
		switch {
		case age <= activeWindow:
			hint = "active"
		case age <= recentWindow:
			hint = "recent"
		default:
			hint = "stale"
		}
	}

	risks := make([]string, 0, 3)
	if !exists {
		risks = append(risks, "wallet-not-found")
	}
	if binding == nil {
		risks = append(risks, "wallet-unbound")
	}
	if hint == "stale" {
		risks = append(risks, "stale-verification")
	}

	s.writeJSON(w, http.StatusOK, types.WalletStatusResponse{
		WalletAddress:          req.WalletAddress,
		Chain:                  chainID,
		WalletExists:           exists,
		BindingStatus:          bindingStatus,
		KeyType:                "ed25519",
		LastVerificationEpoch:  lastVerification,
		SignatureFrequencyHint: hint,
		RiskSignals:            risks,
	})
}
