package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/veeringman/KeyCortex/pkg/commitment"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// handleCommitment computes the deterministic commitment that ProofCortex
// circuits take as a public input. The wallet must be custodied here;
// the commitment binds the verification facts, not the key.
func (s *Service) handleCommitment(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.CommitmentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}
	if strings.TrimSpace(req.Challenge) == "" {
		s.writeError(w, http.StatusBadRequest, "challenge is required")
		return
	}
	if strings.TrimSpace(req.Chain) == "" {
		s.writeError(w, http.StatusBadRequest, "chain is required")
		return
	}

	has, err := s.store.HasWalletKey(req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !has {
		s.writeError(w, http.StatusBadRequest, "wallet not found")
		return
	}

	digest := commitment.Compute(req.WalletAddress, req.Challenge, req.VerificationResult, req.Chain, req.TxHash)

	s.audit(r, &types.AuditEvent{
		EventType:     "proofcortex_commitment",
		WalletAddress: req.WalletAddress,
		Chain:         req.Chain,
		Outcome:       types.OutcomeSuccess,
		Message:       "commitment=" + digest[:16],
	})

	s.writeJSON(w, http.StatusOK, types.CommitmentResponse{
		Commitment:              digest,
		WalletAddress:           req.WalletAddress,
		Chain:                   req.Chain,
		VerificationResult:      req.VerificationResult,
		DomainSeparator:         commitment.DomainSeparator,
		ProofInputSchemaVersion: commitment.SchemaVersion,
		GeneratedAtEpochMs:      time.Now().UnixMilli(),
	})
}
