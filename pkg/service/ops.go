package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/identity"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// requireOpsAccess authenticates the caller and checks the ops-admin
// role. Every outcome, including success, is audited before the handler
// proceeds; denials collapse to one generic message.
func (s *Service) requireOpsAccess(w http.ResponseWriter, r *http.Request, operation, walletAddress string) *identity.Principal {
	principal, err := s.verifier.VerifyRequest(r)
	if err != nil {
		s.audit(r, &types.AuditEvent{
			EventType:     "ops_access",
			WalletAddress: walletAddress,
			Chain:         chain.FlowCortexL1,
			Outcome:       types.OutcomeDenied,
			Message:       operation + ": " + err.Error(),
		})
		s.writeError(w, http.StatusUnauthorized, "ops access denied")
		return nil
	}

	if !principal.HasRole(identity.OpsRole) {
		s.audit(r, &types.AuditEvent{
			EventType:     "ops_access",
			WalletAddress: walletAddress,
			UserID:        principal.UserID,
			Chain:         chain.FlowCortexL1,
			Outcome:       types.OutcomeDenied,
			Message:       operation + ": missing ops-admin role in JWT claims",
		})
		s.writeError(w, http.StatusUnauthorized, "ops access denied")
		return nil
	}

	s.audit(r, &types.AuditEvent{
		EventType:     "ops_access",
		WalletAddress: walletAddress,
		UserID:        principal.UserID,
		Chain:         chain.FlowCortexL1,
		Outcome:       types.OutcomeSuccess,
		Message:       operation + ": access granted",
	})
	return principal
}

// handleOpsGetBinding reads one wallet binding
func (s *Service) handleOpsGetBinding(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	walletAddress := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/ops/bindings/"))

	if s.requireOpsAccess(w, r, "ops_get_binding", walletAddress) == nil {
		return
	}

	if walletAddress == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	binding, err := s.repo.LoadBinding(r.Context(), walletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if binding == nil {
		s.writeError(w, http.StatusNotFound, "wallet binding not found")
		return
	}

	s.writeJSON(w, http.StatusOK, binding)
}

// handleOpsListAudit lists audit events, newest first, with optional
// event_type / wallet_address / outcome filters
func (s *Service) handleOpsListAudit(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	if s.requireOpsAccess(w, r, "ops_list_audit", "") == nil {
		return
	}

	query := r.URL.Query()

	limit := 100
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	events, err := s.repo.ListAudit(r.Context(), limit,
		query.Get("event_type"), query.Get("wallet_address"), query.Get("outcome"))
	if err != nil {
		s.internalError(w, err)
		return
	}

	out := make([]types.AuditEvent, 0, len(events))
	for _, event := range events {
		out = append(out, *event)
	}

	s.writeJSON(w, http.StatusOK, types.OpsAuditResponse{Events: out})
}
