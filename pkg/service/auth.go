package service

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/crypto"
	"github.com/veeringman/KeyCortex/pkg/metrics"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// handleAuthChallenge issues a single-use challenge and mirrors it into
// Postgres when one is configured
func (s *Service) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	record := s.challenges.Issue()
	s.repo.UpsertChallenge(r.Context(), record)
	metrics.ChallengesIssuedTotal.Inc()

	s.writeJSON(w, http.StatusOK, types.AuthChallengeResponse{
		Challenge: record.Challenge,
		ExpiresIn: s.challenges.TTLSeconds(),
	})
}

// handleAuthVerify proves key possession: the caller signs the issued
// challenge under the auth domain and the service checks the signature
// against the custodied key. The challenge burns on every outcome.
func (s *Service) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.AuthVerifyRequest
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
	if strings.TrimSpace(req.Signature) == "" {
		s.writeError(w, http.StatusBadRequest, "signature is required")
		return
	}

	consumeErr := s.challenges.Consume(req.Challenge)
	if consumeErr == nil || errors.Is(consumeErr, challenge.ErrExpired) {
		// both paths flip the challenge to used; keep Postgres in step
		s.repo.MarkChallengeUsed(r.Context(), req.Challenge, time.Now().UnixMilli())
	}
	if consumeErr != nil {
		s.writeError(w, http.StatusBadRequest, consumeErr.Error())
		return
	}

	wrapped, err := s.store.LoadWalletKey(req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if wrapped == nil {
		s.writeError(w, http.StatusBadRequest, "wallet not found")
		return
	}

	secret, err := crypto.DecryptKeyMaterial(wrapped, s.cfg.EncryptionKey)
	if err != nil {
		s.internalError(w, err)
		return
	}
	defer crypto.Zero(secret)

	signer, err := crypto.Ed25519FromSecretKeyBytes(secret)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if signer.WalletAddress() != req.WalletAddress {
		s.writeError(w, http.StatusBadRequest, "wallet address mismatch")
		return
	}

	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "signature must be valid hex")
		return
	}

	valid, err := signer.Verify([]byte(req.Challenge), types.PurposeAuth, signature)
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.AuthVerifyResponse{
		Valid:             valid,
		WalletAddress:     req.WalletAddress,
		VerifiedAtEpochMs: time.Now().UnixMilli(),
	})
}

// handleAuthBind attaches an authenticated AuthBuddy user to a custodied
// wallet. Every outcome is audited before the response goes out.
func (s *Service) handleAuthBind(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.AuthBindRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	now := time.Now().UnixMilli()

	principal, err := s.verifier.VerifyRequest(r)
	if err != nil {
		s.audit(r, &types.AuditEvent{
			EventType:        "auth_bind",
			WalletAddress:    req.WalletAddress,
			Chain:            req.Chain,
			Outcome:          types.OutcomeDenied,
			Message:          err.Error(),
			TimestampEpochMs: now,
		})
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if strings.TrimSpace(req.WalletAddress) == "" {
		s.audit(r, &types.AuditEvent{
			EventType:        "auth_bind",
			Chain:            req.Chain,
			Outcome:          types.OutcomeDenied,
			Message:          "wallet_address is required",
			TimestampEpochMs: now,
		})
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	if req.Chain != chain.FlowCortexL1 {
		s.audit(r, &types.AuditEvent{
			EventType:        "auth_bind",
			WalletAddress:    req.WalletAddress,
			Chain:            req.Chain,
			Outcome:          types.OutcomeDenied,
			Message:          "unsupported chain for MVP",
			TimestampEpochMs: now,
		})
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}

	has, err := s.store.HasWalletKey(req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !has {
		s.audit(r, &types.AuditEvent{
			EventType:        "auth_bind",
			WalletAddress:    req.WalletAddress,
			UserID:           principal.UserID,
			Chain:            req.Chain,
			Outcome:          types.OutcomeDenied,
			Message:          "wallet not found",
			TimestampEpochMs: now,
		})
		s.writeError(w, http.StatusBadRequest, "wallet not found")
		return
	}

	binding := &types.WalletBinding{
		WalletAddress:       req.WalletAddress,
		UserID:              principal.UserID,
		Chain:               req.Chain,
		LastVerifiedEpochMs: now,
	}
	if err := s.repo.SaveBinding(r.Context(), binding); err != nil {
		s.internalError(w, err)
		return
	}

	s.audit(r, &types.AuditEvent{
		EventType:        "auth_bind",
		WalletAddress:    req.WalletAddress,
		UserID:           principal.UserID,
		Chain:            req.Chain,
		Outcome:          types.OutcomeSuccess,
		Message:          "wallet binding persisted",
		TimestampEpochMs: now,
	})

	s.notifyBindCallback(binding, now)

	s.logger.Info().
		Str("wallet_address", req.WalletAddress).
		Str("user_id", principal.UserID).
		Msg("bound wallet to AuthBuddy user")

	s.writeJSON(w, http.StatusOK, types.AuthBindResponse{
		Bound:          true,
		UserID:         principal.UserID,
		WalletAddress:  req.WalletAddress,
		Chain:          req.Chain,
		BoundAtEpochMs: now,
	})
}

// notifyBindCallback POSTs the binding to the configured AuthBuddy
// callback. Fire-and-forget: the bind response never waits on it and
// failures only log.
func (s *Service) notifyBindCallback(binding *types.WalletBinding, boundAt int64) {
	url := strings.TrimSpace(s.cfg.BindCallbackURL)
	if url == "" {
		return
	}

	payload := types.BindCallbackPayload{
		UserID:         binding.UserID,
		WalletAddress:  binding.WalletAddress,
		Chain:          binding.Chain,
		BoundAtEpochMs: boundAt,
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode bind callback payload")
			return
		}

		resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			s.logger.Warn().Err(err).Str("url", url).Msg("bind callback failed")
			return
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusMultipleChoices {
			s.logger.Warn().
				Int("status", resp.StatusCode).
				Str("url", url).
				Msg("bind callback rejected")
		}
	}()
}
