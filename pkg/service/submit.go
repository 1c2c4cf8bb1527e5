package service

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/crypto"
	"github.com/veeringman/KeyCortex/pkg/metrics"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// idempotencyHeader is the caller-supplied replay key for submits
const idempotencyHeader = "idempotency-key"

// handleWalletSubmit authors and submits a signed transfer. The tail of
// the path (replay double-check, nonce enforcement, signing, chain
// submission, persistence) runs under one lock so that at most one
// submit per (wallet, nonce) and per idempotency key can succeed.
func (s *Service) handleWalletSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))

	var req types.WalletSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// replay fast path: the memoized response wins over every validation
	if idemKey != "" {
		if resp, ok := s.lookupIdempotent(idemKey); ok {
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	if strings.TrimSpace(req.From) == "" {
		s.writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	if strings.TrimSpace(req.To) == "" {
		s.writeError(w, http.StatusBadRequest, "to is required")
		return
	}
	if strings.TrimSpace(req.Amount) == "" {
		s.writeError(w, http.StatusBadRequest, "amount is required")
		return
	}
	if req.Nonce == 0 {
		s.writeError(w, http.StatusBadRequest, "nonce must be greater than 0")
		return
	}
	if req.Chain != chain.FlowCortexL1 {
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}
	if !assetSupported(req.Asset) {
		s.writeError(w, http.StatusBadRequest, "unsupported asset for MVP; only PROOF and FloweR are enabled")
		return
	}
	if _, err := strconv.ParseUint(req.Amount, 10, 64); err != nil {
		s.writeError(w, http.StatusBadRequest, "amount must be a base-10 unsigned integer")
		return
	}

	wrapped, err := s.store.LoadWalletKey(req.From)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if wrapped == nil {
		s.writeError(w, http.StatusBadRequest, "source wallet not found")
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
	if signer.WalletAddress() != req.From {
		s.writeError(w, http.StatusBadRequest, "source wallet address does not match custodied key")
		return
	}

	adapter, ok := s.chains.Adapter(req.Chain)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}

	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()

	// a concurrent request with the same key may have won the race
	// between the fast path and here
	if idemKey != "" {
		if resp, ok := s.lookupIdempotent(idemKey); ok {
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	last, ok := s.nonceHints[req.From]
	if !ok {
		record, err := s.store.LoadWalletNonce(req.From)
		if err != nil {
			s.internalError(w, err)
			return
		}
		if record != nil {
			last = record.LastNonce
		}
		s.nonceHints[req.From] = last
	}
	if req.Nonce <= last {
		s.writeError(w, http.StatusBadRequest, "nonce replay detected; nonce must be strictly increasing per wallet")
		return
	}

	payload := fmt.Sprintf("from=%s;to=%s;amount=%s;asset=%s;chain=%s;nonce=%d",
		req.From, req.To, req.Amount, req.Asset, req.Chain, req.Nonce)
	signature, err := signer.Sign([]byte(payload), types.PurposeTransaction)
	if err != nil {
		s.internalError(w, err)
		return
	}
	signatureHex := hex.EncodeToString(signature)
	metrics.SignaturesTotal.WithLabelValues(string(types.PurposeTransaction)).Inc()

	result, err := adapter.SubmitTransaction(r.Context(), chain.SubmitRequest{
		From:          req.From,
		To:            req.To,
		Amount:        req.Amount,
		Asset:         req.Asset,
		Chain:         req.Chain,
		SignedPayload: signatureHex,
	})
	if err != nil {
		s.internalError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	status := types.TxStatusSubmitted
	if !result.Accepted {
		status = types.TxStatusRejected
	}
	txRecord := &types.SubmittedTx{
		TxHash:           result.TxHash,
		Chain:            req.Chain,
		From:             req.From,
		To:               req.To,
		Asset:            req.Asset,
		Amount:           req.Amount,
		Status:           status,
		Accepted:         result.Accepted,
		SubmittedAtEpoch: now,
	}
	if err := s.store.SaveSubmittedTx(txRecord); err != nil {
		s.internalError(w, err)
		return
	}

	// only accepted submits consume the nonce; a rejected transfer may
	// be retried with the same one
	if result.Accepted {
		s.nonceHints[req.From] = req.Nonce
		nonceRecord := &types.WalletNonce{
			WalletAddress:    req.From,
			LastNonce:        req.Nonce,
			UpdatedAtEpochMs: now,
		}
		if err := s.store.SaveWalletNonce(nonceRecord); err != nil {
			s.internalError(w, err)
			return
		}
	}

	resp := types.WalletSubmitResponse{
		Accepted:  result.Accepted,
		TxHash:    result.TxHash,
		Signature: signatureHex,
	}
	if idemKey != "" {
		s.rememberIdempotent(idemKey, resp, now)
	}
	metrics.SubmitsTotal.WithLabelValues(strconv.FormatBool(result.Accepted)).Inc()

	s.logger.Info().
		Str("wallet_address", req.From).
		Str("tx_hash", result.TxHash).
		Uint64("nonce", req.Nonce).
		Bool("accepted", result.Accepted).
		Msg("submitted transfer")

	s.writeJSON(w, http.StatusOK, resp)
}

// lookupIdempotent consults the cache first, then the durable record,
// re-populating the cache on a durable hit
func (s *Service) lookupIdempotent(key string) (types.WalletSubmitResponse, bool) {
	if item := s.idemCache.Get(key); item != nil {
		return item.Value(), true
	}

	record, err := s.store.LoadSubmitIdempotency(key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read idempotency record")
		return types.WalletSubmitResponse{}, false
	}
	if record == nil {
		return types.WalletSubmitResponse{}, false
	}

	resp := types.WalletSubmitResponse{
		Accepted:  record.Accepted,
		TxHash:    record.TxHash,
		Signature: record.Signature,
	}
	s.idemCache.Set(key, resp, ttlcache.DefaultTTL)
	return resp, true
}

// rememberIdempotent memoizes a submit response in both the cache and
// the durable store. Losing the durable write degrades replay to the
// cache lifetime, so it is logged, not fatal.
func (s *Service) rememberIdempotent(key string, resp types.WalletSubmitResponse, now int64) {
	s.idemCache.Set(key, resp, ttlcache.DefaultTTL)

	record := &types.SubmitIdempotency{
		IdempotencyKey:   key,
		Accepted:         resp.Accepted,
		TxHash:           resp.TxHash,
		Signature:        resp.Signature,
		CreatedAtEpochMs: now,
	}
	if err := s.store.SaveSubmitIdempotency(record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist idempotency record")
	}
}
