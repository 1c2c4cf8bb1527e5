package service

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/crypto"
	"github.com/veeringman/KeyCortex/pkg/metrics"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// handleWalletCreate mints a fresh custodial wallet. Unauthenticated by
// the MVP contract: callers receive only the address and public key,
// never key material.
func (s *Service) handleWalletCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.WalletCreateRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	signer, err := crypto.NewEd25519Signer()
	if err != nil {
		s.internalError(w, err)
		return
	}
	secret := signer.SecretKeyBytes()
	defer crypto.Zero(secret)

	wrapped, err := crypto.EncryptKeyMaterial(secret, s.cfg.EncryptionKey)
	if err != nil {
		s.internalError(w, err)
		return
	}

	address := signer.WalletAddress()
	if err := s.store.SaveWalletKey(address, wrapped); err != nil {
		s.internalError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	meta := &types.WalletMeta{
		WalletAddress:    address,
		PublicKey:        signer.PublicKeyHex(),
		Label:            strings.TrimSpace(req.Label),
		CreatedAtEpochMs: now,
		UpdatedAtEpochMs: now,
	}
	if err := s.store.SaveWalletMeta(meta); err != nil {
		s.internalError(w, err)
		return
	}

	s.logger.Info().Str("wallet_address", address).Msg("created custodial wallet")

	s.writeJSON(w, http.StatusOK, types.WalletCreateResponse{
		WalletAddress: address,
		PublicKey:     signer.PublicKeyHex(),
		Chain:         chain.FlowCortexL1,
		Label:         meta.Label,
	})
}

// handleWalletRestore re-derives a wallet from a passphrase. The
// derivation is deterministic, so restoring twice overwrites the key
// with identical bytes; already_existed reports whether the address was
// custodied before this call.
func (s *Service) handleWalletRestore(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.WalletRestoreRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Passphrase) == "" {
		s.writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	signer := crypto.Ed25519FromPassphrase(req.Passphrase)
	secret := signer.SecretKeyBytes()
	defer crypto.Zero(secret)

	wrapped, err := crypto.EncryptKeyMaterial(secret, s.cfg.EncryptionKey)
	if err != nil {
		s.internalError(w, err)
		return
	}

	address := signer.WalletAddress()
	existed, err := s.store.HasWalletKey(address)
	if err != nil {
		s.internalError(w, err)
		return
	}

	if err := s.store.SaveWalletKey(address, wrapped); err != nil {
		s.internalError(w, err)
		return
	}

	now := time.Now().UnixMilli()
	label := ""
	if existed {
		meta, err := s.store.LoadWalletMeta(address)
		if err != nil {
			s.internalError(w, err)
			return
		}
		if meta != nil {
			label = meta.Label
		}
	} else {
		label = strings.TrimSpace(req.Label)
		meta := &types.WalletMeta{
			WalletAddress:    address,
			PublicKey:        signer.PublicKeyHex(),
			Label:            label,
			CreatedAtEpochMs: now,
			UpdatedAtEpochMs: now,
		}
		if err := s.store.SaveWalletMeta(meta); err != nil {
			s.internalError(w, err)
			return
		}
	}

	s.logger.Info().
		Str("wallet_address", address).
		Bool("already_existed", existed).
		Msg("restored wallet from passphrase")

	s.writeJSON(w, http.StatusOK, types.WalletRestoreResponse{
		WalletAddress:  address,
		PublicKey:      signer.PublicKeyHex(),
		Chain:          chain.FlowCortexL1,
		Label:          label,
		AlreadyExisted: existed,
	})
}

// handleWalletRename updates the wallet label. An empty label clears it.
func (s *Service) handleWalletRename(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.WalletRenameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
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

	meta, err := s.store.LoadWalletMeta(req.WalletAddress)
	if err != nil {
		s.internalError(w, err)
		return
	}
	now := time.Now().UnixMilli()
	if meta == nil {
		// key predates the metadata record
		meta = &types.WalletMeta{
			WalletAddress:    req.WalletAddress,
			CreatedAtEpochMs: now,
		}
	}
	meta.Label = strings.TrimSpace(req.Label)
	meta.UpdatedAtEpochMs = now

	if err := s.store.SaveWalletMeta(meta); err != nil {
		s.internalError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.WalletRenameResponse{
		WalletAddress: req.WalletAddress,
		Label:         meta.Label,
	})
}

// handleWalletList returns every custodied wallet joined with its
// binding. Binding lookups that fail leave the row unenriched rather
// than failing the listing.
func (s *Service) handleWalletList(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	metas, err := s.store.ListWallets()
	if err != nil {
		s.internalError(w, err)
		return
	}

	wallets := make([]types.WalletSummary, 0, len(metas))
	for _, meta := range metas {
		summary := types.WalletSummary{
			WalletAddress: meta.WalletAddress,
			Chain:         chain.FlowCortexL1,
			PublicKey:     meta.PublicKey,
			Label:         meta.Label,
		}

		binding, err := s.repo.LoadBinding(r.Context(), meta.WalletAddress)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("wallet_address", meta.WalletAddress).
				Msg("failed to read binding for wallet listing")
		} else if binding != nil {
			summary.BoundUserID = binding.UserID
		}

		wallets = append(wallets, summary)
	}

	s.writeJSON(w, http.StatusOK, types.WalletListResponse{
		Wallets: wallets,
		Total:   len(wallets),
	})
}

// handleWalletSign signs a base64 payload under the requested domain.
// The unwrapped secret never leaves this frame.
func (s *Service) handleWalletSign(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req types.WalletSignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.WalletAddress) == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}
	if req.Payload == "" {
		s.writeError(w, http.StatusBadRequest, "payload cannot be empty")
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "payload must be valid base64")
		return
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = types.PurposeTransaction
	}
	if !purpose.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid purpose; must be transaction, auth, or proof")
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

	signature, err := signer.Sign(payload, purpose)
	if err != nil {
		s.internalError(w, err)
		return
	}
	metrics.SignaturesTotal.WithLabelValues(string(purpose)).Inc()

	s.writeJSON(w, http.StatusOK, types.WalletSignResponse{
		Signature: hex.EncodeToString(signature),
	})
}

// handleWalletBalance passes a balance read through to the chain adapter
func (s *Service) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	address := strings.TrimSpace(query.Get("wallet_address"))
	if address == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	chainID := query.Get("chain")
	if chainID == "" {
		chainID = chain.FlowCortexL1
	}
	if chainID != chain.FlowCortexL1 {
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}

	asset := query.Get("asset")
	if asset == "" {
		asset = "PROOF"
	}
	if !assetSupported(asset) {
		s.writeError(w, http.StatusBadRequest, "unsupported asset for MVP; only PROOF and FloweR are enabled")
		return
	}

	adapter, ok := s.chains.Adapter(chainID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported chain for MVP; only flowcortex-l1 is enabled")
		return
	}

	result, err := adapter.GetBalance(r.Context(), address, asset)
	if err != nil {
		s.internalError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, types.WalletBalanceResponse{
		WalletAddress: address,
		Chain:         chainID,
		Asset:         asset,
		Amount:        result.Amount,
	})
}

// handleWalletNonce reports the last accepted nonce and the next one to
// use. A wallet that has never submitted reports last 0, next 1.
func (s *Service) handleWalletNonce(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	address := strings.TrimSpace(r.URL.Query().Get("wallet_address"))
	if address == "" {
		s.writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	has, err := s.store.HasWalletKey(address)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !has {
		s.writeError(w, http.StatusBadRequest, "wallet not found")
		return
	}

	var last uint64
	record, err := s.store.LoadWalletNonce(address)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if record != nil {
		last = record.LastNonce
	}

	// saturating increment
	next := last + 1
	if next < last {
		next = last
	}

	s.writeJSON(w, http.StatusOK, types.WalletNonceResponse{
		WalletAddress: address,
		LastNonce:     last,
		NextNonce:     next,
	})
}

// handleWalletTxStatus returns the persisted state of a submitted
// transaction, refreshed from the chain when the adapter answers. Poll
// failures fall back to the last persisted state.
func (s *Service) handleWalletTxStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	txHash := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/wallet/tx/"))
	if txHash == "" {
		s.writeError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}

	record, err := s.store.LoadSubmittedTx(txHash)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	// rejected is terminal; everything else may have moved on chain
	if record.Status != types.TxStatusRejected {
		if adapter, ok := s.chains.Adapter(record.Chain); ok {
			if err := s.refreshTxStatus(r, adapter, record); err != nil {
				s.internalError(w, err)
				return
			}
		}
	}

	s.writeJSON(w, http.StatusOK, types.WalletTxStatusResponse{
		TxHash:           record.TxHash,
		Status:           record.Status,
		Accepted:         record.Accepted,
		Chain:            record.Chain,
		From:             record.From,
		To:               record.To,
		Asset:            record.Asset,
		Amount:           record.Amount,
		SubmittedAtEpoch: record.SubmittedAtEpoch,
	})
}

// refreshTxStatus polls the adapter and persists any state change. An
// adapter failure is swallowed so the caller serves the persisted state;
// a persistence failure is returned.
func (s *Service) refreshTxStatus(r *http.Request, adapter chain.Adapter, record *types.SubmittedTx) error {
	result, err := adapter.GetTransactionStatus(r.Context(), record.TxHash, record.Chain)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("tx_hash", record.TxHash).
			Msg("failed to refresh transaction status; returning persisted state")
		return nil
	}

	status := mapAdapterStatus(result.Status)
	if status == record.Status && result.Accepted == record.Accepted {
		return nil
	}

	record.Status = status
	record.Accepted = result.Accepted
	return s.store.SaveSubmittedTx(record)
}

// mapAdapterStatus translates adapter status strings onto the persisted
// transaction lifecycle
func mapAdapterStatus(status string) types.TxStatus {
	switch status {
	case chain.StatusConfirmed:
		return types.TxStatusConfirmed
	case chain.StatusPending:
		return types.TxStatusSubmitted
	default:
		return types.TxStatusUnknown
	}
}
