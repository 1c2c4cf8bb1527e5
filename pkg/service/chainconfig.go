package service

import (
	"net/http"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// handleChainConfig publishes the canonical chain identity so wallets
// and verifiers agree on domain tags and asset parameters without
// hardcoding them client-side
func (s *Service) handleChainConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	s.writeJSON(w, http.StatusOK, types.ChainConfigResponse{
		ChainSlug:       chain.FlowCortexL1,
		ChainIDNumeric:  nil,
		SignatureScheme: "ed25519",
		AddressScheme:   "sha256-truncated-20",
		Domains: types.ChainDomainTags{
			TxDomainTag:    "keycortex:v1:transaction",
			AuthDomainTag:  "keycortex:v1:auth",
			ProofDomainTag: "keycortex:v1:proof",
		},
		Assets: []types.ChainAssetInfo{
			{Symbol: "PROOF", AssetType: "native", Decimals: 18, FeePaymentSupport: true},
			{Symbol: "FloweR", AssetType: "native-stablecoin", Decimals: 6, FeePaymentSupport: false},
		},
		FinalityRule: "deterministic-single-confirmation",
		Environment:  "devnet",
	})
}
