// Package commitment derives deterministic proof commitments over
// wallet verification facts.
package commitment

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainSeparator tags every commitment input. Aligns with the chain's
// proof domain tag.
const DomainSeparator = "keycortex:proof:v1"

// SchemaVersion identifies the commitment input layout for downstream
// proof circuits.
const SchemaVersion = "1.0.0"

// Compute builds the commitment hash:
//
//	sha256(separator:wallet_address:challenge:<verified|unverified>:chain[:tx_hash])
//
// returned as lowercase hex. The same inputs always produce the same
// commitment; the optional tx hash is only hashed when present.
func Compute(walletAddress, challenge string, verified bool, chain, txHash string) string {
	result := "unverified"
	if verified {
		result = "verified"
	}

	h := sha256.New()
	h.Write([]byte(DomainSeparator))
	h.Write([]byte(":"))
	h.Write([]byte(walletAddress))
	h.Write([]byte(":"))
	h.Write([]byte(challenge))
	h.Write([]byte(":"))
	h.Write([]byte(result))
	h.Write([]byte(":"))
	h.Write([]byte(chain))

	if txHash != "" {
		h.Write([]byte(":"))
		h.Write([]byte(txHash))
	}

	return hex.EncodeToString(h.Sum(nil))
}
