/*
Package types defines the wire and record types shared across KeyCortex.

All request/response bodies and persisted record values live here as plain
structs with snake_case JSON tags, mirroring the service's HTTP contract and
keystore value encoding. The package has no dependencies beyond the standard
library so every other package can import it freely.

# Type Categories

Enumerations:
  - SignPurpose: transaction, auth, proof (signature domains)
  - TxStatus: submitted, confirmed, rejected, unknown
  - AuditOutcome: success, denied

Persisted records (JSON values in the keystore and rows in Postgres):
  - WalletMeta: label and public-key metadata per wallet
  - WalletBinding: wallet address → external user identity
  - AuditEvent: append-only audit trail entry
  - SubmittedTx: transfer handed to the chain adapter
  - WalletNonce: last accepted nonce per wallet
  - SubmitIdempotency: memoized submit response
  - ChallengeRecord: durable mirror of an issued challenge

Wire types:
  - Wallet operations: create, restore, rename, list, sign, submit,
    balance, nonce, tx status
  - Auth operations: challenge, verify, bind (+ bind callback payload)
  - ProofCortex commitment request/response
  - FortressDigital wallet-status request/response
  - Chain config response
  - Ops audit listing and the uniform ErrorResponse

# Conventions

Timestamps are epoch milliseconds as int64. Amounts travel as decimal
strings (the chain's wire unit is u64; the service validates numerically
before signing). Optional fields carry omitempty and empty means absent;
pointer types appear only where JSON null is meaningful to consumers.

# Usage

	resp := types.WalletCreateResponse{
		WalletAddress: addr,
		PublicKey:     pubHex,
		Chain:         chain.FlowCortexL1,
		Label:         req.Label,
	}

# Integration Points

  - pkg/keystore persists the record types as compact JSON
  - pkg/repository maps the same records to Postgres rows
  - pkg/service encodes and decodes the wire types
  - pkg/client reuses the wire types for the CLI
*/
package types
