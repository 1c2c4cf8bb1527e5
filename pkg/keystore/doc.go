/*
Package keystore provides BoltDB-backed persistence for KeyCortex wallet
state.

The keystore is the always-available local store: wrapped key material,
wallet metadata, bindings, the append-only audit log, submitted
transactions, nonces, and submit idempotency records all live here. When
Postgres is configured the repository layer mirrors bindings, audit
events, and challenges into it, but the keystore remains the fallback
for every read and the sole home for key material.

# Bucket Layout

	┌────────────────────┬──────────────────────┬──────────────────┐
	│ Bucket             │ Key                  │ Value            │
	├────────────────────┼──────────────────────┼──────────────────┤
	│ wallet-keys        │ wallet address       │ wrapped bytes    │
	│ wallet-meta        │ wallet address       │ JSON             │
	│ wallet-bindings    │ wallet address       │ JSON             │
	│ audit-events       │ <ts_ms %020d>:<uuid> │ JSON             │
	│ submitted-txs      │ tx hash              │ JSON             │
	│ wallet-nonces      │ wallet address       │ JSON             │
	│ submit-idempotency │ idempotency key      │ JSON             │
	└────────────────────┴──────────────────────┴──────────────────┘

All values except wrapped keys are compact JSON. Wrapped keys are the
raw XOR-wrapped bytes from pkg/crypto; plaintext key material is never
written to disk.

# Audit Ordering

Audit keys embed the zero-padded millisecond timestamp, so BoltDB's
lexicographic key order doubles as chronological order. ListAuditEvents
walks a reverse cursor for newest-first results without sorting in
memory. Events are append-only: there is no update or delete path.

# Absence Semantics

Load methods return (nil, nil) when the record does not exist. Whether
absence is an error ("wallet not found", "transaction not found") is a
service-layer decision, not a storage one.

One Store handle is shared by the whole process; BoltDB serializes
writes and allows concurrent reads internally.
*/
package keystore
