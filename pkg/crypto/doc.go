/*
Package crypto implements the signing and key-wrapping primitives for
KeyCortex custodial wallets.

All signing is domain-separated: the bytes actually signed are never the
raw payload but a canonical, purpose-tagged input. This prevents a
signature produced for one purpose (say, an auth challenge) from being
replayed as another (a transaction).

# Canonical Signing Input

	keycortex:v1:<purpose>:<payload>

where <purpose> is one of "transaction", "auth", or "proof". Signing an
empty payload is rejected at this layer regardless of backend.

# Backends

Two backends satisfy the Signer interface:

	┌──────────────┬──────────────┬─────────────┬───────────────────┐
	│ Backend      │ Public key   │ Signature   │ Signed bytes      │
	├──────────────┼──────────────┼─────────────┼───────────────────┤
	│ Ed25519      │ 32 bytes     │ 64 bytes    │ canonical input   │
	│ secp256k1    │ 33 (comp.)   │ 64 (r||s)   │ SHA-256(input)    │
	└──────────────┴──────────────┴─────────────┴───────────────────┘

Ed25519 is the primary backend and the one the wallet service issues
keys with. The secp256k1 backend exists for chains whose native scheme
is ECDSA; both feed the same address derivation.

# Wallet Addresses

	address = "0x" + hex(SHA-256(public_key_bytes)[:20])

giving a 42-character address. The derivation is shared across backends
via WalletAddressFromPublicKey.

# Deterministic Derivation

Ed25519FromPassphrase derives a keypair deterministically so wallets can
be restored without storing seeds externally:

	seed0 = SHA-256("keycortex:wallet-derive:v1:" || passphrase)
	seedN = SHA-256("keycortex:stretch:" || seedN-1)   // 1000 rounds

The final 32 bytes are the Ed25519 seed. The same passphrase always
yields the same wallet address.

# Key Wrapping

Secret keys are wrapped at rest by XOR against a keystream derived from
the service encryption key:

	block i  = SHA-256(encryption_key || LE64(i))
	keystream = block 0 || block 1 || ...   (truncated to 32 bytes)

Wrapping is length-preserving: a wrapped key is exactly 32 bytes.
DecryptKeyMaterial rejects any other length. Callers that unwrap a key
must call Zero on it on every exit path; key material never outlives
the operation that needed it.
*/
package crypto
