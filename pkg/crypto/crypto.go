package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/veeringman/KeyCortex/pkg/types"
)

// Domain tags for key derivation. Changing either breaks every
// passphrase-restored wallet, so they are versioned.
const (
	deriveDomainTag  = "keycortex:wallet-derive:v1:"
	stretchDomainTag = "keycortex:stretch:"
	stretchRounds    = 1000
)

// Signer signs and verifies payloads under a purpose-scoped domain tag.
// Both backends produce 64-byte signatures and feed the same address
// derivation.
type Signer interface {
	// Scheme identifies the signature scheme ("ed25519" or "secp256k1")
	Scheme() string

	// Sign produces a signature over the canonical signing input
	Sign(payload []byte, purpose types.SignPurpose) ([]byte, error)

	// Verify checks a signature over the canonical signing input.
	// A well-formed but wrong signature returns (false, nil)
	Verify(payload []byte, purpose types.SignPurpose, signature []byte) (bool, error)

	// PublicKeyBytes returns the raw public key bytes
	PublicKeyBytes() []byte

	// PublicKeyHex returns the public key as lowercase hex
	PublicKeyHex() string

	// WalletAddress derives the wallet address from the public key
	WalletAddress() string
}

// SigningInput builds the canonical domain-tagged input that is actually
// signed: "keycortex:v1:<purpose>:<payload>"
func SigningInput(payload []byte, purpose types.SignPurpose) []byte {
	input := make([]byte, 0, 32+len(payload))
	input = append(input, "keycortex:v1:"...)
	input = append(input, string(purpose)...)
	input = append(input, ':')
	input = append(input, payload...)
	return input
}

// WalletAddressFromPublicKey derives the wallet address for any backend:
// "0x" + hex of the first 20 bytes of SHA-256(public key)
func WalletAddressFromPublicKey(publicKey []byte) string {
	digest := sha256.Sum256(publicKey)
	return "0x" + hex.EncodeToString(digest[:20])
}

// Zero overwrites a byte slice with zeroes. Callers that unwrap key
// material must zero it on every exit path.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Ed25519Signer is the primary signing backend: 32-byte seeds, 64-byte
// signatures.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
}

// NewEd25519Signer generates a fresh random keypair
func NewEd25519Signer() (*Ed25519Signer, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return &Ed25519Signer{privateKey: privateKey}, nil
}

// Ed25519FromSecretKeyBytes rebuilds a signer from a stored 32-byte seed.
// The caller retains ownership of the input and should zero it.
func Ed25519FromSecretKeyBytes(secretKey []byte) (*Ed25519Signer, error) {
	if len(secretKey) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 secret key must be %d bytes, got %d", ed25519.SeedSize, len(secretKey))
	}
	return &Ed25519Signer{privateKey: ed25519.NewKeyFromSeed(secretKey)}, nil
}

// Ed25519FromPassphrase derives a deterministic keypair from a passphrase
// using domain-tagged SHA-256 stretching. The same passphrase always
// produces the same wallet address.
func Ed25519FromPassphrase(passphrase string) *Ed25519Signer {
	// Initial hash: domain-tagged passphrase
	h := sha256.New()
	h.Write([]byte(deriveDomainTag))
	h.Write([]byte(passphrase))
	seed := h.Sum(nil)

	// Stretch
	for i := 0; i < stretchRounds; i++ {
		h := sha256.New()
		h.Write([]byte(stretchDomainTag))
		h.Write(seed)
		seed = h.Sum(nil)
	}

	signer := &Ed25519Signer{privateKey: ed25519.NewKeyFromSeed(seed)}
	Zero(seed)
	return signer
}

// Scheme returns "ed25519"
func (s *Ed25519Signer) Scheme() string {
	return "ed25519"
}

// Sign signs the canonical input for the given purpose
func (s *Ed25519Signer) Sign(payload []byte, purpose types.SignPurpose) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload cannot be empty")
	}
	return ed25519.Sign(s.privateKey, SigningInput(payload, purpose)), nil
}

// Verify checks a 64-byte signature over the canonical input
func (s *Ed25519Signer) Verify(payload []byte, purpose types.SignPurpose, signature []byte) (bool, error) {
	if len(payload) == 0 {
		return false, fmt.Errorf("payload cannot be empty")
	}
	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid ed25519 signature length")
	}
	publicKey := s.privateKey.Public().(ed25519.PublicKey)
	return ed25519.Verify(publicKey, SigningInput(payload, purpose), signature), nil
}

// PublicKeyBytes returns the 32-byte public key
func (s *Ed25519Signer) PublicKeyBytes() []byte {
	publicKey := s.privateKey.Public().(ed25519.PublicKey)
	out := make([]byte, len(publicKey))
	copy(out, publicKey)
	return out
}

// PublicKeyHex returns the public key as lowercase hex
func (s *Ed25519Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.PublicKeyBytes())
}

// WalletAddress derives the address from the public key
func (s *Ed25519Signer) WalletAddress() string {
	return WalletAddressFromPublicKey(s.PublicKeyBytes())
}

// SecretKeyBytes returns a copy of the 32-byte seed. The caller must
// zero the copy when done.
func (s *Ed25519Signer) SecretKeyBytes() []byte {
	out := make([]byte, ed25519.SeedSize)
	copy(out, s.privateKey.Seed())
	return out
}

// Secp256k1Signer is the alternative signing backend: ECDSA over
// secp256k1 with 64-byte r||s signatures and compressed 33-byte public
// keys. Signatures are over SHA-256 of the canonical input.
type Secp256k1Signer struct {
	privateKey *secp256k1.PrivateKey
}

// NewSecp256k1Signer generates a fresh random keypair
func NewSecp256k1Signer() (*Secp256k1Signer, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return &Secp256k1Signer{privateKey: privateKey}, nil
}

// Secp256k1FromSecretKeyBytes rebuilds a signer from a stored 32-byte
// scalar. The caller retains ownership of the input and should zero it.
func Secp256k1FromSecretKeyBytes(secretKey []byte) (*Secp256k1Signer, error) {
	if len(secretKey) != 32 {
		return nil, fmt.Errorf("invalid secp256k1 secret key")
	}
	var privateKey secp256k1.PrivateKey
	if overflow := privateKey.Key.SetByteSlice(secretKey); overflow || privateKey.Key.IsZero() {
		return nil, fmt.Errorf("invalid secp256k1 secret key")
	}
	return &Secp256k1Signer{privateKey: &privateKey}, nil
}

// Scheme returns "secp256k1"
func (s *Secp256k1Signer) Scheme() string {
	return "secp256k1"
}

// Sign signs SHA-256 of the canonical input and returns the 64-byte
// r||s form
func (s *Secp256k1Signer) Sign(payload []byte, purpose types.SignPurpose) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload cannot be empty")
	}
	digest := sha256.Sum256(SigningInput(payload, purpose))
	signature := secpecdsa.Sign(s.privateKey, digest[:])

	r := signature.R()
	ss := signature.S()
	rBytes := r.Bytes()
	sBytes := ss.Bytes()

	out := make([]byte, 64)
	copy(out[:32], rBytes[:])
	copy(out[32:], sBytes[:])
	return out, nil
}

// Verify checks a 64-byte r||s signature over SHA-256 of the canonical
// input
func (s *Secp256k1Signer) Verify(payload []byte, purpose types.SignPurpose, signature []byte) (bool, error) {
	if len(payload) == 0 {
		return false, fmt.Errorf("payload cannot be empty")
	}
	if len(signature) != 64 {
		return false, fmt.Errorf("invalid secp256k1 signature length")
	}

	var r, ss secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow {
		return false, fmt.Errorf("invalid secp256k1 signature format")
	}
	if overflow := ss.SetByteSlice(signature[32:]); overflow {
		return false, fmt.Errorf("invalid secp256k1 signature format")
	}

	digest := sha256.Sum256(SigningInput(payload, purpose))
	parsed := secpecdsa.NewSignature(&r, &ss)
	return parsed.Verify(digest[:], s.privateKey.PubKey()), nil
}

// PublicKeyBytes returns the compressed 33-byte public key
func (s *Secp256k1Signer) PublicKeyBytes() []byte {
	return s.privateKey.PubKey().SerializeCompressed()
}

// PublicKeyHex returns the public key as lowercase hex
func (s *Secp256k1Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.PublicKeyBytes())
}

// WalletAddress derives the address from the compressed public key
func (s *Secp256k1Signer) WalletAddress() string {
	return WalletAddressFromPublicKey(s.PublicKeyBytes())
}

// SecretKeyBytes returns a copy of the 32-byte scalar. The caller must
// zero the copy when done.
func (s *Secp256k1Signer) SecretKeyBytes() []byte {
	return s.privateKey.Serialize()
}

// EncryptKeyMaterial wraps a 32-byte secret key by XOR against a
// keystream derived from the wrapping key. Length-preserving.
func EncryptKeyMaterial(secretKey []byte, encryptionKey string) ([]byte, error) {
	if strings.TrimSpace(encryptionKey) == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}
	if len(secretKey) != 32 {
		return nil, fmt.Errorf("secret key must be 32 bytes, got %d", len(secretKey))
	}

	keyStream := deriveKeyStream(encryptionKey, len(secretKey))
	encrypted := make([]byte, len(secretKey))
	for i, b := range secretKey {
		encrypted[i] = b ^ keyStream[i]
	}
	Zero(keyStream)
	return encrypted, nil
}

// DecryptKeyMaterial unwraps key material produced by EncryptKeyMaterial.
// The caller must zero the returned secret on every exit path.
func DecryptKeyMaterial(encrypted []byte, encryptionKey string) ([]byte, error) {
	if strings.TrimSpace(encryptionKey) == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}
	if len(encrypted) != 32 {
		return nil, fmt.Errorf("invalid encrypted key length")
	}

	keyStream := deriveKeyStream(encryptionKey, len(encrypted))
	decrypted := make([]byte, len(encrypted))
	for i, b := range encrypted {
		decrypted[i] = b ^ keyStream[i]
	}
	Zero(keyStream)
	return decrypted, nil
}

// deriveKeyStream expands the wrapping key into a keystream: block i is
// SHA-256(key || LE64(i)), truncated to len
func deriveKeyStream(seed string, length int) []byte {
	stream := make([]byte, 0, length)
	var counter uint64
	for len(stream) < length {
		h := sha256.New()
		h.Write([]byte(seed))
		var counterBytes [8]byte
		binary.LittleEndian.PutUint64(counterBytes[:], counter)
		h.Write(counterBytes[:])
		block := h.Sum(nil)

		remaining := length - len(stream)
		if remaining < len(block) {
			block = block[:remaining]
		}
		stream = append(stream, block...)
		counter++
	}
	return stream
}
