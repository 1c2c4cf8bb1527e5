package identity

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/jwk"

	"github.com/veeringman/KeyCortex/pkg/metrics"
)

// OpsRole is the role a principal needs for the /ops surface
const OpsRole = "ops-admin"

// Verification failures. Messages are intentionally generic and never
// echo token contents.
var (
	ErrMissingAuthHeader  = errors.New("missing Authorization header")
	ErrInvalidAuthFormat  = errors.New("invalid Authorization format")
	ErrMissingBearerToken = errors.New("missing bearer token")

	ErrMalformedToken   = errors.New("invalid AuthBuddy JWT header")
	ErrWrongAlgorithm   = errors.New("invalid AuthBuddy JWT algorithm; expected RS256")
	ErrMissingKeyID     = errors.New("missing AuthBuddy JWT kid header")
	ErrNoMatchingKey    = errors.New("no matching JWK found for token kid")
	ErrKeyMaterial      = errors.New("unable to construct decoding key from JWK")
	ErrInvalidToken     = errors.New("invalid AuthBuddy JWT")
	ErrMissingExpiry    = errors.New("missing AuthBuddy JWT exp claim")
	ErrExpiredToken     = errors.New("expired AuthBuddy JWT")
	ErrMissingIssuer    = errors.New("missing AuthBuddy JWT iss claim")
	ErrIssuerMismatch   = errors.New("invalid AuthBuddy JWT issuer")
	ErrMissingAudience  = errors.New("missing AuthBuddy JWT aud claim")
	ErrAudienceMismatch = errors.New("invalid AuthBuddy JWT audience")
	ErrInvalidSubject   = errors.New("invalid AuthBuddy JWT subject")
)

// Principal is the authenticated caller extracted from a bearer token
type Principal struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the principal carries the given role
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Status is a point-in-time snapshot of the JWKS runtime state
type Status struct {
	Source             string
	Loaded             bool
	LastRefreshEpochMs int64
	LastError          string
}

// Config holds the verification parameters fixed at startup
type Config struct {
	// Secret is the HS256 shared secret used while no JWKS is loaded
	Secret string

	// Issuer, when non-empty, must match the token's iss claim
	Issuer string

	// Audience, when non-empty, must appear in the token's aud claim
	Audience string
}

// Verifier validates AuthBuddy bearer tokens. RS256 against the loaded
// JWKS when one is present, HS256 against the shared secret otherwise.
// The key set is swapped atomically by the refresher; the verifier only
// ever reads a snapshot.
type Verifier struct {
	mu     sync.RWMutex
	keys   jwk.Set
	status Status

	secret   string
	issuer   string
	audience string
}

// NewVerifier creates a verifier with no key set loaded
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		secret:   cfg.Secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// SetSource records which JWKS source the deployment configured.
// Precedence is decided by the caller (url > file > inline).
func (v *Verifier) SetSource(source string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status.Source = source
}

// LoadInline seeds the key set from a JWKS document supplied directly
// in configuration. The source label is left as configured.
func (v *Verifier) LoadInline(jwksJSON string) error {
	set, err := jwk.Parse([]byte(jwksJSON))
	if err != nil {
		return err
	}
	v.setKeys(set)
	return nil
}

// Status returns a snapshot of the JWKS runtime state
func (v *Verifier) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// AuthMode reports which verification path tokens currently take
func (v *Verifier) AuthMode() string {
	if v.Status().Loaded {
		return "rs256-jwks"
	}
	return "hs256-fallback"
}

// HasFallbackSecret reports whether the HS256 shared secret is usable
func (v *Verifier) HasFallbackSecret() bool {
	return strings.TrimSpace(v.secret) != ""
}

// VerifyRequest authenticates the request's Authorization header
func (v *Verifier) VerifyRequest(r *http.Request) (*Principal, error) {
	return v.VerifyAuthorization(r.Header.Get("Authorization"))
}

// VerifyAuthorization authenticates a raw Authorization header value
func (v *Verifier) VerifyAuthorization(header string) (*Principal, error) {
	if header == "" {
		return nil, ErrMissingAuthHeader
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrInvalidAuthFormat
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, ErrMissingBearerToken
	}
	return v.VerifyToken(token)
}

// VerifyToken validates the compact JWT and extracts the principal
func (v *Verifier) VerifyToken(token string) (*Principal, error) {
	keys := v.keySet()

	var claims jwt.MapClaims
	var err error
	if keys != nil {
		claims, err = verifyRS256(token, keys)
	} else {
		claims, err = v.verifyHS256(token)
	}
	if err != nil {
		return nil, err
	}
	return v.checkClaims(claims)
}

func (v *Verifier) keySet() jwk.Set {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keys
}

// setKeys swaps in a freshly parsed key set and clears the last error
func (v *Verifier) setKeys(set jwk.Set) {
	v.mu.Lock()
	v.keys = set
	v.status.Loaded = true
	v.status.LastRefreshEpochMs = time.Now().UnixMilli()
	v.status.LastError = ""
	v.mu.Unlock()

	metrics.JWKSKeys.Set(float64(set.Len()))
}

func (v *Verifier) recordRefreshError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status.LastError = msg
}

// verifyRS256 checks the token against the JWKS. Header inspection
// happens before any signature work so each failure keeps its own
// diagnostic.
func verifyRS256(token string, keys jwk.Set) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)

	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, ErrMalformedToken
	}
	if alg, _ := unverified.Header["alg"].(string); alg != "RS256" {
		return nil, ErrWrongAlgorithm
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKeyID
	}

	key, ok := keys.LookupKeyID(kid)
	if !ok {
		return nil, ErrNoMatchingKey
	}
	var pub rsa.PublicKey
	if err := key.Raw(&pub); err != nil {
		return nil, ErrKeyMaterial
	}

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return &pub, nil
	}); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// verifyHS256 checks the token against the shared secret. Every failure
// collapses to the same generic error.
func (v *Verifier) verifyHS256(token string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(v.secret), nil
	}); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// checkClaims enforces exp, then iss and aud when configured, then sub.
// Signature validity is already established.
func (v *Verifier) checkClaims(claims jwt.MapClaims) (*Principal, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrMissingExpiry
	}
	if !exp.After(time.Now()) {
		return nil, ErrExpiredToken
	}

	if v.issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss == "" {
			return nil, ErrMissingIssuer
		}
		if iss != v.issuer {
			return nil, ErrIssuerMismatch
		}
	}

	if v.audience != "" {
		aud, err := claims.GetAudience()
		if err != nil || len(aud) == 0 {
			return nil, ErrMissingAudience
		}
		matched := false
		for _, a := range aud {
			if a == v.audience {
				matched = true
				break
			}
		}
		if !matched {
			return nil, ErrAudienceMismatch
		}
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, ErrInvalidSubject
	}

	return &Principal{UserID: sub, Roles: extractRoles(claims)}, nil
}

// extractRoles unions the "roles" string array with the comma-separated
// "role" string. Entries are trimmed; empties dropped.
func extractRoles(claims jwt.MapClaims) []string {
	var roles []string

	if arr, ok := claims["roles"].([]interface{}); ok {
		for _, item := range arr {
			if s, ok := item.(string); ok {
				if t := strings.TrimSpace(s); t != "" {
					roles = append(roles, t)
				}
			}
		}
	}
	if s, ok := claims["role"].(string); ok {
		for _, part := range strings.Split(s, ",") {
			if t := strings.TrimSpace(part); t != "" {
				roles = append(roles, t)
			}
		}
	}
	return roles
}
