/*
Package identity authenticates AuthBuddy bearer tokens.

The verifier holds an optional JWKS and an HS256 shared secret. While a
JWKS is loaded every token must be RS256-signed by one of its keys;
without one the verifier falls back to the shared secret. Claim checks
(exp, then iss and aud when the deployment configures them, then sub)
run manually after signature verification so each failure keeps its own
short diagnostic, none of which echo token contents.

# Key Set Lifecycle

The key set is seeded from inline configuration and kept fresh by the
Refresher, a background loop that tries the configured URL first and
the file path second on every iteration. Successful loads swap the set
atomically under the verifier's lock; failures record a status message
and back the loop off exponentially (doubling up to five times, capped
at 300s). The /health and /readyz endpoints surface the Status
snapshot.

# Roles

A principal's roles are the union of the "roles" string array and the
comma-separated "role" string claim. Ops endpoints require OpsRole.

# Usage

	verifier := identity.NewVerifier(identity.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	refresher := identity.NewRefresher(verifier, identity.RefresherConfig{
		URL:      cfg.JWKSURL,
		Interval: time.Duration(cfg.JWKSRefreshSeconds) * time.Second,
	})
	refresher.Start()
	defer refresher.Stop()

	principal, err := verifier.VerifyRequest(r)

# Integration Points

  - pkg/service: request authentication and ops role enforcement
  - pkg/metrics: refresh outcome counter and key-count gauge
  - cmd/keycortex: source selection and refresher lifecycle
*/
package identity
