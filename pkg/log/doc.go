/*
Package log provides structured logging for KeyCortex using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

KeyCortex logging is a single global zerolog instance with cheap child loggers:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                           │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                     │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("identity")                │          │
	│  │  - WithWallet("0xabc…")                     │          │
	│  │  - WithTxHash("txn_…")                      │          │
	│  │  - WithChain("flowcortex-l1")               │          │
	│  └────────────────────────────────────────────┘          │
	└───────────────────────────────────────────────────────────┘

# Usage

Initializing the logger:

	import "github.com/veeringman/KeyCortex/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("keystore opened")
	log.Warn("postgres unavailable, continuing with local store")
	log.Error("chain submit failed")

Structured logging:

	log.Logger.Info().
		Str("wallet_address", addr).
		Uint64("nonce", nonce).
		Msg("transfer submitted")

	log.Logger.Error().
		Err(err).
		Str("source", "url").
		Msg("jwks refresh failed")

Component loggers:

	identityLog := log.WithComponent("identity")
	identityLog.Info().Msg("jwks set loaded")
	identityLog.Debug().Str("kid", kid).Msg("matched token key")

# Integration Points

This package integrates with:

  - pkg/service: request handling, audit outcomes, fallback warnings
  - pkg/identity: JWKS refresh cycle and token validation failures
  - pkg/repository: dual-write fallbacks and migration results
  - pkg/chain: transfer submissions and status polls
  - cmd/keycortex: startup and shutdown lifecycle

# Security

Log content rules for a key-custody service:

  - Never log secret key bytes, wrapped or unwrapped
  - Never log bearer tokens or their claims beyond the subject
  - Wallet addresses, tx hashes, and chain tags are public identifiers
    and safe to log
  - Use typed fields (.Str, .Uint64, .Err) for all dynamic values

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
