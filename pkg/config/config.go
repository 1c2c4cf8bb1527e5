// Package config loads the service configuration from the environment,
// optionally merged over a YAML file. Precedence is environment over
// file over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration for the service.
//
// Fields carry no envconfig defaults on purpose: defaults are applied in
// Default() so that a YAML file can sit between the defaults and the
// environment without envconfig clobbering file values.
type Config struct {
	KeystorePath        string `envconfig:"KEYCORTEX_KEYSTORE_PATH" yaml:"keystore_path"`
	ListenAddr          string `envconfig:"KEYCORTEX_LISTEN_ADDR" yaml:"listen_addr"`
	EncryptionKey       string `envconfig:"KEYCORTEX_ENCRYPTION_KEY" yaml:"encryption_key"`
	ChallengeTTLSeconds int64  `envconfig:"KEYCORTEX_CHALLENGE_TTL_SECONDS" yaml:"challenge_ttl_seconds"`

	DatabaseURL   string `envconfig:"DATABASE_URL" yaml:"database_url"`
	MigrationsDir string `envconfig:"KEYCORTEX_POSTGRES_MIGRATIONS_DIR" yaml:"migrations_dir"`

	JWTSecret          string `envconfig:"AUTHBUDDY_JWT_SECRET" yaml:"jwt_secret"`
	JWKSJSON           string `envconfig:"AUTHBUDDY_JWKS_JSON" yaml:"jwks_json"`
	JWKSPath           string `envconfig:"AUTHBUDDY_JWKS_PATH" yaml:"jwks_path"`
	JWKSURL            string `envconfig:"AUTHBUDDY_JWKS_URL" yaml:"jwks_url"`
	JWKSRefreshSeconds int    `envconfig:"AUTHBUDDY_JWKS_REFRESH_SECONDS" yaml:"jwks_refresh_seconds"`
	JWTIssuer          string `envconfig:"AUTHBUDDY_JWT_ISSUER" yaml:"jwt_issuer"`
	JWTAudience        string `envconfig:"AUTHBUDDY_JWT_AUDIENCE" yaml:"jwt_audience"`
	BindCallbackURL    string `envconfig:"AUTHBUDDY_BIND_CALLBACK_URL" yaml:"bind_callback_url"`

	FlowCortexL1URL string `envconfig:"FLOWCORTEX_L1_URL" yaml:"flowcortex_l1_url"`

	LogLevel string `envconfig:"KEYCORTEX_LOG_LEVEL" yaml:"log_level"`
	LogJSON  bool   `envconfig:"KEYCORTEX_LOG_JSON" yaml:"log_json"`
}

// Default returns a Config populated with the development defaults.
func Default() Config {
	return Config{
		KeystorePath:        "./data/keystore",
		ListenAddr:          ":8080",
		EncryptionKey:       "keycortex-dev-master-key",
		ChallengeTTLSeconds: 300,
		MigrationsDir:       "./migrations",
		JWTSecret:           "authbuddy-dev-secret-change-me",
		JWKSRefreshSeconds:  60,
		FlowCortexL1URL:     "http://127.0.0.1:8090",
		LogLevel:            "info",
		LogJSON:             true,
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file at path, then the environment on top. Floors and validation
// run last so they apply to the merged result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyFloors()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFloors() {
	if c.JWKSRefreshSeconds < 10 {
		c.JWKSRefreshSeconds = 10
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen address is required")
	}
	if strings.TrimSpace(c.KeystorePath) == "" {
		return fmt.Errorf("keystore path is required")
	}
	if strings.TrimSpace(c.EncryptionKey) == "" {
		return fmt.Errorf("encryption key is required")
	}
	if c.ChallengeTTLSeconds < 1 {
		return fmt.Errorf("challenge TTL must be at least 1 second")
	}
	return nil
}

// ChallengeTTL returns the configured challenge lifetime.
func (c *Config) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSeconds) * time.Second
}

// JWKSRefreshInterval returns the configured refresh cadence.
func (c *Config) JWKSRefreshInterval() time.Duration {
	return time.Duration(c.JWKSRefreshSeconds) * time.Second
}

// JWKSSource reports which JWKS source is active, URL winning over file
// winning over inline JSON. Empty when no source is configured.
func (c *Config) JWKSSource() string {
	switch {
	case c.JWKSURL != "":
		return "url"
	case c.JWKSPath != "":
		return "file"
	case c.JWKSJSON != "":
		return "inline"
	}
	return ""
}

// PostgresConfigured reports whether a primary database is configured.
func (c *Config) PostgresConfigured() bool {
	return c.DatabaseURL != ""
}

// Summary returns the non-secret configuration for diagnostics output.
// Secrets (encryption key, JWT secret, database DSN) are reported only
// as set/unset.
func (c *Config) Summary() map[string]string {
	boolStr := func(b bool) string {
		if b {
			return "true"
		}
		return "false"
	}
	return map[string]string{
		"keystore_path":         c.KeystorePath,
		"listen_addr":           c.ListenAddr,
		"challenge_ttl_seconds": fmt.Sprintf("%d", c.ChallengeTTLSeconds),
		"migrations_dir":        c.MigrationsDir,
		"postgres_configured":   boolStr(c.DatabaseURL != ""),
		"jwks_source":           c.JWKSSource(),
		"jwks_refresh_seconds":  fmt.Sprintf("%d", c.JWKSRefreshSeconds),
		"jwt_issuer":            c.JWTIssuer,
		"jwt_audience":          c.JWTAudience,
		"bind_callback_set":     boolStr(c.BindCallbackURL != ""),
		"flowcortex_l1_url":     c.FlowCortexL1URL,
		"log_level":             c.LogLevel,
		"log_json":              boolStr(c.LogJSON),
	}
}
