package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.KeystorePath != "./data/keystore" {
		t.Errorf("KeystorePath = %q, want ./data/keystore", cfg.KeystorePath)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.EncryptionKey != "keycortex-dev-master-key" {
		t.Errorf("EncryptionKey = %q", cfg.EncryptionKey)
	}
	if cfg.ChallengeTTLSeconds != 300 {
		t.Errorf("ChallengeTTLSeconds = %d, want 300", cfg.ChallengeTTLSeconds)
	}
	if cfg.MigrationsDir != "./migrations" {
		t.Errorf("MigrationsDir = %q, want ./migrations", cfg.MigrationsDir)
	}
	if cfg.JWTSecret != "authbuddy-dev-secret-change-me" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.JWKSRefreshSeconds != 60 {
		t.Errorf("JWKSRefreshSeconds = %d, want 60", cfg.JWKSRefreshSeconds)
	}
	if cfg.FlowCortexL1URL != "http://127.0.0.1:8090" {
		t.Errorf("FlowCortexL1URL = %q", cfg.FlowCortexL1URL)
	}
	if cfg.LogLevel != "info" || !cfg.LogJSON {
		t.Errorf("log config = %q/%v, want info/true", cfg.LogLevel, cfg.LogJSON)
	}
	if cfg.ChallengeTTL() != 300*time.Second {
		t.Errorf("ChallengeTTL() = %v", cfg.ChallengeTTL())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KEYCORTEX_LISTEN_ADDR", ":9999")
	t.Setenv("KEYCORTEX_CHALLENGE_TTL_SECONDS", "120")
	t.Setenv("DATABASE_URL", "postgres://localhost/keycortex_test")
	t.Setenv("AUTHBUDDY_JWKS_URL", "https://authbuddy.example/jwks.json")
	t.Setenv("KEYCORTEX_LOG_JSON", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.ChallengeTTLSeconds != 120 {
		t.Errorf("ChallengeTTLSeconds = %d, want 120", cfg.ChallengeTTLSeconds)
	}
	if !cfg.PostgresConfigured() {
		t.Error("PostgresConfigured() = false, want true")
	}
	if cfg.JWKSSource() != "url" {
		t.Errorf("JWKSSource() = %q, want url", cfg.JWKSSource())
	}
	if cfg.LogJSON {
		t.Error("LogJSON = true, want false")
	}
}

func TestLoadYAMLMergedBelowEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keycortex.yaml")
	body := strings.Join([]string{
		"listen_addr: :7070",
		"challenge_ttl_seconds: 45",
		"flowcortex_l1_url: http://chain.internal:8090",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	// Environment beats the file; file beats the defaults.
	t.Setenv("KEYCORTEX_LISTEN_ADDR", ":6060")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr != ":6060" {
		t.Errorf("ListenAddr = %q, want env value :6060", cfg.ListenAddr)
	}
	if cfg.ChallengeTTLSeconds != 45 {
		t.Errorf("ChallengeTTLSeconds = %d, want file value 45", cfg.ChallengeTTLSeconds)
	}
	if cfg.FlowCortexL1URL != "http://chain.internal:8090" {
		t.Errorf("FlowCortexL1URL = %q, want file value", cfg.FlowCortexL1URL)
	}
	if cfg.KeystorePath != "./data/keystore" {
		t.Errorf("KeystorePath = %q, want default", cfg.KeystorePath)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with absent file: expected error")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("listen_addr: [not: closed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Load() with bad YAML: err = %v", err)
	}
}

func TestRefreshSecondsFloor(t *testing.T) {
	t.Setenv("AUTHBUDDY_JWKS_REFRESH_SECONDS", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JWKSRefreshSeconds != 10 {
		t.Errorf("JWKSRefreshSeconds = %d, want floor 10", cfg.JWKSRefreshSeconds)
	}
	if cfg.JWKSRefreshInterval() != 10*time.Second {
		t.Errorf("JWKSRefreshInterval() = %v", cfg.JWKSRefreshInterval())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty listen addr", func(c *Config) { c.ListenAddr = " " }, "listen address is required"},
		{"empty keystore path", func(c *Config) { c.KeystorePath = "" }, "keystore path is required"},
		{"empty encryption key", func(c *Config) { c.EncryptionKey = "  " }, "encryption key is required"},
		{"zero challenge ttl", func(c *Config) { c.ChallengeTTLSeconds = 0 }, "challenge TTL must be at least 1 second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestJWKSSourcePrecedence(t *testing.T) {
	tests := []struct {
		name            string
		url, path, json string
		want            string
	}{
		{"url wins", "https://a/jwks", "/etc/jwks.json", "{}", "url"},
		{"file beats inline", "", "/etc/jwks.json", "{}", "file"},
		{"inline only", "", "", "{}", "inline"},
		{"none", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.JWKSURL = tt.url
			cfg.JWKSPath = tt.path
			cfg.JWKSJSON = tt.json
			if got := cfg.JWKSSource(); got != tt.want {
				t.Errorf("JWKSSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummaryRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.DatabaseURL = "postgres://user:hunter2@db/keycortex"
	cfg.EncryptionKey = "super-secret-wrap-key"
	cfg.JWTSecret = "super-secret-hmac"

	summary := cfg.Summary()
	for key, value := range summary {
		if strings.Contains(value, "hunter2") || strings.Contains(value, "super-secret") {
			t.Errorf("summary[%q] leaks secret material: %q", key, value)
		}
	}
	if summary["postgres_configured"] != "true" {
		t.Errorf("postgres_configured = %q, want true", summary["postgres_configured"])
	}
}
