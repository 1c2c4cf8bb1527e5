// Package framework stands up a fully wired KeyCortex service behind a
// real HTTP listener for end-to-end tests: throwaway keystore, HS256
// verifier, mock chain adapter, no Postgres.
package framework

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/client"
	"github.com/veeringman/KeyCortex/pkg/config"
	"github.com/veeringman/KeyCortex/pkg/identity"
	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/repository"
	"github.com/veeringman/KeyCortex/pkg/service"
)

// Options configures the test environment
type Options struct {
	// JWTSecret signs and verifies the HS256 test tokens
	JWTSecret string

	// ChallengeTTL bounds challenge lifetime; defaults to 60s
	ChallengeTTL time.Duration

	// Confirmed makes the mock chain report submits as confirmed
	Confirmed bool

	// RejectWith, when non-empty, makes the mock chain reject every
	// submit with tx hash "failed:<RejectWith>"
	RejectWith string

	// BindCallbackURL receives bind notifications when set
	BindCallbackURL string
}

// DefaultOptions returns the options most scenarios want
func DefaultOptions() *Options {
	return &Options{
		JWTSecret:    "e2e-authbuddy-secret",
		ChallengeTTL: 60 * time.Second,
		Confirmed:    true,
	}
}

// Env is one wired KeyCortex instance behind an httptest server
type Env struct {
	Config  *config.Config
	Store   *keystore.BoltStore
	Mock    *chain.MockAdapter
	Service *service.Service
	Server  *httptest.Server

	secret      string
	keystoreDir string
}

// NewEnv wires a service against a throwaway keystore and the mock
// chain adapter, and serves it over a real listener
func NewEnv(opts *Options) (*Env, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	ttl := opts.ChallengeTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	dir, err := os.MkdirTemp("", "keycortex-e2e-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create keystore dir: %w", err)
	}

	cfg := config.Default()
	cfg.KeystorePath = dir
	cfg.EncryptionKey = "e2e-master-key"
	cfg.JWTSecret = opts.JWTSecret
	cfg.ChallengeTTLSeconds = int64(ttl / time.Second)
	cfg.BindCallbackURL = opts.BindCallbackURL

	store, err := keystore.NewBoltStore(cfg.KeystorePath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	mock := &chain.MockAdapter{
		Confirmed:  opts.Confirmed,
		RejectWith: opts.RejectWith,
		Balances:   map[string]string{},
	}
	registry := chain.NewRegistry()
	registry.Register(mock)

	verifier := identity.NewVerifier(identity.Config{Secret: cfg.JWTSecret})

	svc := service.New(service.Options{
		Config:     &cfg,
		Store:      store,
		Repository: repository.NewDualStore(store, nil, nil),
		Challenges: challenge.NewStore(cfg.ChallengeTTL()),
		Verifier:   verifier,
		Chains:     registry,
		Startup: &service.StartupReport{
			StartedAtEpochMs: time.Now().UnixMilli(),
			KeystorePath:     cfg.KeystorePath,
			KeystoreOK:       true,
			MigrationErrors:  []string{},
			ConfigSummary:    cfg.Summary(),
		},
		Version: service.VersionInfo{Version: "e2e", Commit: "none", BuildTime: "unknown"},
	})

	return &Env{
		Config:      &cfg,
		Store:       store,
		Mock:        mock,
		Service:     svc,
		Server:      httptest.NewServer(svc.Handler()),
		secret:      opts.JWTSecret,
		keystoreDir: dir,
	}, nil
}

// Client returns an unauthenticated API client against this environment
func (e *Env) Client() *client.Client {
	return client.NewClient(e.Server.URL)
}

// ClientWithToken returns a client that authenticates with token
func (e *Env) ClientWithToken(token string) *client.Client {
	return client.NewClientWithToken(e.Server.URL, token)
}

// Cleanup tears the environment down and removes the keystore
func (e *Env) Cleanup() error {
	e.Server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Service.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut the service down: %w", err)
	}

	if err := e.Store.Close(); err != nil {
		return fmt.Errorf("failed to close keystore: %w", err)
	}
	return os.RemoveAll(e.keystoreDir)
}
