package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veeringman/KeyCortex/pkg/chain"
	"github.com/veeringman/KeyCortex/pkg/challenge"
	"github.com/veeringman/KeyCortex/pkg/config"
	"github.com/veeringman/KeyCortex/pkg/identity"
	"github.com/veeringman/KeyCortex/pkg/keystore"
	"github.com/veeringman/KeyCortex/pkg/log"
	"github.com/veeringman/KeyCortex/pkg/metrics"
	"github.com/veeringman/KeyCortex/pkg/repository"
	"github.com/veeringman/KeyCortex/pkg/service"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "keycortex",
	Short: "KeyCortex - Custodial wallet and identity service for FlowCortex L1",
	Long: `KeyCortex custodies ed25519 wallet keys for the FlowCortex L1 chain,
verifies AuthBuddy identities against wallet signatures, and submits
signed transfers with nonce and idempotency protection.

Private keys never leave the server. Clients only ever see addresses,
public keys and signatures.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"KeyCortex version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Connection flags shared by every client-side command
	rootCmd.PersistentFlags().String("api", "http://127.0.0.1:8080", "KeyCortex API base URL")
	rootCmd.PersistentFlags().String("token", "", "AuthBuddy bearer token for authenticated endpoints")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(opsCmd)
	rootCmd.AddCommand(statusCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the KeyCortex API server",
	Long: `Run the KeyCortex API server.

Configuration is read from the environment, optionally merged over a
YAML file. The server starts degraded when Postgres is unreachable and
keeps serving from the local keystore.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "YAML config file (environment overrides it)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("main")

	startup := &service.StartupReport{
		StartedAtEpochMs:   time.Now().UnixMilli(),
		KeystorePath:       cfg.KeystorePath,
		PostgresConfigured: cfg.PostgresConfigured(),
		JWKSSource:         cfg.JWKSSource(),
		MigrationErrors:    []string{},
		ConfigSummary:      cfg.Summary(),
	}

	// Local keystore is the root of custody; refuse to start without it
	store, err := keystore.NewBoltStore(cfg.KeystorePath)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %v", err)
	}
	defer func() { _ = store.Close() }()
	startup.KeystoreOK = true

	// Postgres is the optional primary. Unreachable means degraded, not
	// down: bindings, audit and challenges keep flowing to the keystore.
	counters := repository.NewFallbackCounters()
	var primary repository.Primary
	if cfg.PostgresConfigured() {
		pg, err := repository.Connect(cfg.DatabaseURL)
		if err != nil {
			counters.IncPostgresUnavailable()
			startup.MigrationErrors = append(startup.MigrationErrors, err.Error())
			logger.Warn().Err(err).Msg("postgres unreachable, continuing on keystore only")
		} else {
			defer func() { _ = pg.Close() }()
			startup.PostgresConnected = true

			applied, err := pg.Migrate(cfg.MigrationsDir)
			if err != nil {
				startup.MigrationErrors = append(startup.MigrationErrors, err.Error())
				logger.Error().Err(err).Msg("migrations failed, continuing with current schema")
			}
			startup.MigrationsApplied = applied
			primary = pg
		}
	}
	repo := repository.NewDualStore(store, primary, counters)

	// AuthBuddy verification: inline JWKS loads now, URL and file sources
	// load through the background refresher. HS256 covers the gap.
	verifier := identity.NewVerifier(identity.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})
	if src := cfg.JWKSSource(); src != "" {
		verifier.SetSource(src)
	}
	if cfg.JWKSJSON != "" {
		if err := verifier.LoadInline(cfg.JWKSJSON); err != nil {
			return fmt.Errorf("failed to load inline JWKS: %v", err)
		}
	}

	var refresher *identity.Refresher
	if src := cfg.JWKSSource(); src == "url" || src == "file" {
		refresher = identity.NewRefresher(verifier, identity.RefresherConfig{
			URL:      cfg.JWKSURL,
			Path:     cfg.JWKSPath,
			Interval: cfg.JWKSRefreshInterval(),
		})
		refresher.Start()
		defer refresher.Stop()
	}

	challenges := challenge.NewStore(cfg.ChallengeTTL())

	registry := chain.NewRegistry()
	registry.Register(chain.NewFlowCortexAdapter(cfg.FlowCortexL1URL))

	collector := metrics.NewCollector(store, challenges)
	collector.Start()
	defer collector.Stop()

	svc := service.New(service.Options{
		Config:     cfg,
		Store:      store,
		Repository: repo,
		Challenges: challenges,
		Verifier:   verifier,
		Chains:     registry,
		Startup:    startup,
		Version:    service.VersionInfo{Version: Version, Commit: Commit, BuildTime: BuildTime},
	})

	errCh := make(chan error, 1)
	go func() {
		if err := svc.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("API server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown: %v", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
