package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veeringman/KeyCortex/pkg/client"
	"github.com/veeringman/KeyCortex/pkg/types"
)

// apiClient builds a client from the shared connection flags
func apiClient(cmd *cobra.Command) *client.Client {
	api, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if token != "" {
		return client.NewClientWithToken(api, token)
	}
	return client.NewClient(api)
}

// Auth commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Challenge auth and wallet binding",
}

var authChallengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Issue a fresh signing challenge",
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := apiClient(cmd).Challenge()
		if err != nil {
			return err
		}

		fmt.Printf("  Challenge:  %s\n", ch.Challenge)
		fmt.Printf("  Expires in: %ds\n", ch.ExpiresIn)
		return nil
	},
}

var authVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a wallet's signature over a challenge",
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, _ := cmd.Flags().GetString("wallet")
		challengeVal, _ := cmd.Flags().GetString("challenge")
		signature, _ := cmd.Flags().GetString("signature")

		verdict, err := apiClient(cmd).Verify(types.AuthVerifyRequest{
			WalletAddress: wallet,
			Challenge:     challengeVal,
			Signature:     signature,
		})
		if err != nil {
			return err
		}

		if verdict.Valid {
			fmt.Printf("✓ Signature valid for %s\n", verdict.WalletAddress)
		} else {
			fmt.Println("✗ Signature invalid")
		}
		return nil
	},
}

var authBindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Bind a wallet to the token's AuthBuddy user",
	Long: `Bind a wallet to the AuthBuddy user carried by the bearer token.

Requires --token; the user identity comes from the JWT subject, never
from a request field.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, _ := cmd.Flags().GetString("wallet")
		chainID, _ := cmd.Flags().GetString("chain")

		bound, err := apiClient(cmd).Bind(types.AuthBindRequest{
			WalletAddress: wallet,
			Chain:         chainID,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Wallet %s bound to user %s on %s\n", bound.WalletAddress, bound.UserID, bound.Chain)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authChallengeCmd)
	authCmd.AddCommand(authVerifyCmd)
	authCmd.AddCommand(authBindCmd)

	authVerifyCmd.Flags().String("wallet", "", "Wallet address (required)")
	authVerifyCmd.Flags().String("challenge", "", "Challenge string (required)")
	authVerifyCmd.Flags().String("signature", "", "Hex signature over the challenge (required)")
	_ = authVerifyCmd.MarkFlagRequired("wallet")
	_ = authVerifyCmd.MarkFlagRequired("challenge")
	_ = authVerifyCmd.MarkFlagRequired("signature")

	authBindCmd.Flags().String("wallet", "", "Wallet address (required)")
	authBindCmd.Flags().String("chain", "flowcortex-l1", "Chain identifier")
	_ = authBindCmd.MarkFlagRequired("wallet")
}

// Ops commands
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "Operator views (requires ops-admin role)",
}

var opsBindingCmd = &cobra.Command{
	Use:   "binding ADDRESS",
	Short: "Show the binding of one wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		binding, err := apiClient(cmd).GetBinding(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("  Wallet:        %s\n", binding.WalletAddress)
		fmt.Printf("  User:          %s\n", binding.UserID)
		fmt.Printf("  Chain:         %s\n", binding.Chain)
		fmt.Printf("  Last verified: %d\n", binding.LastVerifiedEpochMs)
		return nil
	},
}

var opsAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Page the audit trail newest-first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType, _ := cmd.Flags().GetString("event-type")
		wallet, _ := cmd.Flags().GetString("wallet")
		outcome, _ := cmd.Flags().GetString("outcome")
		limit, _ := cmd.Flags().GetInt("limit")

		events, err := apiClient(cmd).ListAudit(eventType, wallet, outcome, limit)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No audit events match.")
			return nil
		}

		fmt.Printf("%-22s %-10s %-44s %s\n", "EVENT", "OUTCOME", "WALLET", "MESSAGE")
		for _, e := range events {
			fmt.Printf("%-22s %-10s %-44s %s\n", e.EventType, e.Outcome, e.WalletAddress, e.Message)
		}
		return nil
	},
}

func init() {
	opsCmd.AddCommand(opsBindingCmd)
	opsCmd.AddCommand(opsAuditCmd)

	opsAuditCmd.Flags().String("event-type", "", "Filter by event type")
	opsAuditCmd.Flags().String("wallet", "", "Filter by wallet address")
	opsAuditCmd.Flags().String("outcome", "", "Filter by outcome (success or denied)")
	opsAuditCmd.Flags().Int("limit", 0, "Max events (server default 100, cap 500)")
}

// Status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service health, readiness and build identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		kc := apiClient(cmd)

		health, err := kc.Health()
		if err != nil {
			return err
		}
		fmt.Printf("  Service:   %s (%s)\n", health.Service, health.Status)
		fmt.Printf("  Auth mode: %s\n", health.AuthMode)
		if health.JWKSSource != "" {
			fmt.Printf("  JWKS:      %s (loaded=%v)\n", health.JWKSSource, health.JWKSLoaded)
		}
		if fallbacks := health.DBFallbackCounters["total"]; fallbacks > 0 {
			fmt.Printf("  DB fallbacks absorbed: %d\n", fallbacks)
		}

		ready, err := kc.Readyz()
		if err != nil {
			// a 503 still carries the readiness body in the message
			fmt.Printf("  Ready:     false (%v)\n", err)
		} else {
			fmt.Printf("  Ready:     %v\n", ready.Ready)
		}

		version, err := kc.Version()
		if err != nil {
			return err
		}
		fmt.Printf("  Version:   %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
		return nil
	},
}
