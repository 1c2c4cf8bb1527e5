package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veeringman/KeyCortex/pkg/types"
)

// Wallet commands
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage custodial wallets",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new custodial wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		wallet, err := apiClient(cmd).CreateWallet(label)
		if err != nil {
			return err
		}

		fmt.Println("✓ Wallet created")
		fmt.Printf("  Address:    %s\n", wallet.WalletAddress)
		fmt.Printf("  Public key: %s\n", wallet.PublicKey)
		fmt.Printf("  Chain:      %s\n", wallet.Chain)
		if wallet.Label != "" {
			fmt.Printf("  Label:      %s\n", wallet.Label)
		}
		return nil
	},
}

var walletRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a wallet from its passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, _ := cmd.Flags().GetString("passphrase")
		label, _ := cmd.Flags().GetString("label")

		wallet, err := apiClient(cmd).RestoreWallet(passphrase, label)
		if err != nil {
			return err
		}

		if wallet.AlreadyExisted {
			fmt.Println("✓ Wallet already custodied, key re-derived")
		} else {
			fmt.Println("✓ Wallet restored")
		}
		fmt.Printf("  Address:    %s\n", wallet.WalletAddress)
		fmt.Printf("  Public key: %s\n", wallet.PublicKey)
		if wallet.Label != "" {
			fmt.Printf("  Label:      %s\n", wallet.Label)
		}
		return nil
	},
}

var walletRenameCmd = &cobra.Command{
	Use:   "rename ADDRESS LABEL",
	Short: "Set the display label of a wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		renamed, err := apiClient(cmd).RenameWallet(args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("✓ Wallet %s renamed to %q\n", renamed.WalletAddress, renamed.Label)
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custodied wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		listing, err := apiClient(cmd).ListWallets()
		if err != nil {
			return err
		}

		if listing.Total == 0 {
			fmt.Println("No wallets custodied yet.")
			return nil
		}

		fmt.Printf("%-44s %-14s %-20s %s\n", "ADDRESS", "CHAIN", "BOUND USER", "LABEL")
		for _, w := range listing.Wallets {
			fmt.Printf("%-44s %-14s %-20s %s\n", w.WalletAddress, w.Chain, w.BoundUserID, w.Label)
		}
		fmt.Printf("\nTotal: %d\n", listing.Total)
		return nil
	},
}

var walletSignCmd = &cobra.Command{
	Use:   "sign ADDRESS PAYLOAD",
	Short: "Sign a payload with a custodied key",
	Long: `Sign a payload with a custodied key.

The payload argument is taken as raw text and base64-encoded before it
is sent; the response is the ed25519 signature in lowercase hex.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		purpose, _ := cmd.Flags().GetString("purpose")

		payload := base64.StdEncoding.EncodeToString([]byte(args[1]))
		signed, err := apiClient(cmd).Sign(args[0], payload, types.SignPurpose(purpose))
		if err != nil {
			return err
		}

		fmt.Println(signed.Signature)
		return nil
	},
}

var walletSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Sign and submit a transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetString("amount")
		asset, _ := cmd.Flags().GetString("asset")
		chainID, _ := cmd.Flags().GetString("chain")
		nonce, _ := cmd.Flags().GetUint64("nonce")
		idemKey, _ := cmd.Flags().GetString("idempotency-key")

		result, err := apiClient(cmd).Submit(types.WalletSubmitRequest{
			From:   from,
			To:     to,
			Amount: amount,
			Asset:  asset,
			Chain:  chainID,
			Nonce:  nonce,
		}, idemKey)
		if err != nil {
			return err
		}

		if result.Accepted {
			fmt.Println("✓ Transfer accepted")
		} else {
			fmt.Println("✗ Transfer rejected by chain")
		}
		fmt.Printf("  Tx hash:   %s\n", result.TxHash)
		fmt.Printf("  Signature: %s\n", result.Signature)
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance ADDRESS",
	Short: "Query an asset balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, _ := cmd.Flags().GetString("chain")
		asset, _ := cmd.Flags().GetString("asset")

		balance, err := apiClient(cmd).Balance(args[0], chainID, asset)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s (%s on %s)\n", balance.Amount, balance.Asset, balance.WalletAddress, balance.Chain)
		return nil
	},
}

var walletNonceCmd = &cobra.Command{
	Use:   "nonce ADDRESS",
	Short: "Show the last accepted and next usable nonce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nonce, err := apiClient(cmd).Nonce(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("  Last nonce: %d\n", nonce.LastNonce)
		fmt.Printf("  Next nonce: %d\n", nonce.NextNonce)
		return nil
	},
}

var walletTxCmd = &cobra.Command{
	Use:   "tx TX_HASH",
	Short: "Show the status of a submitted transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := apiClient(cmd).TxStatus(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("  Tx hash:   %s\n", status.TxHash)
		fmt.Printf("  Status:    %s\n", status.Status)
		fmt.Printf("  From:      %s\n", status.From)
		fmt.Printf("  To:        %s\n", status.To)
		fmt.Printf("  Amount:    %s %s\n", status.Amount, status.Asset)
		fmt.Printf("  Chain:     %s\n", status.Chain)
		fmt.Printf("  Submitted: %d\n", status.SubmittedAtEpoch)
		return nil
	},
}

func init() {
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletRestoreCmd)
	walletCmd.AddCommand(walletRenameCmd)
	walletCmd.AddCommand(walletListCmd)
	walletCmd.AddCommand(walletSignCmd)
	walletCmd.AddCommand(walletSubmitCmd)
	walletCmd.AddCommand(walletBalanceCmd)
	walletCmd.AddCommand(walletNonceCmd)
	walletCmd.AddCommand(walletTxCmd)

	walletCreateCmd.Flags().String("label", "", "Display label for the wallet")

	walletRestoreCmd.Flags().String("passphrase", "", "Recovery passphrase (required)")
	walletRestoreCmd.Flags().String("label", "", "Display label for the wallet")
	_ = walletRestoreCmd.MarkFlagRequired("passphrase")

	walletSignCmd.Flags().String("purpose", "", "Signature domain: transaction, auth or proof")

	walletSubmitCmd.Flags().String("from", "", "Source wallet address (required)")
	walletSubmitCmd.Flags().String("to", "", "Destination address (required)")
	walletSubmitCmd.Flags().String("amount", "", "Amount in base units (required)")
	walletSubmitCmd.Flags().String("asset", "PROOF", "Asset symbol")
	walletSubmitCmd.Flags().String("chain", "flowcortex-l1", "Chain identifier")
	walletSubmitCmd.Flags().Uint64("nonce", 0, "Transfer nonce, strictly greater than the last accepted")
	walletSubmitCmd.Flags().String("idempotency-key", "", "Key that makes retries of this submit safe")
	_ = walletSubmitCmd.MarkFlagRequired("from")
	_ = walletSubmitCmd.MarkFlagRequired("to")
	_ = walletSubmitCmd.MarkFlagRequired("amount")

	walletBalanceCmd.Flags().String("chain", "", "Chain identifier (defaults to flowcortex-l1)")
	walletBalanceCmd.Flags().String("asset", "", "Asset symbol (defaults to PROOF)")
}
