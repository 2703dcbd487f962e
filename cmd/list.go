package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"provsync/config"
	"provsync/config/models"
	"provsync/internal/utils"
)

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the reconciled config as JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all providers",
	Long:  "List the providers reconciled from both stores",
	Args:  cobra.NoArgs,
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		cfg := manager.Load(ctx)
		out := cmd.OutOrStdout()

		if listJSON {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode providers: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, "Available providers:")
		for _, p := range cfg.Providers {
			fmt.Fprintln(out, formatProviderLine(p, p.ID == cfg.DefaultProviderID))
		}
		fmt.Fprintf(out, "\n* indicates the default provider\n")
		if !manager.HasCustomProviders(ctx) {
			fmt.Fprintln(out, "Only the built-in provider is configured, add one with 'provsync add'")
		}
		return nil
	}),
}

// formatProviderLine renders one provider for list output, masking its key
func formatProviderLine(p models.Provider, isDefault bool) string {
	marker := " "
	if isDefault {
		marker = "*"
	}
	line := fmt.Sprintf("%s %s (%s) [%s]", marker, p.Name, utils.ShortID(p.ID), p.Type)
	if p.BaseURL != "" {
		line += " URL: " + p.BaseURL
	}
	if p.ModelID != "" {
		line += " Model: " + p.ModelID
	}
	if p.APIKey != "" {
		line += " Key: " + utils.MaskAPIKey(p.APIKey)
	}
	if p.IsBuiltIn {
		line += " (built-in)"
	}
	return line
}
