package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"provsync/config"
)

func init() {
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a provider",
	Long: `Remove a provider from both stores.

The built-in provider and the last remaining provider cannot be removed.
Removing the default makes the first remaining provider the default.`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		if err := manager.DeleteProvider(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed provider: %s\n", args[0])
		if def, ok := manager.DefaultProvider(ctx); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Default provider: %s\n", def.Name)
		}
		return nil
	}),
}
