package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"provsync/config"
)

func init() {
	rootCmd.AddCommand(defaultCmd)
}

var defaultCmd = &cobra.Command{
	Use:   "default [id]",
	Short: "Show or set the default provider",
	Long:  "Without an argument, print the default provider. With an id, make that provider the default.",
	Args:  cobra.MaximumNArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			def, ok := manager.DefaultProvider(ctx)
			if !ok {
				return fmt.Errorf("%w: default", config.ErrProviderNotFound)
			}
			fmt.Fprintf(out, "%s (%s)\n", def.Name, def.ID)
			return nil
		}

		if err := manager.SetDefaultProvider(ctx, args[0]); err != nil {
			if errors.Is(err, config.ErrProviderNotFound) {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(manager.ProviderIDs(ctx), ", "))
			}
			return err
		}
		def, _ := manager.DefaultProvider(ctx)
		fmt.Fprintf(out, "Default provider: %s (%s)\n", def.Name, def.ID)
		return nil
	}),
}
