package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"provsync/config"
)

var editFlags providerFlags

func init() {
	rootCmd.AddCommand(editCmd)
	editFlags.register(editCmd.Flags())
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a provider",
	Long: `Edit a provider. Only the flags given are changed.

Example:
  provsync edit 3f2c9a1e --model gpt-4o-mini --temperature 0.2`,
	Args: cobra.ExactArgs(1),
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		changed := false
		cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
			changed = changed || f.Changed
		})
		if !changed {
			return errors.New("nothing to change, pass at least one flag")
		}

		p, err := manager.Provider(ctx, args[0])
		if err != nil {
			return err
		}
		if err := editFlags.apply(cmd.Flags(), &p); err != nil {
			return err
		}

		updated, err := manager.UpdateProvider(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated provider: %s (%s)\n", updated.Name, updated.ID)
		return nil
	}),
}
