package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"provsync/config"
	"provsync/internal/tui"
)

func init() {
	rootCmd.AddCommand(tuiCmd)
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive settings page",
	Args:  cobra.NoArgs,
	RunE: withManager(func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error {
		return tui.Run(ctx, manager)
	}),
}
