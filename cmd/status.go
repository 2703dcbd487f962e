package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"provsync/config"
	syncpkg "provsync/config/sync"
	"provsync/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of both stores",
	Long:  "Show what each store holds, whether they agree, and whether the daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		manager, err := config.NewManagerFromSettings(settings)
		if err != nil {
			return err
		}
		defer manager.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Settings: %s\n", settings.Path)
		fmt.Fprintf(out, "Key:      %s\n\n", settings.ProvidersKey())

		native, extension := manager.Reader().Sources(cmd.Context())
		printSource(out, "Native", native)
		printSource(out, "Extension", extension)

		merged := syncpkg.Normalize(syncpkg.Merge(native.Config, extension.Config), nowFunc())
		switch {
		case merged.Len() == 0:
			fmt.Fprintln(out, "\nNo providers stored yet, the next command will seed the default config")
		case syncpkg.NeedsRecovery(native.Config, extension.Config, merged):
			fmt.Fprintf(out, "\nStores differ, run 'provsync sync' to reconcile (%d providers after merge)\n", merged.Len())
		default:
			fmt.Fprintf(out, "\nStores agree: %d providers, default %s\n", merged.Len(), merged.DefaultProviderID)
		}

		if daemon.IsRunning(daemonPIDPath(settings)) {
			fmt.Fprintf(out, "Daemon:   running (%s)\n", settings.Daemon.Socket)
		} else {
			fmt.Fprintln(out, "Daemon:   not running")
		}
		return nil
	},
}

func printSource(out io.Writer, label string, s config.SourceStatus) {
	fmt.Fprintf(out, "%-10s %s\n", label+":", s.Backend)
	switch {
	case s.Err != nil:
		fmt.Fprintf(out, "           unusable: %v\n", s.Err)
	case !s.Found:
		fmt.Fprintln(out, "           empty")
	default:
		fmt.Fprintf(out, "           %d providers, default %s\n", s.Providers, s.Config.DefaultProviderID)
	}
}

// statusCheck reports whether the stores currently agree; used by sync
func statusCheck(ctx context.Context, manager *config.Manager) (agree bool, native, extension config.SourceStatus) {
	native, extension = manager.Reader().Sources(ctx)
	merged := syncpkg.Merge(native.Config, extension.Config)
	return merged.Len() > 0 && !syncpkg.NeedsRecovery(native.Config, extension.Config, merged), native, extension
}
