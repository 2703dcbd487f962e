package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"provsync/config"
)

// Version information
var (
	version string
	commit  string
	date    string
)

// Persistent flags
var (
	settingsPath   string
	nativeStore    string
	extensionStore string
	logLevel       string
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

var rootCmd = &cobra.Command{
	Use:   "provsync",
	Short: "Keep AI provider settings in sync across two stores",
	Long: `provsync manages the AI provider list shared by the browser's native
preferences store and the extension storage. Every command reads both
stores, reconciles them and writes changes back to both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsPath, "settings", "", "settings file (default $XDG_CONFIG_HOME/provsync/settings.yaml)")
	flags.StringVar(&nativeStore, "native", "", "native store DSN, e.g. prefs:///path/Preferences")
	flags.StringVar(&extensionStore, "extension", "", "extension store DSN, e.g. file:///path/extension-storage.json")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute executes the root command
func Execute() error {
	rootCmd.Version = version

	// 设置版本输出格式
	rootCmd.SetVersionTemplate(`provsync {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)

	return rootCmd.Execute()
}

// loadSettings resolves settings from file, environment and flags and
// applies the log level
func loadSettings() (config.Settings, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.Override(nativeStore, extensionStore, logLevel); err != nil {
		return config.Settings{}, err
	}

	log.SetLevel(settings.Level())
	config.SetLogger(log.StandardLogger())
	return settings, nil
}

// withManager wraps a command body that needs a Manager. The manager is
// closed afterwards, which also waits for background write-backs.
func withManager(fn func(ctx context.Context, cmd *cobra.Command, args []string, manager *config.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		manager, err := config.NewManagerFromSettings(settings)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := manager.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return fn(cmd.Context(), cmd, args, manager)
	}
}
