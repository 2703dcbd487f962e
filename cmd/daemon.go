package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"provsync/config"
	"provsync/internal/daemon"
)

var daemonDetach bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run or talk to the provsync daemon",
	Long: `The daemon keeps its own copy of the providers, reloads it whenever a
store file changes and serves it over a Unix socket.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonQueryCmd = &cobra.Command{
	Use:   "query <command> [arg]",
	Short: "Send a command to the running daemon",
	Long: `Send one command to the running daemon and print the answer.

Commands: PING, GET, VERSION, RELOAD, DEFAULT <id>, DELETE <id>`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDaemonQuery,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonQueryCmd)
	daemonStartCmd.Flags().BoolVarP(&daemonDetach, "detach", "d", false, "run in the background")
}

func daemonPIDPath(settings config.Settings) string {
	socket := settings.Daemon.Socket
	return strings.TrimSuffix(socket, filepath.Ext(socket)) + ".pid"
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	pidPath := daemonPIDPath(settings)
	if daemon.IsRunning(pidPath) {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is already running")
		return nil
	}

	if daemonDetach {
		executable, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		// 重新执行自身，去掉 --detach，并与终端分离
		argv := []string{executable}
		for _, arg := range os.Args[1:] {
			if arg != "--detach" && arg != "-d" {
				argv = append(argv, arg)
			}
		}
		process, err := os.StartProcess(executable, argv, &os.ProcAttr{
			Dir:   "/",
			Env:   os.Environ(),
			Files: []*os.File{nil, nil, nil},
		})
		if err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (PID: %d)\n", process.Pid)
		return process.Release()
	}

	manager, err := config.NewManagerFromSettings(settings)
	if err != nil {
		return err
	}
	defer manager.Close()

	native, extension := manager.Backends()
	d := daemon.New(manager, daemon.Options{
		SocketPath: settings.Daemon.Socket,
		PIDPath:    pidPath,
		Debounce:   settings.Daemon.Debounce,
		WatchPaths: daemon.WatchPaths(native, extension),
	})

	log.WithField("socket", settings.Daemon.Socket).Info("daemon starting")
	return d.Run(cmd.Context())
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(daemonPIDPath(settings))
	if err == nil {
		if pid, errAtoi := strconv.Atoi(strings.TrimSpace(string(data))); errAtoi == nil {
			if process, errFind := os.FindProcess(pid); errFind == nil {
				if errSignal := process.Signal(syscall.SIGTERM); errSignal == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Daemon stopped (PID: %d)\n", pid)
					return nil
				}
			}
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !daemon.IsRunning(daemonPIDPath(settings)) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	fmt.Fprintf(out, "Daemon is running\nSocket: %s\n", settings.Daemon.Socket)
	if v, err := daemon.Query(settings.Daemon.Socket, "VERSION"); err == nil {
		fmt.Fprintf(out, "Reloads: %s\n", v)
	}
	return nil
}

func runDaemonQuery(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	response, err := daemon.Query(settings.Daemon.Socket, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), response)
	return nil
}
