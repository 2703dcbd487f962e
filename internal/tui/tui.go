package tui

import (
	"context"
	"fmt"
	"os"

	"provsync/config"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the settings page on the terminal
func Run(ctx context.Context, manager *config.Manager) error {
	if !isTerminal() {
		return fmt.Errorf("the settings page requires a terminal, use the subcommands for non-interactive mode")
	}

	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}
	if os.Getenv("TERM") != "" {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	_, err := tea.NewProgram(NewModel(ctx, manager), opts...).Run()
	return err
}

// isTerminal checks if stdin is a terminal
func isTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
