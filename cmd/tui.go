package cmd

import (
	"context"
	"fmt"
	"os"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-changelog/cmd/tui"
)

var tuiCMD = &cobra.Command{
	Use:   "tui",
	Short: "Browse the changelog in the terminal",
	Long: `Launch an interactive timeline browser over the configured entry store.

Example:
  go run main.go tui -c settings.yml

Keyboard shortcuts:
  ↑/↓ or j/k  Navigate entries
  /           Filter
  Enter       Open entry
  r           Reload
  Esc         Go back
  q           Quit`,
	Args: gcmd.NoExtraArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTUI(context.Background(), cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCMD.AddCommand(tuiCMD)
}

// runTUI starts the interactive Terminal User Interface and returns any start/run error.
func runTUI(ctx context.Context, cmd *cobra.Command) error {
	// keep console logs from tearing the alt screen
	gconfig.Shared.Set("log-level", "error")
	if err := initialize(ctx, cmd); err != nil {
		return errors.WithStack(err)
	}

	stack, err := setupChangelog(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stack.Close(ctx)

	title := gconfig.Shared.GetString("settings.changelog.title")
	if title == "" {
		title = "Changelog"
	}

	p := tea.NewProgram(
		tui.NewModel(title, stack.svc.ListEntries),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	return errors.WithStack(err)
}
