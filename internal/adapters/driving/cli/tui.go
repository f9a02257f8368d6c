package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/margin-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/margin-cli/internal/core/services"
)

var tuiPrompt string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive annotation editor",
	Long: `Launch the interactive terminal editor for margin.

Type prompt text and watch semantic highlights appear as you pause.
Spans can be focused, selected for suggestions, and locked so
relabeling preserves them.

Controls:
  tab/shift+tab - Focus next/previous span
  ctrl+e        - Select focused span
  ctrl+l        - Lock focused span
  ctrl+s        - Save a version
  ctrl+p/ctrl+n - Cycle version history
  ctrl+c        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiPrompt, "prompt", "default", "prompt-history entry id")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tui requires an interactive terminal")
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	versions := services.NewVersions(tuiPrompt, versionStore)
	if err := versions.Load(cmd.Context()); err != nil {
		return err
	}

	client := services.NewLabelingClient(labelerService, services.LabelingOptions{
		Enabled:         true,
		CacheKey:        tuiPrompt,
		Debounce:        appSettings.Debounce(),
		MaxSpans:        appSettings.MaxSpans,
		MinConfidence:   appSettings.MinConfidence,
		TemplateVersion: appSettings.TemplateVersion,
	})
	defer client.Close()

	app, err := tui.NewApp(&tui.Ports{
		Client:   client,
		Versions: versions,
		Settings: appSettings,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
