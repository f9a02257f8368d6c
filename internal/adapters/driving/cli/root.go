// Package cli provides the cobra command tree for the margin CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/margin-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/margin-cli/internal/adapters/driven/labeler/anthropic"
	"github.com/custodia-labs/margin-cli/internal/adapters/driven/labeler/mock"
	"github.com/custodia-labs/margin-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/margin-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/core/services"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
	flagProvider  string
	flagNoStore   bool
)

// Services wired by initServices and shared across commands.
var (
	appSettings      domain.Settings
	labelerService   driven.Labeler
	annotatorService *services.Annotator
	metadataStore    *sqlite.Store
	versionStore     driven.VersionStore
)

var rootCmd = &cobra.Command{
	Use:   "margin",
	Short: "Semantic span annotation for prompt text",
	Long: `Margin annotates prompt text with semantic spans (subject, style,
lighting, mood, camera, setting) and keeps an append-only version history
of text plus highlights.

Run without a subcommand to see available commands. Use 'margin tui' for
the interactive editor.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
	PersistentPostRun: func(*cobra.Command, []string) {
		closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.margin)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.margin/data)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "labeler provider override (mock or anthropic)")
	rootCmd.PersistentFlags().BoolVar(&flagNoStore, "no-store", false, "skip the durable version store")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices loads settings and wires the labeling backend and stores.
func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	// The version command needs no services.
	if cmd.Name() == "version" {
		return nil
	}

	configStore, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	appSettings, err = configStore.LoadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if flagProvider != "" {
		appSettings.Provider = flagProvider
		if err := appSettings.Validate(); err != nil {
			return err
		}
	}

	labelerService, err = buildLabeler(appSettings)
	if err != nil {
		return err
	}
	annotatorService = services.NewAnnotator(labelerService, appSettings)

	if flagNoStore {
		// Session-scoped history: versions live only for this process.
		versionStore = memory.NewVersionStore()
	} else {
		metadataStore, err = sqlite.NewStore(flagDataDir)
		if err != nil {
			return fmt.Errorf("opening version store: %w", err)
		}
		versionStore = metadataStore.VersionStore()
	}

	logger.Debug("services ready: provider=%s durable=%v", labelerService.ProviderName(), metadataStore != nil)
	return nil
}

// buildLabeler constructs the labeling backend selected by settings.
func buildLabeler(settings domain.Settings) (driven.Labeler, error) {
	switch settings.Provider {
	case domain.ProviderMock:
		return mock.New(), nil
	case domain.ProviderAnthropic:
		apiKey := os.Getenv(settings.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s is not set", domain.ErrLabelerUnavailable, settings.APIKeyEnv)
		}
		return anthropic.NewLabeler(anthropic.Config{
			APIKey:  apiKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: unknown labeler provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}

// closeServices releases resources opened by initServices.
func closeServices() {
	if labelerService != nil {
		labelerService.Close() //nolint:errcheck
	}
	if metadataStore != nil {
		metadataStore.Close() //nolint:errcheck
	}
}
