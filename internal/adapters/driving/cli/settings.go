package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/margin-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the labeling backend, debounce window, and
span limits. Settings are stored in config.toml under the config directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting and persist it",
	Long: `Set a single setting by key.

Available keys:
  provider         - Labeling backend (mock or anthropic)
  model            - Backend model name
  base_url         - Backend API base URL override
  api_key_env      - Environment variable holding the API key
  debounce_ms      - Debounce window for live relabeling
  max_spans        - Maximum spans requested per labeling
  min_confidence   - Confidence floor for returned spans
  template_version - Labeling prompt template (v1 or v2)`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s := appSettings

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Labeler]")
	cmd.Printf("  Provider: %s\n", s.Provider)
	if s.Model != "" {
		cmd.Printf("  Model: %s\n", s.Model)
	}
	if s.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.BaseURL)
	}
	cmd.Printf("  API key env: %s\n", s.APIKeyEnv)
	cmd.Printf("  Template: %s\n", s.TemplateVersion)
	cmd.Println()

	cmd.Println("[Labeling]")
	cmd.Printf("  Debounce: %s\n", s.Debounce())
	cmd.Printf("  Max spans: %d\n", s.MaxSpans)
	cmd.Printf("  Min confidence: %.2f\n", s.MinConfidence)
	cmd.Println()

	if err := labelerService.Ping(cmd.Context()); err != nil {
		cmd.Printf("Warning: labeler unreachable: %v\n", err)
	} else {
		cmd.Println("Labeler is reachable.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	s := appSettings
	switch key {
	case "provider":
		s.Provider = value
	case "model":
		s.Model = value
	case "base_url":
		s.BaseURL = value
	case "api_key_env":
		s.APIKeyEnv = value
	case "debounce_ms":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: debounce_ms must be an integer", domain.ErrInvalidInput)
		}
		s.DebounceMs = ms
	case "max_spans":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: max_spans must be an integer", domain.ErrInvalidInput)
		}
		s.MaxSpans = n
	case "min_confidence":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: min_confidence must be a number", domain.ErrInvalidInput)
		}
		s.MinConfidence = f
	case "template_version":
		s.TemplateVersion = value
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	configStore, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	if err := configStore.SaveSettings(s); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	appSettings = s

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}
