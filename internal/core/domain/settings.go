package domain

import (
	"fmt"
	"time"
)

// Labeler provider identifiers.
const (
	// ProviderMock is the deterministic offline labeler.
	ProviderMock = "mock"

	// ProviderAnthropic is the Anthropic messages API labeler.
	ProviderAnthropic = "anthropic"
)

// Default labeling settings.
const (
	DefaultDebounce        = 600 * time.Millisecond
	DefaultMaxSpans        = 24
	DefaultMinConfidence   = 0.5
	DefaultTemplateVersion = "v2"
)

// Settings holds the labeling pipeline configuration.
type Settings struct {
	// Provider selects the labeling backend ("mock" or "anthropic").
	Provider string `toml:"provider"`

	// Model is the backend model name, provider-specific.
	Model string `toml:"model"`

	// BaseURL overrides the backend API base URL.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`

	// DebounceMs is the debounce window for live relabeling, in milliseconds.
	DebounceMs int `toml:"debounce_ms"`

	// MaxSpans caps the number of spans requested from the backend.
	MaxSpans int `toml:"max_spans"`

	// MinConfidence filters spans below this confidence.
	MinConfidence float64 `toml:"min_confidence"`

	// TemplateVersion pins the labeling prompt template.
	TemplateVersion string `toml:"template_version"`
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() Settings {
	return Settings{
		Provider:        ProviderMock,
		APIKeyEnv:       "ANTHROPIC_API_KEY",
		DebounceMs:      int(DefaultDebounce / time.Millisecond),
		MaxSpans:        DefaultMaxSpans,
		MinConfidence:   DefaultMinConfidence,
		TemplateVersion: DefaultTemplateVersion,
	}
}

// Validate checks settings for consistency, filling zero values with
// defaults first via ApplyDefaults.
func (s *Settings) Validate() error {
	s.ApplyDefaults()
	if s.Provider != ProviderMock && s.Provider != ProviderAnthropic {
		return fmt.Errorf("%w: unknown labeler provider %q", ErrInvalidInput, s.Provider)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %v outside [0, 1]", ErrInvalidInput, s.MinConfidence)
	}
	if s.MaxSpans < 1 {
		return fmt.Errorf("%w: max_spans must be positive", ErrInvalidInput)
	}
	return nil
}

// ApplyDefaults fills unset fields with defaults.
func (s *Settings) ApplyDefaults() {
	if s.Provider == "" {
		s.Provider = ProviderMock
	}
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if s.DebounceMs == 0 {
		s.DebounceMs = int(DefaultDebounce / time.Millisecond)
	}
	if s.MaxSpans == 0 {
		s.MaxSpans = DefaultMaxSpans
	}
	if s.MinConfidence == 0 {
		s.MinConfidence = DefaultMinConfidence
	}
	if s.TemplateVersion == "" {
		s.TemplateVersion = DefaultTemplateVersion
	}
}

// Debounce returns the debounce window as a duration.
func (s *Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}
