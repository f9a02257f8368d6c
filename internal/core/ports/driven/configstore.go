package driven

import "github.com/custodia-labs/margin-cli/internal/core/domain"

// ConfigStore persists labeling settings.
// Backed by a TOML file in the margin config directory.
type ConfigStore interface {
	// LoadSettings reads settings, returning defaults when none are stored.
	LoadSettings() (domain.Settings, error)

	// SaveSettings writes settings.
	SaveSettings(s domain.Settings) error
}
