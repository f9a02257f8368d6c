// Package tui provides the interactive annotation editor for margin.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driving"
	"github.com/custodia-labs/margin-cli/internal/core/services"
)

// Ports aggregates the collaborators required by the editor.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Client is the debounced labeling client for the editor surface.
	Client *services.LabelingClient

	// Versions manages the append-only version history.
	Versions driving.VersionManager

	// Settings holds the labeling configuration.
	Settings domain.Settings
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Client == nil {
		return ErrMissingLabelingClient
	}
	if p.Versions == nil {
		return ErrMissingVersionManager
	}
	return nil
}
