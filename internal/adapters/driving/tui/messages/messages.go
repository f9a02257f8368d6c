// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/core/services"
)

// LabelingUpdated carries a freshly applied labeling result into the model.
type LabelingUpdated struct {
	Result services.LabelingResult
}

// LabelingTick drives status polling while a call is debouncing or in
// flight.
type LabelingTick struct{}

// SuggestionRequested is emitted when a span selection asks the host for
// edit suggestions.
type SuggestionRequested struct {
	Request driven.SuggestionRequest
}

// VersionSaved signals a version save attempt completed.
type VersionSaved struct {
	Version *domain.Version
	Created bool
	Err     error
}

// VersionRestored signals the editor text was replaced from a version.
type VersionRestored struct {
	Version *domain.Version
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
