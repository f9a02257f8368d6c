package mcp

import (
	"github.com/custodia-labs/margin-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Annotator provides one-shot annotation.
	Annotator driving.Annotator

	// Versions exposes the version history. Optional: when nil the
	// version tools report empty history.
	Versions driving.VersionManager
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Annotator == nil {
		return ErrMissingAnnotator
	}
	// Versions is optional; the CLI may run with --no-store.
	return nil
}
