package tui

import "errors"

// ErrMissingLabelingClient is returned when the labeling client is not provided.
var ErrMissingLabelingClient = errors.New("tui: labeling client is required")

// ErrMissingVersionManager is returned when the version manager is not provided.
var ErrMissingVersionManager = errors.New("tui: version manager is required")
