package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSpan indicates a span with offsets outside the display text.
	// Invalid spans are dropped individually, never clamped to guessed bounds.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrStaleResult indicates a labeling result that resolved after the text
	// it was computed against changed. Stale results are discarded.
	ErrStaleResult = errors.New("stale labeling result")

	// ErrLabelerUnavailable indicates the labeling backend is not configured
	// or unreachable. Previous spans remain displayed.
	ErrLabelerUnavailable = errors.New("labeler unavailable")

	// ErrLabelingDisabled indicates labeling was requested while the
	// highlighting layer is disabled.
	ErrLabelingDisabled = errors.New("labeling disabled")

	// ErrNoVersions indicates the version history is empty.
	ErrNoVersions = errors.New("no versions")

	// ErrVersionNotFound indicates the requested version id does not exist.
	ErrVersionNotFound = errors.New("version not found")

	// ErrSpanNotFound indicates a span id is not present in the current
	// parse result.
	ErrSpanNotFound = errors.New("span not found")

	// ErrSurfaceMismatch indicates the render surface content diverged from
	// the parse result's display text. Projection is skipped, never thrown
	// into the render path.
	ErrSurfaceMismatch = errors.New("surface content mismatch")
)
