package domain

import "time"

// HighlightSnapshot represents the labeling the system computed for some
// exact text. It is created when a labeling call succeeds, attached to a
// Version on save, and superseded (not deleted) when the text changes and
// relabeling succeeds again.
type HighlightSnapshot struct {
	// Spans are the labeled spans as returned by the builder.
	Spans []Span `json:"spans"`

	// Meta is opaque labeler metadata, nil when the backend sent none.
	Meta map[string]any `json:"meta"`

	// Signature is the content signature of the exact text the spans were
	// computed against.
	Signature string `json:"signature"`

	// CacheID identifies the cached labeling result, when one exists.
	CacheID string `json:"cacheId,omitempty"`

	// UpdatedAt is when the snapshot was produced.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Version is a saved text+highlight state in an append-only history.
// Versions are owned by the enclosing prompt-history entry and are never
// rewritten in place; the selection pointer moves instead.
type Version struct {
	// VersionID is the unique identifier.
	VersionID string `json:"versionId"`

	// Label is the human-readable name shown in the history panel.
	Label string `json:"label"`

	// Signature is the content signature of Prompt at creation time.
	Signature string `json:"signature"`

	// Prompt is the exact (normalised) text of this version.
	Prompt string `json:"prompt"`

	// Highlights is the snapshot associated with this version, nil when no
	// labeling had completed by the time the version was created.
	Highlights *HighlightSnapshot `json:"highlights"`

	// Timestamp is when the version was created.
	Timestamp time.Time `json:"timestamp"`

	// EditCount is the number of edits recorded since the prior version.
	EditCount int `json:"editCount,omitempty"`
}

// IsDirtyAgainst reports whether this version's text has been edited since
// it was saved. Only meaningful for the most recent version.
func (v *Version) IsDirtyAgainst(currentText string) bool {
	return v.Signature != Signature(Normalise(currentText))
}
