package domain

import (
	"fmt"

	"github.com/rivo/uniseg"
)

// Span represents a labeled half-open character range over a text snapshot.
// Start and End are byte offsets into the NFC-normalised display text.
type Span struct {
	// ID is the stable identifier. When the labeler never assigns one it is
	// derived deterministically from the offsets (see EnsureID).
	ID string `json:"id"`

	// Start is the inclusive byte offset into the display text.
	Start int `json:"start"`

	// End is the exclusive byte offset into the display text.
	End int `json:"end"`

	// StartGrapheme is the grapheme-cluster offset of Start, populated only
	// when byte and grapheme offsets diverge for the display text.
	StartGrapheme int `json:"startGrapheme,omitempty"`

	// EndGrapheme is the grapheme-cluster offset of End.
	EndGrapheme int `json:"endGrapheme,omitempty"`

	// Quote is the exact substring displayText[Start:End], cached for display
	// even if the surrounding text later shifts.
	Quote string `json:"quote"`

	// Category is the semantic label assigned by the labeler.
	Category string `json:"category,omitempty"`

	// Confidence is the labeler's confidence in [0, 1].
	Confidence float64 `json:"confidence,omitempty"`

	// Source records which backend or pass produced the span.
	Source string `json:"source,omitempty"`

	// ValidatorPass reports whether a validation pass accepted the span.
	// Nil when no validator ran.
	ValidatorPass *bool `json:"validatorPass,omitempty"`

	// LeftCtx is a short context window preceding the span, used to help
	// suggestion generation disambiguate near-duplicate spans.
	LeftCtx string `json:"leftCtx,omitempty"`

	// RightCtx is a short context window following the span.
	RightCtx string `json:"rightCtx,omitempty"`

	// IdempotencyKey is an opaque key allowing downstream suggestion
	// requests to dedupe.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`

	// Stale marks a span whose cached Quote no longer matches the live
	// display text. Stale spans are kept in the parse result but skipped by
	// the projector.
	Stale bool `json:"stale,omitempty"`
}

// EnsureID fills in a deterministic identifier when the labeler assigned none.
func (s *Span) EnsureID() {
	if s.ID == "" {
		s.ID = fmt.Sprintf("span_%d_%d", s.Start, s.End)
	}
}

// Validate checks the span bounds against a display text length.
// The half-open invariant is 0 <= Start < End <= textLen.
func (s *Span) Validate(textLen int) error {
	if s.Start < 0 || s.End > textLen || s.Start >= s.End {
		return fmt.Errorf("%w: [%d, %d) over text of length %d", ErrInvalidSpan, s.Start, s.End, textLen)
	}
	return nil
}

// LockKey returns the content key identifying this span across relabelings.
// Offsets are unstable across edits, so locks match on content and category.
func (s *Span) LockKey() LockKey {
	return LockKey{Quote: s.Quote, Category: s.Category}
}

// Lock builds a durable lock reference for this span.
func (s *Span) Lock() LockedSpan {
	return LockedSpan{
		Quote:          s.Quote,
		Category:       s.Category,
		IdempotencyKey: s.IdempotencyKey,
	}
}

// ParseResult is the only structure the rendering and interaction layers
// consume. DisplayText is always the normalised text currently on screen;
// spans are relative to it, never to the raw source.
type ParseResult struct {
	// Spans are the validated spans in ascending Start order.
	Spans []Span `json:"spans"`

	// DisplayText is the normalised text the span offsets index into.
	DisplayText string `json:"displayText"`
}

// SpanByID returns the span with the given id, or nil.
func (p *ParseResult) SpanByID(id string) *Span {
	for i := range p.Spans {
		if p.Spans[i].ID == id {
			return &p.Spans[i]
		}
	}
	return nil
}

// LockKey identifies a locked span by content rather than by offset.
type LockKey struct {
	// Quote is the exact span text.
	Quote string

	// Category is the span's semantic label.
	Category string
}

// LockedSpan is a durable reference to a span pinned against future
// relabeling. It deliberately carries no offsets: the same conceptual span's
// offsets change across edits and re-labelings.
type LockedSpan struct {
	// Quote is the exact span text at lock time.
	Quote string `json:"quote"`

	// Category is the span's semantic label at lock time.
	Category string `json:"category"`

	// IdempotencyKey carries through to suggestion requests when present.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Key returns the content key for lock-set membership.
func (l LockedSpan) Key() LockKey {
	return LockKey{Quote: l.Quote, Category: l.Category}
}

// Matches reports whether a fresh span corresponds to this lock.
func (l LockedSpan) Matches(s *Span) bool {
	return s.Quote == l.Quote && s.Category == l.Category
}

// LabelPolicy constrains the labeling backend's output. Pinned spans must be
// preserved verbatim by the backend in any relabeling it performs.
type LabelPolicy struct {
	// PinnedSpans are the locked spans the backend must not replace.
	PinnedSpans []LockedSpan `json:"pinnedSpans,omitempty"`
}

// graphemeOffsets computes grapheme-cluster offsets for a byte range when the
// text contains multi-byte or multi-codepoint clusters. Returns ok=false for
// pure single-byte text, where byte and grapheme offsets coincide, and for
// ranges whose bounds fall inside a cluster.
func graphemeOffsets(text string, start, end int) (gStart, gEnd int, ok bool) {
	if len(text) == uniseg.GraphemeClusterCount(text) {
		return 0, 0, false
	}
	g := uniseg.NewGraphemes(text)
	count := 0
	startOK, endOK := false, false
	for g.Next() {
		from, to := g.Positions()
		if from == start {
			gStart = count
			startOK = true
		}
		if to == end {
			gEnd = count + 1
			endOK = true
		}
		count++
	}
	if !startOK || !endOK {
		return 0, 0, false
	}
	return gStart, gEnd, true
}
