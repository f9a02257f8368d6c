package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/logger"
	"github.com/custodia-labs/margin-cli/internal/runtree"
)

// Interaction owns the selection, hover and lock state for one annotated
// surface. It is the owned slice of a larger UI state container: state is
// mutated only through these setters, and reads within one render pass are
// consistent (mutations apply synchronously under the lock).
//
// Span ids are used only transiently within a render pass; locks are keyed
// by (quote, category) because offsets and ids are unstable across edits.
type Interaction struct {
	mu       sync.Mutex
	selected string
	hovered  string
	locks    map[domain.LockKey]domain.LockedSpan
	current  domain.ParseResult

	onSuggest func(driven.SuggestionRequest)
	onLocks   func([]domain.LockedSpan)
}

// NewInteraction creates a controller with no selection and no locks.
func NewInteraction() *Interaction {
	return &Interaction{locks: make(map[domain.LockKey]domain.LockedSpan)}
}

// OnSuggest registers the intent callback fired when a span is selected.
// Selection never performs network calls itself; the host decides.
func (i *Interaction) OnSuggest(fn func(driven.SuggestionRequest)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onSuggest = fn
}

// OnLocksChanged registers the callback fired after every lock mutation,
// carrying the full lock set so the host can rebuild the label policy.
func (i *Interaction) OnLocksChanged(fn func([]domain.LockedSpan)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onLocks = fn
}

// ApplyParseResult installs a fresh parse result. Any span matching a locked
// (quote, category) pair is re-marked locked even if its offsets moved, and
// the selection is dropped when its span id no longer exists.
func (i *Interaction) ApplyParseResult(result domain.ParseResult) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = result
	if i.selected != "" && result.SpanByID(i.selected) == nil {
		i.selected = ""
	}
	if i.hovered != "" && result.SpanByID(i.hovered) == nil {
		i.hovered = ""
	}
}

// ToggleSelect selects a span, or deselects it when it is already selected
// (idempotent toggle). Selecting a new span emits a suggestion request built
// from that span's quote, offsets and metadata.
func (i *Interaction) ToggleSelect(spanID string) (selected bool, err error) {
	i.mu.Lock()
	if spanID == i.selected {
		i.selected = ""
		i.mu.Unlock()
		return false, nil
	}
	span := i.current.SpanByID(spanID)
	if span == nil {
		i.mu.Unlock()
		return false, fmt.Errorf("%w: %s", domain.ErrSpanNotFound, spanID)
	}
	i.selected = spanID
	fn := i.onSuggest
	req := i.suggestionRequestLocked(span)
	i.mu.Unlock()

	if fn != nil {
		fn(req)
	}
	return true, nil
}

// ToggleSelectAt resolves the span at a surface offset and toggles it.
// Offsets with no marker clear the selection, mirroring a click on plain
// text.
func (i *Interaction) ToggleSelectAt(surface *runtree.Surface, offset int) (string, bool, error) {
	id := surface.SpanIDAt(offset)
	if id == "" {
		i.ClearSelection()
		return "", false, nil
	}
	selected, err := i.ToggleSelect(id)
	return id, selected, err
}

// SetHovered updates the hover emphasis, reporting whether it actually
// changed. Redundant updates from mouse-move churn are suppressed.
func (i *Interaction) SetHovered(spanID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if spanID == i.hovered {
		return false
	}
	i.hovered = spanID
	return true
}

// ToggleLock toggles the lock for a span, storing a content-keyed
// LockedSpan rather than offsets. Returns the new lock state.
func (i *Interaction) ToggleLock(spanID string) (locked bool, err error) {
	i.mu.Lock()
	span := i.current.SpanByID(spanID)
	if span == nil {
		i.mu.Unlock()
		return false, fmt.Errorf("%w: %s", domain.ErrSpanNotFound, spanID)
	}
	key := span.LockKey()
	if _, ok := i.locks[key]; ok {
		delete(i.locks, key)
		locked = false
	} else {
		i.locks[key] = span.Lock()
		locked = true
	}
	fn := i.onLocks
	set := i.locksSliceLocked()
	i.mu.Unlock()

	logger.Debug("interaction: span %s locked=%v (%d locks)", spanID, locked, len(set))
	if fn != nil {
		fn(set)
	}
	return locked, nil
}

// IsLocked reports whether the span's content matches a lock.
func (i *Interaction) IsLocked(spanID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	span := i.current.SpanByID(spanID)
	if span == nil {
		return false
	}
	_, ok := i.locks[span.LockKey()]
	return ok
}

// LockedIDs returns the ids of current spans whose content matches a lock,
// recomputed against the freshest parse result.
func (i *Interaction) LockedIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	var ids []string
	for j := range i.current.Spans {
		if _, ok := i.locks[i.current.Spans[j].LockKey()]; ok {
			ids = append(ids, i.current.Spans[j].ID)
		}
	}
	return ids
}

// Locks returns the lock set in deterministic order.
func (i *Interaction) Locks() []domain.LockedSpan {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.locksSliceLocked()
}

// Policy builds the label policy pinning all locked spans, for the next
// backend call.
func (i *Interaction) Policy() domain.LabelPolicy {
	return domain.LabelPolicy{PinnedSpans: i.Locks()}
}

// Selected returns the selected span id, empty when none.
func (i *Interaction) Selected() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.selected
}

// Hovered returns the hovered span id, empty when none.
func (i *Interaction) Hovered() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hovered
}

// ClearSelection drops the selection. Called when the suggestion panel that
// depended on it closes, so no dangling selection points at stale
// suggestion state.
func (i *Interaction) ClearSelection() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.selected = ""
}

// Decorate mirrors selection, hover and lock state onto the surface's
// markers for rendering. The surface text is untouched.
func (i *Interaction) Decorate(surface *runtree.Surface) {
	i.mu.Lock()
	selected, hovered := i.selected, i.hovered
	lockedIDs := make(map[string]bool)
	for j := range i.current.Spans {
		if _, ok := i.locks[i.current.Spans[j].LockKey()]; ok {
			lockedIDs[i.current.Spans[j].ID] = true
		}
	}
	i.mu.Unlock()

	for _, id := range surface.SpanIDs() {
		id := id
		surface.UpdateMarkers(id, func(m *runtree.Marker) {
			m.Selected = id == selected
			m.Hovered = id == hovered
			m.Locked = lockedIDs[id]
		})
	}
}

// suggestionRequestLocked builds the suggestion-fetch intent for a span.
// Caller holds i.mu.
func (i *Interaction) suggestionRequestLocked(span *domain.Span) driven.SuggestionRequest {
	s := *span
	return driven.SuggestionRequest{
		HighlightedText: s.Quote,
		OriginalText:    i.current.DisplayText,
		DisplayedPrompt: i.current.DisplayText,
		Offsets:         driven.SuggestionOffsets{Start: s.Start, End: s.End},
		Metadata: driven.SuggestionMetadata{
			Category:       s.Category,
			Source:         s.Source,
			SpanID:         s.ID,
			Confidence:     s.Confidence,
			Quote:          s.Quote,
			LeftCtx:        s.LeftCtx,
			RightCtx:       s.RightCtx,
			IdempotencyKey: s.IdempotencyKey,
			Span:           &s,
		},
		Trigger:         "select",
		AllLabeledSpans: append([]domain.Span(nil), i.current.Spans...),
	}
}

func (i *Interaction) locksSliceLocked() []domain.LockedSpan {
	out := make([]domain.LockedSpan, 0, len(i.locks))
	for _, l := range i.locks {
		out = append(out, l)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Quote != out[b].Quote {
			return out[a].Quote < out[b].Quote
		}
		return out[a].Category < out[b].Category
	})
	return out
}
