// Package runtree models a render surface as an ordered sequence of text
// runs with addressable boundaries. It is the headless equivalent of a DOM
// text-node tree: the projector splits runs at span boundaries and wraps the
// enclosed runs in markers, without disturbing the caret, the active
// selection, or any run outside the span ranges.
package runtree

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// Marker carries the addressable attributes of a highlighted range,
// the equivalent of data-* attributes on a wrapping element.
type Marker struct {
	// SpanID identifies the span this run belongs to.
	SpanID string

	// Category is the span's semantic label, used for styling.
	Category string

	// Locked mirrors the interaction controller's lock state.
	Locked bool

	// Selected mirrors the interaction controller's selection.
	Selected bool

	// Hovered mirrors the interaction controller's hover emphasis.
	Hovered bool
}

// Run is a contiguous piece of surface text. A nil marker means plain text.
type Run struct {
	// Text is the run's content.
	Text string

	// Marker is the wrapping marker, nil for unhighlighted runs.
	Marker *Marker
}

// Surface is a flat sequence of runs whose concatenation is the display
// text. The caret and selection are byte offsets into that text and survive
// all marker operations, which never change the text itself.
type Surface struct {
	runs []Run

	caret    int
	selStart int
	selEnd   int
}

// New creates a surface holding the given text as a single plain run.
func New(text string) *Surface {
	s := &Surface{selStart: -1, selEnd: -1}
	if text != "" {
		s.runs = []Run{{Text: text}}
	}
	return s
}

// Text returns the concatenation of all runs in order.
func (s *Surface) Text() string {
	var b strings.Builder
	for i := range s.runs {
		b.WriteString(s.runs[i].Text)
	}
	return b.String()
}

// Len returns the surface text length in bytes.
func (s *Surface) Len() int {
	n := 0
	for i := range s.runs {
		n += len(s.runs[i].Text)
	}
	return n
}

// Runs returns the run sequence for rendering.
func (s *Surface) Runs() []Run {
	return s.runs
}

// SetCaret positions the caret, clamped to the text bounds.
func (s *Surface) SetCaret(off int) {
	s.caret = clamp(off, 0, s.Len())
}

// Caret returns the caret offset.
func (s *Surface) Caret() int {
	return s.caret
}

// SetSelection sets the active text selection. Pass start > end or negative
// values to clear it.
func (s *Surface) SetSelection(start, end int) {
	if start < 0 || end < 0 || start > end {
		s.selStart, s.selEnd = -1, -1
		return
	}
	s.selStart = clamp(start, 0, s.Len())
	s.selEnd = clamp(end, 0, s.Len())
}

// Selection returns the active selection, ok=false when none.
func (s *Surface) Selection() (start, end int, ok bool) {
	if s.selStart < 0 {
		return 0, 0, false
	}
	return s.selStart, s.selEnd, true
}

// ReplaceText swaps the surface content for new text, clearing all markers.
// The caret and selection are clamped rather than reset, so a caret mid-edit
// stays put when the edit happened after it.
func (s *Surface) ReplaceText(text string) {
	if text == "" {
		s.runs = nil
	} else {
		s.runs = []Run{{Text: text}}
	}
	s.caret = clamp(s.caret, 0, len(text))
	if s.selStart >= 0 {
		s.selStart = clamp(s.selStart, 0, len(text))
		s.selEnd = clamp(s.selEnd, 0, len(text))
	}
}

// ClearMarkers removes all markers, merging adjacent plain runs back
// together. Text, caret and selection are untouched.
func (s *Surface) ClearMarkers() {
	if len(s.runs) == 0 {
		return
	}
	text := s.Text()
	if text == "" {
		s.runs = nil
		return
	}
	s.runs = []Run{{Text: text}}
}

// WrapRange wraps the half-open byte range [start, end) in a marker,
// splitting runs at the boundaries when they fall mid-run. Wrapping an
// already-marked region replaces its marker, which is how later spans take
// visual priority at overlapping offsets.
func (s *Surface) WrapRange(start, end int, m Marker) error {
	if start < 0 || end > s.Len() || start >= end {
		return fmt.Errorf("%w: wrap [%d, %d) over surface of length %d", domain.ErrInvalidSpan, start, end, s.Len())
	}
	s.splitAt(start)
	s.splitAt(end)

	off := 0
	for i := range s.runs {
		runStart := off
		off += len(s.runs[i].Text)
		if runStart >= end {
			break
		}
		if runStart >= start {
			marker := m
			s.runs[i].Marker = &marker
		}
	}
	return nil
}

// splitAt ensures a run boundary exists at the given offset.
func (s *Surface) splitAt(off int) {
	pos := 0
	for i := range s.runs {
		runLen := len(s.runs[i].Text)
		if off == pos || off == pos+runLen {
			if off == pos {
				return
			}
			pos += runLen
			continue
		}
		if off < pos+runLen {
			in := off - pos
			left := Run{Text: s.runs[i].Text[:in], Marker: s.runs[i].Marker}
			right := Run{Text: s.runs[i].Text[in:], Marker: cloneMarker(s.runs[i].Marker)}
			s.runs = append(s.runs[:i], append([]Run{left, right}, s.runs[i+1:]...)...)
			return
		}
		pos += runLen
	}
}

// MarkerAt returns the marker covering the given offset, nil for plain text.
// This is the click-target to span-id direction of the offset mapping.
func (s *Surface) MarkerAt(off int) *Marker {
	pos := 0
	for i := range s.runs {
		next := pos + len(s.runs[i].Text)
		if off >= pos && off < next {
			return s.runs[i].Marker
		}
		pos = next
	}
	return nil
}

// SpanIDAt returns the span id at the given offset, empty for plain text.
func (s *Surface) SpanIDAt(off int) string {
	if m := s.MarkerAt(off); m != nil {
		return m.SpanID
	}
	return ""
}

// MarkerRange locates the marked range for a span id, the span-id to
// position direction used for scrolling and popover placement.
func (s *Surface) MarkerRange(spanID string) (start, end int, ok bool) {
	pos := 0
	found := false
	for i := range s.runs {
		next := pos + len(s.runs[i].Text)
		if s.runs[i].Marker != nil && s.runs[i].Marker.SpanID == spanID {
			if !found {
				start = pos
				found = true
			}
			end = next
		}
		pos = next
	}
	return start, end, found
}

// SpanIDs returns the distinct span ids present on the surface, in text
// order. Used for span navigation.
func (s *Surface) SpanIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for i := range s.runs {
		m := s.runs[i].Marker
		if m == nil || seen[m.SpanID] {
			continue
		}
		seen[m.SpanID] = true
		ids = append(ids, m.SpanID)
	}
	return ids
}

// UpdateMarkers applies fn to every marker with the given span id.
// Used to flip selection/hover/lock emphasis without re-projection.
func (s *Surface) UpdateMarkers(spanID string, fn func(*Marker)) {
	for i := range s.runs {
		if s.runs[i].Marker != nil && s.runs[i].Marker.SpanID == spanID {
			fn(s.runs[i].Marker)
		}
	}
}

func cloneMarker(m *Marker) *Marker {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
