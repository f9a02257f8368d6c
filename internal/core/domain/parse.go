package domain

import "sort"

// contextWindow is the number of bytes of surrounding text captured into
// LeftCtx and RightCtx, rounded out to rune boundaries.
const contextWindow = 24

// BuildParseResult merges raw labeler output with the current display text
// into the render-ready structure.
//
// Highlighting is a strictly additive, disable-able layer: when enabled is
// false or the text is empty, the result carries no spans and the underlying
// text remains the source of truth. Spans with out-of-bounds or inverted
// offsets are dropped individually. Spans whose cached quote no longer
// matches the live text are kept but flagged stale; they are never relocated
// by searching for the quote elsewhere, to avoid surprising relocations.
//
// Ordering is deterministic: ascending Start, and on an exact range
// collision the span at the later array index survives.
func BuildParseResult(labeled []Span, displayText string, enabled bool) ParseResult {
	if !enabled || displayText == "" {
		return ParseResult{Spans: []Span{}, DisplayText: displayText}
	}

	spans := make([]Span, 0, len(labeled))
	for i := range labeled {
		s := labeled[i]
		if s.Validate(len(displayText)) != nil {
			continue
		}

		live := displayText[s.Start:s.End]
		if s.Quote == "" {
			s.Quote = live
		} else if s.Quote != live {
			s.Stale = true
		}

		s.EnsureID()
		if !s.Stale {
			fillContext(&s, displayText)
			if gs, ge, ok := graphemeOffsets(displayText, s.Start, s.End); ok {
				s.StartGrapheme, s.EndGrapheme = gs, ge
			}
		}
		spans = append(spans, s)
	}

	// Stable sort keeps array order for equal starts, so the later-index
	// span still sits later and wins at identical ranges.
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	spans = dropEarlierDuplicates(spans)

	return ParseResult{Spans: spans, DisplayText: displayText}
}

// dropEarlierDuplicates keeps only the last span for each exact (Start, End)
// range. Input must already be sorted by Start.
func dropEarlierDuplicates(spans []Span) []Span {
	out := spans[:0]
	for i := range spans {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Start == spans[i].Start && last.End == spans[i].End {
				out[len(out)-1] = spans[i]
				continue
			}
		}
		out = append(out, spans[i])
	}
	return out
}

// fillContext captures short context windows around the span when the
// labeler did not supply them.
func fillContext(s *Span, text string) {
	if s.LeftCtx == "" {
		from := s.Start - contextWindow
		if from < 0 {
			from = 0
		}
		for from < s.Start && !isRuneStart(text[from]) {
			from++
		}
		s.LeftCtx = text[from:s.Start]
	}
	if s.RightCtx == "" {
		to := s.End + contextWindow
		if to > len(text) {
			to = len(text)
		}
		for to > s.End && to < len(text) && !isRuneStart(text[to]) {
			to--
		}
		s.RightCtx = text[s.End:to]
	}
}

// isRuneStart reports whether b is the first byte of a UTF-8 sequence.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
