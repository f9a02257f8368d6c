package services

import (
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/logger"
	"github.com/custodia-labs/margin-cli/internal/runtree"
)

// Projector commits parse results onto render surfaces. Projection is
// strictly ordered by fingerprint: a surface is only touched when the
// fingerprint differs from the last one committed to it, and a disabled
// projection is a no-op.
type Projector struct {
	last map[*runtree.Surface]string
}

// NewProjector creates a projector with no committed state.
func NewProjector() *Projector {
	return &Projector{last: make(map[*runtree.Surface]string)}
}

// Project wraps the parse result's span ranges in markers on the surface.
//
// The surface text is never modified, so the caret and any active selection
// survive. Spans outside the surface bounds, flagged stale, or whose cached
// quote mismatches live content are skipped: the failure mode is plain text,
// never an error thrown into the render path.
//
// Returns true when the surface was re-projected, false when skipped.
func (p *Projector) Project(surface *runtree.Surface, result domain.ParseResult, enabled bool, fingerprint string) bool {
	if !enabled || fingerprint == domain.FingerprintDisabled {
		return false
	}
	if p.last[surface] == fingerprint {
		return false
	}

	text := surface.Text()
	if text != result.DisplayText {
		// Surface diverged from the parse result, typically mid-edit.
		// Leave the previous projection standing; a rebuild follows once
		// the labeling pipeline catches up.
		logger.Debug("projector: surface diverged from display text, skipping")
		return false
	}

	surface.ClearMarkers()
	projected := 0
	for i := range result.Spans {
		s := &result.Spans[i]
		if s.Stale {
			continue
		}
		if s.End > len(text) || text[s.Start:s.End] != s.Quote {
			logger.Debug("projector: skipping span %s, live content mismatch", s.ID)
			continue
		}
		// Array order projection: later spans overwrite overlapping
		// markers and so take visual priority.
		if err := surface.WrapRange(s.Start, s.End, runtree.Marker{
			SpanID:   s.ID,
			Category: s.Category,
		}); err != nil {
			logger.Debug("projector: skipping span %s: %v", s.ID, err)
			continue
		}
		projected++
	}

	p.last[surface] = fingerprint
	logger.Debug("projector: committed %d/%d spans, fingerprint %.12s", projected, len(result.Spans), fingerprint)
	return true
}

// Forget drops the committed fingerprint for a surface, forcing the next
// projection. Used when a surface is rebuilt outside the projector.
func (p *Projector) Forget(surface *runtree.Surface) {
	delete(p.last, surface)
}
