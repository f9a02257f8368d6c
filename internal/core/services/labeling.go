package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

// Status is the labeling client's state machine position.
type Status string

const (
	// StatusIdle means no labeling is pending or displayed.
	StatusIdle Status = "idle"

	// StatusDebouncing means an edit arrived and the debounce window is open.
	StatusDebouncing Status = "debouncing"

	// StatusLoading means a backend call is in flight. Previous spans are
	// stale-but-usable and must remain displayed to avoid flicker.
	StatusLoading Status = "loading"

	// StatusSuccess means the displayed spans match the displayed text.
	StatusSuccess Status = "success"

	// StatusError means the last backend call failed. Previous spans remain
	// displayed.
	StatusError Status = "error"
)

// LabelingOptions configures a labeling client for one text surface.
type LabelingOptions struct {
	// Enabled gates the whole pipeline. When false the client stays idle
	// with empty spans.
	Enabled bool

	// Immediate bypasses the debounce window, used right after the first
	// generation so highlights appear without delay.
	Immediate bool

	// CacheKey scopes the result cache, typically a prompt identifier.
	CacheKey string

	// Debounce is the window edits are coalesced over.
	Debounce time.Duration

	// MaxSpans caps the spans requested from the backend.
	MaxSpans int

	// MinConfidence filters low-confidence spans at the backend.
	MinConfidence float64

	// TemplateVersion pins the labeling prompt template.
	TemplateVersion string
}

// LabelingResult is the client's output contract. Err is populated only in
// StatusError. Consumers must treat StatusLoading as "previous spans may
// still be shown" rather than clearing the display.
type LabelingResult struct {
	// Spans are the raw spans from the last applied result.
	Spans []domain.Span

	// Meta is the backend metadata from the last applied result.
	Meta map[string]any

	// Status is the state machine position.
	Status Status

	// Err is the failure from the last call, only in StatusError.
	Err error

	// Signature is the content signature the spans were computed against.
	Signature string
}

// cachedResult is a successful labeling keyed by (cacheKey, signature).
type cachedResult struct {
	spans []domain.Span
	meta  map[string]any
}

// LabelingClient wraps the labeling backend with debouncing, per-signature
// caching and stale-result discard for a single text surface.
//
// Concurrency: the debounce timer is single-slot (resetting cancels the
// prior timer, never queues), and at most one result is ever live. A call
// that resolves after a newer call was dispatched, or after the text changed
// underneath it, is discarded by comparing a signature captured at dispatch
// time against the latest dispatched one.
type LabelingClient struct {
	mu       sync.Mutex
	labeler  driven.Labeler
	opts     LabelingOptions
	policy   domain.LabelPolicy
	timer    *time.Timer
	text     string
	latest   string // signature of the most recently dispatched call
	cache    map[string]cachedResult
	cur      LabelingResult
	onResult func(LabelingResult)
	inflight sync.WaitGroup
	closed   bool
}

// NewLabelingClient creates a client for one text surface.
func NewLabelingClient(labeler driven.Labeler, opts LabelingOptions) *LabelingClient {
	if opts.Debounce <= 0 {
		opts.Debounce = domain.DefaultDebounce
	}
	return &LabelingClient{
		labeler: labeler,
		opts:    opts,
		cache:   make(map[string]cachedResult),
		cur:     LabelingResult{Spans: []domain.Span{}, Status: StatusIdle},
	}
}

// OnResult registers the side-effect callback invoked once per successful,
// non-empty, freshly computed labeling. The callback carries the signature
// of the text the spans were computed against so the version store can
// associate the labeling with that exact text. Cache hits do not re-fire it.
func (c *LabelingClient) OnResult(fn func(LabelingResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// SetPolicy replaces the label policy sent with future backend calls.
// Locked spans travel here so relabeling cannot replace them.
func (c *LabelingClient) SetPolicy(p domain.LabelPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// SetEnabled toggles the pipeline. Disabling clears any pending timer and
// resets to idle with empty spans.
func (c *LabelingClient) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Enabled = enabled
	if !enabled {
		c.stopTimerLocked()
		c.cur = LabelingResult{Spans: []domain.Span{}, Status: StatusIdle}
	}
}

// SetImmediate toggles the debounce bypass for subsequent edits.
func (c *LabelingClient) SetImmediate(immediate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Immediate = immediate
}

// SetText feeds an edit into the pipeline. The text is normalised before
// anything compares, signs or labels it.
//
// With Enabled false the client stays idle. An exact cache hit for the
// current (cacheKey, signature) applies immediately without a backend call.
// Otherwise the debounce timer restarts, and on fire the client labels the
// text current at fire time, coalescing bursts of edits into one call.
func (c *LabelingClient) SetText(ctx context.Context, raw string) {
	text := domain.Normalise(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.text = text

	if !c.opts.Enabled {
		c.stopTimerLocked()
		c.cur = LabelingResult{Spans: []domain.Span{}, Status: StatusIdle}
		return
	}
	if text == "" {
		c.stopTimerLocked()
		c.cur = LabelingResult{Spans: []domain.Span{}, Status: StatusIdle}
		return
	}

	sig := domain.Signature(text)
	if hit, ok := c.cache[c.cacheKeyFor(sig)]; ok {
		c.stopTimerLocked()
		c.latest = sig
		c.cur = LabelingResult{Spans: hit.spans, Meta: hit.meta, Status: StatusSuccess, Signature: sig}
		logger.Debug("labeling: cache hit for %.12s", sig)
		return
	}

	if c.opts.Immediate {
		c.stopTimerLocked()
		c.dispatchLocked(ctx)
		return
	}

	c.cur.Status = StatusDebouncing
	c.cur.Err = nil
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.opts.Debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.timer = nil
		if c.closed || !c.opts.Enabled || c.text == "" {
			return
		}
		c.dispatchLocked(ctx)
	})
}

// Flush fires a pending debounce immediately. No-op when nothing is pending.
func (c *LabelingClient) Flush(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer == nil {
		return
	}
	c.stopTimerLocked()
	if c.opts.Enabled && c.text != "" {
		c.dispatchLocked(ctx)
	}
}

// Snapshot returns the current output contract.
func (c *LabelingClient) Snapshot() LabelingResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.cur
	out.Spans = append([]domain.Span(nil), c.cur.Spans...)
	return out
}

// Wait blocks until no backend call is in flight. Intended for tests and
// shutdown paths.
func (c *LabelingClient) Wait() {
	c.inflight.Wait()
}

// Close cancels any pending timer and waits for in-flight calls.
func (c *LabelingClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	c.inflight.Wait()
}

// dispatchLocked issues one backend call for the text current right now.
// Caller holds c.mu.
func (c *LabelingClient) dispatchLocked(ctx context.Context) {
	text := c.text
	sig := domain.Signature(text)
	c.latest = sig
	c.cur.Status = StatusLoading
	c.cur.Err = nil

	req := driven.LabelRequest{
		Text:            text,
		Policy:          c.policy,
		MaxSpans:        c.opts.MaxSpans,
		MinConfidence:   c.opts.MinConfidence,
		TemplateVersion: c.opts.TemplateVersion,
		CacheKey:        c.opts.CacheKey,
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		res, err := c.labeler.Label(ctx, req)
		c.apply(sig, res, err)
	}()
}

// apply commits a resolved call unless it went stale while in flight.
func (c *LabelingClient) apply(sig string, res *driven.LabelResult, err error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}
	// Cancellation is emulated by ignoring a resolved call whose captured
	// signature no longer matches the latest dispatched one or the text
	// currently on the surface.
	if sig != c.latest || domain.Signature(c.text) != sig {
		c.mu.Unlock()
		logger.Debug("labeling: discarding stale result for %.12s", sig)
		return
	}

	if err != nil {
		// Previous spans stay in place: error keeps the last-good display.
		c.cur.Status = StatusError
		c.cur.Err = err
		c.mu.Unlock()
		logger.Warn("labeling: backend call failed: %v", err)
		return
	}

	c.cur = LabelingResult{
		Spans:     res.Spans,
		Meta:      res.Meta,
		Status:    StatusSuccess,
		Signature: sig,
	}
	c.cache[c.cacheKeyFor(sig)] = cachedResult{spans: res.Spans, meta: res.Meta}
	fn := c.onResult
	out := c.cur
	c.mu.Unlock()

	if fn != nil && len(out.Spans) > 0 {
		fn(out)
	}
}

func (c *LabelingClient) cacheKeyFor(sig string) string {
	return c.opts.CacheKey + "\x00" + sig
}

// stopTimerLocked cancels the single-slot debounce timer. Caller holds c.mu.
func (c *LabelingClient) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
