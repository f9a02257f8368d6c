package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/margin-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/margin-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/margin-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/core/services"
	"github.com/custodia-labs/margin-cli/internal/runtree"
)

// pollInterval drives status refresh while labeling is pending.
const pollInterval = 100 * time.Millisecond

// App is the annotation editor following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// keys holds the keybindings.
	keys *keymap.KeyMap

	// editor is the text input area.
	editor textarea.Model

	// surface mirrors the editor text and carries highlight markers.
	surface *runtree.Surface

	// projector commits parse results onto the surface.
	projector *services.Projector

	// interaction owns selection, hover and lock state.
	interaction *services.Interaction

	// result is the current parse result.
	result domain.ParseResult

	// results receives freshly applied labeling outcomes.
	results chan services.LabelingResult

	// focusIdx is the index of the focused span, -1 when none.
	focusIdx int

	// enabled gates the highlight pipeline.
	enabled bool

	// status is the labeling state machine position.
	status services.Status

	// statusMsg is a transient message shown in the status bar.
	statusMsg string

	// suggestion is the last emitted suggestion request, shown in a panel.
	suggestion *driven.SuggestionRequest

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the annotation editor with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	ed := textarea.New()
	ed.Placeholder = "Type a prompt to annotate..."
	ed.Focus()
	ed.CharLimit = 4000
	ed.SetHeight(5)

	a := &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      styles.DefaultStyles(),
		keys:        keymap.DefaultKeyMap(),
		editor:      ed,
		surface:     runtree.New(""),
		projector:   services.NewProjector(),
		interaction: services.NewInteraction(),
		results:     make(chan services.LabelingResult, 8),
		focusIdx:    -1,
		enabled:     true,
		status:      services.StatusIdle,
	}

	// Fresh labeling results flow into the Bubbletea loop; locks feed back
	// into the label policy so relabeling cannot replace pinned spans.
	ports.Client.OnResult(func(r services.LabelingResult) {
		select {
		case a.results <- r:
		default:
		}
	})
	a.interaction.OnLocksChanged(func(locks []domain.LockedSpan) {
		ports.Client.SetPolicy(domain.LabelPolicy{PinnedSpans: locks})
	})
	a.interaction.OnSuggest(func(req driven.SuggestionRequest) {
		a.suggestion = &req
	})

	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		tea.SetWindowTitle("margin - Semantic Annotation"),
		a.waitForResult(),
	)
}

// waitForResult blocks on the labeling channel as a Bubbletea command.
func (a *App) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return messages.LabelingUpdated{Result: <-a.results}
	}
}

// pollStatus schedules a status refresh while labeling is pending.
func (a *App) pollStatus() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return messages.LabelingTick{}
	})
}

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.editor.SetWidth(msg.Width - 4)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case messages.LabelingUpdated:
		a.applyLabeling(msg.Result)
		return a, a.waitForResult()

	case messages.LabelingTick:
		snap := a.ports.Client.Snapshot()
		a.status = snap.Status
		if snap.Status == services.StatusError {
			a.err = snap.Err
		}
		if snap.Status == services.StatusDebouncing || snap.Status == services.StatusLoading {
			return a, a.pollStatus()
		}
		if snap.Status == services.StatusSuccess && snap.Signature != domain.Signature(a.result.DisplayText) {
			// Cache hits bypass OnResult; rebuild from the snapshot.
			a.applyLabeling(snap)
		}
		return a, nil

	case messages.VersionSaved:
		if msg.Err != nil {
			a.err = msg.Err
		} else if msg.Created {
			a.statusMsg = fmt.Sprintf("Saved %s", msg.Version.Label)
		} else {
			a.statusMsg = fmt.Sprintf("Unchanged since %s", msg.Version.Label)
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

// updateKey routes key presses: bound actions first, everything else to the
// text area.
func (a *App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := a.keys
	switch {
	case key.Matches(msg, k.Quit):
		a.ports.Client.Close()
		return a, tea.Quit

	case key.Matches(msg, k.NextSpan):
		a.moveFocus(1)
		return a, nil

	case key.Matches(msg, k.PrevSpan):
		a.moveFocus(-1)
		return a, nil

	case key.Matches(msg, k.Select):
		a.toggleSelectFocused()
		return a, nil

	case key.Matches(msg, k.Lock):
		a.toggleLockFocused()
		return a, nil

	case key.Matches(msg, k.Save):
		return a, a.saveVersion()

	case key.Matches(msg, k.Relabel):
		a.ports.Client.Flush(a.ctx)
		a.status = services.StatusLoading
		return a, a.pollStatus()

	case key.Matches(msg, k.ToggleHighlights):
		a.enabled = !a.enabled
		a.ports.Client.SetEnabled(a.enabled)
		if !a.enabled {
			a.surface.ClearMarkers()
			a.projector.Forget(a.surface)
			a.result = domain.ParseResult{Spans: []domain.Span{}, DisplayText: a.surface.Text()}
			a.focusIdx = -1
		} else {
			a.ports.Client.SetText(a.ctx, a.editor.Value())
			return a, a.pollStatus()
		}
		return a, nil

	case key.Matches(msg, k.PrevVersion):
		return a, a.cycleVersion(-1)

	case key.Matches(msg, k.NextVersion):
		return a, a.cycleVersion(1)
	}

	// Everything else edits text.
	before := a.editor.Value()
	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	if a.editor.Value() != before {
		a.onTextChanged()
		return a, tea.Batch(cmd, a.pollStatus())
	}
	return a, cmd
}

// onTextChanged feeds an edit into the pipeline and resets transient state.
func (a *App) onTextChanged() {
	text := a.editor.Value()
	a.surface.ReplaceText(domain.Normalise(text))
	a.projector.Forget(a.surface)
	a.statusMsg = ""
	a.suggestion = nil
	a.focusIdx = -1
	if vm, ok := a.ports.Versions.(*services.Versions); ok {
		vm.RecordEdit()
	}
	a.ports.Client.SetText(a.ctx, text)
	a.status = a.ports.Client.Snapshot().Status
}

// applyLabeling rebuilds the parse result and projects it onto the surface.
func (a *App) applyLabeling(r services.LabelingResult) {
	a.status = r.Status
	if r.Status == services.StatusError {
		a.err = r.Err
		return
	}
	a.err = nil

	display := domain.Normalise(a.editor.Value())
	if domain.Signature(display) != r.Signature {
		// Text moved on while the result was in the channel.
		return
	}

	a.result = domain.BuildParseResult(r.Spans, display, a.enabled)
	a.interaction.ApplyParseResult(a.result)
	fp := domain.Fingerprint(a.enabled, a.result)
	a.surface.ReplaceText(display)
	a.projector.Forget(a.surface)
	a.projector.Project(a.surface, a.result, a.enabled, fp)
	a.interaction.Decorate(a.surface)

	// Record the labeling against this exact text for version history.
	snap := domain.HighlightSnapshot{
		Spans:     a.result.Spans,
		Meta:      r.Meta,
		Signature: r.Signature,
		UpdatedAt: time.Now(),
	}
	if err := a.ports.Versions.SyncHighlights(a.ctx, snap, display); err != nil {
		a.err = err
	}
}

// moveFocus cycles span focus and mirrors it as hover emphasis.
func (a *App) moveFocus(delta int) {
	n := len(a.result.Spans)
	if n == 0 {
		a.focusIdx = -1
		return
	}
	a.focusIdx = ((a.focusIdx+delta)%n + n) % n
	a.interaction.SetHovered(a.result.Spans[a.focusIdx].ID)
	a.interaction.Decorate(a.surface)
}

// toggleSelectFocused toggles selection on the focused span.
func (a *App) toggleSelectFocused() {
	if a.focusIdx < 0 || a.focusIdx >= len(a.result.Spans) {
		return
	}
	selected, err := a.interaction.ToggleSelect(a.result.Spans[a.focusIdx].ID)
	if err != nil {
		a.err = err
		return
	}
	if !selected {
		a.suggestion = nil
	}
	a.interaction.Decorate(a.surface)
}

// toggleLockFocused toggles the lock on the focused span.
func (a *App) toggleLockFocused() {
	if a.focusIdx < 0 || a.focusIdx >= len(a.result.Spans) {
		return
	}
	if _, err := a.interaction.ToggleLock(a.result.Spans[a.focusIdx].ID); err != nil {
		a.err = err
		return
	}
	a.interaction.Decorate(a.surface)
}

// saveVersion creates a version for the current text as a command.
func (a *App) saveVersion() tea.Cmd {
	text := a.editor.Value()
	return func() tea.Msg {
		ver, created, err := a.ports.Versions.CreateVersionIfNeeded(a.ctx, text, "")
		return messages.VersionSaved{Version: ver, Created: created, Err: err}
	}
}

// cycleVersion moves through history and restores the selected version's
// text and highlights without a fresh labeling call.
func (a *App) cycleVersion(delta int) tea.Cmd {
	list := a.ports.Versions.List()
	if len(list) == 0 {
		return nil
	}

	idx := len(list) - 1
	if vm, ok := a.ports.Versions.(*services.Versions); ok {
		cur := vm.Selected()
		for i := range list {
			if list[i].VersionID == cur {
				idx = i
				break
			}
		}
	}
	idx += delta
	if idx < 0 || idx >= len(list) {
		return nil
	}

	ver, err := a.ports.Versions.SelectVersion(a.ctx, list[idx].VersionID)
	if err != nil {
		a.err = err
		return nil
	}
	a.restoreVersion(ver)
	return func() tea.Msg {
		return messages.VersionRestored{Version: ver}
	}
}

// restoreVersion replaces the editor content from a saved version.
func (a *App) restoreVersion(ver *domain.Version) {
	a.editor.SetValue(ver.Prompt)
	a.surface.ReplaceText(ver.Prompt)
	a.projector.Forget(a.surface)
	a.focusIdx = -1
	a.suggestion = nil
	a.statusMsg = fmt.Sprintf("Restored %s", ver.Label)

	if ver.Highlights != nil && a.enabled {
		a.result = domain.BuildParseResult(ver.Highlights.Spans, ver.Prompt, true)
		a.interaction.ApplyParseResult(a.result)
		fp := domain.Fingerprint(true, a.result)
		a.projector.Project(a.surface, a.result, true, fp)
		a.interaction.Decorate(a.surface)
		a.status = services.StatusSuccess
	} else {
		a.result = domain.ParseResult{Spans: []domain.Span{}, DisplayText: ver.Prompt}
		a.interaction.ApplyParseResult(a.result)
		a.status = services.StatusIdle
	}
	// Keep the client's text in sync so the next edit diffs correctly.
	a.ports.Client.SetText(a.ctx, ver.Prompt)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("margin"))
	b.WriteString("  ")
	b.WriteString(a.styles.Muted.Render(a.statusLine()))
	b.WriteString("\n\n")
	b.WriteString(a.editor.View())
	b.WriteString("\n\n")
	b.WriteString(a.viewHighlighted())
	b.WriteString("\n")
	b.WriteString(a.viewSpans())
	if a.suggestion != nil {
		b.WriteString("\n")
		b.WriteString(a.viewSuggestion())
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Help.Render("tab next · ctrl+e select · ctrl+l lock · ctrl+s save · ctrl+r relabel · ctrl+g toggle · ctrl+p/n versions · ctrl+c quit"))
	return b.String()
}

// statusLine summarises pipeline state for the title bar.
func (a *App) statusLine() string {
	if !a.enabled {
		return "highlights off"
	}
	switch a.status {
	case services.StatusDebouncing:
		return "typing..."
	case services.StatusLoading:
		return "labeling..."
	case services.StatusError:
		if a.err != nil {
			return a.styles.Error.Render("error: " + a.err.Error())
		}
		return a.styles.Error.Render("error")
	case services.StatusSuccess:
		line := fmt.Sprintf("%d spans", len(a.result.Spans))
		if a.ports.Versions.IsDirty(a.editor.Value()) {
			line += " · unsaved"
		}
		return line
	default:
		return "idle"
	}
}

// viewHighlighted renders the surface runs with category colours. Marker
// state layers selection and hover emphasis on top.
func (a *App) viewHighlighted() string {
	runs := a.surface.Runs()
	if len(runs) == 0 {
		return a.styles.Muted.Render("(empty)")
	}

	var b strings.Builder
	for _, run := range runs {
		if run.Marker == nil {
			b.WriteString(a.styles.Normal.Render(run.Text))
			continue
		}
		style := a.styles.Category(run.Marker.Category)
		if run.Marker.Selected {
			style = style.Inherit(a.styles.Selected)
		}
		if run.Marker.Hovered {
			style = style.Inherit(a.styles.Hovered)
		}
		b.WriteString(style.Render(run.Text))
		if run.Marker.Locked {
			b.WriteString(a.styles.LockMark.Render("•"))
		}
	}
	return a.styles.Border.Render(b.String())
}

// viewSpans lists the labeled spans with focus, selection and lock marks.
func (a *App) viewSpans() string {
	if len(a.result.Spans) == 0 {
		return ""
	}
	var b strings.Builder
	selected := a.interaction.Selected()
	for i := range a.result.Spans {
		s := &a.result.Spans[i]
		prefix := "  "
		if i == a.focusIdx {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-10s %q", prefix, s.Category, s.Quote)
		if a.interaction.IsLocked(s.ID) {
			line += " " + a.styles.LockMark.Render("locked")
		}
		if s.ID == selected {
			b.WriteString(a.styles.Selected.Render(line))
		} else {
			b.WriteString(a.styles.Category(s.Category).Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// viewSuggestion renders the selection's suggestion intent panel.
func (a *App) viewSuggestion() string {
	req := a.suggestion
	header := a.styles.Title.Render(fmt.Sprintf("Selected: %q (%s)", req.HighlightedText, req.Metadata.Category))
	detail := a.styles.Muted.Render(fmt.Sprintf("bytes %d-%d · confidence %.2f",
		req.Offsets.Start, req.Offsets.End, req.Metadata.Confidence))
	return lipgloss.JoinVertical(lipgloss.Left, header, detail)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Status returns the current labeling status.
func (a *App) Status() services.Status {
	return a.status
}

// Result returns the current parse result.
func (a *App) Result() domain.ParseResult {
	return a.result
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.editor.SetWidth(width - 4)
	a.ready = true
}
