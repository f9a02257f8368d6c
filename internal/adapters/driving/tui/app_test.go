package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/services"
)

// typeText feeds runes into the editor through the key path.
func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp_Success(t *testing.T) {
	ports := newTestPorts()

	app, err := NewApp(ports)

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, services.StatusIdle, app.Status())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	ports := newTestPorts()
	ports.Client = nil

	app, err := NewApp(ports)

	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")
	result := app.WithContext(ctx)

	assert.Equal(t, app, result)
}

func TestApp_Init(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	cmd := app.Init()

	// Init returns a batch command
	assert.NotNil(t, cmd)
}

func TestApp_Update_WindowSize(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	msg := tea.WindowSizeMsg{Width: 80, Height: 24}
	model, cmd := app.Update(msg)

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_Update_TypingDebounces(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	typeText(app, "neon")

	// The long test debounce never fires, so the client stays in the window.
	assert.Equal(t, services.StatusDebouncing, app.Status())
}

func TestApp_Update_LabelingApplied(t *testing.T) {
	ports := newTestPorts()
	versions := ports.Versions.(*mockVersionManager)
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	typeText(app, "golden hour")

	result := services.LabelingResult{
		Status:    services.StatusSuccess,
		Signature: domain.Signature("golden hour"),
		Spans: []domain.Span{
			{ID: "s1", Start: 0, End: 11, Quote: "golden hour", Category: "lighting", Confidence: 0.9},
		},
	}
	model, cmd := app.Update(messages.LabelingUpdated{Result: result})

	assert.Equal(t, app, model)
	assert.NotNil(t, cmd) // re-arms waitForResult
	assert.Equal(t, services.StatusSuccess, app.Status())
	require.Len(t, app.Result().Spans, 1)
	assert.Equal(t, "lighting", app.Result().Spans[0].Category)

	// A fresh labeling is recorded for version history.
	require.Len(t, versions.syncedSnaps, 1)
	assert.Equal(t, domain.Signature("golden hour"), versions.syncedSnaps[0].Signature)
}

func TestApp_Update_LabelingStaleSignatureDropped(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	typeText(app, "edited since")

	result := services.LabelingResult{
		Status:    services.StatusSuccess,
		Signature: domain.Signature("the original text"),
		Spans:     []domain.Span{{ID: "s1", Start: 0, End: 3, Quote: "the"}},
	}
	app.Update(messages.LabelingUpdated{Result: result})

	// Result for superseded text never reaches the display.
	assert.Empty(t, app.Result().Spans)
}

func TestApp_Update_LabelingError(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	result := services.LabelingResult{
		Status: services.StatusError,
		Err:    errors.New("backend down"),
	}
	app.Update(messages.LabelingUpdated{Result: result})

	assert.Equal(t, services.StatusError, app.Status())
	assert.Error(t, app.Err())
}

func TestApp_Update_VersionSaved(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	t.Run("created", func(t *testing.T) {
		ver := &domain.Version{VersionID: "ver-1", Label: "v1"}
		model, cmd := app.Update(messages.VersionSaved{Version: ver, Created: true})
		assert.Equal(t, app, model)
		assert.Nil(t, cmd)
		assert.NoError(t, app.Err())
	})

	t.Run("error", func(t *testing.T) {
		model, _ := app.Update(messages.VersionSaved{Err: errors.New("store closed")})
		assert.Equal(t, app, model)
		assert.Error(t, app.Err())
	})
}

func TestApp_Update_ErrorOccurred(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	err := errors.New("something went wrong")
	model, cmd := app.Update(messages.ErrorOccurred{Err: err})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.Error(t, app.Err())
}

func TestApp_Update_KeyMsg_CtrlC(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	msg := tea.KeyMsg{Type: tea.KeyCtrlC}
	model, cmd := app.Update(msg)

	assert.Equal(t, app, model)
	assert.NotNil(t, cmd)
}

func TestApp_Update_KeyMsg_FocusCycle(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	typeText(app, "violinist at dusk")
	app.Update(messages.LabelingUpdated{Result: services.LabelingResult{
		Status:    services.StatusSuccess,
		Signature: domain.Signature("violinist at dusk"),
		Spans: []domain.Span{
			{ID: "s1", Start: 0, End: 9, Quote: "violinist", Category: "subject"},
			{ID: "s2", Start: 13, End: 17, Quote: "dusk", Category: "lighting"},
		},
	}})

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, app.View(), "> ")

	// Tab wraps around the span list.
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, app.View(), "> ")
}

func TestApp_Update_ToggleHighlights(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	typeText(app, "soft light")
	app.Update(messages.LabelingUpdated{Result: services.LabelingResult{
		Status:    services.StatusSuccess,
		Signature: domain.Signature("soft light"),
		Spans:     []domain.Span{{ID: "s1", Start: 0, End: 4, Quote: "soft", Category: "style"}},
	}})
	require.Len(t, app.Result().Spans, 1)

	// Disabling clears spans immediately.
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Empty(t, app.Result().Spans)
}

func TestApp_View_NotReady(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)

	view := app.View()

	assert.Contains(t, view, "Initialising")
}

func TestApp_View_Ready(t *testing.T) {
	ports := newTestPorts()
	app, _ := NewApp(ports)
	app.SetDimensions(80, 24)

	view := app.View()

	assert.Contains(t, view, "margin")
}
