// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the annotation editor. Plain letters
// belong to the text area, so every action binding is a control key or tab.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// NextSpan moves span focus forward.
	NextSpan key.Binding

	// PrevSpan moves span focus backward.
	PrevSpan key.Binding

	// Select toggles selection of the focused span.
	Select key.Binding

	// Lock toggles the lock on the focused span.
	Lock key.Binding

	// Save creates a version from the current text.
	Save key.Binding

	// Relabel flushes a pending debounce immediately.
	Relabel key.Binding

	// ToggleHighlights enables or disables the labeling pipeline.
	ToggleHighlights key.Binding

	// PrevVersion selects the previous version in history.
	PrevVersion key.Binding

	// NextVersion selects the next version in history.
	NextVersion key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		NextSpan: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next span"),
		),
		PrevSpan: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev span"),
		),
		Select: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "select span"),
		),
		Lock: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "lock span"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save version"),
		),
		Relabel: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "relabel now"),
		),
		ToggleHighlights: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle highlights"),
		),
		PrevVersion: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "prev version"),
		),
		NextVersion: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next version"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the help line.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextSpan, k.Select, k.Lock, k.Save, k.Quit}
}

// FullHelp returns the full list of keybindings.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextSpan, k.PrevSpan, k.Select, k.Lock},
		{k.Save, k.Relabel, k.ToggleHighlights},
		{k.PrevVersion, k.NextVersion, k.Quit},
	}
}
