// Package keys contains keybinding definitions used by the event router's
// precedence chain.
package keys

import "github.com/charmbracelet/bubbles/key"

// Global contains app-wide keybindings listed by the help views; the
// router's precedence chain does not consult them.
var Global = struct {
	Escape key.Binding
	Quit   key.Binding
}{
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close overlay"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// Dropdown contains keybindings for dropdown navigation, checked before
// modal escape in the router's precedence chain.
var Dropdown = struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Close  key.Binding
}{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous option"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next option"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select option"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close dropdown"),
	),
}

// Modal contains keybindings for modal dismissal and field navigation.
var Modal = struct {
	Escape    key.Binding
	Confirm   key.Binding
	NextField key.Binding
	PrevField key.Binding
}{
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss modal"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
}

// SplitPane contains keybindings for keyboard-driven divider resizing,
// the keyboard equivalent of the router's split-pane drag step.
var SplitPane = struct {
	GrowLeft  key.Binding
	GrowRight key.Binding
}{
	GrowLeft: key.NewBinding(
		key.WithKeys("ctrl+left"),
		key.WithHelp("ctrl+←", "grow left pane"),
	),
	GrowRight: key.NewBinding(
		key.WithKeys("ctrl+right"),
		key.WithHelp("ctrl+→", "grow right pane"),
	),
}

// FocusTraversal contains keybindings for zone/trap-aware focus movement,
// the router's "focus traversal" precedence step.
var FocusTraversal = struct {
	Next     key.Binding
	Prev     key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	NextZone key.Binding
	PrevZone key.Binding
}{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next widget"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous widget"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "focus up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "focus down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "focus left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "focus right"),
	),
	NextZone: key.NewBinding(
		key.WithKeys("ctrl+]"),
		key.WithHelp("ctrl+]", "next focus zone"),
	),
	PrevZone: key.NewBinding(
		key.WithKeys("ctrl+["),
		key.WithHelp("ctrl+[", "previous focus zone"),
	),
}

// InputEditing contains keybindings for the grapheme-aware input editing
// step, the last resort of the router's precedence chain for a focused
// text widget.
var InputEditing = struct {
	Left       key.Binding
	Right      key.Binding
	WordLeft   key.Binding
	WordRight  key.Binding
	Home       key.Binding
	End        key.Binding
	Backspace  key.Binding
	Delete     key.Binding
	DeleteWord key.Binding
	Undo       key.Binding
	Redo       key.Binding
	Cut        key.Binding
	Copy       key.Binding
	Paste      key.Binding
	SelectAll  key.Binding
}{
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "move cursor left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "move cursor right"),
	),
	WordLeft: key.NewBinding(
		key.WithKeys("alt+left", "alt+b"),
		key.WithHelp("alt+←", "move cursor one word left"),
	),
	WordRight: key.NewBinding(
		key.WithKeys("alt+right", "alt+f"),
		key.WithHelp("alt+→", "move cursor one word right"),
	),
	Home: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "move cursor to start"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "ctrl+e"),
		key.WithHelp("end", "move cursor to end"),
	),
	Backspace: key.NewBinding(
		key.WithKeys("backspace"),
		key.WithHelp("backspace", "delete grapheme before cursor"),
	),
	Delete: key.NewBinding(
		key.WithKeys("delete"),
		key.WithHelp("delete", "delete grapheme after cursor"),
	),
	DeleteWord: key.NewBinding(
		key.WithKeys("ctrl+w", "alt+backspace"),
		key.WithHelp("ctrl+w", "delete word before cursor"),
	),
	Undo: key.NewBinding(
		key.WithKeys("ctrl+z"),
		key.WithHelp("ctrl+z", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+y", "ctrl+shift+z"),
		key.WithHelp("ctrl+y", "redo"),
	),
	Cut: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "cut selection"),
	),
	Copy: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "copy selection"),
	),
	Paste: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "paste"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "select all"),
	),
}

// ShortHelp returns keybindings for a minimal help view.
func ShortHelp() []key.Binding {
	return []key.Binding{Global.Quit, Global.Escape, FocusTraversal.Next}
}

// FullHelp returns keybindings grouped for a full help view, matching the
// router's precedence groupings.
func FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{Global.Escape, Global.Quit},
		{Dropdown.Up, Dropdown.Down, Dropdown.Select, Dropdown.Close},
		{Modal.NextField, Modal.PrevField, Modal.Confirm, Modal.Escape},
		{FocusTraversal.Next, FocusTraversal.Prev, FocusTraversal.NextZone, FocusTraversal.PrevZone},
		{InputEditing.Undo, InputEditing.Redo, InputEditing.Cut, InputEditing.Copy, InputEditing.Paste},
	}
}
