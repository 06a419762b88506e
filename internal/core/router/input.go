package router

import (
	"github.com/atotto/clipboard"
	"github.com/rivo/uniseg"
)

// RawWriter is the backend's best-effort raw-write capability (OSC52),
// used as a cut fallback when the system clipboard is unavailable.
type RawWriter interface {
	RawWrite(data []byte) error
}

// undoEntry is one snapshot on an input's undo/redo stack.
type undoEntry struct {
	value  string
	cursor int
}

// InputEditingState is the per-instance working value, cursor, selection,
// and undo stack for one focused text input.
type InputEditingState struct {
	InstanceID   string
	Working      string
	Cursor       int // grapheme index
	SelectAnchor int // -1 when there is no selection
	undoStack    []undoEntry
	redoStack    []undoEntry
	controlled   string // last value seen from controlled props
}

// NewInputEditingState returns a fresh editing state seeded from a
// controlled value.
func NewInputEditingState(id, value string) *InputEditingState {
	return &InputEditingState{InstanceID: id, Working: value, SelectAnchor: -1, controlled: value}
}

// graphemeLen returns the grapheme cluster count of s.
func graphemeLen(s string) int {
	n := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n++
	}
	return n
}

// graphemes splits s into its grapheme clusters.
func graphemes(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

func clampCursor(cursor, length int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > length {
		return length
	}
	return cursor
}

// SyncControlled resets working state (and clears the undo stack) when the
// controlled value diverges from the working value.
func (s *InputEditingState) SyncControlled(value string) {
	if value == s.controlled {
		return
	}
	s.controlled = value
	if value != s.Working {
		s.Working = value
		s.Cursor = clampCursor(s.Cursor, graphemeLen(value))
		s.SelectAnchor = -1
		s.undoStack = nil
		s.redoStack = nil
	}
}

func (s *InputEditingState) snapshot() undoEntry {
	return undoEntry{value: s.Working, cursor: s.Cursor}
}

func (s *InputEditingState) pushUndo() {
	s.undoStack = append(s.undoStack, s.snapshot())
	s.redoStack = nil
}

// hasSelection reports whether a non-empty selection is active.
func (s *InputEditingState) hasSelection() bool {
	return s.SelectAnchor >= 0 && s.SelectAnchor != s.Cursor
}

func (s *InputEditingState) selectionRange() (lo, hi int) {
	if s.SelectAnchor < s.Cursor {
		return s.SelectAnchor, s.Cursor
	}
	return s.Cursor, s.SelectAnchor
}

// deleteSelection removes the selected grapheme range, returning the
// deleted text.
func (s *InputEditingState) deleteSelection() string {
	lo, hi := s.selectionRange()
	gs := graphemes(s.Working)
	deleted := join(gs[lo:hi])
	s.Working = join(gs[:lo]) + join(gs[hi:])
	s.Cursor = lo
	s.SelectAnchor = -1
	return deleted
}

func join(gs []string) string {
	out := ""
	for _, g := range gs {
		out += g
	}
	return out
}

// InsertText inserts text at the cursor, replacing any active selection,
// and pushes an undo snapshot.
func (s *InputEditingState) InsertText(text string) {
	s.pushUndo()
	if s.hasSelection() {
		s.deleteSelection()
	}
	gs := graphemes(s.Working)
	s.Working = join(gs[:s.Cursor]) + text + join(gs[s.Cursor:])
	s.Cursor += graphemeLen(text)
}

// MoveCursor moves the cursor by delta graphemes, clamped to the working
// value's grapheme length. extendSelection keeps/starts a selection anchor.
func (s *InputEditingState) MoveCursor(delta int, extendSelection bool) {
	if extendSelection && s.SelectAnchor < 0 {
		s.SelectAnchor = s.Cursor
	} else if !extendSelection {
		s.SelectAnchor = -1
	}
	s.Cursor = clampCursor(s.Cursor+delta, graphemeLen(s.Working))
}

// MoveWord moves the cursor to the next/previous word boundary (delta > 0
// for right, < 0 for left), using a simple whitespace boundary.
func (s *InputEditingState) MoveWord(delta int, extendSelection bool) {
	gs := graphemes(s.Working)
	i := s.Cursor
	if delta > 0 {
		for i < len(gs) && gs[i] == " " {
			i++
		}
		for i < len(gs) && gs[i] != " " {
			i++
		}
	} else {
		for i > 0 && gs[i-1] == " " {
			i--
		}
		for i > 0 && gs[i-1] != " " {
			i--
		}
	}
	if extendSelection && s.SelectAnchor < 0 {
		s.SelectAnchor = s.Cursor
	} else if !extendSelection {
		s.SelectAnchor = -1
	}
	s.Cursor = i
}

// Home moves the cursor to the start of the value.
func (s *InputEditingState) Home(extendSelection bool) {
	if extendSelection && s.SelectAnchor < 0 {
		s.SelectAnchor = s.Cursor
	} else if !extendSelection {
		s.SelectAnchor = -1
	}
	s.Cursor = 0
}

// End moves the cursor to the end of the value.
func (s *InputEditingState) End(extendSelection bool) {
	if extendSelection && s.SelectAnchor < 0 {
		s.SelectAnchor = s.Cursor
	} else if !extendSelection {
		s.SelectAnchor = -1
	}
	s.Cursor = graphemeLen(s.Working)
}

// Backspace deletes the grapheme before the cursor, or the active
// selection if one exists.
func (s *InputEditingState) Backspace() {
	s.pushUndo()
	if s.hasSelection() {
		s.deleteSelection()
		return
	}
	if s.Cursor == 0 {
		return
	}
	gs := graphemes(s.Working)
	s.Working = join(gs[:s.Cursor-1]) + join(gs[s.Cursor:])
	s.Cursor--
}

// Delete deletes the grapheme after the cursor, or the active selection.
func (s *InputEditingState) Delete() {
	s.pushUndo()
	if s.hasSelection() {
		s.deleteSelection()
		return
	}
	gs := graphemes(s.Working)
	if s.Cursor >= len(gs) {
		return
	}
	s.Working = join(gs[:s.Cursor]) + join(gs[s.Cursor+1:])
}

// DeleteWord deletes from the cursor back to the previous word boundary.
func (s *InputEditingState) DeleteWord() {
	s.pushUndo()
	start := s.Cursor
	s.MoveWord(-1, false)
	wordStart := s.Cursor
	gs := graphemes(s.Working)
	s.Working = join(gs[:wordStart]) + join(gs[start:])
	s.Cursor = wordStart
}

// SelectAll selects the entire working value.
func (s *InputEditingState) SelectAll() {
	s.SelectAnchor = 0
	s.Cursor = graphemeLen(s.Working)
}

// Undo pops the undo stack, pushing the current state onto redo.
func (s *InputEditingState) Undo() {
	if len(s.undoStack) == 0 {
		return
	}
	cur := s.snapshot()
	entry := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.redoStack = append(s.redoStack, cur)
	s.Working = entry.value
	s.Cursor = entry.cursor
	s.SelectAnchor = -1
}

// Redo pops the redo stack, pushing the current state onto undo.
func (s *InputEditingState) Redo() {
	if len(s.redoStack) == 0 {
		return
	}
	cur := s.snapshot()
	entry := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	s.undoStack = append(s.undoStack, cur)
	s.Working = entry.value
	s.Cursor = entry.cursor
	s.SelectAnchor = -1
}

// SelectedText returns the currently selected substring, or "" if none.
func (s *InputEditingState) SelectedText() string {
	if !s.hasSelection() {
		return ""
	}
	lo, hi := s.selectionRange()
	gs := graphemes(s.Working)
	return join(gs[lo:hi])
}

// Copy copies the selected text to the system clipboard.
func (s *InputEditingState) Copy() error {
	text := s.SelectedText()
	if text == "" {
		return nil
	}
	return clipboard.WriteAll(text)
}

// Cut copies the selected text to the clipboard (falling back to the
// backend's raw-write OSC52 capability when the system clipboard is
// unavailable) and deletes it.
func (s *InputEditingState) Cut(raw RawWriter) error {
	text := s.SelectedText()
	if text == "" {
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil && raw != nil {
		if rawErr := raw.RawWrite([]byte(text)); rawErr != nil {
			return rawErr
		}
	}
	s.pushUndo()
	s.deleteSelection()
	return nil
}

// Paste inserts the given pasted bytes (from a separate paste event kind)
// at the cursor.
func (s *InputEditingState) Paste(data []byte) {
	s.InsertText(string(data))
}

// PasteFromClipboard reads the system clipboard and inserts it (ctrl+V).
func (s *InputEditingState) PasteFromClipboard() error {
	text, err := clipboard.ReadAll()
	if err != nil {
		return err
	}
	s.InsertText(text)
	return nil
}
