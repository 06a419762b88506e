package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputEditingState_InsertTextAtCursor(t *testing.T) {
	s := NewInputEditingState("i1", "helo")
	s.Cursor = 3
	s.InsertText("l")
	require.Equal(t, "hello", s.Working)
	require.Equal(t, 4, s.Cursor)
}

func TestInputEditingState_InsertText_ReplacesSelection(t *testing.T) {
	s := NewInputEditingState("i1", "hello world")
	s.Cursor = 5
	s.SelectAnchor = 0
	s.InsertText("goodbye")
	require.Equal(t, "goodbye world", s.Working)
}

func TestInputEditingState_Backspace_DeletesPrecedingGrapheme(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.Cursor = 5
	s.Backspace()
	require.Equal(t, "hell", s.Working)
	require.Equal(t, 4, s.Cursor)
}

func TestInputEditingState_Delete_DeletesFollowingGrapheme(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.Cursor = 0
	s.Delete()
	require.Equal(t, "ello", s.Working)
}

func TestInputEditingState_MoveWord_SkipsToNextBoundary(t *testing.T) {
	s := NewInputEditingState("i1", "foo bar baz")
	s.Cursor = 0
	s.MoveWord(1, false)
	require.Equal(t, 3, s.Cursor)
	s.MoveWord(1, false)
	require.Equal(t, 7, s.Cursor)
}

func TestInputEditingState_HomeEnd(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.Cursor = 2
	s.Home(false)
	require.Equal(t, 0, s.Cursor)
	s.End(false)
	require.Equal(t, 5, s.Cursor)
}

func TestInputEditingState_SelectAll(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.SelectAll()
	require.Equal(t, 0, s.SelectAnchor)
	require.Equal(t, 5, s.Cursor)
	require.Equal(t, "hello", s.SelectedText())
}

func TestInputEditingState_UndoRedo(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.Cursor = 5
	s.InsertText(" world")
	require.Equal(t, "hello world", s.Working)

	s.Undo()
	require.Equal(t, "hello", s.Working)

	s.Redo()
	require.Equal(t, "hello world", s.Working)
}

func TestInputEditingState_SyncControlled_ResetsWorkingOnExternalChange(t *testing.T) {
	s := NewInputEditingState("i1", "hello")
	s.Cursor = 5
	s.InsertText("!")

	s.SyncControlled("reset")
	require.Equal(t, "reset", s.Working)
	require.Equal(t, 5, s.Cursor)
}

func TestInputEditingState_DeleteWord(t *testing.T) {
	s := NewInputEditingState("i1", "foo bar")
	s.Cursor = 7
	s.DeleteWord()
	require.Equal(t, "foo ", s.Working)
}
