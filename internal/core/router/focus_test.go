package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFocusState_Next_WrapsAroundAtEnd(t *testing.T) {
	f := NewFocusState()
	f.SetZones([]*Zone{{ID: "z", Focusables: []string{"a", "b", "c"}}})

	f.Next()
	require.Equal(t, "a", f.FocusedID())
	f.Next()
	require.Equal(t, "b", f.FocusedID())
	f.Next()
	require.Equal(t, "c", f.FocusedID())
	f.Next()
	require.Equal(t, "a", f.FocusedID(), "traversal must wrap around to the first focusable")
}

func TestFocusState_Prev_WrapsBackwardFromEmpty(t *testing.T) {
	f := NewFocusState()
	f.SetZones([]*Zone{{ID: "z", Focusables: []string{"a", "b", "c"}}})

	f.Prev()
	require.Equal(t, "c", f.FocusedID())
}

func TestFocusState_PushPopTrap_RestoresPriorFocus(t *testing.T) {
	f := NewFocusState()
	f.SetZones([]*Zone{{ID: "z", Focusables: []string{"a", "b"}}})
	f.SetFocus("a")

	f.PushTrap("modal", []string{"x", "y"})
	require.Equal(t, "x", f.FocusedID())

	f.Next()
	require.Equal(t, "y", f.FocusedID())

	f.PopTrap()
	require.Equal(t, "a", f.FocusedID(), "popping the trap must restore the pre-trap focus")
}

func TestFocusState_SetFocus_NoOpWhenAlreadyFocused(t *testing.T) {
	f := NewFocusState()
	entered := 0
	f.SetZones([]*Zone{{ID: "z", Focusables: []string{"a"}, OnEnter: func() { entered++ }}})

	f.SetFocus("a")
	require.Equal(t, 1, entered)
	f.SetFocus("a")
	require.Equal(t, 1, entered, "re-focusing the same id must not refire on_enter")
}

func TestLayerStack_PushPopTopOfKind(t *testing.T) {
	var s LayerStack
	require.False(t, s.Any())

	s.Push(&Layer{Kind: LayerModal, ID: "m1"})
	s.Push(&Layer{Kind: LayerDropdown, ID: "d1"})

	require.True(t, s.Any())
	require.Equal(t, "d1", s.Top().ID)
	require.Equal(t, "m1", s.TopOfKind(LayerModal).ID)

	popped := s.Pop()
	require.Equal(t, "d1", popped.ID)
	require.Equal(t, "m1", s.Top().ID)
}

func TestLayerStack_Remove_FiresOnClose(t *testing.T) {
	var s LayerStack
	closed := false
	s.Push(&Layer{ID: "m1", OnClose: func() { closed = true }})

	s.Remove("m1")
	require.True(t, closed)
	require.False(t, s.Any())
}

func TestShortcutTrie_SingleKeyShortcut(t *testing.T) {
	trie := NewShortcutTrie()
	fired := false
	trie.Register("ctrl+k", func() { fired = true })

	require.Equal(t, ChordMatched, trie.Route("ctrl+k"))
	require.True(t, fired)
}

func TestShortcutTrie_MultiKeyChord(t *testing.T) {
	trie := NewShortcutTrie()
	fired := false
	trie.Register("ctrl+k g", func() { fired = true })

	require.Equal(t, ChordPending, trie.Route("ctrl+k"))
	require.False(t, fired)
	require.Equal(t, ChordMatched, trie.Route("g"))
	require.True(t, fired)
}

func TestShortcutTrie_UnmatchedKeyResetsPending(t *testing.T) {
	trie := NewShortcutTrie()
	trie.Register("ctrl+k g", func() {})

	require.Equal(t, ChordPending, trie.Route("ctrl+k"))
	require.Equal(t, ChordNone, trie.Route("z"))
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	require.True(t, r.contains(5, 5))
	require.False(t, r.contains(10, 10))
	require.False(t, r.contains(-1, 0))
}
