package instance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/core/vnode"
)

func TestAllocator_NextIsMonotonicStartingAtOne(t *testing.T) {
	a := NewAllocator()
	require.Equal(t, ID(1), a.Next())
	require.Equal(t, ID(2), a.Next())
	require.Equal(t, ID(3), a.Next())
}

func TestArena_PutGetDelete(t *testing.T) {
	arena := NewArena()
	in := &Instance{ID: 1, Kind: vnode.KindText}
	arena.Put(in)

	got, ok := arena.Get(1)
	require.True(t, ok)
	require.Equal(t, in, got)

	arena.Delete(1)
	_, ok = arena.Get(1)
	require.False(t, ok)
}

func TestArena_RootDefaultsToZero(t *testing.T) {
	arena := NewArena()
	require.Equal(t, ID(0), arena.Root())

	arena.SetRoot(5)
	require.Equal(t, ID(5), arena.Root())
}

func TestArena_Len(t *testing.T) {
	arena := NewArena()
	require.Equal(t, 0, arena.Len())
	arena.Put(&Instance{ID: 1})
	arena.Put(&Instance{ID: 2})
	require.Equal(t, 2, arena.Len())
}

func TestArena_Dirty_PropagatesFromDescendant(t *testing.T) {
	arena := NewArena()
	arena.Put(&Instance{ID: 1, Children: []ID{2}})
	arena.Put(&Instance{ID: 2, SelfDirty: true})

	require.True(t, arena.Dirty(1))
}

func TestArena_Dirty_FalseWhenNoDescendantDirty(t *testing.T) {
	arena := NewArena()
	arena.Put(&Instance{ID: 1, Children: []ID{2}})
	arena.Put(&Instance{ID: 2})

	require.False(t, arena.Dirty(1))
}

func TestArena_Dirty_UnknownIDIsFalse(t *testing.T) {
	arena := NewArena()
	require.False(t, arena.Dirty(99))
}

func TestArena_Walk_VisitsPreorderAndStopsEarly(t *testing.T) {
	arena := NewArena()
	arena.Put(&Instance{ID: 1, Children: []ID{2, 3}})
	arena.Put(&Instance{ID: 2})
	arena.Put(&Instance{ID: 3})

	var visited []ID
	arena.Walk(1, func(in *Instance) bool {
		visited = append(visited, in.ID)
		return in.ID != 2
	})

	require.Equal(t, []ID{1, 2}, visited)
}
