package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

func TestRect_Intersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	c := Rect{X: 20, Y: 20, W: 5, H: 5}

	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))
}

func TestRect_Touches_AdjacentButNotOverlapping(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 10, Y: 0, W: 10, H: 10}
	require.True(t, a.Touches(b))
	require.False(t, a.Intersects(b))
}

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	u := a.Union(b)
	require.Equal(t, Rect{X: 0, Y: 0, W: 15, H: 15}, u)
}

func TestBreakpoints_Classify(t *testing.T) {
	b := Breakpoints{SmMax: 60, MdMax: 100, LgMax: 160}
	require.Equal(t, "sm", b.Classify(40))
	require.Equal(t, "md", b.Classify(80))
	require.Equal(t, "lg", b.Classify(140))
	require.Equal(t, "xl", b.Classify(200))
}

func TestDirtyVersions_MarkAndClearSince(t *testing.T) {
	var d DirtyVersions
	require.False(t, d.Set(FlagRender))

	d.Mark(FlagRender)
	require.True(t, d.Set(FlagRender))

	snap := d.Snapshot()
	d.ClearSince(snap)
	require.False(t, d.Set(FlagRender))
}

func TestDirtyVersions_ClearSince_PreservesConcurrentMark(t *testing.T) {
	var d DirtyVersions
	d.Mark(FlagLayout)
	snap := d.Snapshot()

	// a mark arrives after the snapshot was taken but before clear: it must
	// survive the clear.
	d.Mark(FlagLayout)
	d.ClearSince(snap)

	require.True(t, d.Set(FlagLayout))
}

func TestEngine_NeedsRelayout_TrueBeforeFirstRun(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1})

	require.True(t, e.NeedsRelayout(arena, 1, Viewport{Width: 80, Height: 24}, false, false))
}

func TestEngine_NeedsRelayout_FalseWhenNothingChanged(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1, Kind: vnode.KindBox})
	vp := Viewport{Width: 80, Height: 24}

	e.Run(arena, 1, vp, 0)
	require.False(t, e.NeedsRelayout(arena, 1, vp, false, false))
}

func TestEngine_NeedsRelayout_TrueOnViewportChange(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1})
	vp := Viewport{Width: 80, Height: 24}
	e.Run(arena, 1, vp, 0)

	require.True(t, e.NeedsRelayout(arena, 1, Viewport{Width: 100, Height: 24}, false, false))
}

func TestEngine_NeedsRelayout_TrueOnExplicitDirty(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1})
	vp := Viewport{Width: 80, Height: 24}
	e.Run(arena, 1, vp, 0)

	require.True(t, e.NeedsRelayout(arena, 1, vp, false, true))
}

func TestEngine_NeedsRelayout_TrueWhenLayoutSignatureDiverges(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1, LayoutSignature: 1})
	vp := Viewport{Width: 80, Height: 24}
	e.Run(arena, 1, vp, 0)

	in, _ := arena.Get(1)
	in.LayoutSignature = 2

	require.True(t, e.NeedsRelayout(arena, 1, vp, false, false))
}

func TestEngine_Run_ComputesRowLayout(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1, Kind: vnode.KindRow, Children: []instance.ID{2, 3}})
	arena.Put(&instance.Instance{ID: 2, VNode: vnode.VNode{Props: vnode.Props{ID: "left"}}})
	arena.Put(&instance.Instance{ID: 3, VNode: vnode.VNode{Props: vnode.Props{ID: "right"}}})

	e.Run(arena, 1, Viewport{Width: 100, Height: 10}, 0)

	require.Equal(t, Rect{X: 0, Y: 0, W: 50, H: 10}, e.RectByInstanceID[2])
	require.Equal(t, Rect{X: 50, Y: 0, W: 50, H: 10}, e.RectByInstanceID[3])
	require.Equal(t, e.RectByInstanceID[2], e.RectByPublicID["left"])
}

func TestEngine_Run_AppliesPadding(t *testing.T) {
	e := NewEngine()
	arena := instance.NewArena()
	arena.Put(&instance.Instance{ID: 1})

	e.Run(arena, 1, Viewport{Width: 100, Height: 50}, 5)

	require.Equal(t, Rect{X: 5, Y: 5, W: 90, H: 40}, e.RectByInstanceID[1])
}
