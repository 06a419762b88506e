package layout

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

// rowArena builds a fresh row-of-leaves arena with n children, independent
// of any prior test's arena state.
func rowArena(n int) (*instance.Arena, instance.ID) {
	arena := instance.NewArena()
	childIDs := make([]instance.ID, n)
	for i := 0; i < n; i++ {
		id := instance.ID(i + 2)
		childIDs[i] = id
		arena.Put(&instance.Instance{ID: id})
	}
	arena.Put(&instance.Instance{ID: 1, Kind: vnode.KindRow, Children: childIDs})
	return arena, 1
}

// TestProperty_LayoutIsDeterministic checks spec §8's "same VNode tree +
// viewport -> identical layout tree" invariant: running the layout engine
// twice over freshly-built, structurally identical arenas at the same
// viewport must produce the same rect for every instance id.
func TestProperty_LayoutIsDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		width := rapid.IntRange(1, 400).Draw(rt, "width")
		height := rapid.IntRange(1, 200).Draw(rt, "height")
		padding := rapid.IntRange(0, 10).Draw(rt, "padding")
		vp := Viewport{Width: width, Height: height}

		arenaA, rootA := rowArena(n)
		arenaB, rootB := rowArena(n)

		e1 := NewEngine()
		e1.Run(arenaA, rootA, vp, padding)

		e2 := NewEngine()
		e2.Run(arenaB, rootB, vp, padding)

		if len(e1.RectByInstanceID) != len(e2.RectByInstanceID) {
			rt.Fatalf("rect count diverged: %d vs %d", len(e1.RectByInstanceID), len(e2.RectByInstanceID))
		}
		for id, r1 := range e1.RectByInstanceID {
			r2, ok := e2.RectByInstanceID[id]
			if !ok || r1 != r2 {
				rt.Fatalf("rect for instance %d diverged: %v vs %v (ok=%v)", id, r1, r2, ok)
			}
		}
	})
}

// TestProperty_DamageRectsNeverExceedViewport checks spec §8's damage
// soundness invariant's precondition: every gathered damage rect is
// clipped to stay within the viewport's bounds.
func TestProperty_DamageRectsNeverExceedViewport(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		width := rapid.IntRange(1, 120).Draw(rt, "width")
		height := rapid.IntRange(1, 60).Draw(rt, "height")
		vp := Viewport{Width: width, Height: height}

		arena, root := rowArena(n)
		e := NewEngine()
		e.Run(arena, root, vp, 0)

		mounted := make([]instance.ID, 0, n)
		for i := 0; i < n; i++ {
			mounted = append(mounted, instance.ID(i+2))
		}

		damage := e.GatherDamageRects(mounted, nil, nil, "", "", vp)
		for _, r := range damage.Rects {
			if r.X < 0 || r.Y < 0 || r.X+r.W > vp.Width || r.Y+r.H > vp.Height {
				rt.Fatalf("damage rect %v escapes viewport %v", r, vp)
			}
		}
	})
}
