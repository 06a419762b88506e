package commit

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

func toIDs(ids []instance.ID) []instance.ID {
	return append([]instance.ID(nil), ids...)
}

// idTree generates a random button tree where each leaf's id is drawn from
// a small alphabet, so duplicate ids occur often.
func idTree(t *rapid.T) vnode.VNode {
	alphabet := []string{"a", "b", "c"}
	n := rapid.IntRange(1, 6).Draw(t, "n")
	children := make([]vnode.VNode, n)
	for i := range children {
		id := rapid.SampledFrom(alphabet).Draw(t, "id")
		children[i] = vnode.VNode{Kind: vnode.KindButton, Props: vnode.Props{ID: id}}
	}
	return vnode.VNode{Kind: vnode.KindRow, Children: children}
}

// TestProperty_CommitRejectsDuplicateIDsElseProducesDistinctIDs checks
// spec §8's "for all committed trees, interactive ids are pairwise
// distinct" invariant: any random tree either fails commit with
// DuplicateID, or succeeds and every button id in it is unique.
func TestProperty_CommitRejectsDuplicateIDsElseProducesDistinctIDs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree := idTree(rt)
		seen := make(map[string]int)
		for _, c := range tree.Children {
			seen[c.Props.ID]++
		}
		hasDup := false
		for _, count := range seen {
			if count > 1 {
				hasDup = true
			}
		}

		e := New()
		_, err := e.Commit(nil, tree)
		if hasDup {
			if err == nil {
				rt.Fatalf("expected commit to reject duplicate ids %v", seen)
			}
			var coreErr *lifecycle.CoreError
			if !errors.As(err, &coreErr) || coreErr.Code != lifecycle.DuplicateID {
				rt.Fatalf("expected DuplicateID error, got %v", err)
			}
		} else if err != nil {
			rt.Fatalf("unexpected commit failure on duplicate-free tree: %v", err)
		}
	})
}

// TestProperty_UnchangedTreeKeepsStableInstanceIDs checks spec §8's
// referential-identity invariant: committing the same tree value twice in
// a row must reuse every instance id rather than remount.
func TestProperty_UnchangedTreeKeepsStableInstanceIDs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")
		children := make([]vnode.VNode, n)
		for i := range children {
			children[i] = vnode.VNode{
				Kind:  vnode.KindText,
				Props: vnode.Props{Key: rapid.SampledFrom([]string{"k0", "k1", "k2", "k3", "k4"}).Draw(rt, "key")},
			}
		}
		tree := vnode.VNode{Kind: vnode.KindRow, Children: children}

		e := New()
		first, err := e.Commit(nil, tree)
		if err != nil {
			// Duplicate keys among siblings are themselves a fatal commit
			// error; the stability invariant only applies to trees that
			// commit successfully at all.
			return
		}
		firstIn, _ := e.Arena.Get(first.RootID)
		firstIDs := toIDs(firstIn.Children)

		second, err := e.Commit(nil, tree)
		if err != nil {
			rt.Fatalf("second commit of an unchanged tree must not fail: %v", err)
		}
		if second.RootID != first.RootID {
			rt.Fatalf("root id changed across an unchanged recommit")
		}
		if len(second.Mounted) != 0 {
			rt.Fatalf("unchanged recommit must not mount anything, got %v", second.Mounted)
		}
		secondIn, _ := e.Arena.Get(second.RootID)
		secondIDs := toIDs(secondIn.Children)
		if len(firstIDs) != len(secondIDs) {
			rt.Fatalf("child count changed across an unchanged recommit")
		}
		for i := range firstIDs {
			if firstIDs[i] != secondIDs[i] {
				rt.Fatalf("child id at position %d changed across an unchanged recommit", i)
			}
		}
	})
}
