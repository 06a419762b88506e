package commit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

func TestEngine_Commit_MountsFreshTree(t *testing.T) {
	e := New()
	tree := vnode.VNode{Kind: vnode.KindBox, Children: []vnode.VNode{
		{Kind: vnode.KindText, Props: vnode.Props{Text: "hello"}},
	}}

	res, err := e.Commit(nil, tree)
	require.NoError(t, err)
	require.Len(t, res.Mounted, 2)
	require.Empty(t, res.Reused)
	require.Empty(t, res.Unmounted)
}

func TestEngine_Commit_ReusesUnchangedLeaf(t *testing.T) {
	e := New()
	tree := vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: "hello"}}

	_, err := e.Commit(nil, tree)
	require.NoError(t, err)

	res, err := e.Commit(nil, tree)
	require.NoError(t, err)
	require.Len(t, res.Reused, 1)
	require.Empty(t, res.Mounted)
}

func TestEngine_Commit_UpdatesChangedLeafInPlace(t *testing.T) {
	e := New()
	first, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: "hello"}})
	require.NoError(t, err)

	second, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: "goodbye"}})
	require.NoError(t, err)

	require.Equal(t, first.RootID, second.RootID)
	in, ok := e.Arena.Get(second.RootID)
	require.True(t, ok)
	require.True(t, in.SelfDirty)
	require.Equal(t, "goodbye", in.VNode.Props.Text)
}

func TestEngine_Commit_KindChangeUnmountsAndMountsFresh(t *testing.T) {
	e := New()
	first, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindText})
	require.NoError(t, err)

	second, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindButton, Props: vnode.Props{ID: "b"}})
	require.NoError(t, err)

	require.NotEqual(t, first.RootID, second.RootID)
	require.Contains(t, second.Mounted, second.RootID)
}

func TestEngine_Commit_DuplicateIDIsFatal(t *testing.T) {
	e := New()
	tree := vnode.VNode{Kind: vnode.KindRow, Children: []vnode.VNode{
		{Kind: vnode.KindButton, Props: vnode.Props{ID: "dup"}},
		{Kind: vnode.KindButton, Props: vnode.Props{ID: "dup"}},
	}}

	_, err := e.Commit(nil, tree)
	require.Error(t, err)

	var coreErr *lifecycle.CoreError
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, lifecycle.DuplicateID, coreErr.Code)
}

func TestEngine_Commit_KeyedChildrenReorderWithoutRemount(t *testing.T) {
	e := New()
	first, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindRow, Children: []vnode.VNode{
		{Kind: vnode.KindText, Props: vnode.Props{Key: "a", Text: "A"}},
		{Kind: vnode.KindText, Props: vnode.Props{Key: "b", Text: "B"}},
	}})
	require.NoError(t, err)
	rootIn, _ := e.Arena.Get(first.RootID)
	firstChildIDs := idsToInts(rootIn.Children)

	second, err := e.Commit(nil, vnode.VNode{Kind: vnode.KindRow, Children: []vnode.VNode{
		{Kind: vnode.KindText, Props: vnode.Props{Key: "b", Text: "B"}},
		{Kind: vnode.KindText, Props: vnode.Props{Key: "a", Text: "A"}},
	}})
	require.NoError(t, err)
	require.Empty(t, second.Mounted)

	rootIn2, _ := e.Arena.Get(second.RootID)
	secondChildIDs := idsToInts(rootIn2.Children)
	require.ElementsMatch(t, firstChildIDs, secondChildIDs)
	require.NotEqual(t, firstChildIDs, secondChildIDs)
}

func idsToInts(ids []instance.ID) []instance.ID {
	return append([]instance.ID(nil), ids...)
}

func TestEngine_Commit_CompositeRendersChildTree(t *testing.T) {
	e := New()
	tree := vnode.VNode{
		Kind: vnode.KindComposite,
		Render: func(ctx any) vnode.VNode {
			return vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: "rendered"}}
		},
	}

	res, err := e.Commit("state", tree)
	require.NoError(t, err)
	in, ok := e.Arena.Get(res.RootID)
	require.True(t, ok)
	require.Len(t, in.Children, 1)
	child, ok := e.Arena.Get(in.Children[0])
	require.True(t, ok)
	require.Equal(t, "rendered", child.VNode.Props.Text)
}

func TestEngine_Commit_CompositeSkipsRenderWhenSelectorsStable(t *testing.T) {
	e := New()
	renderCount := 0
	makeTree := func() vnode.VNode {
		return vnode.VNode{
			Kind: vnode.KindComposite,
			Selectors: []vnode.Selector{
				{
					Name:    "count",
					Compute: func(appState any) any { return appState.(int) },
					Equal:   func(a, b any) bool { return a == b },
				},
			},
			Render: func(ctx any) vnode.VNode {
				renderCount++
				return vnode.VNode{Kind: vnode.KindText}
			},
		}
	}

	_, err := e.Commit(1, makeTree())
	require.NoError(t, err)
	require.Equal(t, 1, renderCount)

	res, err := e.Commit(1, makeTree())
	require.NoError(t, err)
	require.Equal(t, 1, renderCount, "render must be skipped when selector values are unchanged")
	require.Contains(t, res.Reused, res.RootID)
}

func TestEngine_Commit_CompositeRerendersWhenSelectorChanges(t *testing.T) {
	e := New()
	renderCount := 0
	makeTree := func() vnode.VNode {
		return vnode.VNode{
			Kind: vnode.KindComposite,
			Selectors: []vnode.Selector{
				{
					Name:    "count",
					Compute: func(appState any) any { return appState.(int) },
					Equal:   func(a, b any) bool { return a == b },
				},
			},
			Render: func(ctx any) vnode.VNode {
				renderCount++
				return vnode.VNode{Kind: vnode.KindText}
			},
		}
	}

	_, err := e.Commit(1, makeTree())
	require.NoError(t, err)
	_, err = e.Commit(2, makeTree())
	require.NoError(t, err)
	require.Equal(t, 2, renderCount)
}

func TestEngine_Commit_ErrorBoundaryCatchesPanicAndRendersFallback(t *testing.T) {
	e := New()
	tree := vnode.VNode{
		Kind: vnode.KindErrorBoundary,
		Props: vnode.Props{
			Fallback: func(err error, retry func()) vnode.VNode {
				return vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: "failed"}}
			},
		},
		Children: []vnode.VNode{
			{
				Kind: vnode.KindComposite,
				Render: func(ctx any) vnode.VNode {
					panic("boom")
				},
			},
		},
	}

	res, err := e.Commit(nil, tree)
	require.NoError(t, err)
	in, ok := e.Arena.Get(res.RootID)
	require.True(t, ok)
	require.Equal(t, "failed", in.VNode.Props.Text)
}
