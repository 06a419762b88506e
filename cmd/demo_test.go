package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/core/vnode"
)

func TestDemoView_NilStateRendersZeroCount(t *testing.T) {
	v := demoView(nil)
	require.Equal(t, vnode.KindColumn, v.Kind)
	require.Equal(t, "count: 0", v.Children[0].Props.Text)
}

func TestDemoView_RendersCurrentCountAndButton(t *testing.T) {
	v := demoView(&demoState{count: 3})
	require.Equal(t, "count: 3", v.Children[0].Props.Text)
	require.Equal(t, demoButtonID, v.Children[1].Props.ID)
	require.Equal(t, vnode.KindButton, v.Children[1].Kind)
}
