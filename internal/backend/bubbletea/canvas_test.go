package bubbletea

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/drawlist"
	"github.com/zjrosen/tuicore/internal/core/layout"
)

func buildFrame(t *testing.T, fn func(b *drawlist.Builder)) []byte {
	t.Helper()
	b := drawlist.NewBuilder(config.DrawlistValidateConfig{Params: true})
	fn(b)
	out, err := b.Finish(0)
	require.NoError(t, err)
	return out
}

func TestInterpret_DrawTextSlice_PlacesTextAtPosition(t *testing.T) {
	frame := buildFrame(t, func(b *drawlist.Builder) {
		require.NoError(t, b.DrawTextSlice(2, 0, "hi", drawlist.Style{}))
	})

	out, _, _, cursorVisible := interpret(frame, 10, 1)
	require.False(t, cursorVisible)
	require.True(t, strings.HasPrefix(out, "  hi"), "expected text at column 2, got %q", out)
}

func TestInterpret_FillRect_FillsSpaces(t *testing.T) {
	frame := buildFrame(t, func(b *drawlist.Builder) {
		require.NoError(t, b.FillRect(layout.Rect{X: 0, Y: 0, W: 3, H: 1}, drawlist.Style{}))
	})

	out, _, _, _ := interpret(frame, 3, 1)
	require.Equal(t, "   ", stripANSI(out))
}

func TestInterpret_SetCursor_ReportsPositionAndVisibility(t *testing.T) {
	frame := buildFrame(t, func(b *drawlist.Builder) {
		require.NoError(t, b.SetCursor(4, 0, true))
	})

	_, cx, cy, visible := interpret(frame, 10, 1)
	require.Equal(t, 4, cx)
	require.Equal(t, 0, cy)
	require.True(t, visible)
}

func TestInterpret_PushPopClip_RestrictsPainting(t *testing.T) {
	frame := buildFrame(t, func(b *drawlist.Builder) {
		b.PushClip(layout.Rect{X: 0, Y: 0, W: 2, H: 1})
		require.NoError(t, b.DrawTextSlice(0, 0, "abcdef", drawlist.Style{}))
		require.NoError(t, b.PopClip())
	})

	out, _, _, _ := interpret(frame, 6, 1)
	require.Equal(t, "a…    ", stripANSI(out), "overrunning the clip truncates with an ellipsis rather than hard-cutting")
}

func TestInterpret_DrawTextSlice_FitsWithinClipIsNotTruncated(t *testing.T) {
	frame := buildFrame(t, func(b *drawlist.Builder) {
		b.PushClip(layout.Rect{X: 0, Y: 0, W: 4, H: 1})
		require.NoError(t, b.DrawTextSlice(0, 0, "ab", drawlist.Style{}))
		require.NoError(t, b.PopClip())
	})

	out, _, _, _ := interpret(frame, 4, 1)
	require.Equal(t, "ab  ", stripANSI(out))
}

func TestCanvas_Put_IgnoresOutOfBoundsCoordinates(t *testing.T) {
	c := newCanvas(2, 2)
	c.put(-1, 0, 'x', drawlist.Style{})
	c.put(0, 5, 'x', drawlist.Style{})
	require.False(t, c.cells[0][0].set)
}

func TestHexColor_FormatsAsSixDigitHex(t *testing.T) {
	require.Equal(t, "#ff0000", hexColor(0xff0000))
	require.Equal(t, "#000000", hexColor(0))
}

// stripANSI removes lipgloss/termenv SGR escape sequences so plain-text
// assertions aren't sensitive to styling, mirroring how a real terminal
// renders unstyled cells as bare characters.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && r == 'm':
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
