package bubbletea

import (
	"encoding/binary"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/tuicore/internal/core/drawlist"
)

// cell is one terminal cell's painted content.
type cell struct {
	r     rune
	style drawlist.Style
	set   bool
}

// canvas is a fixed-size grid the drawlist interpreter paints into before
// flattening to a lipgloss-styled string for bubbletea's View.
type canvas struct {
	width, height int
	cells         [][]cell
	clipStack     []rect
	cursorX       int
	cursorY       int
	cursorVisible bool
}

type rect struct{ x, y, w, h int }

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.cells = make([][]cell, height)
	for y := range c.cells {
		c.cells[y] = make([]cell, width)
	}
	return c
}

func (c *canvas) clip() rect {
	if len(c.clipStack) == 0 {
		return rect{0, 0, c.width, c.height}
	}
	return c.clipStack[len(c.clipStack)-1]
}

func (c *canvas) put(x, y int, r rune, style drawlist.Style) {
	cl := c.clip()
	if x < cl.x || x >= cl.x+cl.w || y < cl.y || y >= cl.y+cl.h {
		return
	}
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y][x] = cell{r: r, style: style, set: true}
}

// interpret decodes a drawlist frame and paints it onto a fresh canvas of
// the given terminal size, returning the rendered string.
func interpret(frame []byte, width, height int) (string, int, int, bool) {
	c := newCanvas(width, height)
	off := 0
	for off < len(frame) {
		op := drawlist.Op(frame[off])
		off++
		switch op {
		case drawlist.OpFillRect:
			r := readRect(frame, &off)
			style := readStyle(frame, &off)
			for y := r.y; y < r.y+r.h; y++ {
				for x := r.x; x < r.x+r.w; x++ {
					c.put(x, y, ' ', style)
				}
			}
		case drawlist.OpDrawTextSlice:
			x := readInt32(frame, &off)
			y := readInt32(frame, &off)
			style := readStyle(frame, &off)
			text := readBytes(frame, &off)
			drawRun(c, int(x), int(y), string(text), style)
		case drawlist.OpDrawTextRun:
			x := readInt32(frame, &off)
			y := readInt32(frame, &off)
			n := readUvarint(frame, &off)
			cx := int(x)
			for i := uint64(0); i < n; i++ {
				style := readStyle(frame, &off)
				text := readBytes(frame, &off)
				cx = drawRun(c, cx, int(y), string(text), style)
			}
		case drawlist.OpPushClip:
			r := readRect(frame, &off)
			c.clipStack = append(c.clipStack, r)
		case drawlist.OpPopClip:
			if len(c.clipStack) > 0 {
				c.clipStack = c.clipStack[:len(c.clipStack)-1]
			}
		case drawlist.OpSetCursor:
			c.cursorX = int(readInt32(frame, &off))
			c.cursorY = int(readInt32(frame, &off))
			c.cursorVisible = true
		case drawlist.OpHideCursor:
			c.cursorVisible = false
		case drawlist.OpBlitCanvas:
			readRect(frame, &off)
			readBytes(frame, &off)
		default:
			// Unknown opcode: stop interpreting rather than guess at its
			// length and desync the stream.
			off = len(frame)
		}
	}
	return c.render(), c.cursorX, c.cursorY, c.cursorVisible
}

// drawRun paints text onto the canvas starting at (x, y), truncating with an
// ellipsis tail when it would overrun the active clip rect's right edge
// rather than silently dropping the overflow rune by rune.
func drawRun(c *canvas, x, y int, text string, style drawlist.Style) int {
	cl := c.clip()
	if avail := cl.x + cl.w - x; avail > 0 && ansi.StringWidth(text) > avail {
		text = ansi.Truncate(text, avail, "…")
	}
	cx := x
	for _, r := range text {
		c.put(cx, y, r, style)
		cx += max(1, runewidth.RuneWidth(r))
	}
	return cx
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *canvas) render() string {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		var line strings.Builder
		x := 0
		for x < c.width {
			cl := c.cells[y][x]
			if !cl.set {
				line.WriteRune(' ')
				x++
				continue
			}
			run, consumed := c.sameStyleRun(y, x)
			line.WriteString(styleFor(cl.style).Render(run))
			x += consumed
		}
		b.WriteString(line.String())
		if y < c.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (c *canvas) sameStyleRun(y, x int) (string, int) {
	start := x
	style := c.cells[y][x].style
	var s strings.Builder
	for x < c.width && c.cells[y][x].set && c.cells[y][x].style == style {
		s.WriteRune(c.cells[y][x].r)
		x++
	}
	return s.String(), x - start
}

func styleFor(s drawlist.Style) lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.FG != 0 {
		st = st.Foreground(lipgloss.Color(hexColor(s.FG)))
	}
	if s.BG != 0 {
		st = st.Background(lipgloss.Color(hexColor(s.BG)))
	}
	if s.Bold {
		st = st.Bold(true)
	}
	if s.Italic {
		st = st.Italic(true)
	}
	if s.Faint {
		st = st.Faint(true)
	}
	if s.Invert {
		st = st.Reverse(true)
	}
	return st
}

func hexColor(v uint32) string {
	const hexDigits = "0123456789abcdef"
	b := [7]byte{'#'}
	for i := 0; i < 6; i++ {
		shift := uint(20 - i*4)
		b[1+i] = hexDigits[(v>>shift)&0xF]
	}
	return string(b[:])
}

func readRect(data []byte, off *int) rect {
	x := readInt32(data, off)
	y := readInt32(data, off)
	w := readInt32(data, off)
	h := readInt32(data, off)
	return rect{int(x), int(y), int(w), int(h)}
}

func readStyle(data []byte, off *int) drawlist.Style {
	fg := binary.LittleEndian.Uint32(data[*off:])
	bg := binary.LittleEndian.Uint32(data[*off+4:])
	flags := data[*off+8]
	*off += 9
	return drawlist.Style{
		FG: fg, BG: bg,
		Bold: flags&1 != 0, Italic: flags&2 != 0, Faint: flags&4 != 0, Invert: flags&8 != 0,
	}
}

func readInt32(data []byte, off *int) int32 {
	v := int32(binary.LittleEndian.Uint32(data[*off:]))
	*off += 4
	return v
}

func readUvarint(data []byte, off *int) uint64 {
	v, n := binary.Uvarint(data[*off:])
	*off += n
	return v
}

func readBytes(data []byte, off *int) []byte {
	n := readUvarint(data, off)
	b := data[*off : *off+int(n)]
	*off += int(n)
	return b
}
