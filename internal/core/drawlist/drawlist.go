// Package drawlist builds the binary opcode stream handed to the backend
// each frame: rect fills, text runs, clip regions, and an optional cursor
// directive. The opcode encoding is the core's contract with the backend;
// the backend owns pixel/cell painting.
package drawlist

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/zjrosen/tuicore/internal/cachemanager"
	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/layout"
	"github.com/zjrosen/tuicore/internal/log"
)

// Op tags one opcode in the stream.
type Op uint8

const (
	OpFillRect Op = iota + 1
	OpDrawTextSlice
	OpDrawTextRun
	OpPushClip
	OpPopClip
	OpSetCursor
	OpHideCursor
	OpBlitCanvas
)

// Style packs the minimal per-cell styling a fill/text opcode carries;
// color/attr resolution into the backend's concrete palette is the
// backend's concern.
type Style struct {
	FG, BG uint32
	Bold   bool
	Italic bool
	Faint  bool
	Invert bool
}

// Builder accumulates opcodes for one frame and encodes them into the wire
// format consumed by the backend.
type Builder struct {
	cfg config.DrawlistValidateConfig

	buf          []byte
	clipDepth    int
	cursorSet    bool
	opCount      int
	stringIntern *cachemanager.InMemoryCacheManager[string, []byte]
}

// NewBuilder returns a Builder honoring cfg's validation/reuse/cache knobs.
func NewBuilder(cfg config.DrawlistValidateConfig) *Builder {
	b := &Builder{cfg: cfg}
	if cfg.EncodedStringCacheCap > 0 {
		b.stringIntern = cachemanager.NewInMemoryCacheManager[string, []byte]("drawlist.string_intern", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	}
	return b
}

// Reset clears the builder for a new frame, reusing the backing buffer when
// the config enables it.
func (b *Builder) Reset() {
	if b.cfg.ReuseOutputBuffer {
		b.buf = b.buf[:0]
	} else {
		b.buf = nil
	}
	b.clipDepth = 0
	b.cursorSet = false
	b.opCount = 0
}

// FillRect appends a fill_rect opcode.
func (b *Builder) FillRect(r layout.Rect, style Style) error {
	if b.cfg.Params {
		if r.W < 0 || r.H < 0 {
			return fmt.Errorf("drawlist: fill_rect negative extent %dx%d", r.W, r.H)
		}
	}
	b.writeOp(OpFillRect)
	b.writeRect(r)
	b.writeStyle(style)
	return nil
}

// DrawTextSlice appends a draw_text_slice opcode: a single pre-shaped cell
// run at a fixed column, the common case for static labels.
func (b *Builder) DrawTextSlice(x, y int, text string, style Style) error {
	encoded := b.internString(text)
	if b.cfg.Params && len(encoded) > 0xFFFF {
		return fmt.Errorf("drawlist: draw_text_slice payload too large (%d bytes)", len(encoded))
	}
	b.writeOp(OpDrawTextSlice)
	b.writeInt32(int32(x))
	b.writeInt32(int32(y))
	b.writeStyle(style)
	b.writeBytes(encoded)
	return nil
}

// DrawTextRun appends a draw_text_run opcode: a line of text with per-cell
// style boundaries, used for syntax-highlighted or diff-highlighted rows.
func (b *Builder) DrawTextRun(x, y int, segments []TextSegment) error {
	if b.cfg.Params && len(segments) == 0 {
		return fmt.Errorf("drawlist: draw_text_run with no segments")
	}
	b.writeOp(OpDrawTextRun)
	b.writeInt32(int32(x))
	b.writeInt32(int32(y))
	b.writeUvarint(uint64(len(segments)))
	for _, seg := range segments {
		b.writeStyle(seg.Style)
		encoded := b.internString(seg.Text)
		b.writeBytes(encoded)
	}
	return nil
}

// TextSegment is one styled run within a draw_text_run opcode.
type TextSegment struct {
	Text  string
	Style Style
}

// PushClip appends a push_clip opcode, tracking nesting for the
// push/pop-balance invariant.
func (b *Builder) PushClip(r layout.Rect) {
	b.clipDepth++
	b.writeOp(OpPushClip)
	b.writeRect(r)
}

// PopClip appends a pop_clip opcode.
func (b *Builder) PopClip() error {
	if b.clipDepth == 0 {
		return fmt.Errorf("drawlist: pop_clip with no matching push_clip")
	}
	b.clipDepth--
	b.writeOp(OpPopClip)
	return nil
}

// SetCursor appends a cursor-set opcode. At most one may appear per frame.
func (b *Builder) SetCursor(x, y int, visible bool) error {
	if b.cursorSet {
		return fmt.Errorf("drawlist: more than one cursor directive in a single frame")
	}
	b.cursorSet = true
	if !visible {
		b.writeOp(OpHideCursor)
		return nil
	}
	b.writeOp(OpSetCursor)
	b.writeInt32(int32(x))
	b.writeInt32(int32(y))
	return nil
}

// BlitCanvas appends an opaque image/canvas blit opcode, payload format
// owned entirely by the backend.
func (b *Builder) BlitCanvas(r layout.Rect, payload []byte) {
	b.writeOp(OpBlitCanvas)
	b.writeRect(r)
	b.writeBytes(payload)
}

// Finish validates clip balance and returns the encoded frame, erroring
// instead of emitting an unbalanced stream.
func (b *Builder) Finish(maxBytes int) ([]byte, error) {
	if b.clipDepth != 0 {
		return nil, fmt.Errorf("drawlist: %d unclosed push_clip at frame end", b.clipDepth)
	}
	if maxBytes > 0 && len(b.buf) > maxBytes {
		log.Error(log.CatBackend, "drawlist exceeds max_drawlist_bytes", "size", len(b.buf), "max", maxBytes)
		return nil, fmt.Errorf("drawlist: frame is %d bytes, exceeds max %d", len(b.buf), maxBytes)
	}
	return b.buf, nil
}

// OpCount reports the number of opcodes appended so far (diagnostic use).
func (b *Builder) OpCount() int { return b.opCount }

func (b *Builder) internString(s string) []byte {
	if b.stringIntern == nil {
		return []byte(s)
	}
	if v, ok := b.stringIntern.Get(context.Background(), s); ok {
		return v
	}
	encoded := []byte(s)
	b.stringIntern.Set(context.Background(), s, encoded, cachemanager.DefaultExpiration)
	return encoded
}

func (b *Builder) writeOp(op Op) {
	b.opCount++
	b.buf = append(b.buf, byte(op))
}

func (b *Builder) writeRect(r layout.Rect) {
	b.writeInt32(int32(r.X))
	b.writeInt32(int32(r.Y))
	b.writeInt32(int32(r.W))
	b.writeInt32(int32(r.H))
}

func (b *Builder) writeStyle(s Style) {
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[0:4], s.FG)
	binary.LittleEndian.PutUint32(tmp[4:8], s.BG)
	b.buf = append(b.buf, tmp[:]...)
	var flags byte
	if s.Bold {
		flags |= 1
	}
	if s.Italic {
		flags |= 2
	}
	if s.Faint {
		flags |= 4
	}
	if s.Invert {
		flags |= 8
	}
	b.buf = append(b.buf, flags)
}

func (b *Builder) writeInt32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) writeUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	b.buf = append(b.buf, tmp[:n]...)
}

func (b *Builder) writeBytes(data []byte) {
	b.writeUvarint(uint64(len(data)))
	b.buf = append(b.buf, data...)
}
