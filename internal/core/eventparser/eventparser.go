// Package eventparser decodes a backend's opaque event-batch bytes into a
// typed event sequence with monotonic time unwrapping.
//
// Wire format: a batch is {flags: u32, event_count: varint, events: [...]}.
// Each event is a tagged record {kind: u8, raw_ms: u32, reserved: 4 bytes,
// payload}; raw_ms is unwrapped into a monotonic u64 time_ms. Decoding
// is deterministic; oversize input fails with a protocol error and is never
// partially parsed.
package eventparser

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zjrosen/tuicore/internal/core/lifecycle"
)

// Kind tags a decoded event's payload shape.
type Kind uint8

const (
	KindKey Kind = iota + 1
	KindText
	KindPaste
	KindMouse
	KindResize
	KindTick
	KindFocus
	KindBlur
)

// MouseKind enumerates the mouse sub-kinds. Declared once here rather than
// as inline numeric constants at router call sites.
type MouseKind uint8

const (
	MouseDown MouseKind = iota + 1
	MouseUp
	MouseWheel
	MouseMove
)

// MouseButtons is a bitmask of held mouse buttons.
type MouseButtons uint8

const (
	ButtonLeft MouseButtons = 1 << iota
	ButtonMiddle
	ButtonRight
)

// Mods is a bitmask of held modifier keys.
type Mods uint8

const (
	ModShift Mods = 1 << iota
	ModAlt
	ModCtrl
	ModMeta
)

// KeyPayload carries a decoded key event.
type KeyPayload struct {
	Key  string
	Mods Mods
}

// MousePayload carries a decoded mouse event.
type MousePayload struct {
	MouseKind        MouseKind
	Buttons          MouseButtons
	Mods             Mods
	X, Y             int32
	WheelX, WheelY   int32
}

// ResizePayload carries a decoded resize event.
type ResizePayload struct {
	Width, Height int32
}

// Event is one decoded, time-unwrapped event.
type Event struct {
	Kind    Kind
	TimeMS  uint64
	Key     KeyPayload
	Text    rune
	Paste   []byte
	Mouse   MousePayload
	Resize  ResizePayload
}

// Flags low bit encodes engine-side truncation.
type Flags uint32

const (
	FlagTruncated Flags = 1 << 0
)

// Batch is the parser's successful output.
type Batch struct {
	Events []Event
	Flags  Flags
}

// TimeUnwrap tracks a bounded raw clock's wrap-around state so produced
// time_ms values are monotonic non-decreasing across a session.
type TimeUnwrap struct {
	epochMS   uint64
	lastRawMS uint32
	seen      bool
}

// Unwrap advances epoch on wrap-around of the bounded raw clock and returns
// the unwrapped, monotonic time.
func (t *TimeUnwrap) Unwrap(rawMS uint32) uint64 {
	if !t.seen {
		t.seen = true
		t.lastRawMS = rawMS
		return uint64(rawMS)
	}
	if rawMS < t.lastRawMS {
		t.epochMS += uint64(math.MaxUint32) + 1
	}
	t.lastRawMS = rawMS
	return t.epochMS + uint64(rawMS)
}

// Parser decodes batches against a max_total_size cap and a shared
// TimeUnwrap state.
type Parser struct {
	MaxTotalSize int
	Unwrap       TimeUnwrap
}

// NewParser returns a Parser with the given size cap.
func NewParser(maxTotalSize int) *Parser {
	return &Parser{MaxTotalSize: maxTotalSize}
}

// Parse decodes data into a Batch, or returns a PROTOCOL_ERROR CoreError.
func (p *Parser) Parse(data []byte) (Batch, error) {
	if p.MaxTotalSize > 0 && len(data) > p.MaxTotalSize {
		return Batch{}, lifecycle.NewError(lifecycle.ProtocolError, "event batch exceeds max_total_size")
	}
	if len(data) < 4 {
		return Batch{}, lifecycle.NewError(lifecycle.ProtocolError, "truncated batch header")
	}

	flags := Flags(binary.LittleEndian.Uint32(data[0:4]))
	rest := data[4:]

	count, n, err := readUvarint(rest)
	if err != nil {
		return Batch{}, lifecycle.NewError(lifecycle.ProtocolError, "bad event_count varint")
	}
	rest = rest[n:]

	events := make([]Event, 0, count)
	for i := uint64(0); i < count; i++ {
		ev, consumed, err := p.parseOne(rest)
		if err != nil {
			return Batch{}, err
		}
		events = append(events, ev)
		rest = rest[consumed:]
	}
	if len(rest) != 0 {
		return Batch{}, lifecycle.NewError(lifecycle.ProtocolError, "trailing bytes after declared event_count")
	}

	return Batch{Events: events, Flags: flags}, nil
}

func (p *Parser) parseOne(data []byte) (Event, int, error) {
	if len(data) < 1+8 {
		return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated event record")
	}
	kind := Kind(data[0])
	rawMS := binary.LittleEndian.Uint32(data[1:5])
	_ = data[5:9] // reserved alignment padding in the envelope
	off := 9

	ev := Event{Kind: kind, TimeMS: p.Unwrap.Unwrap(rawMS)}

	switch kind {
	case KindKey:
		if off >= len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated key payload")
		}
		klen := int(data[off])
		off++
		if off+klen+1 > len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated key payload")
		}
		ev.Key = KeyPayload{Key: string(data[off : off+klen]), Mods: Mods(data[off+klen])}
		off += klen + 1
	case KindText:
		if off+4 > len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated text payload")
		}
		ev.Text = rune(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	case KindPaste:
		plen, n, err := readUvarint(data[off:])
		if err != nil {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "bad paste length varint")
		}
		off += n
		if off+int(plen) > len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated paste payload")
		}
		ev.Paste = append([]byte(nil), data[off:off+int(plen)]...)
		off += int(plen)
	case KindMouse:
		if off+1+1+4+4+4+4 > len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated mouse payload")
		}
		ev.Mouse.MouseKind = MouseKind(data[off])
		ev.Mouse.Buttons = MouseButtons(data[off+1])
		off += 2
		ev.Mouse.Mods = Mods(data[off])
		off++
		ev.Mouse.X = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		ev.Mouse.Y = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		ev.Mouse.WheelX = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		ev.Mouse.WheelY = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	case KindResize:
		if off+8 > len(data) {
			return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, "truncated resize payload")
		}
		ev.Resize.Width = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		ev.Resize.Height = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	case KindTick, KindFocus, KindBlur:
		// no payload
	default:
		return Event{}, 0, lifecycle.NewError(lifecycle.ProtocolError, fmt.Sprintf("unknown event kind %d", kind))
	}

	return ev, off, nil
}

// readUvarint reads an unsigned LEB128 varint from the front of data.
func readUvarint(data []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i, b := range data {
		if i >= 10 {
			return 0, 0, fmt.Errorf("varint too long")
		}
		if b < 0x80 {
			return x | uint64(b)<<s, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0, fmt.Errorf("truncated varint")
}
