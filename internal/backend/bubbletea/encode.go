package bubbletea

import (
	"encoding/binary"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/tuicore/internal/core/eventparser"
)

// encoder builds wire-format event batches, one event at a time, mirroring
// eventparser.Parser's decode layout exactly.
type encoder struct {
	started time.Time
}

func newEncoder() *encoder {
	return &encoder{started: time.Now()}
}

func (e *encoder) rawMS() uint32 {
	return uint32(time.Since(e.started).Milliseconds())
}

func (e *encoder) encodeBatch(events [][]byte) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 0) // flags
	buf = appendUvarint(buf, uint64(len(events)))
	for _, ev := range events {
		buf = append(buf, ev...)
	}
	return buf
}

func (e *encoder) header(kind eventparser.Kind) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(kind)
	binary.LittleEndian.PutUint32(buf[1:5], e.rawMS())
	return buf
}

func (e *encoder) key(msg tea.KeyMsg) []byte {
	buf := e.header(eventparser.KindKey)
	keyStr := msg.String()
	buf = append(buf, byte(len(keyStr)))
	buf = append(buf, []byte(keyStr)...)
	buf = append(buf, byte(modsFromKey(msg)))
	return buf
}

func (e *encoder) text(r rune) []byte {
	buf := e.header(eventparser.KindText)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(r))
	return append(buf, tmp[:]...)
}

func (e *encoder) paste(data string) []byte {
	buf := e.header(eventparser.KindPaste)
	buf = appendUvarint(buf, uint64(len(data)))
	return append(buf, []byte(data)...)
}

func (e *encoder) mouse(msg tea.MouseMsg) []byte {
	buf := e.header(eventparser.KindMouse)
	buf = append(buf, byte(mouseKindFromTea(msg)))
	buf = append(buf, byte(mouseButtonsFromTea(msg)))
	buf = append(buf, byte(modsFromMouse(msg)))
	var tmp [16]byte
	binary.LittleEndian.PutUint32(tmp[0:4], uint32(int32(msg.X)))
	binary.LittleEndian.PutUint32(tmp[4:8], uint32(int32(msg.Y)))
	wheelX, wheelY := wheelDelta(msg)
	binary.LittleEndian.PutUint32(tmp[8:12], uint32(wheelX))
	binary.LittleEndian.PutUint32(tmp[12:16], uint32(wheelY))
	return append(buf, tmp[:]...)
}

func (e *encoder) resize(msg tea.WindowSizeMsg) []byte {
	buf := e.header(eventparser.KindResize)
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[0:4], uint32(int32(msg.Width)))
	binary.LittleEndian.PutUint32(tmp[4:8], uint32(int32(msg.Height)))
	return append(buf, tmp[:]...)
}

func (e *encoder) bare(kind eventparser.Kind) []byte {
	return e.header(kind)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func modsFromKey(msg tea.KeyMsg) eventparser.Mods {
	var m eventparser.Mods
	if msg.Alt {
		m |= eventparser.ModAlt
	}
	return m
}

func modsFromMouse(msg tea.MouseMsg) eventparser.Mods {
	var m eventparser.Mods
	if msg.Shift {
		m |= eventparser.ModShift
	}
	if msg.Alt {
		m |= eventparser.ModAlt
	}
	if msg.Ctrl {
		m |= eventparser.ModCtrl
	}
	return m
}

func mouseKindFromTea(msg tea.MouseMsg) eventparser.MouseKind {
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown, tea.MouseButtonWheelLeft, tea.MouseButtonWheelRight:
		return eventparser.MouseWheel
	}
	switch msg.Action {
	case tea.MouseActionPress:
		return eventparser.MouseDown
	case tea.MouseActionRelease:
		return eventparser.MouseUp
	case tea.MouseActionMotion:
		return eventparser.MouseMove
	}
	return eventparser.MouseMove
}

func mouseButtonsFromTea(msg tea.MouseMsg) eventparser.MouseButtons {
	var b eventparser.MouseButtons
	switch msg.Button {
	case tea.MouseButtonLeft:
		b |= eventparser.ButtonLeft
	case tea.MouseButtonMiddle:
		b |= eventparser.ButtonMiddle
	case tea.MouseButtonRight:
		b |= eventparser.ButtonRight
	}
	return b
}

func wheelDelta(msg tea.MouseMsg) (int32, int32) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return 0, -1
	case tea.MouseButtonWheelDown:
		return 0, 1
	case tea.MouseButtonWheelLeft:
		return -1, 0
	case tea.MouseButtonWheelRight:
		return 1, 0
	}
	return 0, 0
}
