// Package bubbletea provides the concrete Backend implementation: a
// bubbletea.Program-driven terminal loop that encodes key/mouse/resize
// messages into the core's wire envelope and interprets drawlist opcodes
// into lipgloss-styled screen content, with bubblezone mouse-region
// tracking and an OSC52 clipboard fallback.
package bubbletea

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"

	"github.com/zjrosen/tuicore/internal/backend"
	"github.com/zjrosen/tuicore/internal/log"
)

// DrawlistProtocolVersion is the wire format version this backend speaks.
const DrawlistProtocolVersion = 1

type renderMsg struct{}

type quitMsg struct{}

// bridgeModel is the tea.Model that turns bubbletea's push-based message
// loop into the core's pull-based PollEvents/RequestFrame contract.
type bridgeModel struct {
	enc    *encoder
	events chan []byte

	mu            sync.Mutex
	width, height int
	frame         []byte
}

func newBridgeModel(events chan []byte) *bridgeModel {
	return &bridgeModel{enc: newEncoder(), events: events}
}

func (m *bridgeModel) Init() tea.Cmd { return nil }

func (m *bridgeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width, m.height = msg.Width, msg.Height
		m.mu.Unlock()
		m.send(m.enc.encodeBatch([][]byte{m.enc.resize(msg)}))
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.send(m.enc.encodeBatch([][]byte{m.enc.key(msg)}))
	case tea.MouseMsg:
		m.send(m.enc.encodeBatch([][]byte{m.enc.mouse(msg)}))
	case tea.PasteMsg:
		m.send(m.enc.encodeBatch([][]byte{m.enc.paste(string(msg))}))
	case renderMsg:
		// No state change; View() picks up the latest frame below.
	case quitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *bridgeModel) send(batch []byte) {
	select {
	case m.events <- batch:
	default:
		log.Warn(log.CatBackend, "event batch dropped, poller not keeping up")
	}
}

func (m *bridgeModel) setFrame(frame []byte) {
	m.mu.Lock()
	m.frame = frame
	m.mu.Unlock()
}

func (m *bridgeModel) View() string {
	m.mu.Lock()
	frame, w, h := m.frame, m.width, m.height
	m.mu.Unlock()
	if w == 0 || h == 0 {
		return ""
	}
	content, cx, cy, visible := interpret(frame, w, h)
	content = zone.Scan(content)
	if visible {
		return content + fmt.Sprintf("\x1b[%d;%dH", cy+1, cx+1)
	}
	return content
}

// Backend is the bubbletea-driven concrete rendering backend.
type Backend struct {
	program *tea.Program
	model   *bridgeModel
	events  chan []byte
	raw     *rawWriter

	runDone chan error
}

// Done returns a channel that closes once the bubbletea program loop has
// exited, whether from Stop or from the terminal-level ctrl+c kill switch.
// A demo harness can select on this instead of waiting only on an explicit
// Stop call.
func (b *Backend) Done() <-chan error {
	return b.runDone
}

// New returns a Backend ready to Start.
func New() *Backend {
	zone.NewGlobal()
	profile := termenv.ColorProfile()
	log.Debug(log.CatBackend, "terminal color profile detected", "profile", profile.String())

	events := make(chan []byte, 64)
	model := newBridgeModel(events)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	return &Backend{
		program: program,
		model:   model,
		events:  events,
		raw:     &rawWriter{},
	}
}

// Start runs the bubbletea program loop in the background.
func (b *Backend) Start(ctx context.Context) error {
	b.runDone = make(chan error, 1)
	go func() {
		_, err := b.program.Run()
		b.runDone <- err
		close(b.runDone)
	}()
	return nil
}

// Stop signals the bubbletea program to quit and waits for its loop to
// return.
func (b *Backend) Stop(ctx context.Context) error {
	b.program.Send(quitMsg{})
	select {
	case err := <-b.runDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose releases remaining resources. bubbletea itself has none to free
// beyond what Stop already tore down.
func (b *Backend) Dispose() {}

// PollEvents blocks for the next encoded batch, or returns ctx's error.
func (b *Backend) PollEvents(ctx context.Context) (backend.EventBatch, error) {
	select {
	case bytes := <-b.events:
		return backend.EventBatch{Bytes: bytes, Release: func() {}}, nil
	case <-ctx.Done():
		return backend.EventBatch{}, ctx.Err()
	}
}

// RequestFrame hands drawlist bytes to the bridge model and forces a
// repaint. bubbletea's local terminal rendering is synchronous from the
// backend's perspective, so the ack resolves immediately.
func (b *Backend) RequestFrame(bytes []byte) (backend.FrameAck, error) {
	b.model.setFrame(bytes)
	b.program.Send(renderMsg{})
	done := make(chan error, 1)
	done <- nil
	return backend.FrameAck{Done: done}, nil
}

// Capabilities reports this backend's declared markers.
func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		DrawlistProtocolVersion: DrawlistProtocolVersion,
		MaxEventBytes:           1 << 20,
		FPSCap:                  0,
		RawWrite:                b.raw,
	}
}

// rawWriter implements backend.RawWriter via an OSC52 escape sequence
// written directly to stdout, used as a clipboard-cut fallback when the
// system clipboard is unavailable (e.g. over SSH).
type rawWriter struct{}

func (w *rawWriter) RawWrite(data []byte) error {
	fmt.Print(osc52.New(string(data)).String())
	return nil
}
