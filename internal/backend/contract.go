// Package backend defines the core's contract with a rendering backend: an
// opaque collaborator that turns drawlist bytes into pixels and terminal
// input into event-batch bytes. internal/backend/bubbletea provides the
// concrete implementation; the core only ever depends on this interface.
package backend

import (
	"context"

	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
)

// EventBatch is one poll's worth of wire-format event bytes, with an
// explicit release handle the core must call exactly once on every exit
// path (including abandonment on a stale poll token).
type EventBatch struct {
	Bytes          []byte
	DroppedBatches int
	Release        func()
}

// FrameAck is the completion signal for a submitted frame. Accepted, when
// non-nil, resolves earlier than Done and is used to attribute perf timings
// without blocking on full backend completion.
type FrameAck struct {
	Done     <-chan error
	Accepted <-chan struct{}
}

// RawWriter is the optional OSC52 raw-write capability used as a clipboard
// fallback by the router's input editing state.
type RawWriter interface {
	RawWrite(data []byte) error
}

// Capabilities are the backend's declared markers, checked against core
// configuration at start; disagreement is a BACKEND_ERROR configuration
// error per the core's error taxonomy.
type Capabilities struct {
	DrawlistProtocolVersion int
	MaxEventBytes           int
	FPSCap                  int
	RawWrite                RawWriter // nil if the backend has none
}

// Backend is the opaque collaborator the core drives each turn.
type Backend interface {
	// Start brings up the backend's terminal session (raw mode, alt
	// screen, mouse reporting) and returns once ready or on error.
	Start(ctx context.Context) error

	// Stop tears the terminal session down gracefully. Safe to call after
	// Start failed or concurrently with an in-flight PollEvents.
	Stop(ctx context.Context) error

	// Dispose releases any remaining resources. Called once, after Stop.
	Dispose()

	// PollEvents blocks until at least one event batch is available (or
	// ctx is cancelled), returning the wire bytes and a release handle.
	PollEvents(ctx context.Context) (EventBatch, error)

	// RequestFrame submits one frame's drawlist bytes for painting,
	// transferring ownership: the core must not read bytes again after
	// this call returns.
	RequestFrame(bytes []byte) (FrameAck, error)

	// Capabilities reports the backend's declared markers.
	Capabilities() Capabilities
}

// CheckCapabilities validates a backend's declared capability markers
// against core configuration, returning a BACKEND_ERROR CoreError on
// mismatch. Called once at startup before the first Start.
func CheckCapabilities(caps Capabilities, cfg *config.Config) error {
	if cfg.MaxEventBytes > 0 && caps.MaxEventBytes > 0 && caps.MaxEventBytes < cfg.MaxEventBytes {
		return lifecycle.NewError(lifecycle.BackendError,
			"backend max_event_bytes capability is smaller than configured max_event_bytes")
	}
	if cfg.FPSCap > 0 && caps.FPSCap > 0 && caps.FPSCap < cfg.FPSCap {
		return lifecycle.NewError(lifecycle.BackendError,
			"backend fps_cap capability is lower than configured fps_cap")
	}
	return nil
}
