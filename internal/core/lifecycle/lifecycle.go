// Package lifecycle implements the app's Created/Running/Stopped/Faulted/
// Disposed state machine and the re-entrancy guard every public core method
// consults before acting.
package lifecycle

import (
	"fmt"
	"sync"
)

// State is one node of the lifecycle state machine.
type State int

const (
	Created State = iota
	Running
	Stopped
	Faulted
	Disposed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Busy names an in-flight start/stop operation; only one may be in flight.
type Busy int

const (
	NotBusy Busy = iota
	BusyStarting
	BusyStopping
)

// ErrorCode enumerates the exit/fatal-reportable error kinds.
type ErrorCode string

const (
	InvalidProps       ErrorCode = "INVALID_PROPS"
	InvalidState       ErrorCode = "INVALID_STATE"
	ReentrantCall      ErrorCode = "REENTRANT_CALL"
	NoRenderMode       ErrorCode = "NO_RENDER_MODE"
	UpdateDuringRender ErrorCode = "UPDATE_DURING_RENDER"
	ModeConflict       ErrorCode = "MODE_CONFLICT"
	DuplicateID        ErrorCode = "DUPLICATE_ID"
	DuplicateKey       ErrorCode = "DUPLICATE_KEY"
	UserCodeThrow      ErrorCode = "USER_CODE_THROW"
	ProtocolError      ErrorCode = "PROTOCOL_ERROR"
	BackendError       ErrorCode = "BACKEND_ERROR"
	DrawlistBuildError ErrorCode = "DRAWLIST_BUILD_ERROR"
	MaxDepth           ErrorCode = "MAX_DEPTH"
)

// CoreError is the typed fatal/reportable error value carrying the error
// kind table, rather than a bare errors.New for these conditions.
type CoreError struct {
	Code   ErrorCode
	Detail string
}

func (e *CoreError) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// NewError constructs a CoreError.
func NewError(code ErrorCode, detail string) *CoreError {
	return &CoreError{Code: code, Detail: detail}
}

// renderMarker records whether the Machine is inside commit/render or an
// event handler; it is checked to fatal `update` calls made from inside
// commit or render.
type renderMarker struct {
	inCommitOrRender bool
	inHandler        bool
}

// Machine guards the app's operational state and its start/stop
// re-entrancy rule: every public method first asserts operational state and
// non-re-entrancy.
type Machine struct {
	mu    sync.Mutex
	state State
	busy  Busy
	poll  uint64 // monotonic poll token, bumped by stop()

	marker renderMarker
}

// New returns a Machine in the Created state.
func New() *Machine {
	return &Machine{state: Created}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PollToken returns the current poll token, which BeginStop and Fault bump.
func (m *Machine) PollToken() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poll
}

// BeginStart asserts it is legal to start and marks busy=starting.
func (m *Machine) BeginStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy == BusyStopping {
		return NewError(InvalidState, "start while a stop is in flight")
	}
	if m.state != Created && m.state != Stopped {
		return NewError(InvalidState, fmt.Sprintf("start from %s", m.state))
	}
	m.busy = BusyStarting
	return nil
}

// EndStart completes a start, transitioning to Running.
func (m *Machine) EndStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Running
	m.busy = NotBusy
}

// BeginStop asserts it is legal to stop, bumps the poll token so in-flight
// polls observe staleness, and marks busy=stopping.
func (m *Machine) BeginStop() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy == BusyStarting {
		return 0, NewError(InvalidState, "stop while a start is in flight")
	}
	if m.state != Running {
		return 0, NewError(InvalidState, fmt.Sprintf("stop from %s", m.state))
	}
	m.busy = BusyStopping
	m.poll++
	return m.poll, nil
}

// EndStop completes a stop, transitioning to Stopped.
func (m *Machine) EndStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.busy = NotBusy
}

// Fault transitions to Faulted. Terminal except for Dispose.
func (m *Machine) Fault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Faulted
	m.busy = NotBusy
	m.poll++
}

// Dispose transitions to Disposed. Idempotent: calling it more than once has
// no additional observable effect.
func (m *Machine) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Disposed
	m.busy = NotBusy
}

// AssertOperational returns InvalidState if the machine is Disposed.
func (m *Machine) AssertOperational() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Disposed {
		return NewError(InvalidState, "call on a disposed app")
	}
	return nil
}

// EnterRenderOrCommit marks that the executor is now inside a commit/render
// pass, so that a nested `update` call can be rejected.
func (m *Machine) EnterRenderOrCommit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker.inCommitOrRender = true
}

// ExitRenderOrCommit clears the commit/render marker.
func (m *Machine) ExitRenderOrCommit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker.inCommitOrRender = false
}

// EnterHandler marks that the executor is now inside an event handler, where
// `update` is legal (it simply enqueues).
func (m *Machine) EnterHandler() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker.inHandler = true
}

// ExitHandler clears the handler marker.
func (m *Machine) ExitHandler() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker.inHandler = false
}

// AssertUpdateAllowed enforces: update is legal inside an event handler;
// update inside commit or render is fatal.
func (m *Machine) AssertUpdateAllowed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marker.inCommitOrRender {
		return NewError(UpdateDuringRender, "update called during commit or render")
	}
	return nil
}
