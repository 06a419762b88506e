package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tuicore/internal/backend"
	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/eventparser"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
	"github.com/zjrosen/tuicore/internal/core/scheduler"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

// fakeBackend is a minimal backend.Backend double: PollEvents blocks on a
// channel the test controls, RequestFrame records every submitted frame
// and acks it immediately.
type fakeBackend struct {
	caps     backend.Capabilities
	events   chan backend.EventBatch
	frames   [][]byte
	started  bool
	stopped  bool
	disposed bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		caps:   backend.Capabilities{DrawlistProtocolVersion: 1, MaxEventBytes: 64 * 1024, FPSCap: 60},
		events: make(chan backend.EventBatch, 8),
	}
}

func (b *fakeBackend) Start(ctx context.Context) error { b.started = true; return nil }
func (b *fakeBackend) Stop(ctx context.Context) error   { b.stopped = true; return nil }
func (b *fakeBackend) Dispose()                         { b.disposed = true }

func (b *fakeBackend) PollEvents(ctx context.Context) (backend.EventBatch, error) {
	select {
	case ev := <-b.events:
		return ev, nil
	case <-ctx.Done():
		return backend.EventBatch{}, ctx.Err()
	}
}

func (b *fakeBackend) RequestFrame(bytes []byte) (backend.FrameAck, error) {
	b.frames = append(b.frames, bytes)
	done := make(chan error, 1)
	done <- nil
	return backend.FrameAck{Done: done}, nil
}

func (b *fakeBackend) Capabilities() backend.Capabilities { return b.caps }

func testConfig() *config.Config {
	cfg := config.Defaults()
	return &cfg
}

func TestApp_Start_RunsFirstTurnAndSubmitsAFrame(t *testing.T) {
	be := newFakeBackend()
	render := func(appState any) vnode.VNode {
		return vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: appState.(string)}}
	}
	a := New(testConfig(), be, render, "hello")

	err := a.Start(context.Background())
	require.NoError(t, err)
	require.True(t, be.started)
	require.Len(t, be.frames, 1)

	require.NoError(t, a.Stop(context.Background()))
	require.True(t, be.stopped)
	require.True(t, be.disposed)
}

func TestApp_Start_FailsClosedOnCapabilityMismatch(t *testing.T) {
	be := newFakeBackend()
	be.caps.MaxEventBytes = 16
	cfg := testConfig()
	cfg.MaxEventBytes = 1024

	a := New(cfg, be, func(appState any) vnode.VNode { return vnode.VNode{Kind: vnode.KindText} }, nil)

	err := a.Start(context.Background())
	require.Error(t, err)
	require.False(t, be.started, "backend must not be started when capability check fails")
}

func TestApp_Enqueue_AppliesUpdateOnNextTurn(t *testing.T) {
	be := newFakeBackend()
	render := func(appState any) vnode.VNode {
		return vnode.VNode{Kind: vnode.KindText, Props: vnode.Props{Text: appState.(string)}}
	}
	a := New(testConfig(), be, render, "initial")

	require.NoError(t, a.Start(context.Background()))
	require.Equal(t, "initial", a.appState)

	a.Enqueue(func(appState any) any {
		return "updated"
	})

	require.Equal(t, "updated", a.appState, "scheduler runs the turn synchronously when idle")
	require.NoError(t, a.Stop(context.Background()))
}

func TestApp_RebuildRouting_WiresFocusZoneSoTabAdvancesFocus(t *testing.T) {
	be := newFakeBackend()
	render := func(appState any) vnode.VNode {
		return vnode.VNode{
			Kind: vnode.KindFocusZone,
			Props: vnode.Props{
				Navigation: "linear",
				WrapAround: true,
			},
			Children: []vnode.VNode{
				{Kind: vnode.KindButton, Props: vnode.Props{ID: "first"}},
				{Kind: vnode.KindButton, Props: vnode.Props{ID: "second"}},
			},
		}
	}
	a := New(testConfig(), be, render, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	res := a.router.Dispatch(eventparser.Event{Kind: eventparser.KindKey, Key: eventparser.KeyPayload{Key: "tab"}})
	require.True(t, res.Consumed)
	require.Equal(t, "first", a.router.Focus.FocusedID())

	res = a.router.Dispatch(eventparser.Event{Kind: eventparser.KindKey, Key: eventparser.KeyPayload{Key: "tab"}})
	require.True(t, res.Consumed)
	require.Equal(t, "second", a.router.Focus.FocusedID())
}

func TestApp_RebuildRouting_ModalUnmountPopsItsTrap(t *testing.T) {
	be := newFakeBackend()
	showModal := true
	render := func(appState any) vnode.VNode {
		if !showModal {
			return vnode.VNode{Kind: vnode.KindBox}
		}
		return vnode.VNode{
			Kind:  vnode.KindModal,
			Props: vnode.Props{CloseOnEscape: true},
			Children: []vnode.VNode{
				{Kind: vnode.KindButton, Props: vnode.Props{ID: "ok"}},
			},
		}
	}
	a := New(testConfig(), be, render, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	require.Equal(t, "ok", a.router.Focus.FocusedID())
	require.True(t, a.router.Layers.Any())

	showModal = false
	a.commitAndRender()

	require.False(t, a.router.Layers.Any(), "modal's layer must be removed once its instance unmounts")
}

func TestApp_HandleTurn_FatalItemStillReleasesPrecedingEventBatches(t *testing.T) {
	be := newFakeBackend()
	render := func(appState any) vnode.VNode { return vnode.VNode{Kind: vnode.KindText} }
	a := New(testConfig(), be, render, nil)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	released := false
	emptyBatch := []byte{0, 0, 0, 0, 0} // flags=0, event_count=0 varint
	batch := backend.EventBatch{Bytes: emptyBatch, Release: func() { released = true }}

	a.handleTurn([]scheduler.Item{
		{Kind: scheduler.ItemEventBatch, Payload: batch},
		{Kind: scheduler.ItemFatal, Payload: assertError{}},
	})

	require.True(t, released, "event batch held before the fatal item must still be released")
	require.Equal(t, lifecycle.Faulted, a.lifecycle.State())
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestApp_Enqueue_PanickingUpdaterFaultsInsteadOfCrashing(t *testing.T) {
	be := newFakeBackend()
	render := func(appState any) vnode.VNode { return vnode.VNode{Kind: vnode.KindText} }
	a := New(testConfig(), be, render, "ok")
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background())

	a.Enqueue(func(appState any) any {
		panic("updater exploded")
	})

	require.Equal(t, lifecycle.Faulted, a.lifecycle.State())
}
