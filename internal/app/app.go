// Package app wires the core runtime together: lifecycle, scheduler, update
// queue, commit engine, layout/damage engine, event router, drawlist
// builder, and a concrete Backend, into the single per-turn pipeline bytes
// -> events -> router -> updates -> commit -> layout -> damage -> drawlist
// -> backend.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/tuicore/internal/backend"
	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/commit"
	"github.com/zjrosen/tuicore/internal/core/drawlist"
	"github.com/zjrosen/tuicore/internal/core/eventparser"
	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/layout"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
	"github.com/zjrosen/tuicore/internal/core/router"
	"github.com/zjrosen/tuicore/internal/core/scheduler"
	"github.com/zjrosen/tuicore/internal/core/updatequeue"
	"github.com/zjrosen/tuicore/internal/core/vnode"
	"github.com/zjrosen/tuicore/internal/log"
	"github.com/zjrosen/tuicore/internal/tracing"
)

// RootRenderer is the app's pure view function over its state.
type RootRenderer func(appState any) vnode.VNode

// App is the public runtime entry point, created once per terminal session.
type App struct {
	cfg     *config.Config
	backend backend.Backend
	render  RootRenderer

	lifecycle *lifecycle.Machine
	scheduler *scheduler.Scheduler
	queue     *updatequeue.Queue[any]
	commit    *commit.Engine
	layout    *layout.Engine
	router    *router.Router
	parser    *eventparser.Parser
	builder   *drawlist.Builder
	tracer    tracing.TraceSink

	appState any
	viewport layout.Viewport
	prevRoot instance.ID
	prevRects map[instance.ID]layout.Rect

	dirty             layout.DirtyVersions
	framesInFlight    int
	interactiveBudget int

	// prevFrameRendered is false until the first frame has actually been
	// submitted to the backend; CanRenderIncremental always requires a
	// prior frame to diff against.
	prevFrameRendered bool
	// focusAtTurnStart is the router's focused public id as of the start of
	// the current turn, captured before event dispatch moves it, so
	// commitAndRender can report both ends of a focus change as damage.
	focusAtTurnStart string

	// openLayers and openTraps are the overlay/trap ids pushed onto the
	// router as of the last routing rebuild, so the next rebuild can tell
	// which ones unmounted and need popping rather than pushing duplicates.
	openLayers map[string]bool
	openTraps  map[string]bool

	cancelPoll context.CancelFunc
}

// New constructs an App. initialState is the app's first state value;
// render must be a pure function of that state (and whatever it evolves
// to via enqueued updates).
func New(cfg *config.Config, be backend.Backend, render RootRenderer, initialState any) *App {
	a := &App{
		cfg:       cfg,
		backend:   be,
		render:    render,
		lifecycle: lifecycle.New(),
		queue:     updatequeue.New[any](),
		commit:    commit.New(),
		layout:    layout.NewEngine(),
		router:    router.New(),
		parser:    eventparser.NewParser(cfg.MaxEventBytes),
		builder:   drawlist.NewBuilder(cfg.DrawlistValidate),
		appState:  initialState,
		prevRects: make(map[instance.ID]layout.Rect),
		tracer:    tracing.NoopSink{},
	}
	a.scheduler = scheduler.New(a.handleTurn)
	if rw := be.Capabilities().RawWrite; rw != nil {
		a.router.SetRawWriter(rw)
	}
	return a
}

// SetTraceSink installs a turn tracer, replacing the zero-overhead default.
// Call before Start; the turn pipeline is not safe to swap sinks on mid-run.
func (a *App) SetTraceSink(sink tracing.TraceSink) {
	a.tracer = sink
}

// RegisterWidgetHandler installs a focused-widget key/mouse handler, the
// dedicated state machine for one complex widget kind.
func (a *App) RegisterWidgetHandler(k vnode.Kind, h router.WidgetHandler) {
	a.router.RegisterWidgetHandler(k, h)
}

// Enqueue schedules a state update, to be applied at the start of the next
// turn. Safe to call from widget handlers and from outside the turn loop.
func (a *App) Enqueue(fn func(appState any) any) {
	a.queue.Enqueue(updatequeue.Func(fn), func() {
		a.scheduler.Push(scheduler.Item{Kind: scheduler.ItemUserCommit})
	})
}

// Start brings the backend up and runs the first commit/render turn.
func (a *App) Start(ctx context.Context) error {
	if err := backend.CheckCapabilities(a.backend.Capabilities(), a.cfg); err != nil {
		return err
	}
	if err := a.lifecycle.BeginStart(); err != nil {
		return err
	}
	if err := a.backend.Start(ctx); err != nil {
		a.lifecycle.Fault()
		return fmt.Errorf("backend start: %w", err)
	}
	a.lifecycle.EndStart()
	a.interactiveBudget = 0

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancelPoll = cancel
	go a.pollLoop(pollCtx)

	a.scheduler.Push(scheduler.Item{Kind: scheduler.ItemKick})
	return nil
}

// Stop tears the app down: stops polling, stops the backend, and disposes.
func (a *App) Stop(ctx context.Context) error {
	if a.cancelPoll != nil {
		a.cancelPoll()
	}
	// BeginStop bumps the lifecycle poll token; the poll loop itself exits on
	// the context a.cancelPoll has already cancelled.
	if _, err := a.lifecycle.BeginStop(); err != nil {
		return err
	}
	stopErr := a.backend.Stop(ctx)
	a.lifecycle.EndStop()
	a.backend.Dispose()
	a.lifecycle.Dispose()
	return stopErr
}

func (a *App) pollLoop(ctx context.Context) {
	for {
		batch, err := a.backend.PollEvents(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error(log.CatBackend, "poll failed", "error", err.Error())
			a.scheduler.Push(scheduler.Item{Kind: scheduler.ItemFatal, Payload: err})
			return
		}
		a.scheduler.Push(scheduler.Item{Kind: scheduler.ItemEventBatch, Payload: batch})
	}
}

// handleTurn is the scheduler's TurnHandler: it processes one batch of
// buffered work items, then always runs a commit/layout/render pass. A
// fatal item does not short-circuit the loop: every remaining item in the
// same batch is still drained (each ItemEventBatch still releases its held
// bytes) before the fault is raised and the commit pass is skipped.
func (a *App) handleTurn(items []scheduler.Item) {
	if a.lifecycle.State() != lifecycle.Running {
		return
	}
	a.focusAtTurnStart = a.router.Focus.FocusedID()

	var fatal error
	for _, it := range items {
		switch it.Kind {
		case scheduler.ItemFatal:
			if err, ok := it.Payload.(error); ok {
				fatal = err
			} else {
				fatal = fmt.Errorf("fatal item: %v", it.Payload)
			}
		case scheduler.ItemEventBatch:
			a.processBatch(it.Payload)
		case scheduler.ItemFrameDone:
			if a.framesInFlight > 0 {
				a.framesInFlight--
			}
			if a.framesInFlight == 0 {
				a.interactiveBudget = 0
			}
		case scheduler.ItemFrameError:
			log.Error(log.CatBackend, "frame ack reported an error")
			if a.framesInFlight > 0 {
				a.framesInFlight--
			}
		case scheduler.ItemUserCommit, scheduler.ItemKick, scheduler.ItemRenderRequest:
			// No per-item work; the commit pass below always runs.
		}
	}
	if fatal != nil {
		a.lifecycle.Fault()
		log.ErrorErr(log.CatLifecycle, "fatal item halted scheduler", fatal)
		return
	}
	a.commitAndRender()
}

func (a *App) processBatch(payload any) {
	raw, ok := payload.(backend.EventBatch)
	if !ok {
		return
	}
	defer func() {
		if raw.Release != nil {
			raw.Release()
		}
	}()

	batch, err := a.parser.Parse(raw.Bytes)
	if err != nil {
		log.ErrorErr(log.CatParser, "event batch parse failed", err)
		a.lifecycle.Fault()
		return
	}
	for _, ev := range batch.Events {
		if ev.Kind == eventparser.KindResize {
			bp := layout.Breakpoints{
				SmMax: a.cfg.Breakpoints.SmMax,
				MdMax: a.cfg.Breakpoints.MdMax,
				LgMax: a.cfg.Breakpoints.LgMax,
			}
			a.viewport = layout.Viewport{
				Width: int(ev.Resize.Width), Height: int(ev.Resize.Height),
				Breakpoint: bp.Classify(int(ev.Resize.Width)),
			}
		}
		res := a.router.Dispatch(ev)
		if res.NeedsLayout {
			a.dirty.Mark(layout.FlagLayout)
		}
		if isInteractiveEvent(ev.Kind) {
			a.interactiveBudget = 1
		}
	}
}

// isInteractiveEvent reports whether an event kind should temporarily
// raise the in-flight frame budget so input latency survives transport
// jitter.
func isInteractiveEvent(k eventparser.Kind) bool {
	switch k {
	case eventparser.KindKey, eventparser.KindMouse, eventparser.KindText, eventparser.KindPaste:
		return true
	default:
		return false
	}
}

func (a *App) commitAndRender() {
	ctx, _ := a.tracer.BeginTurn(context.Background())
	var turnErr error
	defer func() { a.tracer.EndTurn(ctx, turnErr) }()

	updaters := a.queue.Drain()
	if len(updaters) > 0 {
		next, err := a.foldUpdaters(updaters)
		if err != nil {
			log.ErrorErr(log.CatLifecycle, "updater panicked", err)
			a.lifecycle.Fault()
			turnErr = err
			return
		}
		a.appState = next
	}

	if err := a.lifecycle.AssertUpdateAllowed(); err != nil {
		log.ErrorErr(log.CatLifecycle, "update rejected", err)
		a.lifecycle.Fault()
		turnErr = err
		return
	}

	commitCtx := a.tracer.BeginPhase(ctx, tracing.PhaseCommit)
	commitStart := time.Now()
	a.lifecycle.EnterRenderOrCommit()
	next := a.render(a.appState)
	result, err := a.commit.Commit(a.appState, next)
	a.lifecycle.ExitRenderOrCommit()
	a.tracer.EndPhase(commitCtx, tracing.PhaseCommit,
		map[string]any{"duration_ms": msSince(commitStart)}, err)
	if err != nil {
		log.ErrorErr(log.CatCommit, "commit failed", err)
		a.lifecycle.Fault()
		turnErr = err
		return
	}

	dirtySnapshot := a.dirty.Snapshot()
	explicitDirty := a.dirty.Set(layout.FlagLayout)
	viewportChanged := a.viewport != a.layout.LastViewport()

	layoutCtx := a.tracer.BeginPhase(ctx, tracing.PhaseLayout)
	layoutStart := time.Now()
	if a.layout.NeedsRelayout(a.commit.Arena, result.RootID, a.viewport, false, explicitDirty) {
		a.layout.Run(a.commit.Arena, result.RootID, a.viewport, a.cfg.RootPadding)
	}
	a.tracer.EndPhase(layoutCtx, tracing.PhaseLayout,
		map[string]any{"duration_ms": msSince(layoutStart)}, nil)
	a.dirty.ClearSince(dirtySnapshot)

	if result.RoutingRelevant {
		a.rebuildRouting(result.RootID)
	}

	focusPrev := a.focusAtTurnStart
	focusNext := a.router.Focus.FocusedID()

	damage := a.layout.GatherDamageRects(
		result.Mounted, result.Unmounted, a.prevRects,
		focusPrev, focusNext, a.viewport,
	)
	if !damage.FullRender {
		transitionsActive := len(result.PendingExits) > 0
		overlayOpen := a.router.Layers.Any()
		if !layout.CanRenderIncremental(a.prevFrameRendered, explicitDirty, transitionsActive, viewportChanged, overlayOpen) {
			damage.FullRender = true
		}
	}
	a.prevRoot = result.RootID
	a.prevRects = cloneRects(a.layout.RectByInstanceID)

	if a.framesInFlight >= a.cfg.MaxFramesInFlight+a.interactiveBudget {
		log.Debug(log.CatBackend, "frame submission deferred, frames_in_flight cap reached")
		return
	}

	renderCtx := a.tracer.BeginPhase(ctx, tracing.PhaseRender)
	renderStart := time.Now()
	frame, err := a.buildFrame(damage)
	a.tracer.EndPhase(renderCtx, tracing.PhaseRender, map[string]any{
		"duration_ms":    msSince(renderStart),
		"drawlist_bytes": len(frame),
		"damage_rects":   len(damage.Rects),
	}, err)
	if err != nil {
		log.ErrorErr(log.CatBackend, "drawlist build failed", err)
		a.lifecycle.Fault()
		turnErr = err
		return
	}
	ack, err := a.backend.RequestFrame(frame)
	if err != nil {
		log.ErrorErr(log.CatBackend, "frame submission failed", err)
		turnErr = err
		return
	}
	a.prevFrameRendered = true
	a.framesInFlight++
	go func() {
		<-ack.Done
		a.scheduler.Push(scheduler.Item{Kind: scheduler.ItemFrameDone})
	}()
}

// foldUpdaters applies queued updaters over the current app state, recovering
// a panicking updater into a USER_CODE_THROW error instead of crashing the
// turn loop, mirroring the commit engine's composite-render error boundary.
func (a *App) foldUpdaters(updaters []updatequeue.Updater[any]) (next any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = lifecycle.NewError(lifecycle.UserCodeThrow, fmt.Sprintf("%v", r))
		}
	}()
	return updatequeue.Fold(a.appState, updaters), nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func cloneRects(m map[instance.ID]layout.Rect) map[instance.ID]layout.Rect {
	out := make(map[instance.ID]layout.Rect, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// buildFrame renders the committed, laid-out tree into drawlist opcodes.
// Widget-specific paint semantics beyond rects/text stay an external
// collaborator; on a full render every instance is painted, on an
// incremental render only instances whose rect falls within a damage
// region are, each wrapped in a push_clip/pop_clip pair for that region.
func (a *App) buildFrame(damage layout.Damage) ([]byte, error) {
	a.builder.Reset()

	paintAll := func(clip *layout.Rect) {
		a.commit.Arena.Walk(a.prevRoot, func(in *instance.Instance) bool {
			rect, ok := a.layout.RectByInstanceID[in.ID]
			if !ok {
				return true
			}
			if clip != nil && !rect.Intersects(*clip) {
				return true
			}
			if err := a.paintInstance(in, rect); err != nil {
				log.ErrorErr(log.CatBackend, "paint instance failed", err, "instance_id", in.ID)
			}
			return true
		})
	}

	if damage.FullRender || len(damage.Rects) == 0 {
		paintAll(nil)
	} else {
		for _, r := range damage.Rects {
			a.builder.PushClip(r)
			paintAll(&r)
			if err := a.builder.PopClip(); err != nil {
				return nil, err
			}
		}
	}
	return a.builder.Finish(a.cfg.MaxDrawlistBytes)
}

func (a *App) paintInstance(in *instance.Instance, rect layout.Rect) error {
	switch {
	case vnode.ProtocolFor(in.Kind).IsLeaf:
		if in.VNode.Props.Text == "" {
			return nil
		}
		return a.builder.DrawTextSlice(rect.X, rect.Y, in.VNode.Props.Text, drawlist.Style{})
	case vnode.ProtocolFor(in.Kind).IsContainer:
		return a.builder.FillRect(rect, drawlist.Style{})
	default:
		if in.VNode.Props.Text != "" {
			return a.builder.DrawTextSlice(rect.X, rect.Y, in.VNode.Props.Text, drawlist.Style{})
		}
		return nil
	}
}
