// Package router implements the event routing core: focus traversal with
// zones/traps, overlay precedence, per-widget keyboard/mouse routing, and
// input editing with clipboard and undo.
package router

import (
	"time"

	"github.com/charmbracelet/bubbles/key"

	"github.com/zjrosen/tuicore/internal/core/eventparser"
	"github.com/zjrosen/tuicore/internal/core/vnode"
	"github.com/zjrosen/tuicore/internal/keys"
	"github.com/zjrosen/tuicore/internal/log"
)

// DoublePressWindow is the max interval between a press and a second press
// on the same id to be treated as a double-press (table/tree/list rows).
const DoublePressWindow = 500 * time.Millisecond

// Result is the router's per-event outcome.
type Result struct {
	Consumed    bool
	NeedsRender bool
	NeedsLayout bool
	// DoublePress reports that this result's mouse-up release landed on the
	// same focusable as the previous release within DoublePressWindow
	// (table/tree/list row activation).
	DoublePress bool
}

// WidgetHandler is a focused complex widget's dedicated small state
// machine, keyed by the focused node's kind. Each handler reports whether
// it consumed the event.
type WidgetHandler func(ev eventparser.Event, focusedID string) bool

// FocusableInfo is what the router needs to know about one focusable node
// to route mouse events to it, supplied by the layout engine's rect index
// plus the committed tree's kind/disabled state.
type FocusableInfo struct {
	ID       string
	Kind     vnode.Kind
	Rect     Rect
	Disabled bool
	// Overflow == "scroll" marks a scrollable ancestor for wheel routing.
	Scrollable bool
	// OnInput is the committed node's input-edit callback, invoked after an
	// editing mutation with the input's resulting value and cursor.
	OnInput func(value string, cursor int)
}

// Router dispatches parsed events to focus/overlays/widgets and owns input
// editing, clipboard, and undo/redo state.
type Router struct {
	Focus   *FocusState
	Layers  LayerStack
	Overlay *ShortcutTrie

	widgetHandlers map[vnode.Kind]WidgetHandler
	inputStates    map[string]*InputEditingState
	rawWriter      RawWriter

	focusables map[string]FocusableInfo // public id -> info, refreshed after each routing-relevant commit

	pressedID     string
	pressStart    time.Time
	lastPressID   string
	lastPressTime time.Time

	splitDrag *splitDragState
}

type splitDragState struct {
	paneID   string
	dividerX int
}

// New returns an empty Router.
func New() *Router {
	return &Router{
		Focus:          NewFocusState(),
		Overlay:        NewShortcutTrie(),
		widgetHandlers: make(map[vnode.Kind]WidgetHandler),
		inputStates:    make(map[string]*InputEditingState),
		focusables:     make(map[string]FocusableInfo),
	}
}

// SetRawWriter installs the backend's OSC52 raw-write capability, used as
// a clipboard-cut fallback.
func (r *Router) SetRawWriter(w RawWriter) {
	r.rawWriter = w
}

// RegisterWidgetHandler installs the dedicated state machine for a focused
// complex widget kind (command palette, tool approval, file tree explorer,
// file picker, code editor, logs console, diff viewer, virtual list, table,
// tree, slider, select, checkbox, radio group).
func (r *Router) RegisterWidgetHandler(k vnode.Kind, h WidgetHandler) {
	r.widgetHandlers[k] = h
}

// SetFocusables replaces the router's public-id -> info map, called after
// any commit whose damage was routing-relevant.
func (r *Router) SetFocusables(infos map[string]FocusableInfo) {
	r.focusables = infos
}

// InputState returns (creating if absent) the editing state for a focused
// input instance.
func (r *Router) InputState(id, controlledValue string) *InputEditingState {
	s, ok := r.inputStates[id]
	if !ok {
		s = NewInputEditingState(id, controlledValue)
		r.inputStates[id] = s
	} else {
		s.SyncControlled(controlledValue)
	}
	return s
}

// ForgetInputState drops editing state for an id that left the committed
// tree (GC'd alongside its widget-local state).
func (r *Router) ForgetInputState(id string) {
	delete(r.inputStates, id)
}

// Dispatch routes one parsed event through the full precedence chain.
func (r *Router) Dispatch(ev eventparser.Event) Result {
	switch ev.Kind {
	case eventparser.KindKey:
		return r.dispatchKey(ev)
	case eventparser.KindMouse:
		return r.dispatchMouse(ev)
	case eventparser.KindText:
		return r.dispatchText(ev)
	case eventparser.KindPaste:
		return r.dispatchPaste(ev)
	case eventparser.KindResize:
		return Result{NeedsRender: true, NeedsLayout: true}
	case eventparser.KindFocus, eventparser.KindBlur, eventparser.KindTick:
		return Result{}
	default:
		return Result{}
	}
}

// dispatchKey implements precedence steps 1-3, 8, 13, 15 for key events.
func (r *Router) dispatchKey(ev eventparser.Event) Result {
	k := ev.Key.Key

	// 1. Overlay key shortcuts.
	switch r.Overlay.Route(k) {
	case ChordMatched:
		return Result{Consumed: true, NeedsRender: true}
	case ChordPending:
		return Result{Consumed: true}
	}

	// 2. Topmost dropdown navigation.
	if top := r.Layers.TopOfKind(LayerDropdown); top != nil {
		switch {
		case matchesKey(k, keys.Dropdown.Up), matchesKey(k, keys.Dropdown.Down):
			return Result{Consumed: true, NeedsRender: true}
		case matchesKey(k, keys.Dropdown.Select):
			r.Layers.Remove(top.ID)
			return Result{Consumed: true, NeedsRender: true}
		case matchesKey(k, keys.Dropdown.Close):
			r.Layers.Remove(top.ID)
			return Result{Consumed: true, NeedsRender: true}
		}
	}

	// 3. Layer/modal Escape, walking the layer stack top-down.
	if matchesKey(k, keys.Modal.Escape) {
		for i := len(r.Layers.layers) - 1; i >= 0; i-- {
			l := r.Layers.layers[i]
			if l.Kind == LayerModal && l.CloseOnEscape {
				r.Layers.Remove(l.ID)
				r.Focus.PopTrap()
				return Result{Consumed: true, NeedsRender: true}
			}
		}
	}

	// 8. Focused complex widget key routing.
	focusedID := r.Focus.FocusedID()
	if focusedID != "" {
		if info, ok := r.focusables[focusedID]; ok {
			if h, ok := r.widgetHandlers[info.Kind]; ok {
				if h(ev, focusedID) {
					return Result{Consumed: true, NeedsRender: true}
				}
			}
		}
	}

	// 13. Focus traversal.
	if matchesKey(k, keys.FocusTraversal.Next) {
		r.Focus.Next()
		return Result{Consumed: true, NeedsRender: true}
	}
	if matchesKey(k, keys.FocusTraversal.Prev) {
		r.Focus.Prev()
		return Result{Consumed: true, NeedsRender: true}
	}

	// 15. Input editing on focused non-disabled input.
	if focusedID != "" {
		if info, ok := r.focusables[focusedID]; ok && info.Kind == vnode.KindInput && !info.Disabled {
			if r.routeInputEditing(focusedID, k, info.OnInput) {
				return Result{Consumed: true, NeedsRender: true}
			}
		}
	}

	return Result{}
}

func (r *Router) routeInputEditing(id, k string, onInput func(value string, cursor int)) bool {
	s, ok := r.inputStates[id]
	if !ok {
		return false
	}
	shift := false
	mutated := true
	switch {
	case matchesKey(k, keys.InputEditing.Left):
		s.MoveCursor(-1, shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.Right):
		s.MoveCursor(1, shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.WordLeft):
		s.MoveWord(-1, shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.WordRight):
		s.MoveWord(1, shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.Home):
		s.Home(shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.End):
		s.End(shift)
		mutated = false
	case matchesKey(k, keys.InputEditing.Backspace):
		s.Backspace()
	case matchesKey(k, keys.InputEditing.Delete):
		s.Delete()
	case matchesKey(k, keys.InputEditing.DeleteWord):
		s.DeleteWord()
	case matchesKey(k, keys.InputEditing.Undo):
		s.Undo()
	case matchesKey(k, keys.InputEditing.Redo):
		s.Redo()
	case matchesKey(k, keys.InputEditing.Cut):
		if err := s.Cut(r.rawWriter); err != nil {
			log.Warn(log.CatRouter, "cut fallback failed", "error", err.Error())
		}
	case matchesKey(k, keys.InputEditing.Copy):
		mutated = false
		if err := s.Copy(); err != nil {
			log.Warn(log.CatRouter, "copy to clipboard failed", "error", err.Error())
		}
	case matchesKey(k, keys.InputEditing.Paste):
		if err := s.PasteFromClipboard(); err != nil {
			log.Warn(log.CatRouter, "paste from clipboard failed", "error", err.Error())
		}
	case matchesKey(k, keys.InputEditing.SelectAll):
		s.SelectAll()
		mutated = false
	default:
		return false
	}
	if mutated && onInput != nil {
		onInput(s.Working, s.Cursor)
	}
	return true
}

// dispatchText inserts a single codepoint into the focused input (step 10
// covers palette/code-editor text insertion; plain inputs insert here).
func (r *Router) dispatchText(ev eventparser.Event) Result {
	focusedID := r.Focus.FocusedID()
	if focusedID == "" {
		return Result{}
	}
	info, ok := r.focusables[focusedID]
	if !ok || info.Disabled {
		return Result{}
	}
	if h, ok := r.widgetHandlers[info.Kind]; ok {
		if h(ev, focusedID) {
			return Result{Consumed: true, NeedsRender: true}
		}
	}
	if info.Kind != vnode.KindInput {
		return Result{}
	}
	s, ok := r.inputStates[focusedID]
	if !ok {
		return Result{}
	}
	s.InsertText(string(ev.Text))
	if info.OnInput != nil {
		info.OnInput(s.Working, s.Cursor)
	}
	return Result{Consumed: true, NeedsRender: true}
}

func (r *Router) dispatchPaste(ev eventparser.Event) Result {
	focusedID := r.Focus.FocusedID()
	if focusedID == "" {
		return Result{}
	}
	info, ok := r.focusables[focusedID]
	if !ok || info.Disabled || info.Kind != vnode.KindInput {
		return Result{}
	}
	s, ok := r.inputStates[focusedID]
	if !ok {
		return Result{}
	}
	s.Paste(ev.Paste)
	if info.OnInput != nil {
		info.OnInput(s.Working, s.Cursor)
	}
	return Result{Consumed: true, NeedsRender: true}
}

// dispatchMouse implements precedence steps 4-7, 9, 11-12, 14.
func (r *Router) dispatchMouse(ev eventparser.Event) Result {
	x, y := int(ev.Mouse.X), int(ev.Mouse.Y)

	// 4. Mouse dropdown open-state routing.
	if top := r.Layers.TopOfKind(LayerDropdown); top != nil {
		for _, item := range top.Items {
			if item.Rect.contains(x, y) {
				if ev.Mouse.MouseKind == eventparser.MouseUp {
					r.Layers.Remove(top.ID)
					return Result{Consumed: true, NeedsRender: true}
				}
				return Result{Consumed: true}
			}
		}
		if ev.Mouse.MouseKind == eventparser.MouseDown {
			r.Layers.Remove(top.ID)
			return Result{Consumed: true, NeedsRender: true}
		}
	}

	// 5. Mouse backdrop routing for modals with closeOnBackdrop.
	if top := r.Layers.TopOfKind(LayerModal); top != nil && top.CloseOnBackdrop {
		if info, ok := r.focusables[top.ID]; ok && !info.Rect.contains(x, y) && ev.Mouse.MouseKind == eventparser.MouseDown {
			r.Layers.Remove(top.ID)
			r.Focus.PopTrap()
			return Result{Consumed: true, NeedsRender: true}
		}
	}

	// 6. Split-pane divider drag.
	if res, handled := r.dispatchSplitPane(ev, x, y); handled {
		return res
	}

	// 7. Toast container mouse.
	if top := r.Layers.TopOfKind(LayerToastContainer); top != nil {
		for _, item := range top.Items {
			if item.Rect.contains(x, y) && ev.Mouse.MouseKind == eventparser.MouseUp {
				r.Layers.Remove(item.ID)
				return Result{Consumed: true, NeedsRender: true}
			}
		}
	}

	// 8 (mouse branch). Focused complex widget mouse routing.
	focusedID := r.Focus.FocusedID()
	if focusedID != "" {
		if info, ok := r.focusables[focusedID]; ok {
			if h, ok := r.widgetHandlers[info.Kind]; ok && h(ev, focusedID) {
				return Result{Consumed: true, NeedsRender: true}
			}
		}
	}

	// 9. Mouse wheel to nearest scrollable ancestor.
	if ev.Mouse.MouseKind == eventparser.MouseWheel {
		if id := r.nearestScrollable(x, y); id != "" {
			return Result{Consumed: true, NeedsRender: true}
		}
		return Result{}
	}

	// 11-12, 14. Default press/release pairing and hit testing.
	return r.dispatchClick(ev, x, y)
}

func (r *Router) dispatchSplitPane(ev eventparser.Event, x, y int) (Result, bool) {
	if r.splitDrag == nil {
		return Result{}, false
	}
	switch ev.Mouse.MouseKind {
	case eventparser.MouseMove:
		r.splitDrag.dividerX = x
		return Result{Consumed: true, NeedsRender: true, NeedsLayout: true}, true
	case eventparser.MouseUp:
		r.splitDrag = nil
		return Result{Consumed: true}, true
	}
	return Result{}, false
}

// StartSplitDrag begins a divider drag, called by the caller once it
// detects a mouse-down near a split-pane divider (the divider's exact hit
// region is a layout concern, supplied by the caller).
func (r *Router) StartSplitDrag(paneID string, x int) {
	r.splitDrag = &splitDragState{paneID: paneID, dividerX: x}
}

func (r *Router) nearestScrollable(x, y int) string {
	for id, info := range r.focusables {
		if info.Scrollable && info.Rect.contains(x, y) {
			return id
		}
	}
	return ""
}

func (r *Router) dispatchClick(ev eventparser.Event, x, y int) Result {
	switch ev.Mouse.MouseKind {
	case eventparser.MouseDown:
		for id, info := range r.focusables {
			if info.Disabled || !info.Rect.contains(x, y) {
				continue
			}
			r.pressedID = id
			r.pressStart = time.Now()
			if info.Kind != vnode.KindText && info.Kind != vnode.KindSpacer {
				r.Focus.SetFocus(id)
			}
			return Result{Consumed: true, NeedsRender: true}
		}
	case eventparser.MouseUp:
		if r.pressedID == "" {
			return Result{}
		}
		info, ok := r.focusables[r.pressedID]
		pressed := r.pressedID
		r.pressedID = ""
		if !ok || !info.Rect.contains(x, y) {
			return Result{}
		}
		isDouble := pressed == r.lastPressID && time.Since(r.lastPressTime) <= DoublePressWindow
		r.lastPressID = pressed
		r.lastPressTime = time.Now()
		if isDouble {
			// A second press on the same target resets the window instead
			// of chaining into a triple-press; the next press starts fresh.
			r.lastPressID = ""
		}
		return Result{Consumed: true, NeedsRender: true, DoublePress: isDouble}
	}
	return Result{}
}

// matchesKey reports whether a decoded key string satisfies one of
// binding's registered keys, mirroring bubbles/key.Matches without
// requiring a tea.KeyMsg.
func matchesKey(decoded string, binding key.Binding) bool {
	if !binding.Enabled() {
		return false
	}
	for _, k := range binding.Keys() {
		if k == decoded {
			return true
		}
	}
	return false
}
