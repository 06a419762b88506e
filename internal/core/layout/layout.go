// Package layout computes rects for a committed instance tree, tracks
// dirty/damage state, and decides between incremental and full render.
package layout

import (
	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/vnode"
	"github.com/zjrosen/tuicore/internal/log"
)

// MaxNestingDepth is the maximum layout nesting depth (§3); WarnDepth is the
// depth at which the engine starts logging a warning.
const (
	MaxNestingDepth = 500
	WarnDepth       = 200
)

// Rect is an integer-cell rectangle.
type Rect struct {
	X, Y, W, H int
}

// Intersects reports whether r and other share any cell.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// Touches reports whether r and other are adjacent or overlapping, so they
// can be merged into a single damage rect.
func (r Rect) Touches(other Rect) bool {
	return r.X <= other.X+other.W && other.X <= r.X+r.W &&
		r.Y <= other.Y+other.H && other.Y <= r.Y+r.H
}

// Union returns the smallest rect containing both r and other.
func (r Rect) Union(other Rect) Rect {
	x0 := min(r.X, other.X)
	y0 := min(r.Y, other.Y)
	x1 := max(r.X+r.W, other.X+other.W)
	y1 := max(r.Y+r.H, other.Y+other.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Area returns the rect's cell area.
func (r Rect) Area() int { return r.W * r.H }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Viewport is the current terminal cell dimensions and derived responsive
// breakpoint.
type Viewport struct {
	Width, Height int
	Breakpoint    string // "sm" | "md" | "lg" | "xl"
}

// Breakpoints holds the width thresholds Classify maps a viewport width
// against.
type Breakpoints struct {
	SmMax, MdMax, LgMax int
}

// Classify derives the breakpoint name for a width.
func (b Breakpoints) Classify(width int) string {
	switch {
	case width <= b.SmMax:
		return "sm"
	case width <= b.MdMax:
		return "md"
	case width <= b.LgMax:
		return "lg"
	default:
		return "xl"
	}
}

// DirtyFlag is one of the three app-level coarse-grained signals.
type DirtyFlag int

const (
	FlagRender DirtyFlag = iota
	FlagLayout
	FlagView
	numFlags
)

// DirtyVersions tracks a version counter per flag; commit/render consumes a
// snapshot of versions, and on clear only flags whose versions are
// unchanged since the snapshot are cleared, so concurrent marks survive.
type DirtyVersions struct {
	versions [numFlags]uint64
}

// Mark bumps a flag's version.
func (d *DirtyVersions) Mark(f DirtyFlag) {
	d.versions[f]++
}

// Snapshot captures the current versions.
func (d *DirtyVersions) Snapshot() [numFlags]uint64 {
	return d.versions
}

// Set reports whether a flag has been marked since the zero-version state.
func (d *DirtyVersions) Set(f DirtyFlag) bool {
	return d.versions[f] > 0
}

// ClearSince clears flags whose version matches the snapshot exactly (i.e.
// no mark arrived concurrently since the snapshot was taken).
func (d *DirtyVersions) ClearSince(snapshot [numFlags]uint64) {
	for f := DirtyFlag(0); f < numFlags; f++ {
		if d.versions[f] == snapshot[f] {
			d.versions[f] = 0
		}
	}
}

// Engine computes and caches layout for a committed tree.
type Engine struct {
	RectByInstanceID map[instance.ID]Rect
	RectByPublicID   map[string]Rect

	signatures map[instance.ID]uint64

	lastViewport Viewport
	lastRoot     instance.ID
	hasRun       bool
}

// LastViewport returns the viewport the last Run call laid out against, for
// callers deciding whether the viewport changed since then.
func (e *Engine) LastViewport() Viewport {
	return e.lastViewport
}

// NewEngine returns an empty layout Engine.
func NewEngine() *Engine {
	return &Engine{
		RectByInstanceID: make(map[instance.ID]Rect),
		RectByPublicID:   make(map[string]Rect),
		signatures:       make(map[instance.ID]uint64),
	}
}

// NeedsRelayout reports whether layout must be re-run: the viewport or
// theme changed, explicit layout dirty was requested, the committed root is
// new, or any instance's layout-stability signature diverged since the last
// frame.
func (e *Engine) NeedsRelayout(arena *instance.Arena, root instance.ID, vp Viewport, themeChanged, explicitDirty bool) bool {
	if !e.hasRun {
		return true
	}
	if vp != e.lastViewport || themeChanged || explicitDirty {
		return true
	}
	if root != e.lastRoot {
		return true
	}

	changed := false
	arena.Walk(root, func(in *instance.Instance) bool {
		if sig, ok := e.signatures[in.ID]; !ok || sig != in.LayoutSignature {
			changed = true
			return false
		}
		return true
	})
	return changed
}

// Run computes rects for the committed tree rooted at root within vp, and
// updates the signature cache.
func (e *Engine) Run(arena *instance.Arena, root instance.ID, vp Viewport, padding int) {
	clear(e.RectByInstanceID)
	clear(e.RectByPublicID)

	bounds := Rect{X: padding, Y: padding, W: max(0, vp.Width-2*padding), H: max(0, vp.Height-2*padding)}
	e.layoutNode(arena, root, bounds, 0)

	e.signatures = make(map[instance.ID]uint64)
	arena.Walk(root, func(in *instance.Instance) bool {
		e.signatures[in.ID] = in.LayoutSignature
		return true
	})

	e.lastViewport = vp
	e.lastRoot = root
	e.hasRun = true
}

// layoutNode assigns a rect to one instance and recurses into children. The
// leaf sizing/flex algorithm itself is intentionally simple: rows and split
// panes divide the width evenly among children left to right, and every other
// kind divides the height evenly top-down, since text shaping and
// measurement stay external collaborators.
func (e *Engine) layoutNode(arena *instance.Arena, id instance.ID, bounds Rect, depth int) {
	in, ok := arena.Get(id)
	if !ok {
		return
	}
	if depth > MaxNestingDepth {
		log.Error(log.CatLayout, "layout nesting depth exceeded", "instance_id", id)
		return
	}
	if depth == WarnDepth {
		log.Warn(log.CatLayout, "layout nesting depth approaching limit", "instance_id", id, "depth", depth)
	}

	e.RectByInstanceID[id] = bounds
	if in.VNode.Props.ID != "" {
		e.RectByPublicID[in.VNode.Props.ID] = bounds
	}

	n := len(in.Children)
	if n == 0 {
		return
	}

	switch in.Kind {
	case vnode.KindRow, vnode.KindSplitPane:
		colW := bounds.W / n
		for i, c := range in.Children {
			e.layoutNode(arena, c, Rect{X: bounds.X + i*colW, Y: bounds.Y, W: colW, H: bounds.H}, depth+1)
		}
	default:
		rowH := bounds.H / n
		for i, c := range in.Children {
			e.layoutNode(arena, c, Rect{X: bounds.X, Y: bounds.Y + i*rowH, W: bounds.W, H: rowH}, depth+1)
		}
	}
}
