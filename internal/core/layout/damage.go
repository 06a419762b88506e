package layout

import (
	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

// IncrementalFallbackRatio is the merged-damage-area-vs-viewport-area
// threshold above which the engine falls back to a full render.
const IncrementalFallbackRatio = 0.45

// Damage describes one turn's damage computation.
type Damage struct {
	ChangedIDs []instance.ID
	RemovedIDs []instance.ID
	Rects      []Rect
	FullRender bool
}

// IdentityDiff computes changed and removed instance-id sets by walking
// commit metadata (mounted/reused-with-self-dirty/unmounted ids) rather than
// re-diffing trees, since the commit engine already produced this
// information. A subtree is damage-granular if its kind is leaf-like or
// explicitly interactive: traversal does not need to descend further into
// such nodes when recording damage (they are already leaves in the rect
// index).
func IdentityDiff(arena *instance.Arena, mounted, selfDirty, unmounted []instance.ID) Damage {
	d := Damage{}
	seen := make(map[instance.ID]bool)
	for _, id := range mounted {
		if !seen[id] {
			seen[id] = true
			d.ChangedIDs = append(d.ChangedIDs, id)
		}
	}
	for _, id := range selfDirty {
		if !seen[id] {
			seen[id] = true
			d.ChangedIDs = append(d.ChangedIDs, id)
		}
	}
	d.RemovedIDs = append(d.RemovedIDs, unmounted...)
	return d
}

// IsDamageGranular reports whether traversal should stop descending into a
// node when recording damage: leaves, and kinds explicitly marked
// interactive, are treated as a single opaque damage unit.
func IsDamageGranular(k vnode.Kind) bool {
	p := vnode.ProtocolFor(k)
	return p.IsLeaf || vnode.IsInteractive(k)
}

// IsRoutingRelevant reports whether a kind's presence/absence/change
// should trigger the router's routing-rebuild pass.
func IsRoutingRelevant(k vnode.Kind) bool {
	return vnode.ProtocolFor(k).RequiresRoutingRebuild
}

// CanRenderIncremental reports the incremental-render eligibility gate:
// a previous frame rendered, no explicit layout was requested this frame,
// no position/exit transitions are active, viewport and theme unchanged,
// and no overlay (dropdown/modal/toast container) is open.
func CanRenderIncremental(prevFrameRendered, explicitLayout, transitionsActive, viewportOrThemeChanged, overlayOpen bool) bool {
	return prevFrameRendered && !explicitLayout && !transitionsActive && !viewportOrThemeChanged && !overlayOpen
}

// GatherDamageRects collects rects for changed/removed instance ids plus
// focus-change deltas, clips them to the viewport, and merges overlapping or
// touching rects until stable. If the merged area exceeds
// IncrementalFallbackRatio of the viewport area, it reports FullRender=true
// instead.
func (e *Engine) GatherDamageRects(changedIDs, removedIDs []instance.ID, prevRects map[instance.ID]Rect, focusPrevPublicID, focusNextPublicID string, vp Viewport) Damage {
	viewportRect := Rect{W: vp.Width, H: vp.Height}

	var rects []Rect
	addClipped := func(r Rect) {
		clipped := clip(r, viewportRect)
		if clipped.W > 0 && clipped.H > 0 {
			rects = append(rects, clipped)
		}
	}

	for _, id := range changedIDs {
		if r, ok := e.RectByInstanceID[id]; ok {
			addClipped(r)
		}
	}
	for _, id := range removedIDs {
		if r, ok := prevRects[id]; ok {
			addClipped(r)
		}
	}
	if focusPrevPublicID != "" {
		if r, ok := e.RectByPublicID[focusPrevPublicID]; ok {
			addClipped(r)
		}
	}
	if focusNextPublicID != "" {
		if r, ok := e.RectByPublicID[focusNextPublicID]; ok {
			addClipped(r)
		}
	}

	merged := mergeRects(rects)

	total := 0
	for _, r := range merged {
		total += r.Area()
	}
	viewportArea := vp.Width * vp.Height
	fullRender := viewportArea > 0 && float64(total)/float64(viewportArea) > IncrementalFallbackRatio

	return Damage{
		ChangedIDs: changedIDs,
		RemovedIDs: removedIDs,
		Rects:      merged,
		FullRender: fullRender,
	}
}

func clip(r, bounds Rect) Rect {
	x0 := max(r.X, bounds.X)
	y0 := max(r.Y, bounds.Y)
	x1 := min(r.X+r.W, bounds.X+bounds.W)
	y1 := min(r.Y+r.H, bounds.Y+bounds.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// mergeRects repeatedly unions overlapping or touching rects until no pair
// can be merged further.
func mergeRects(rects []Rect) []Rect {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(rects); i++ {
			for j := i + 1; j < len(rects); j++ {
				if rects[i].Touches(rects[j]) {
					rects[i] = rects[i].Union(rects[j])
					rects = append(rects[:j], rects[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return rects
}
