package app

import (
	"fmt"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/router"
	"github.com/zjrosen/tuicore/internal/core/vnode"
)

// rebuildRouting walks the freshly committed tree to refresh the router's
// focus zones, trap stack, overlay layers, and focusable/hit-test index.
// Called only when the commit's damage touched a routing-relevant kind
// (focus zones, focus traps, modals, dropdowns, toast containers, tabs,
// split panes). The walk is idempotent: a trap or layer already open from a
// previous rebuild is never pushed twice, and one that is no longer present
// in the committed tree is popped/removed here rather than waiting on a
// user-driven Escape/close that may never come (the owning instance simply
// unmounted).
func (a *App) rebuildRouting(root instance.ID) {
	rootZone := &router.Zone{ID: "", Navigation: "linear"}
	zones := []*router.Zone{rootZone}
	infos := make(map[string]router.FocusableInfo)
	presentLayers := make(map[string]bool)
	presentTraps := make(map[string]bool)

	var walk func(id instance.ID, zoneAcc, trapAcc *[]string)
	walk = func(id instance.ID, zoneAcc, trapAcc *[]string) {
		in, ok := a.commit.Arena.Get(id)
		if !ok {
			return
		}
		key := routingKey(in)

		if in.VNode.Props.ID != "" && vnode.IsInteractive(in.Kind) {
			rect := a.layout.RectByInstanceID[in.ID]
			infos[in.VNode.Props.ID] = router.FocusableInfo{
				ID:         in.VNode.Props.ID,
				Kind:       in.Kind,
				Rect:       router.Rect{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H},
				Disabled:   in.VNode.Props.Disabled,
				Scrollable: in.VNode.Props.Overflow == "scroll",
				OnInput:    in.VNode.Props.OnInput,
			}
			switch {
			case trapAcc != nil:
				*trapAcc = append(*trapAcc, in.VNode.Props.ID)
			case zoneAcc != nil:
				*zoneAcc = append(*zoneAcc, in.VNode.Props.ID)
			}
		}

		switch in.Kind {
		case vnode.KindFocusZone:
			z := &router.Zone{
				ID:         key,
				Navigation: in.VNode.Props.Navigation,
				Columns:    in.VNode.Props.Columns,
				WrapAround: in.VNode.Props.WrapAround,
			}
			zones = append(zones, z)
			for _, c := range in.Children {
				walk(c, &z.Focusables, trapAcc)
			}
			return

		case vnode.KindModal, vnode.KindFocusTrap:
			trap := &[]string{}
			for _, c := range in.Children {
				walk(c, zoneAcc, trap)
			}
			presentTraps[key] = true
			if !a.router.Focus.HasTrap(key) {
				a.router.Focus.PushTrap(key, *trap)
			}
			if in.Kind == vnode.KindModal {
				presentLayers[key] = true
				if !a.router.Layers.Has(key) {
					a.router.Layers.Push(&router.Layer{
						Kind:            router.LayerModal,
						ID:              key,
						CloseOnEscape:   in.VNode.Props.CloseOnEscape,
						CloseOnBackdrop: in.VNode.Props.CloseOnBackdrop,
						OnClose:         func() { a.router.Focus.PopTrapFor(key) },
					})
				}
			}
			return

		case vnode.KindDropdown:
			presentLayers[key] = true
			if !a.router.Layers.Has(key) {
				a.router.Layers.Push(&router.Layer{
					Kind:            router.LayerDropdown,
					ID:              key,
					CloseOnEscape:   in.VNode.Props.CloseOnEscape,
					CloseOnBackdrop: in.VNode.Props.CloseOnBackdrop,
				})
			}

		case vnode.KindToastContainer:
			presentLayers[key] = true
			if !a.router.Layers.Has(key) {
				a.router.Layers.Push(&router.Layer{Kind: router.LayerToastContainer, ID: key})
			}
		}

		for _, c := range in.Children {
			walk(c, zoneAcc, trapAcc)
		}
	}
	walk(root, &rootZone.Focusables, nil)

	a.router.Focus.SetZones(zones)
	a.router.SetFocusables(infos)

	for id := range a.openLayers {
		if !presentLayers[id] {
			a.router.Layers.Remove(id)
		}
	}
	for id := range a.openTraps {
		if !presentTraps[id] {
			a.router.Focus.PopTrapFor(id)
		}
	}
	a.openLayers = presentLayers
	a.openTraps = presentTraps
}

// routingKey returns the stable id a committed instance is tracked under
// for trap/layer push-once and pop-on-unmount reconciliation. Most
// routing-relevant kinds carry a public Props.ID, but a couple (modal,
// toast container) don't require one per the vnode protocol table, so
// those fall back to the arena instance id, which is just as stable across
// recommits that keep matching the same widget-key.
func routingKey(in *instance.Instance) string {
	if in.VNode.Props.ID != "" {
		return in.VNode.Props.ID
	}
	return fmt.Sprintf("#%d", in.ID)
}
