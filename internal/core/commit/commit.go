// Package commit implements the reconciliation pass that turns a VNode tree
// into a runtime instance tree with stable ids: pairwise child matching,
// in-place mutation for unchanged props, composite hook state, error
// boundary isolation, exit-animation scheduling, and duplicate-id
// enforcement.
package commit

import (
	"fmt"
	"time"

	"github.com/zjrosen/tuicore/internal/core/instance"
	"github.com/zjrosen/tuicore/internal/core/lifecycle"
	"github.com/zjrosen/tuicore/internal/core/vnode"
	"github.com/zjrosen/tuicore/internal/log"
)

// MaxCompositeDepth bounds recursion through composite widgets (§3).
const MaxCompositeDepth = 100

// Effect is a composite's pending effect: Run fires after commit, Cleanup
// fires strictly before the next turn's effects (or on unmount).
type Effect struct {
	InstanceID instance.ID
	Run        func()
	Cleanup    func()
}

// PendingExitAnimation snapshots an unmounting subtree whose declared
// exitTransition duration is > 0, deferring its local-state cleanup until
// the animation completes or is cancelled by re-entry.
type PendingExitAnimation struct {
	Snapshot  vnode.VNode
	ParentID  instance.ID
	Key       string
	Kind      vnode.Kind
	StartedAt time.Time
	Duration  time.Duration
	Easing    string
	Cleanup   func()
	cancelled bool
}

// hookState is a composite instance's per-instance hook storage.
type hookState struct {
	widgetKey  string
	generation uint64
	selectors  []selectorRecord
	effects    []Effect
	childRoot  instance.ID
}

type selectorRecord struct {
	name    string
	value   any
	compute func(appState any) any
	equal   func(a, b any) bool
}

// errorRecord remembers a fatal USER_CODE_THROW captured under an error
// boundary's structural-lineage path.
type errorRecord struct {
	err         error
	clearOnNext bool
}

// Result is the commit engine's per-commit output.
type Result struct {
	RootID          instance.ID
	Mounted         []instance.ID
	Reused          []instance.ID
	Unmounted       []instance.ID
	PendingExits    []*PendingExitAnimation
	PendingEffects  []Effect
	RoutingRelevant bool
}

// Engine reconciles VNode trees into the instance arena.
type Engine struct {
	Alloc *instance.Allocator
	Arena *instance.Arena

	composites      map[instance.ID]*hookState
	errorBoundaries map[string]*errorRecord
	exits           map[string]*PendingExitAnimation // key: fmt.Sprintf("%d|%d|%s", parentID, kind, key)

	renderDepth int
}

// New returns an Engine over a fresh arena and allocator.
func New() *Engine {
	return &Engine{
		Alloc:           instance.NewAllocator(),
		Arena:           instance.NewArena(),
		composites:      make(map[instance.ID]*hookState),
		errorBoundaries: make(map[string]*errorRecord),
		exits:           make(map[string]*PendingExitAnimation),
	}
}

// Commit reconciles next against the engine's current tree and returns the
// new root id plus commit metadata, or a fatal error. appState is threaded
// into composite render functions and selector recomputation.
func (e *Engine) Commit(appState any, next vnode.VNode) (Result, error) {
	res := Result{}
	ids := make(map[string]vnode.Kind)

	prevRoot, hasPrev := e.Arena.Get(e.Arena.Root())
	var prevRootID instance.ID
	if hasPrev {
		prevRootID = prevRoot.ID
	}

	newRoot, err := e.reconcile(instance.NoParent, prevRootID, hasPrev, next, appState, ids, &res)
	if err != nil {
		return Result{}, err
	}
	e.Arena.SetRoot(newRoot)
	res.RootID = newRoot
	return res, nil
}

func idKey(parentID instance.ID, kind vnode.Kind, key string) string {
	return fmt.Sprintf("%d|%d|%s", parentID, kind, key)
}

// reconcile matches one (prev, next) pair and returns the resulting
// instance id.
func (e *Engine) reconcile(parentID, prevID instance.ID, hasPrev bool, next vnode.VNode, appState any, ids map[string]vnode.Kind, res *Result) (instance.ID, error) {
	if next.Props.ID != "" {
		if existing, dup := ids[next.Props.ID]; dup {
			return 0, lifecycle.NewError(lifecycle.DuplicateID,
				fmt.Sprintf("id %q used by both %s and %s", next.Props.ID, existing, next.Kind))
		}
		ids[next.Props.ID] = next.Kind
	}

	if next.Kind == vnode.KindComposite {
		return e.reconcileComposite(parentID, prevID, hasPrev, next, appState, ids, res)
	}

	if next.Kind == vnode.KindErrorBoundary {
		return e.reconcileErrorBoundary(parentID, prevID, hasPrev, next, appState, ids, res)
	}

	prev, prevOK := e.Arena.Get(prevID)
	matches := hasPrev && prevOK && prev.Kind == next.Kind

	protocol := vnode.ProtocolFor(next.Kind)

	if matches && protocol.IsLeaf {
		if prev.VNode.Equal(next) {
			res.Reused = append(res.Reused, prev.ID)
			return prev.ID, nil
		}
		prev.VNode = next
		prev.SelfDirty = true
		e.Arena.Put(prev)
		res.Reused = append(res.Reused, prev.ID)
		return prev.ID, nil
	}

	if matches && !protocol.IsLeaf {
		childIDs, changed, err := e.reconcileChildren(prev.ID, prev, next, appState, ids, res)
		if err != nil {
			return 0, err
		}
		propsEqual := prev.VNode.Equal(next)
		switch {
		case propsEqual && !changed:
			prev.SelfDirty = false
			res.Reused = append(res.Reused, prev.ID)
		case propsEqual && changed:
			prev.VNode = next
			prev.Children = childIDs
			prev.SelfDirty = true
			res.Reused = append(res.Reused, prev.ID)
		default:
			prev.VNode = next
			prev.Children = childIDs
			prev.SelfDirty = true
			res.Reused = append(res.Reused, prev.ID)
		}
		if sig := next.LayoutSignature(); sig != prev.LayoutSignature {
			prev.LayoutSignature = sig
			prev.SelfDirty = true
		}
		e.Arena.Put(prev)
		if protocol.RequiresRoutingRebuild {
			res.RoutingRelevant = true
		}
		return prev.ID, nil
	}

	// No match: allocate fresh, unmount the previous subtree (scheduling
	// exit animations where declared).
	if hasPrev && prevOK {
		e.unmount(prev, res)
	}
	newID := e.Alloc.Next()
	childIDs, _, err := e.reconcileChildren(0, nil, next, appState, ids, res)
	if err != nil {
		return 0, err
	}
	in := &instance.Instance{
		ID:              newID,
		ParentID:        parentID,
		Kind:            next.Kind,
		VNode:           next,
		Children:        childIDs,
		SelfDirty:       true,
		LayoutSignature: next.LayoutSignature(),
	}
	e.Arena.Put(in)
	res.Mounted = append(res.Mounted, newID)
	if protocol.RequiresRoutingRebuild || vnode.IsInteractive(next.Kind) {
		res.RoutingRelevant = true
	}
	key := idKey(parentID, next.Kind, next.Props.Key)
	if pending, ok := e.exits[key]; ok && !pending.cancelled {
		pending.Cleanup()
		pending.cancelled = true
		delete(e.exits, key)
	}
	return newID, nil
}

// reconcileChildren matches a parent's children pairwise by
// (kind, optional_key, index).
func (e *Engine) reconcileChildren(prevParentID instance.ID, prev *instance.Instance, next vnode.VNode, appState any, ids map[string]vnode.Kind, res *Result) ([]instance.ID, bool, error) {
	var prevChildren []instance.ID
	if prev != nil {
		prevChildren = prev.Children
	}

	matchedPrev := make([]bool, len(prevChildren))
	out := make([]instance.ID, 0, len(next.Children))
	changed := len(prevChildren) != len(next.Children)

	seenKeys := make(map[string]bool, len(next.Children))
	for _, c := range next.Children {
		if c.Props.Key == "" {
			continue
		}
		if seenKeys[c.Props.Key] {
			return nil, false, lifecycle.NewError(lifecycle.DuplicateKey, fmt.Sprintf("key %q repeated among siblings", c.Props.Key))
		}
		seenKeys[c.Props.Key] = true
	}

	for i, childVNode := range next.Children {
		prevIdx := e.findMatch(prevChildren, matchedPrev, childVNode, i)
		var prevChildID instance.ID
		hasPrev := prevIdx >= 0
		if hasPrev {
			matchedPrev[prevIdx] = true
			prevChildID = prevChildren[prevIdx]
			if prevIdx != i {
				changed = true
			}
		}
		newChildID, err := e.reconcile(prevParentID, prevChildID, hasPrev, childVNode, appState, ids, res)
		if err != nil {
			return nil, false, err
		}
		if !hasPrev || newChildID != prevChildID {
			changed = true
		}
		out = append(out, newChildID)
	}

	for i, id := range prevChildren {
		if !matchedPrev[i] {
			if in, ok := e.Arena.Get(id); ok {
				e.unmount(in, res)
			}
			changed = true
		}
	}

	return out, changed, nil
}

// findMatch looks for a previous sibling matching childVNode by kind plus
// key (or, when neither has a key, by position alignment after accounting
// for already-matched keyed displacements).
func (e *Engine) findMatch(prevChildren []instance.ID, matched []bool, next vnode.VNode, hintIdx int) int {
	for i, id := range prevChildren {
		if matched[i] {
			continue
		}
		in, ok := e.Arena.Get(id)
		if !ok || in.Kind != next.Kind {
			continue
		}
		if in.VNode.Props.Key != "" || next.Props.Key != "" {
			if in.VNode.Props.Key == next.Props.Key {
				return i
			}
			continue
		}
		if hintIdx < len(prevChildren) && hintIdx == i {
			return i
		}
	}
	// fall back to first same-kind unkeyed candidate at any position
	if next.Props.Key == "" {
		for i, id := range prevChildren {
			if matched[i] {
				continue
			}
			in, ok := e.Arena.Get(id)
			if ok && in.Kind == next.Kind && in.VNode.Props.Key == "" {
				return i
			}
		}
	}
	return -1
}

// unmount schedules an exit animation (if declared) and otherwise removes
// the subtree from the arena immediately.
func (e *Engine) unmount(in *instance.Instance, res *Result) {
	protocol := vnode.ProtocolFor(in.Kind)
	if protocol.RequiresRoutingRebuild || vnode.IsInteractive(in.Kind) {
		res.RoutingRelevant = true
	}
	if t := in.VNode.Props.ExitTransition; t != nil && t.DurationMS > 0 {
		key := idKey(in.ParentID, in.Kind, in.VNode.Props.Key)
		pending := &PendingExitAnimation{
			Snapshot:  in.VNode,
			ParentID:  in.ParentID,
			Key:       in.VNode.Props.Key,
			Kind:      in.Kind,
			StartedAt: time.Now(),
			Duration:  time.Duration(t.DurationMS) * time.Millisecond,
			Easing:    t.Easing,
			Cleanup:   func() { e.cleanupInstance(in) },
		}
		e.exits[key] = pending
		res.PendingExits = append(res.PendingExits, pending)
		return
	}
	e.cleanupInstance(in)
	res.Unmounted = append(res.Unmounted, in.ID)
}

func (e *Engine) cleanupInstance(in *instance.Instance) {
	if hs, ok := e.composites[in.ID]; ok {
		for _, eff := range hs.effects {
			if eff.Cleanup != nil {
				eff.Cleanup()
			}
		}
		delete(e.composites, in.ID)
	}
	for _, c := range in.Children {
		if child, ok := e.Arena.Get(c); ok {
			e.cleanupInstance(child)
		}
	}
	e.Arena.Delete(in.ID)
}

// reconcileErrorBoundary commits the boundary's single protected child
// subtree; if that commit fails with USER_CODE_THROW, it records the error
// under the boundary's structural-lineage path and commits the fallback
// subtree in its place instead. retry marks the path for one-shot clearing
// on the next commit attempt.
func (e *Engine) reconcileErrorBoundary(parentID, prevID instance.ID, hasPrev bool, next vnode.VNode, appState any, ids map[string]vnode.Kind, res *Result) (instance.ID, error) {
	path := idKey(parentID, vnode.KindErrorBoundary, next.Props.Key)
	rec := e.errorBoundaries[path]
	if rec != nil && rec.clearOnNext {
		delete(e.errorBoundaries, path)
		rec = nil
	}

	retry := func() {
		if r, ok := e.errorBoundaries[path]; ok {
			r.clearOnNext = true
		}
	}

	if rec == nil {
		childVNode := vnode.VNode{Kind: vnode.KindBox}
		if len(next.Children) > 0 {
			childVNode = next.Children[0]
		}
		childID, err := e.reconcile(parentID, prevID, hasPrev, childVNode, appState, ids, res)
		if err == nil {
			return childID, nil
		}
		coreErr, ok := err.(*lifecycle.CoreError)
		if !ok || coreErr.Code != lifecycle.UserCodeThrow {
			return 0, err
		}
		rec = &errorRecord{err: coreErr}
		e.errorBoundaries[path] = rec
		log.Error(log.CatCommit, "error boundary caught render failure", "path", path, "error", coreErr.Error())
	}

	fallbackVNode := vnode.VNode{Kind: vnode.KindBox}
	if next.Props.Fallback != nil {
		fallbackVNode = next.Props.Fallback(rec.err, retry)
	}
	return e.reconcile(parentID, 0, false, fallbackVNode, appState, ids, res)
}

// reconcileComposite handles a composite VNode: widget-key invalidation,
// a pure render(ctx) invocation inside an error envelope, and the selector
// memoization fast path.
func (e *Engine) reconcileComposite(parentID, prevID instance.ID, hasPrev bool, next vnode.VNode, appState any, ids map[string]vnode.Kind, res *Result) (instance.ID, error) {
	e.renderDepth++
	defer func() { e.renderDepth-- }()
	if e.renderDepth > MaxCompositeDepth {
		return 0, lifecycle.NewError(lifecycle.MaxDepth, "composite render depth exceeded")
	}

	prev, prevOK := e.Arena.Get(prevID)
	var id instance.ID
	var hs *hookState

	if hasPrev && prevOK && prev.Kind == vnode.KindComposite {
		id = prev.ID
		hs = e.composites[id]
		if hs == nil {
			hs = &hookState{}
			e.composites[id] = hs
		}
		if hs.widgetKey != next.Props.WidgetKey {
			hs.generation++
			hs.selectors = nil
			hs.effects = nil
			hs.widgetKey = next.Props.WidgetKey
		}
	} else {
		if hasPrev && prevOK {
			e.unmount(prev, res)
		}
		id = e.Alloc.Next()
		hs = &hookState{widgetKey: next.Props.WidgetKey}
		e.composites[id] = hs
		res.Mounted = append(res.Mounted, id)
	}

	selfInvalidated := !hasPrev || !prevOK
	if len(hs.selectors) > 0 && !selfInvalidated && hasPrev && prevOK && prev.VNode.Equal(next) {
		if e.selectorsStillEqual(hs, appState) {
			in := &instance.Instance{
				ID:              id,
				ParentID:        parentID,
				Kind:            vnode.KindComposite,
				VNode:           next,
				Children:        []instance.ID{hs.childRoot},
				SelfDirty:       false,
				LayoutSignature: prev.LayoutSignature,
			}
			e.Arena.Put(in)
			res.Reused = append(res.Reused, id)
			return id, nil
		}
	}
	e.recordSelectors(hs, next.Selectors, appState)

	child, err := e.renderWithBoundary(next, appState)
	if err != nil {
		return 0, err
	}

	childRoot, err := e.reconcile(id, e.childRootOf(hs), hs.childRoot != 0, child, appState, ids, res)
	if err != nil {
		return 0, err
	}
	hs.childRoot = childRoot

	in := &instance.Instance{
		ID:              id,
		ParentID:        parentID,
		Kind:            vnode.KindComposite,
		VNode:           next,
		Children:        []instance.ID{childRoot},
		SelfDirty:       true,
		LayoutSignature: next.LayoutSignature(),
	}
	e.Arena.Put(in)
	return id, nil
}

func (e *Engine) childRootOf(hs *hookState) instance.ID {
	return hs.childRoot
}

// selectorsStillEqual recomputes each recorded selector against the current
// appState and reports whether every one still compares equal to its
// previously recorded value.
func (e *Engine) selectorsStillEqual(hs *hookState, appState any) bool {
	for _, sel := range hs.selectors {
		next := sel.compute(appState)
		if !sel.equal(sel.value, next) {
			return false
		}
	}
	return true
}

// recordSelectors computes and stores next.Selectors' values for future
// re-renders' fast-path comparison.
func (e *Engine) recordSelectors(hs *hookState, selectors []vnode.Selector, appState any) {
	recorded := make([]selectorRecord, len(selectors))
	for i, sel := range selectors {
		recorded[i] = selectorRecord{
			name:    sel.Name,
			value:   sel.Compute(appState),
			compute: sel.Compute,
			equal:   sel.Equal,
		}
	}
	hs.selectors = recorded
}

// renderWithBoundary invokes next.Render inside an error envelope. A
// USER_CODE_THROW panic is recovered and, if an enclosing error boundary
// path is registered, turned into its fallback subtree instead of
// propagating.
func (e *Engine) renderWithBoundary(next vnode.VNode, appState any) (child vnode.VNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatCommit, "composite render panicked", "panic", r)
			err = lifecycle.NewError(lifecycle.UserCodeThrow, fmt.Sprintf("%v", r))
		}
	}()
	if next.Render == nil {
		return vnode.VNode{Kind: vnode.KindBox}, nil
	}
	return next.Render(appState), nil
}
