package router

// Zone is a focus scope with its own traversal rule and remembered
// last-focused element, ordered by depth-first preorder of the committed
// tree.
type Zone struct {
	ID            string
	Navigation    string // "linear" | "grid" | "none"
	Columns       int
	WrapAround    bool
	Focusables    []string // public ids, in preorder
	LastFocusedID string
	OnEnter       func()
	OnExit        func()
}

// Trap confines focus traversal to a specified focusable set and restores
// focus on release. Modals push a Trap implicitly.
type Trap struct {
	ZoneID       string
	Focusables   []string
	RestoreToID  string
}

// FocusState owns zone ordering, the trap stack, and the currently focused
// public id.
type FocusState struct {
	zones      []*Zone
	traps      []*Trap
	focusedID  string
}

// NewFocusState returns an empty FocusState.
func NewFocusState() *FocusState {
	return &FocusState{}
}

// SetZones replaces the zone list (called after a commit whose damage was
// routing-relevant).
func (f *FocusState) SetZones(zones []*Zone) {
	f.zones = zones
}

// FocusedID returns the current focus target, or "" if none.
func (f *FocusState) FocusedID() string { return f.focusedID }

// activeFocusable returns the focusable set currently in scope: the top
// trap's set if one is active, else the union of all zones' focusables in
// order.
func (f *FocusState) activeFocusable() []string {
	if len(f.traps) > 0 {
		return f.traps[len(f.traps)-1].Focusables
	}
	var out []string
	for _, z := range f.zones {
		out = append(out, z.Focusables...)
	}
	return out
}

// PushTrap pushes a trap onto the stack, remembering the currently focused
// id so it can be restored on release.
func (f *FocusState) PushTrap(zoneID string, focusables []string) {
	f.traps = append(f.traps, &Trap{ZoneID: zoneID, Focusables: focusables, RestoreToID: f.focusedID})
	if len(focusables) > 0 {
		f.SetFocus(focusables[0])
	}
}

// HasTrap reports whether a trap for zoneID is already on the stack, so a
// routing rebuild that runs every routing-relevant commit doesn't push a
// duplicate trap for a modal/trap that was already open.
func (f *FocusState) HasTrap(zoneID string) bool {
	for _, t := range f.traps {
		if t.ZoneID == zoneID {
			return true
		}
	}
	return false
}

// PopTrapFor pops the trap whose zoneID matches, restoring its captured
// focus, wherever it sits in the stack (a trap can close out of order when
// its owning modal/focus-trap instance unmounts while nested traps are
// still open).
func (f *FocusState) PopTrapFor(zoneID string) {
	for i := len(f.traps) - 1; i >= 0; i-- {
		if f.traps[i].ZoneID == zoneID {
			top := f.traps[i]
			f.traps = append(f.traps[:i], f.traps[i+1:]...)
			f.SetFocus(top.RestoreToID)
			return
		}
	}
}

// PopTrap pops the top trap and restores the focus it captured on push.
func (f *FocusState) PopTrap() {
	if len(f.traps) == 0 {
		return
	}
	top := f.traps[len(f.traps)-1]
	f.traps = f.traps[:len(f.traps)-1]
	f.SetFocus(top.RestoreToID)
}

// SetFocus moves focus to id, firing the owning zone's on_exit/on_enter
// callbacks best-effort (exceptions swallowed so router determinism is
// preserved).
func (f *FocusState) SetFocus(id string) {
	if id == f.focusedID {
		return
	}
	prevZone := f.zoneContaining(f.focusedID)
	nextZone := f.zoneContaining(id)
	if prevZone != nil && prevZone != nextZone {
		safeCall(prevZone.OnExit)
	}
	f.focusedID = id
	if nextZone != nil {
		nextZone.LastFocusedID = id
		if prevZone != nextZone {
			safeCall(nextZone.OnEnter)
		}
	}
}

func safeCall(fn func()) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn()
}

func (f *FocusState) zoneContaining(id string) *Zone {
	if id == "" {
		return nil
	}
	for _, z := range f.zones {
		for _, fid := range z.Focusables {
			if fid == id {
				return z
			}
		}
	}
	return nil
}

// Next advances focus to the following id in the active focusable set,
// wrapping from the last id to the first. Entering a zone does not restore
// its LastFocusedID, and Zone.WrapAround is not consulted.
func (f *FocusState) Next() {
	f.step(1)
}

// Prev moves focus backward within the active focusable set.
func (f *FocusState) Prev() {
	f.step(-1)
}

func (f *FocusState) step(delta int) {
	set := f.activeFocusable()
	if len(set) == 0 {
		return
	}
	if f.focusedID == "" {
		if delta > 0 {
			f.SetFocus(set[0])
		} else {
			f.SetFocus(set[len(set)-1])
		}
		return
	}
	idx := indexOf(set, f.focusedID)
	if idx < 0 {
		f.SetFocus(set[0])
		return
	}
	next := idx + delta
	if next < 0 {
		next = len(set) - 1
	}
	if next >= len(set) {
		next = 0
	}
	f.SetFocus(set[next])
}

func indexOf(set []string, id string) int {
	for i, v := range set {
		if v == id {
			return i
		}
	}
	return -1
}
