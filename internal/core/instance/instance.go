// Package instance holds the runtime instance tree: the committed,
// arena-allocated product of reconciliation, addressed by stable monotonic
// ids rather than pointer identity.
package instance

import "github.com/zjrosen/tuicore/internal/core/vnode"

// ID is a stable integer identifying a node across commits for as long as
// reconciliation keeps matching it. The root's implicit parent id is 0.
type ID int64

// NoParent is the implicit parent id of the root instance.
const NoParent ID = 0

// Instance is one node of the committed runtime tree.
type Instance struct {
	ID         ID
	ParentID   ID
	Kind       vnode.Kind
	VNode      vnode.VNode
	Children   []ID
	SelfDirty  bool
	Generation uint64 // bumped when a composite's widget-key changes

	// LayoutSignature is the last layout-stability signature computed for
	// this instance; compared on each commit to decide whether to force a
	// relayout.
	LayoutSignature uint64
}

// dirty reports self_dirty ∨ any child dirty, resolved against the owning
// Arena since a plain Instance has no back-reference to its tree.
func (in *Instance) dirty(arena *Arena) bool {
	if in.SelfDirty {
		return true
	}
	for _, c := range in.Children {
		if child, ok := arena.Get(c); ok && child.dirty(arena) {
			return true
		}
	}
	return false
}

// Allocator hands out monotonically increasing instance ids, never reused
// within a commit.
type Allocator struct {
	next ID
}

// NewAllocator returns an Allocator whose first id is 1 (0 is reserved for
// "no parent"/"no instance").
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns the next unused id.
func (a *Allocator) Next() ID {
	id := a.next
	a.next++
	return id
}

// Arena is the owning store of Instance values, addressed by ID. It replaces
// the source's shared-by-reference mutable objects with an arena of slots
// indexed by instance id, so "in-place mutation" becomes replacing a slot's
// children vector and bumping its dirty bits rather than relying on pointer
// identity.
type Arena struct {
	slots map[ID]*Instance
	root  ID
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{slots: make(map[ID]*Instance)}
}

// Root returns the current root instance id, or 0 if the arena is empty.
func (a *Arena) Root() ID { return a.root }

// SetRoot records the arena's root instance id.
func (a *Arena) SetRoot(id ID) { a.root = id }

// Get returns the instance for id.
func (a *Arena) Get(id ID) (*Instance, bool) {
	in, ok := a.slots[id]
	return in, ok
}

// Put inserts or replaces the slot for in.ID.
func (a *Arena) Put(in *Instance) {
	a.slots[in.ID] = in
}

// Delete removes the slot for id. Commit calls it when an unmounted instance
// has no exit transition, and when a pending exit's Cleanup runs.
func (a *Arena) Delete(id ID) {
	delete(a.slots, id)
}

// Len returns the number of live slots.
func (a *Arena) Len() int { return len(a.slots) }

// Dirty reports whether the instance at id (or any descendant) is dirty.
func (a *Arena) Dirty(id ID) bool {
	in, ok := a.Get(id)
	if !ok {
		return false
	}
	return in.dirty(a)
}

// Walk performs a depth-first preorder traversal from id, invoking visit for
// every reachable instance. Stops early if visit returns false.
func (a *Arena) Walk(id ID, visit func(*Instance) bool) {
	a.walk(id, visit)
}

// walk is Walk's recursion; it returns false once visit has asked to stop.
func (a *Arena) walk(id ID, visit func(*Instance) bool) bool {
	in, ok := a.Get(id)
	if !ok {
		return true
	}
	if !visit(in) {
		return false
	}
	for _, c := range in.Children {
		if !a.walk(c, visit) {
			return false
		}
	}
	return true
}
