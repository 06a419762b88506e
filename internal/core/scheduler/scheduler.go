// Package scheduler implements the single-threaded cooperative turn
// scheduler: work items are buffered while a turn executes, and processed
// in insertion order as one turn when the scheduler goes idle.
package scheduler

import (
	"sync"

	"github.com/zjrosen/tuicore/internal/log"
)

// ItemKind tags a work item.
type ItemKind int

const (
	ItemEventBatch ItemKind = iota
	ItemUserCommit
	ItemKick
	ItemRenderRequest
	ItemFrameDone
	ItemFrameError
	ItemFatal
)

// Item is one unit of scheduler work.
type Item struct {
	Kind    ItemKind
	Payload any
}

// TurnHandler processes one turn's items.
type TurnHandler func(items []Item)

// Scheduler coalesces heterogeneous work items into ordered batches
// processed one turn at a time. Exactly one turn executes at a time: no
// concurrent turns, no nested turns.
type Scheduler struct {
	mu      sync.Mutex
	pending []Item
	running bool
	handler TurnHandler
}

// New returns a Scheduler that invokes handler for each turn's item batch.
func New(handler TurnHandler) *Scheduler {
	return &Scheduler{handler: handler}
}

// Push enqueues a work item. If no turn is currently executing, it
// immediately drains and processes the queue as one turn (recursively
// bounded by emptiness: items pushed by the turn's own handler that arrive
// while still marked running are buffered for the next pass instead of
// reentering synchronously).
func (s *Scheduler) Push(item Item) {
	s.mu.Lock()
	s.pending = append(s.pending, item)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.drain()
}

// drain repeatedly pulls the full pending queue and runs one turn over it,
// until the queue is empty after a turn completes.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		items := s.pending
		s.pending = nil
		s.running = true
		s.mu.Unlock()

		fatal := hasFatal(items)
		if fatal {
			log.Warn(log.CatScheduler, "turn short-circuited on fatal item", "item_count", len(items))
		}
		s.handler(items)

		s.mu.Lock()
		s.running = false
		more := len(s.pending) > 0
		s.mu.Unlock()
		if !more {
			return
		}
	}
}

func hasFatal(items []Item) bool {
	for _, it := range items {
		if it.Kind == ItemFatal {
			return true
		}
	}
	return false
}

// Len reports the number of currently buffered items (test/diagnostic use).
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// IsRunning reports whether a turn is currently executing.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
