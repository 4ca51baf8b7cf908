package hazard

import (
	"log/slog"
	"sync/atomic"
)

// slot is one published "in use" declaration. Slots are allocated in blocks,
// one block per Local, and chained into the registry's global list.
type slot[T any] struct {
	ptr  atomic.Pointer[Node[T]]
	next atomic.Pointer[slot[T]]
}

// Registry is the process-wide hazard pointer state shared by every Local
// created from it.
type Registry[T any] struct {
	// head is a sentinel; real slots start at head.next.
	head atomic.Pointer[slot[T]]

	threshold atomic.Int64
	free      *freeStack[T]
	logger    *slog.Logger

	allocated atomic.Int64
	freed     atomic.Int64
	recycled  atomic.Int64
	reused    atomic.Int64
	scans     atomic.Int64
	slots     atomic.Int64
	locals    atomic.Int64
}

// NewRegistry creates a registry with an empty slot list and an empty
// recycle stack. Create one per protected structure (or per group of
// structures sharing node shells) before any goroutine registers.
func NewRegistry[T any](opts ...Option) *Registry[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry[T]{
		free:   newFreeStack[T](),
		logger: cfg.logger,
	}
	r.head.Store(&slot[T]{})
	r.threshold.Store(int64(cfg.threshold))
	return r
}

// ThreadInit registers a new Local owning numSlots hazard slots. The slots
// are allocated as one block and appended to the tail of the global list.
// The returned Local must only be used by one goroutine at a time.
func (r *Registry[T]) ThreadInit(numSlots int) (*Local[T], error) {
	if numSlots < 1 {
		return nil, ErrInvalidSlotCount
	}

	block := make([]slot[T], numSlots)
	for i := 0; i < numSlots-1; i++ {
		block[i].next.Store(&block[i+1])
	}
	r.append(&block[0])

	r.slots.Add(int64(numSlots))
	r.locals.Add(1)

	return &Local[T]{
		reg:   r,
		slots: block,
	}, nil
}

// append links a pre-chained block behind the current tail. A lost CAS
// means another block was linked first; walking on from there finds the
// new tail.
func (r *Registry[T]) append(first *slot[T]) {
	cur := r.head.Load()
	for {
		next := cur.next.Load()
		if next != nil {
			cur = next
			continue
		}
		if cur.next.CompareAndSwap(nil, first) {
			return
		}
	}
}

// RequestNode returns a node shell with a nil successor and a zero Value,
// taken from the recycle stack when possible and freshly allocated otherwise.
func (r *Registry[T]) RequestNode() *Node[T] {
	if n := r.free.pop(); n != nil {
		r.reused.Add(1)
		return n
	}
	r.allocated.Add(1)
	return &Node[T]{}
}

// Release hands a node straight to the recycle stack. The caller guarantees
// the node is unreachable and was never published in a slot that is still
// set, e.g. during single-threaded teardown.
func (r *Registry[T]) Release(n *Node[T]) {
	if n == nil {
		return
	}
	r.recycle(n)
}

func (r *Registry[T]) recycle(n *Node[T]) {
	n.reset()
	r.free.push(n)
	r.recycled.Add(1)
}

// Threshold returns the current scan threshold.
func (r *Registry[T]) Threshold() int {
	return int(r.threshold.Load())
}

// SetThreshold changes the scan threshold. Values below 1 are ignored.
func (r *Registry[T]) SetThreshold(n int) {
	if n > 0 {
		r.threshold.Store(int64(n))
	}
}

// hazards collects every non-nil pointer currently published in the global
// slot list.
func (r *Registry[T]) hazards() map[*Node[T]]struct{} {
	set := make(map[*Node[T]]struct{})
	head := r.head.Load()
	if head == nil {
		return set
	}
	for s := head.next.Load(); s != nil; s = s.next.Load() {
		if p := s.ptr.Load(); p != nil {
			set[p] = struct{}{}
		}
	}
	return set
}

// Stats returns a snapshot of the registry counters.
func (r *Registry[T]) Stats() Stats {
	return Stats{
		Allocated: r.allocated.Load(),
		Freed:     r.freed.Load(),
		Recycled:  r.recycled.Load(),
		Reused:    r.reused.Load(),
		Free:      r.free.len(),
		Scans:     r.scans.Load(),
		Slots:     r.slots.Load(),
		Locals:    r.locals.Load(),
	}
}

// Clear tears the registry down: every shell on the recycle stack is dropped
// and counted as freed, and the slot list is detached. All locals must have
// been cleared first. The registry must not be used afterwards.
func (r *Registry[T]) Clear() Stats {
	r.freed.Add(r.free.drain())
	r.head.Store(nil)

	st := r.Stats()
	r.logger.Info("hazard registry cleared",
		"allocated", st.Allocated,
		"freed", st.Freed,
		"reused", st.Reused,
		"scans", st.Scans,
	)
	if !st.Balanced() {
		r.logger.Warn("hazard registry unbalanced at clear",
			"outstanding", st.Allocated-st.Freed)
	}
	return st
}
