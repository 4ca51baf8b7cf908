package hazard

import "fmt"

// Local is the per-goroutine side of a Registry: a fixed block of hazard
// slots only its owner writes, and a private list of retired nodes waiting
// to be proven unreferenced.
type Local[T any] struct {
	reg     *Registry[T]
	slots   []slot[T]
	retired []*Node[T]
	cleared bool
}

// NumSlots returns the number of slots the Local was created with.
func (l *Local[T]) NumSlots() int {
	return len(l.slots)
}

// Retired returns the number of nodes retired by this Local and not yet
// recycled.
func (l *Local[T]) Retired() int {
	return len(l.retired)
}

// SetHazard publishes n in slot idx, or clears the slot when n is nil. The
// store is sequentially consistent, so a scanner that starts afterwards sees
// it; callers must still re-validate that n is reachable before using it.
func (l *Local[T]) SetHazard(idx int, n *Node[T]) error {
	if idx < 0 || idx >= len(l.slots) {
		return fmt.Errorf("%w: index %d, slots %d", ErrSlotOutOfRange, idx, len(l.slots))
	}
	l.slots[idx].ptr.Store(n)
	return nil
}

// ClearHazards nils every slot owned by this Local.
func (l *Local[T]) ClearHazards() {
	for i := range l.slots {
		l.slots[i].ptr.Store(nil)
	}
}

// Retire records n as unlinked from every shared structure. It is recycled
// by a later Scan once no slot references it.
func (l *Local[T]) Retire(n *Node[T]) {
	if n == nil {
		return
	}
	l.retired = append(l.retired, n)
	if int64(len(l.retired)) > l.reg.threshold.Load() {
		l.Scan()
	}
}

// Scan reconciles this Local's retired nodes against every published slot.
// Nodes still referenced stay on the private list; the rest move to the
// shared recycle stack.
func (l *Local[T]) Scan() {
	r := l.reg
	hazards := r.hazards()

	kept := l.retired[:0]
	for _, n := range l.retired {
		if _, ok := hazards[n]; ok {
			kept = append(kept, n)
			continue
		}
		r.recycle(n)
	}
	clear(l.retired[len(kept):])
	l.retired = kept

	r.scans.Add(1)
}

// Clear tears the Local down: its slots are nil-ed (they stay linked in the
// registry) and every retired node is flushed to the recycle stack without a
// scan. The owner must guarantee nothing else can still hold those nodes,
// which the worker pool does by stopping all workers first. The Local must
// not be used afterwards.
func (l *Local[T]) Clear() {
	if l.cleared {
		return
	}
	l.cleared = true
	l.ClearHazards()
	for _, n := range l.retired {
		l.reg.recycle(n)
	}
	l.retired = nil
	l.reg.locals.Add(-1)
}
