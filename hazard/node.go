package hazard

import "sync/atomic"

// Node is a reclaimable list cell. The zero value is an unlinked node with a
// zero Value.
type Node[T any] struct {
	next  atomic.Pointer[Node[T]]
	Value T
}

// Next atomically loads the successor.
func (n *Node[T]) Next() *Node[T] {
	return n.next.Load()
}

// SetNext atomically stores the successor.
func (n *Node[T]) SetNext(next *Node[T]) {
	n.next.Store(next)
}

// CompareAndSwapNext swaps the successor from old to new.
func (n *Node[T]) CompareAndSwapNext(old, new *Node[T]) bool {
	return n.next.CompareAndSwap(old, new)
}

// reset prepares a shell for reuse. Must only be called on nodes no slot
// references.
func (n *Node[T]) reset() {
	var zero T
	n.Value = zero
	n.next.Store(nil)
}
