package hazard

import "sync/atomic"

// stackHead is an immutable snapshot of the recycle stack. Every push and pop
// installs a fresh one, so a CAS against a stale head always fails even when
// the same node is back on top (no ABA).
type stackHead[T any] struct {
	top  *Node[T]
	size int64
}

// freeStack is a Treiber stack of recycled node shells, linked through
// Node.next.
type freeStack[T any] struct {
	head atomic.Pointer[stackHead[T]]
}

func newFreeStack[T any]() *freeStack[T] {
	s := &freeStack[T]{}
	s.head.Store(&stackHead[T]{})
	return s
}

// push places n on top of the stack.
func (s *freeStack[T]) push(n *Node[T]) {
	for {
		old := s.head.Load()
		n.next.Store(old.top)
		if s.head.CompareAndSwap(old, &stackHead[T]{top: n, size: old.size + 1}) {
			return
		}
	}
}

// pop removes the top node, or returns nil when the stack is empty.
func (s *freeStack[T]) pop() *Node[T] {
	for {
		old := s.head.Load()
		if old.top == nil {
			return nil
		}
		// If old.top was popped and pushed again since the load, its next
		// may have changed, but then so has the head and the CAS fails.
		next := old.top.next.Load()
		if s.head.CompareAndSwap(old, &stackHead[T]{top: next, size: old.size - 1}) {
			old.top.next.Store(nil)
			return old.top
		}
	}
}

// drain detaches the whole stack and returns the number of nodes dropped.
func (s *freeStack[T]) drain() int64 {
	var old *stackHead[T]
	for {
		old = s.head.Load()
		if s.head.CompareAndSwap(old, &stackHead[T]{}) {
			break
		}
	}

	var dropped int64
	for n := old.top; n != nil; {
		next := n.next.Load()
		n.next.Store(nil)
		n = next
		dropped++
	}
	return dropped
}

// len returns the current depth.
func (s *freeStack[T]) len() int64 {
	return s.head.Load().size
}
