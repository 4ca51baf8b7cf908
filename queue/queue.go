// Package queue provides an unbounded multi-producer multi-consumer FIFO
// built on the Michael & Scott algorithm. Node shells are recycled through a
// hazard.Registry: a popped predecessor is retired, never reused directly,
// so a concurrent reader still holding it can not observe it being relinked.
package queue

import (
	"fmt"
	"sync/atomic"

	"github.com/tahsin716/hazpool/hazard"
)

// HazardSlots is the number of hazard slots a Local needs for Push and Pop.
const HazardSlots = 2

// cacheLinePad prevents false sharing between hot fields
type cacheLinePad struct {
	_ [64]byte
}

// Queue is a lock-free unbounded FIFO. Head and tail always point at a real
// node: a dummy sits at or before head, so an empty queue is head.next == nil.
type Queue[T any] struct {
	_ cacheLinePad

	head atomic.Pointer[hazard.Node[T]]

	_ cacheLinePad

	tail atomic.Pointer[hazard.Node[T]]

	_ cacheLinePad

	length atomic.Int64
	reg    *hazard.Registry[T]
}

// New creates an empty queue whose nodes come from reg.
func New[T any](reg *hazard.Registry[T]) *Queue[T] {
	q := &Queue[T]{reg: reg}
	dummy := reg.RequestNode()
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// protect publishes n in slot idx of l. A Local with fewer than HazardSlots
// slots is a programming error.
func protect[T any](l *hazard.Local[T], idx int, n *hazard.Node[T]) {
	if err := l.SetHazard(idx, n); err != nil {
		panic(fmt.Sprintf("queue: local needs %d hazard slots: %v", HazardSlots, err))
	}
}

// Push appends v. It is linearized at the CAS that links the new node
// behind the current last node; l must be owned by the calling goroutine.
func (q *Queue[T]) Push(l *hazard.Local[T], v T) {
	n := q.reg.RequestNode()
	n.Value = v

	var tail *hazard.Node[T]
	for {
		tail = q.tail.Load()
		protect(l, 0, tail)
		if tail != q.tail.Load() {
			continue
		}

		next := tail.Next()
		if tail != q.tail.Load() {
			continue
		}

		// Tail is lagging behind a node another producer linked: help it
		// along before trying again.
		if next != nil {
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if tail.CompareAndSwapNext(nil, n) {
			break
		}
	}

	// Best effort: whoever comes next swings tail if this fails.
	q.tail.CompareAndSwap(tail, n)
	protect(l, 0, nil)
	q.length.Add(1)
}

// Pop removes the oldest value. The second result is false when the queue is
// empty, which is not an error. The unlinked dummy is retired through l.
func (q *Queue[T]) Pop(l *hazard.Local[T]) (T, bool) {
	var (
		head *hazard.Node[T]
		v    T
	)

	for {
		head = q.head.Load()
		protect(l, 0, head)
		if head != q.head.Load() {
			continue
		}

		tail := q.tail.Load()
		next := head.Next()
		protect(l, 1, next)
		if head != q.head.Load() {
			continue
		}

		if next == nil {
			protect(l, 0, nil)
			protect(l, 1, nil)
			var zero T
			return zero, false
		}

		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		// next is protected by slot 1, so its value is stable even if
		// the CAS below loses.
		v = next.Value
		if q.head.CompareAndSwap(head, next) {
			break
		}
	}

	protect(l, 0, nil)
	protect(l, 1, nil)
	l.Retire(head)
	q.length.Add(-1)
	return v, true
}

// Len returns the number of queued values. It is advisory under concurrent
// use and never negative.
func (q *Queue[T]) Len() int {
	n := q.length.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Empty reports whether the queue currently has no linked values. The head
// is read without a hazard, so it may already have been recycled and the
// answer is advisory: use Pop for a definite result. A cleared queue is
// empty.
func (q *Queue[T]) Empty() bool {
	head := q.head.Load()
	return head == nil || head.Next() == nil
}

// Clear hands every remaining node back to the registry. It is not safe for
// concurrent use: all producers and consumers must have stopped. Values still
// queued are dropped. When values remain, every node including the dummy is
// retired through l; otherwise the lone dummy is released directly. The
// queue must not be used afterwards.
func (q *Queue[T]) Clear(l *hazard.Local[T]) {
	head := q.head.Load()
	if head == nil {
		return
	}

	if head.Next() != nil {
		for n := head; n != nil; {
			next := n.Next()
			l.Retire(n)
			n = next
		}
	} else {
		q.reg.Release(head)
	}

	q.head.Store(nil)
	q.tail.Store(nil)
	q.length.Store(0)
}
