package hazard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeStack_LIFO(t *testing.T) {
	s := newFreeStack[int]()
	assert.Nil(t, s.pop())

	a, b, c := &Node[int]{}, &Node[int]{}, &Node[int]{}
	s.push(a)
	s.push(b)
	s.push(c)
	assert.Equal(t, int64(3), s.len())

	assert.Same(t, c, s.pop())
	assert.Same(t, b, s.pop())
	assert.Same(t, a, s.pop())
	assert.Nil(t, s.pop())
	assert.Equal(t, int64(0), s.len())
}

func TestFreeStack_PopUnlinks(t *testing.T) {
	s := newFreeStack[int]()
	a, b := &Node[int]{}, &Node[int]{}
	s.push(a)
	s.push(b)

	got := s.pop()
	require.Same(t, b, got)
	assert.Nil(t, got.Next(), "popped shell must not point into the stack")
}

func TestFreeStack_Drain(t *testing.T) {
	s := newFreeStack[int]()
	for i := 0; i < 7; i++ {
		s.push(&Node[int]{})
	}

	assert.Equal(t, int64(7), s.drain())
	assert.Equal(t, int64(0), s.len())
	assert.Nil(t, s.pop())
	assert.Equal(t, int64(0), s.drain())
}

func TestFreeStack_ConcurrentPushPop(t *testing.T) {
	s := newFreeStack[int]()
	const (
		goroutines = 8
		perG       = 2000
	)

	nodes := make([]*Node[int], goroutines*perG)
	for i := range nodes {
		nodes[i] = &Node[int]{Value: i}
	}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(part []*Node[int]) {
			defer wg.Done()
			for _, n := range part {
				s.push(n)
				if m := s.pop(); m != nil {
					s.push(m)
				}
			}
		}(nodes[g*perG : (g+1)*perG])
	}
	wg.Wait()

	require.Equal(t, int64(len(nodes)), s.len())

	seen := make(map[*Node[int]]bool, len(nodes))
	for n := s.pop(); n != nil; n = s.pop() {
		require.False(t, seen[n], "node popped twice")
		seen[n] = true
	}
	assert.Len(t, seen, len(nodes))
}
