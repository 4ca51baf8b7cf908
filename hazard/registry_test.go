package hazard

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// REGISTRATION TESTS
// ============================================================================

func TestRegistry_ThreadInitInvalidSlotCount(t *testing.T) {
	reg := NewRegistry[int]()

	for _, n := range []int{0, -1} {
		local, err := reg.ThreadInit(n)
		assert.Nil(t, local)
		assert.ErrorIs(t, err, ErrInvalidSlotCount)
	}
	assert.Equal(t, int64(0), reg.Stats().Slots)
}

func TestRegistry_ThreadInitLinksSlots(t *testing.T) {
	reg := NewRegistry[int]()

	a, err := reg.ThreadInit(2)
	require.NoError(t, err)
	b, err := reg.ThreadInit(3)
	require.NoError(t, err)

	assert.Equal(t, 2, a.NumSlots())
	assert.Equal(t, 3, b.NumSlots())

	st := reg.Stats()
	assert.Equal(t, int64(5), st.Slots)
	assert.Equal(t, int64(2), st.Locals)
	assert.Equal(t, 5, countSlots(reg))
}

func TestRegistry_ConcurrentThreadInit(t *testing.T) {
	reg := NewRegistry[int]()
	const goroutines = 32

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			_, err := reg.ThreadInit(2)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, goroutines*2, countSlots(reg), "every block must be linked exactly once")
}

// ============================================================================
// HAZARD SLOT TESTS
// ============================================================================

func TestLocal_SetHazardOutOfRange(t *testing.T) {
	reg := NewRegistry[int]()
	local, err := reg.ThreadInit(2)
	require.NoError(t, err)

	n := reg.RequestNode()
	require.NoError(t, local.SetHazard(0, n))
	require.NoError(t, local.SetHazard(1, n))

	for _, idx := range []int{-1, 2, 100} {
		err := local.SetHazard(idx, n)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSlotOutOfRange), "index %d", idx)
	}
}

func TestLocal_SetHazardPublishes(t *testing.T) {
	reg := NewRegistry[int]()
	local, err := reg.ThreadInit(2)
	require.NoError(t, err)

	n := reg.RequestNode()
	require.NoError(t, local.SetHazard(1, n))

	_, ok := reg.hazards()[n]
	assert.True(t, ok)

	require.NoError(t, local.SetHazard(1, nil))
	assert.Empty(t, reg.hazards())
}

func TestLocal_ClearHazards(t *testing.T) {
	reg := NewRegistry[int]()
	local, err := reg.ThreadInit(3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, local.SetHazard(i, reg.RequestNode()))
	}
	require.Len(t, reg.hazards(), 3)

	local.ClearHazards()
	assert.Empty(t, reg.hazards())
}

// ============================================================================
// RETIRE / SCAN TESTS
// ============================================================================

func TestLocal_RetireTriggersScanAboveThreshold(t *testing.T) {
	reg := NewRegistry[int](WithThreshold(4))
	local, err := reg.ThreadInit(1)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		local.Retire(reg.RequestNode())
	}
	assert.Equal(t, 4, local.Retired())
	assert.Equal(t, int64(0), reg.Stats().Scans)

	local.Retire(reg.RequestNode())

	st := reg.Stats()
	assert.Equal(t, int64(1), st.Scans)
	assert.Equal(t, 0, local.Retired())
	assert.Equal(t, int64(5), st.Free)
}

func TestLocal_ScanKeepsHazardedNodes(t *testing.T) {
	reg := NewRegistry[int]()
	owner, err := reg.ThreadInit(1)
	require.NoError(t, err)
	other, err := reg.ThreadInit(1)
	require.NoError(t, err)

	pinned := reg.RequestNode()
	loose := reg.RequestNode()
	require.NoError(t, other.SetHazard(0, pinned))

	owner.Retire(pinned)
	owner.Retire(loose)
	owner.Scan()

	assert.Equal(t, 1, owner.Retired())
	assert.Equal(t, int64(1), reg.Stats().Free)
	assert.Same(t, loose, reg.RequestNode())

	require.NoError(t, other.SetHazard(0, nil))
	owner.Scan()
	assert.Equal(t, 0, owner.Retired())
	assert.Same(t, pinned, reg.RequestNode())
}

func TestRegistry_RequestNodeReusesShells(t *testing.T) {
	reg := NewRegistry[string]()
	local, err := reg.ThreadInit(1)
	require.NoError(t, err)

	n := reg.RequestNode()
	n.Value = "payload"
	n.SetNext(reg.RequestNode())

	local.Retire(n)
	local.Scan()

	got := reg.RequestNode()
	assert.Same(t, n, got)
	assert.Equal(t, "", got.Value, "recycled shells carry a zero value")
	assert.Nil(t, got.Next())

	st := reg.Stats()
	assert.Equal(t, int64(2), st.Allocated)
	assert.Equal(t, int64(1), st.Reused)
}

// A pinned node must never come back out of RequestNode while any number of
// goroutines retire and request shells around it.
func TestRegistry_PinnedNodeNeverRecycled(t *testing.T) {
	reg := NewRegistry[int](WithThreshold(2))

	pinner, err := reg.ThreadInit(1)
	require.NoError(t, err)
	retirer, err := reg.ThreadInit(1)
	require.NoError(t, err)

	pinned := reg.RequestNode()
	require.NoError(t, pinner.SetHazard(0, pinned))
	retirer.Retire(pinned)

	const (
		goroutines = 8
		rounds     = 5000
	)

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			local, err := reg.ThreadInit(1)
			if err != nil {
				return err
			}
			defer local.Clear()
			for j := 0; j < rounds; j++ {
				n := reg.RequestNode()
				if n == pinned {
					return errors.New("pinned node handed out while hazarded")
				}
				local.Retire(n)
			}
			return nil
		})
	}

	for j := 0; j < rounds; j++ {
		n := reg.RequestNode()
		require.NotSame(t, pinned, n)
		retirer.Retire(n)
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 1, countRetired(retirer, pinned), "pinned node stays retired")

	require.NoError(t, pinner.SetHazard(0, nil))
	retirer.Scan()
	assert.Equal(t, 0, countRetired(retirer, pinned))

	found := false
	for free := reg.Stats().Free; free > 0; free-- {
		if reg.RequestNode() == pinned {
			found = true
			break
		}
	}
	assert.True(t, found, "unpinned node must be recyclable after a scan")
}

// ============================================================================
// TEARDOWN TESTS
// ============================================================================

func TestLocal_ClearFlushesRetired(t *testing.T) {
	reg := NewRegistry[int](WithThreshold(100))
	local, err := reg.ThreadInit(2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		local.Retire(reg.RequestNode())
	}
	require.NoError(t, local.SetHazard(0, reg.RequestNode()))

	local.Clear()
	local.Clear()

	st := reg.Stats()
	assert.Equal(t, int64(10), st.Free)
	assert.Equal(t, int64(0), st.Locals)
	assert.Empty(t, reg.hazards())
	assert.Equal(t, 2, countSlots(reg), "slots stay linked after clear")
}

func TestRegistry_ClearParity(t *testing.T) {
	reg := NewRegistry[int](WithThreshold(3))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		local, err := reg.ThreadInit(2)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n := reg.RequestNode()
				_ = local.SetHazard(j%2, n)
				local.Retire(n)
			}
			local.Clear()
		}()
	}
	wg.Wait()

	st := reg.Clear()
	assert.True(t, st.Balanced(), "allocated %d, freed %d", st.Allocated, st.Freed)
	assert.Equal(t, int64(0), st.Free)
}

func TestRegistry_SetThreshold(t *testing.T) {
	reg := NewRegistry[int]()
	assert.Equal(t, DefaultThreshold, reg.Threshold())

	reg.SetThreshold(64)
	assert.Equal(t, 64, reg.Threshold())

	reg.SetThreshold(0)
	assert.Equal(t, 64, reg.Threshold())
}

func countSlots[T any](r *Registry[T]) int {
	n := 0
	for s := r.head.Load().next.Load(); s != nil; s = s.next.Load() {
		n++
	}
	return n
}

func countRetired[T any](l *Local[T], n *Node[T]) int {
	c := 0
	for _, r := range l.retired {
		if r == n {
			c++
		}
	}
	return c
}
