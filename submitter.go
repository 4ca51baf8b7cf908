package hazpool

import (
	"runtime"
	"sync/atomic"

	"github.com/tahsin716/hazpool/hazard"
	"github.com/tahsin716/hazpool/queue"
)

// submitter is a hazard context lent to goroutines outside the worker set.
// Claiming it through inUse keeps every slot single-writer.
type submitter struct {
	inUse atomic.Bool
	local *hazard.Local[Job]
}

// submitters is the fixed table of contexts shared by ScheduleJob and
// JoinAll callers. Index 0 is the owner's reserved context; the others
// absorb concurrent callers. The table never grows, so the hazard slot list
// stays bounded no matter how many goroutines submit.
type submitters struct {
	ctx []submitter
}

func newSubmitters(reg *hazard.Registry[Job], n int) (*submitters, error) {
	s := &submitters{ctx: make([]submitter, n)}
	for i := range s.ctx {
		local, err := reg.ThreadInit(queue.HazardSlots)
		if err != nil {
			return nil, err
		}
		s.ctx[i].local = local
	}
	return s, nil
}

// owner returns the reserved context. Only teardown uses it directly.
func (s *submitters) owner() *hazard.Local[Job] {
	return s.ctx[0].local
}

// acquire claims a free context, preferring the owner's. Holders keep a
// context for a single push or pop, so the spin is short.
func (s *submitters) acquire() *submitter {
	for {
		for i := range s.ctx {
			c := &s.ctx[i]
			if !c.inUse.Load() && c.inUse.CompareAndSwap(false, true) {
				return c
			}
		}
		runtime.Gosched()
	}
}

func (s *submitters) release(c *submitter) {
	c.inUse.Store(false)
}

// clear tears every context down. No context may be claimed.
func (s *submitters) clear() {
	for i := range s.ctx {
		s.ctx[i].local.Clear()
	}
}
