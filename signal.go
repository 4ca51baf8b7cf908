package hazpool

import (
	"sync"
	"time"
)

// timedCond is a condition variable whose waits are bounded. The mutex only
// exists to satisfy sync.Cond; it guards no pool state, so a wake-up may be
// missed and the timeout is what guarantees progress.
type timedCond struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func newTimedCond() *timedCond {
	c := &timedCond{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// wait blocks until signalled or until d has elapsed.
func (c *timedCond) wait(d time.Duration) {
	c.mu.Lock()

	// The timer can only broadcast once Wait has released the lock.
	timer := time.AfterFunc(d, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})

	c.cond.Wait()
	c.mu.Unlock()
	timer.Stop() // May be no-op if already fired
}

// signal wakes one waiter, if any.
func (c *timedCond) signal() {
	c.mu.Lock()
	c.cond.Signal()
	c.mu.Unlock()
}

// broadcast wakes every waiter.
func (c *timedCond) broadcast() {
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}
