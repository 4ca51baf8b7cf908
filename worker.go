package hazpool

import (
	"runtime"
	"sync/atomic"

	"github.com/tahsin716/hazpool/hazard"
)

// worker represents a single worker goroutine
type worker struct {
	id    int
	pool  *Pool
	local *hazard.Local[Job]

	// State management. The loop runs while shouldRun is set; isRunning
	// stays set from creation until the loop has exited.
	busy      atomic.Bool
	shouldRun atomic.Bool
	isRunning atomic.Bool

	// Metrics
	jobsExecuted uint64 // atomic
	jobsFailed   uint64 // atomic
}

// newWorker creates a new worker
func newWorker(id int, pool *Pool, local *hazard.Local[Job]) *worker {
	w := &worker{
		id:    id,
		pool:  pool,
		local: local,
	}
	w.shouldRun.Store(true)
	w.isRunning.Store(true)
	return w
}

// run is the main worker loop
func (w *worker) run() {
	p := w.pool
	defer w.isRunning.Store(false)

	// A pinned thread is never unlocked: it exits with the goroutine, so
	// its narrowed affinity can not leak to other goroutines.
	if p.config.PinWorkerThreads {
		runtime.LockOSThread()
		if err := pinToCPU(w.id); err != nil {
			p.logger.Warn("cpu affinity not applied", "worker", w.id, "error", err)
		}
	}

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(w.id)
	}
	p.logger.Debug("worker started", "worker", w.id)

	for w.shouldRun.Load() {
		if p.queue.Empty() {
			// Let a waiting JoinAll re-check, then park briefly.
			p.join.signal()
			p.wait.wait(p.config.WaitTimeout)
		}

		// Busy goes up before the pop so JoinAll never sees an empty
		// queue and an idle worker while a job is in hand.
		w.busy.Store(true)
		if job, ok := p.queue.Pop(w.local); ok {
			atomic.AddUint64(&w.jobsExecuted, 1)
			if p.execute(job, w.id) {
				atomic.AddUint64(&w.jobsFailed, 1)
			}
		}
		w.busy.Store(false)
	}

	if p.config.OnWorkerStop != nil {
		p.config.OnWorkerStop(w.id)
	}
	p.logger.Debug("worker stopped",
		"worker", w.id,
		"jobs", atomic.LoadUint64(&w.jobsExecuted),
	)
}

// state returns the current worker state
func (w *worker) state() string {
	switch {
	case !w.isRunning.Load():
		return "STOPPED"
	case w.busy.Load():
		return "BUSY"
	default:
		return "IDLE"
	}
}
