package hazpool

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tahsin716/hazpool/hazard"
	"github.com/tahsin716/hazpool/queue"
)

// Job is a unit of work: Fn is called exactly once with Arg.
type Job struct {
	Fn  func(arg any)
	Arg any
}

// Pool is a fixed set of workers draining one shared lock-free job queue.
type Pool struct {
	config Config
	logger *slog.Logger

	registry   *hazard.Registry[Job]
	queue      *queue.Queue[Job]
	workers    []*worker
	submitters *submitters

	// wait is signalled when work arrives, join when a worker goes idle.
	wait *timedCond
	join *timedCond

	// Lifecycle management
	wg         sync.WaitGroup
	closed     atomic.Bool
	draining   atomic.Bool
	scheduling atomic.Int64
	joining    atomic.Int64
	clearOnce  sync.Once

	// Metrics
	metrics poolMetrics
	pending int64 // atomic

	// Latency tracking
	latencySum   uint64 // atomic
	latencyCount uint64 // atomic
	latencyMax   uint64 // atomic
}

// poolMetrics tracks pool-wide statistics
type poolMetrics struct {
	submitted uint64 // atomic
	completed uint64 // atomic
	failed    uint64 // atomic
	helped    uint64 // atomic
}

// New creates a pool of numWorkers workers (runtime.NumCPU() when 0) and
// starts them. Every worker owns a hazard context; the submitter table
// provides the contexts used by ScheduleJob and JoinAll callers.
//
// Example:
//
//	pool, err := hazpool.New(4, hazpool.WithWaitTimeout(500*time.Microsecond))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Clear()
func New(numWorkers int, opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	cfg.NumWorkers = numWorkers

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	reg := hazard.NewRegistry[Job](
		hazard.WithThreshold(cfg.ScanThreshold),
		hazard.WithLogger(cfg.Logger),
	)

	p := &Pool{
		config:   cfg,
		logger:   cfg.Logger,
		registry: reg,
		queue:    queue.New(reg),
		workers:  make([]*worker, cfg.NumWorkers),
		wait:     newTimedCond(),
		join:     newTimedCond(),
	}

	subs, err := newSubmitters(reg, cfg.SubmitterContexts)
	if err != nil {
		return nil, err
	}
	p.submitters = subs

	for i := range p.workers {
		local, err := reg.ThreadInit(queue.HazardSlots)
		if err != nil {
			return nil, err
		}
		p.workers[i] = newWorker(i+1, p, local)
	}

	for _, w := range p.workers {
		p.wg.Add(1)
		go func(wk *worker) {
			defer p.wg.Done()
			wk.run()
		}(w)
	}

	p.logger.Debug("pool started",
		"workers", cfg.NumWorkers,
		"submitter_contexts", cfg.SubmitterContexts,
	)
	return p, nil
}

// ScheduleJob queues fn to be called with arg by some worker. It never
// blocks and may be called from any goroutine, including running jobs.
//
// Returns ErrNilJob if fn is nil.
// Returns ErrPoolClosed once Clear has started.
func (p *Pool) ScheduleJob(fn func(arg any), arg any) error {
	return p.Schedule(Job{Fn: fn, Arg: arg})
}

// Schedule queues a prebuilt job. See ScheduleJob.
func (p *Pool) Schedule(job Job) error {
	if job.Fn == nil {
		return ErrNilJob
	}

	// Clear waits for in-flight schedulers before tearing the queue down.
	p.scheduling.Add(1)
	defer p.scheduling.Add(-1)

	if p.closed.Load() {
		return ErrPoolClosed
	}

	atomic.AddInt64(&p.pending, 1)
	atomic.AddUint64(&p.metrics.submitted, 1)

	s := p.submitters.acquire()
	p.queue.Push(s.local, job)
	p.submitters.release(s)

	p.wait.signal()
	return nil
}

// JoinAll blocks until the queue is empty and no job is executing. The
// caller helps: queued jobs are popped and run on the calling goroutine, so
// it acts as one more worker while it waits.
//
// Once Clear has drained the pool, JoinAll returns immediately; Clear does
// not tear the queue down while a JoinAll caller is still inside.
//
// JoinAll must not be called from inside a job.
func (p *Pool) JoinAll() {
	// Clear waits for joiners to leave before tearing the queue down.
	p.joining.Add(1)
	defer p.joining.Add(-1)

	p.drain(true)
}

// drain is the JoinAll loop. External callers stop as soon as Clear has
// finished its own drain; Clear itself always runs to completion.
func (p *Pool) drain(external bool) {
	for {
		if external && p.draining.Load() {
			return
		}

		for !p.queue.Empty() {
			if external && p.draining.Load() {
				return
			}
			p.helpOne()
		}

		if atomic.LoadInt64(&p.pending) == 0 && p.allIdle() {
			return
		}

		p.join.wait(p.config.JoinTimeout)
	}
}

// helpOne pops a single job with a borrowed submitter context and runs it.
func (p *Pool) helpOne() bool {
	s := p.submitters.acquire()
	job, ok := p.queue.Pop(s.local)
	p.submitters.release(s)

	if !ok {
		return false
	}

	atomic.AddUint64(&p.metrics.helped, 1)
	p.execute(job, -1)
	return true
}

// Clear shuts the pool down: new jobs are rejected, queued jobs are drained,
// every worker is confirmed exited before its hazard context is torn down,
// and finally the queue and registry release all node shells. The returned
// stats carry the registry's final alloc/free counters.
//
// Multiple calls to Clear are safe; later calls return the current stats.
// Clear must not be called from inside a job.
func (p *Pool) Clear() Stats {
	p.clearOnce.Do(func() {
		p.closed.Store(true)
		for p.scheduling.Load() > 0 {
			runtime.Gosched()
		}

		for _, w := range p.workers {
			w.shouldRun.Store(false)
		}

		p.drain(false)

		// Everything accepted has run. Send other joiners home and wait
		// until none of them can still touch the queue or a submitter.
		p.draining.Store(true)
		for p.joining.Load() > 0 {
			p.join.broadcast()
			runtime.Gosched()
		}

		// A worker parked on wait exits at its next timeout at the
		// latest; broadcasting just gets it there sooner.
		for !p.allStopped() {
			p.wait.broadcast()
			runtime.Gosched()
		}
		p.wg.Wait()

		for _, w := range p.workers {
			w.local.Clear()
		}

		p.queue.Clear(p.submitters.owner())
		p.submitters.clear()
		hz := p.registry.Clear()

		p.logger.Info("pool cleared",
			"workers", len(p.workers),
			"completed", atomic.LoadUint64(&p.metrics.completed),
			"failed", atomic.LoadUint64(&p.metrics.failed),
			"nodes_allocated", hz.Allocated,
			"nodes_freed", hz.Freed,
		)
	})

	return p.Stats()
}

// IsClosed returns true once Clear has started.
func (p *Pool) IsClosed() bool {
	return p.closed.Load()
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// Len returns the advisory number of queued jobs.
func (p *Pool) Len() int {
	return p.queue.Len()
}

// Stats returns a snapshot of pool statistics.
//
// Note: Stats are collected without locks, so values may be slightly
// inconsistent during concurrent operations.
func (p *Pool) Stats() Stats {
	workerStats := make([]WorkerStats, len(p.workers))
	busy, running := 0, 0

	for i, w := range p.workers {
		state := w.state()
		switch state {
		case "BUSY":
			busy++
			running++
		case "IDLE":
			running++
		}

		workerStats[i] = WorkerStats{
			WorkerID:     w.id,
			JobsExecuted: atomic.LoadUint64(&w.jobsExecuted),
			JobsFailed:   atomic.LoadUint64(&w.jobsFailed),
			State:        state,
		}
	}

	latencyCount := atomic.LoadUint64(&p.latencyCount)
	latencyAvg := time.Duration(0)
	latencyMax := time.Duration(0)

	if latencyCount > 0 {
		latencySum := atomic.LoadUint64(&p.latencySum)
		latencyAvg = time.Duration(latencySum/latencyCount) * time.Microsecond
		latencyMax = time.Duration(atomic.LoadUint64(&p.latencyMax)) * time.Microsecond
	}

	return Stats{
		Submitted:      atomic.LoadUint64(&p.metrics.submitted),
		Completed:      atomic.LoadUint64(&p.metrics.completed),
		Failed:         atomic.LoadUint64(&p.metrics.failed),
		Helped:         atomic.LoadUint64(&p.metrics.helped),
		Pending:        atomic.LoadInt64(&p.pending),
		QueueLength:    p.queue.Len(),
		NumWorkers:     len(p.workers),
		BusyWorkers:    busy,
		RunningWorkers: running,
		LatencyAvg:     latencyAvg,
		LatencyMax:     latencyMax,
		WorkerStats:    workerStats,
		Hazard:         p.registry.Stats(),
	}
}

func (p *Pool) allIdle() bool {
	for _, w := range p.workers {
		if w.busy.Load() {
			return false
		}
	}
	return true
}

func (p *Pool) allStopped() bool {
	for _, w := range p.workers {
		if w.isRunning.Load() {
			return false
		}
	}
	return true
}

// recordLatency records job execution latency
func (p *Pool) recordLatency(duration time.Duration) {
	micros := uint64(duration.Microseconds())

	atomic.AddUint64(&p.latencySum, micros)
	atomic.AddUint64(&p.latencyCount, 1)

	for {
		current := atomic.LoadUint64(&p.latencyMax)
		if micros <= current {
			break
		}
		if atomic.CompareAndSwapUint64(&p.latencyMax, current, micros) {
			break
		}
	}
}

// execute runs a job with panic recovery. A panicking job never unwinds
// into the queue or registry code. Reports whether the job panicked.
func (p *Pool) execute(job Job, workerID int) (failed bool) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			failed = true
			atomic.AddUint64(&p.metrics.failed, 1)
			p.handlePanic(&PanicError{
				WorkerID: workerID,
				Value:    r,
				Stack:    string(debug.Stack()),
			})
		}

		p.recordLatency(time.Since(start))
		atomic.AddUint64(&p.metrics.completed, 1)
		atomic.AddInt64(&p.pending, -1)
	}()

	job.Fn(job.Arg)
	return false
}

func (p *Pool) handlePanic(perr *PanicError) {
	if p.config.PanicHandler == nil {
		p.logger.Error("job panicked",
			"worker", perr.WorkerID,
			"panic", perr.Value,
			"stack", perr.Stack,
		)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic handler panicked", "panic", r)
		}
	}()
	p.config.PanicHandler(perr)
}
