// Package hazpool provides a fixed-size worker pool built on a lock-free
// job queue whose nodes are recycled under hazard-pointer protection.
//
// The pool has three layers:
//
//   - package hazard: a registry of hazard slots plus a recycle stack of
//     node shells. A node is reused only after a scan proves that no slot
//     publishes it.
//   - package queue: a Michael & Scott MPMC FIFO whose nodes come from and
//     return to the registry.
//   - package hazpool: workers that drain the queue, goroutine-safe job
//     submission and a helping JoinAll.
//
// # Quick Start
//
//	pool, err := hazpool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var n atomic.Int64
//	for i := 0; i < 1000; i++ {
//	    pool.ScheduleJob(func(arg any) {
//	        n.Add(int64(arg.(int)))
//	    }, i)
//	}
//
//	pool.JoinAll()
//	stats := pool.Clear()
//	fmt.Println(n.Load(), stats.Hazard.Allocated == stats.Hazard.Freed)
//
// # Submitter Contexts
//
// Every hazard slot has a single writer. Workers own their contexts;
// goroutines calling ScheduleJob or JoinAll borrow one from a fixed table
// for the duration of a single push or pop. The table size is set with
// WithSubmitterContexts and defaults to GOMAXPROCS.
//
// # Joining and Clearing
//
// JoinAll runs queued jobs on the calling goroutine until the queue is empty,
// then waits until no worker is busy. Jobs may schedule more jobs; JoinAll
// returns once those have run as well.
//
// Clear rejects new jobs, drains the queue, stops every worker and releases
// all node shells. The Hazard field of the returned Stats then shows equal
// allocation and free counts.
//
// # Panic Handling
//
// A panicking job is recovered and reported as a *PanicError to the handler
// set with WithPanicHandler, or logged at error level. The pool keeps
// running.
//
// # Thread Safety
//
// ScheduleJob, Schedule, JoinAll, Stats, Len and NumWorkers are safe for
// concurrent use. Clear and JoinAll must not be called from inside a job.
package hazpool
