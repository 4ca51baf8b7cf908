package hazpool

import (
	"time"

	"github.com/tahsin716/hazpool/hazard"
)

// Stats contains statistics about pool operation and performance.
// All counters are snapshots taken at the time Stats() is called and may be
// slightly inconsistent during concurrent operations due to lock-free reads.
//
// Example:
//
//	stats := pool.Stats()
//	fmt.Printf("Completed: %d/%d, nodes allocated: %d\n",
//	    stats.Completed, stats.Submitted, stats.Hazard.Allocated)
type Stats struct {
	// Submitted is the total number of jobs accepted by ScheduleJob.
	Submitted uint64

	// Completed is the total number of jobs that have finished execution,
	// including jobs that panicked.
	Completed uint64

	// Failed is the total number of jobs that panicked.
	Failed uint64

	// Helped is the number of jobs JoinAll callers ran themselves.
	Helped uint64

	// Pending is the number of accepted jobs that have not completed yet.
	Pending int64

	// QueueLength is the advisory length of the shared job queue.
	QueueLength int

	// NumWorkers is the total number of workers in the pool.
	NumWorkers int

	// BusyWorkers is the number of workers currently executing a job.
	BusyWorkers int

	// RunningWorkers is the number of worker loops that have not exited.
	RunningWorkers int

	// LatencyAvg is the average execution time of completed jobs.
	// Zero if no jobs have completed.
	LatencyAvg time.Duration

	// LatencyMax is the maximum execution time observed for any single job.
	LatencyMax time.Duration

	// WorkerStats contains per-worker statistics, one entry per worker.
	WorkerStats []WorkerStats

	// Hazard is a snapshot of the node registry backing the job queue.
	// After Clear, Hazard.Allocated equals Hazard.Freed.
	Hazard hazard.Stats
}

// WorkerStats contains statistics for an individual worker goroutine.
type WorkerStats struct {
	// WorkerID is the worker's identifier (1-indexed; 0 is the owner's
	// submitter context).
	WorkerID int

	// JobsExecuted is the number of jobs this worker ran, panics included.
	JobsExecuted uint64

	// JobsFailed is the number of jobs that panicked on this worker.
	JobsFailed uint64

	// State is one of "IDLE", "BUSY" or "STOPPED".
	State string
}
