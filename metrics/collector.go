// Package metrics exports pool, queue and hazard registry statistics to
// Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tahsin716/hazpool"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "hazpool"

// StatsSource is anything that can produce a pool statistics snapshot.
// *hazpool.Pool satisfies it.
type StatsSource interface {
	Stats() hazpool.Stats
}

// Collector is a prometheus.Collector that takes one Stats snapshot per
// scrape and reports it as const metrics.
type Collector struct {
	src StatsSource

	submitted *prometheus.Desc
	completed *prometheus.Desc
	failed    *prometheus.Desc
	helped    *prometheus.Desc
	pending   *prometheus.Desc
	queueLen  *prometheus.Desc
	workers   *prometheus.Desc
	busy      *prometheus.Desc
	running   *prometheus.Desc
	latAvg    *prometheus.Desc
	latMax    *prometheus.Desc

	workerExecuted *prometheus.Desc
	workerFailed   *prometheus.Desc

	allocated *prometheus.Desc
	freed     *prometheus.Desc
	recycled  *prometheus.Desc
	reused    *prometheus.Desc
	freeNodes *prometheus.Desc
	scans     *prometheus.Desc
	slots     *prometheus.Desc
	locals    *prometheus.Desc
}

// NewCollector returns a collector for src. An empty namespace means
// DefaultNamespace.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(pool, ""))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func NewCollector(src StatsSource, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, labels, nil,
		)
	}

	return &Collector{
		src: src,

		submitted: desc("jobs", "submitted_total", "Jobs accepted by ScheduleJob."),
		completed: desc("jobs", "completed_total", "Jobs that finished, including panics."),
		failed:    desc("jobs", "failed_total", "Jobs that panicked."),
		helped:    desc("jobs", "helped_total", "Jobs run by JoinAll callers."),
		pending:   desc("jobs", "pending", "Accepted jobs not yet completed."),
		queueLen:  desc("queue", "length", "Advisory length of the job queue."),
		workers:   desc("workers", "total", "Workers in the pool."),
		busy:      desc("workers", "busy", "Workers executing a job."),
		running:   desc("workers", "running", "Worker loops that have not exited."),
		latAvg:    desc("jobs", "latency_avg_seconds", "Average job execution time."),
		latMax:    desc("jobs", "latency_max_seconds", "Maximum job execution time."),

		workerExecuted: desc("worker", "jobs_executed_total", "Jobs executed per worker.", "worker"),
		workerFailed:   desc("worker", "jobs_failed_total", "Jobs that panicked per worker.", "worker"),

		allocated: desc("hazard", "nodes_allocated_total", "Node shells allocated by the registry."),
		freed:     desc("hazard", "nodes_freed_total", "Node shells dropped at registry teardown."),
		recycled:  desc("hazard", "nodes_recycled_total", "Nodes pushed onto the recycle stack."),
		reused:    desc("hazard", "nodes_reused_total", "Node requests served from the recycle stack."),
		freeNodes: desc("hazard", "free_nodes", "Current depth of the recycle stack."),
		scans:     desc("hazard", "scans_total", "Completed hazard scans."),
		slots:     desc("hazard", "slots", "Hazard slots linked into the global list."),
		locals:    desc("hazard", "locals", "Registered hazard contexts."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.submitted, c.completed, c.failed, c.helped, c.pending, c.queueLen,
		c.workers, c.busy, c.running, c.latAvg, c.latMax,
		c.workerExecuted, c.workerFailed,
		c.allocated, c.freed, c.recycled, c.reused, c.freeNodes, c.scans,
		c.slots, c.locals,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.submitted, float64(s.Submitted))
	counter(c.completed, float64(s.Completed))
	counter(c.failed, float64(s.Failed))
	counter(c.helped, float64(s.Helped))
	gauge(c.pending, float64(s.Pending))
	gauge(c.queueLen, float64(s.QueueLength))
	gauge(c.workers, float64(s.NumWorkers))
	gauge(c.busy, float64(s.BusyWorkers))
	gauge(c.running, float64(s.RunningWorkers))
	gauge(c.latAvg, s.LatencyAvg.Seconds())
	gauge(c.latMax, s.LatencyMax.Seconds())

	for _, ws := range s.WorkerStats {
		id := strconv.Itoa(ws.WorkerID)
		counter(c.workerExecuted, float64(ws.JobsExecuted), id)
		counter(c.workerFailed, float64(ws.JobsFailed), id)
	}

	h := s.Hazard
	counter(c.allocated, float64(h.Allocated))
	counter(c.freed, float64(h.Freed))
	counter(c.recycled, float64(h.Recycled))
	counter(c.reused, float64(h.Reused))
	gauge(c.freeNodes, float64(h.Free))
	counter(c.scans, float64(h.Scans))
	gauge(c.slots, float64(h.Slots))
	gauge(c.locals, float64(h.Locals))
}
