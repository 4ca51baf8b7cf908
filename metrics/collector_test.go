package metrics

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahsin716/hazpool"
	"github.com/tahsin716/hazpool/hazard"
)

type fixedSource struct {
	stats hazpool.Stats
}

func (f fixedSource) Stats() hazpool.Stats { return f.stats }

func TestCollector_FixedStats(t *testing.T) {
	src := fixedSource{stats: hazpool.Stats{
		Submitted:      12,
		Completed:      10,
		Failed:         1,
		Pending:        2,
		QueueLength:    2,
		NumWorkers:     2,
		BusyWorkers:    1,
		RunningWorkers: 2,
		LatencyMax:     500 * time.Millisecond,
		WorkerStats: []hazpool.WorkerStats{
			{WorkerID: 1, JobsExecuted: 6, JobsFailed: 1},
			{WorkerID: 2, JobsExecuted: 4},
		},
		Hazard: hazard.Stats{Allocated: 5, Reused: 7, Free: 3},
	}}

	c := NewCollector(src, "")

	expected := `
# HELP hazpool_jobs_submitted_total Jobs accepted by ScheduleJob.
# TYPE hazpool_jobs_submitted_total counter
hazpool_jobs_submitted_total 12
# HELP hazpool_jobs_pending Accepted jobs not yet completed.
# TYPE hazpool_jobs_pending gauge
hazpool_jobs_pending 2
# HELP hazpool_jobs_latency_max_seconds Maximum job execution time.
# TYPE hazpool_jobs_latency_max_seconds gauge
hazpool_jobs_latency_max_seconds 0.5
# HELP hazpool_worker_jobs_executed_total Jobs executed per worker.
# TYPE hazpool_worker_jobs_executed_total counter
hazpool_worker_jobs_executed_total{worker="1"} 6
hazpool_worker_jobs_executed_total{worker="2"} 4
# HELP hazpool_hazard_nodes_allocated_total Node shells allocated by the registry.
# TYPE hazpool_hazard_nodes_allocated_total counter
hazpool_hazard_nodes_allocated_total 5
# HELP hazpool_hazard_free_nodes Current depth of the recycle stack.
# TYPE hazpool_hazard_free_nodes gauge
hazpool_hazard_free_nodes 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"hazpool_jobs_submitted_total",
		"hazpool_jobs_pending",
		"hazpool_jobs_latency_max_seconds",
		"hazpool_worker_jobs_executed_total",
		"hazpool_hazard_nodes_allocated_total",
		"hazpool_hazard_free_nodes",
	)
	assert.NoError(t, err)

	// 19 pool-wide series plus two per worker.
	assert.Equal(t, 23, testutil.CollectAndCount(c))
}

func TestCollector_Namespace(t *testing.T) {
	c := NewCollector(fixedSource{}, "bench")

	n := testutil.CollectAndCount(c, "bench_jobs_submitted_total")
	assert.Equal(t, 1, n)
}

func TestCollector_LivePool(t *testing.T) {
	pool, err := hazpool.New(2)
	require.NoError(t, err)
	defer pool.Clear()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(pool, "")))

	var n atomic.Int32
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.ScheduleJob(func(any) { n.Add(1) }, nil))
	}
	pool.JoinAll()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		if len(mf.GetMetric()) != 1 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	assert.Equal(t, float64(100), values["hazpool_jobs_submitted_total"])
	assert.Equal(t, float64(100), values["hazpool_jobs_completed_total"])
	assert.Equal(t, float64(0), values["hazpool_jobs_pending"])
	assert.Equal(t, float64(2), values["hazpool_workers_total"])
	assert.GreaterOrEqual(t, values["hazpool_hazard_nodes_allocated_total"], float64(1))
}
