package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tahsin716/hazpool"
	"github.com/tahsin716/hazpool/hazard"
	"github.com/tahsin716/hazpool/metrics"
)

// errInjected is the value thrown by jobs selected with panic_every.
var errInjected = errors.New("injected job panic")

type runEnv struct {
	logger      *slog.Logger
	metricsAddr string
}

// Report summarises one scenario run.
type Report struct {
	RunID    string
	Scenario string
	Expected int
	Executed int64
	Panics   int64
	Elapsed  time.Duration
	Pool     hazpool.Stats
	Hazard   hazard.Stats
}

// Balanced reports whether the registry freed every node it allocated.
func (r Report) Balanced() bool {
	return r.Hazard.Balanced()
}

// Throughput is executed jobs per second of wall time.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Executed) / r.Elapsed.Seconds()
}

// Print writes a human-readable report.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "run          %s\n", r.RunID)
	fmt.Fprintf(w, "scenario     %s\n", r.Scenario)
	fmt.Fprintf(w, "workers      %d\n", r.Pool.NumWorkers)
	fmt.Fprintf(w, "jobs         %d executed / %d expected (%d helped, %d panicked)\n",
		r.Executed, r.Expected, r.Pool.Helped, r.Panics)
	fmt.Fprintf(w, "elapsed      %s\n", r.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "throughput   %.0f jobs/sec\n", r.Throughput())
	fmt.Fprintf(w, "latency      avg %s, max %s\n", r.Pool.LatencyAvg, r.Pool.LatencyMax)
	fmt.Fprintf(w, "nodes        allocated %d, freed %d, reused %d, scans %d\n",
		r.Hazard.Allocated, r.Hazard.Freed, r.Hazard.Reused, r.Hazard.Scans)

	status := "ok"
	if !r.Balanced() {
		status = "UNBALANCED"
	}
	fmt.Fprintf(w, "accounting   %s\n", status)
}

// runScenario builds a pool for sc, runs every round and clears the pool.
// The pool is cleared on every return path.
func runScenario(ctx context.Context, sc Scenario, env runEnv) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := env.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	var panics atomic.Int64
	opts := append(sc.Options(),
		hazpool.WithLogger(logger),
		hazpool.WithPanicHandler(func(pe *hazpool.PanicError) {
			panics.Add(1)
			if pe.Value != errInjected {
				logger.Error("job panicked", "worker", pe.WorkerID, "panic", pe.Value)
			}
		}),
	)

	pool, err := hazpool.New(sc.Workers, opts...)
	if err != nil {
		return Report{}, err
	}

	if env.metricsAddr != "" {
		_, stop, err := serveMetrics(env.metricsAddr, pool, logger)
		if err != nil {
			pool.Clear()
			return Report{}, err
		}
		defer stop()
	}

	var executed, seq atomic.Int64
	leaf := func(arg any) {
		executed.Add(1)
		if sc.JobWork > 0 {
			spin(sc.JobWork)
		}
		if sc.PanicEvery > 0 && arg.(int64)%int64(sc.PanicEvery) == 0 {
			panic(errInjected)
		}
	}
	job := leaf
	if sc.FanOut > 0 {
		job = func(arg any) {
			for i := 0; i < sc.FanOut; i++ {
				err := pool.ScheduleJob(leaf, seq.Add(1))
				if errors.Is(err, hazpool.ErrPoolClosed) {
					// Parents drained by an early Clear lose their children.
					break
				}
				if err != nil {
					panic(err)
				}
			}
			leaf(arg)
		}
	}

	logger.Info("scenario started",
		"scenario", sc.Name,
		"workers", pool.NumWorkers(),
		"producers", sc.Producers,
		"jobs", sc.TotalJobs(),
	)

	var limiter *rate.Limiter
	if sc.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(sc.Rate), sc.Producers)
	}

	start := time.Now()
	for round := 0; round < sc.Rounds; round++ {
		g, gctx := errgroup.WithContext(ctx)
		for p := 0; p < sc.Producers; p++ {
			g.Go(func() error {
				for i := 0; i < sc.JobsPerProducer; i++ {
					if limiter != nil {
						if err := limiter.Wait(gctx); err != nil {
							return err
						}
					} else if i%1024 == 0 {
						if err := gctx.Err(); err != nil {
							return err
						}
					}
					if err := pool.ScheduleJob(job, seq.Add(1)); err != nil {
						return err
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			pool.Clear()
			return Report{}, fmt.Errorf("round %d: %w", round+1, err)
		}

		pool.JoinAll()
		logger.Debug("round complete", "round", round+1, "executed", executed.Load())
	}
	elapsed := time.Since(start)

	final := pool.Clear()

	return Report{
		RunID:    runID,
		Scenario: sc.Name,
		Expected: sc.TotalJobs(),
		Executed: executed.Load(),
		Panics:   panics.Load(),
		Elapsed:  elapsed,
		Pool:     final,
		Hazard:   final.Hazard,
	}, nil
}

// serveMetrics exposes the pool collector and Go runtime metrics until the
// returned stop function is called. It returns the address actually bound.
func serveMetrics(addr string, pool *hazpool.Pool, logger *slog.Logger) (string, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(pool, ""),
		collectors.NewGoCollector(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listener: %w", err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// spin burns CPU for about d.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}
