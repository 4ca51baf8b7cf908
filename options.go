package hazpool

import (
	"log/slog"
	"time"
)

// Option configures a Pool.
type Option func(*Config)

// WithSubmitterContexts sets the number of shared submitter contexts.
func WithSubmitterContexts(n int) Option {
	return func(c *Config) { c.SubmitterContexts = n }
}

// WithWaitTimeout sets how long an idle worker parks between queue checks.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Config) { c.WaitTimeout = d }
}

// WithJoinTimeout sets how long JoinAll waits between idle checks.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Config) { c.JoinTimeout = d }
}

// WithScanThreshold sets the hazard scan threshold.
func WithScanThreshold(n int) Option {
	return func(c *Config) { c.ScanThreshold = n }
}

// WithPanicHandler sets the handler invoked with every recovered job panic.
func WithPanicHandler(h func(*PanicError)) Option {
	return func(c *Config) { c.PanicHandler = h }
}

// WithWorkerHooks sets callbacks run when a worker starts and stops.
func WithWorkerHooks(onStart, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithPinWorkerThreads locks each worker goroutine to an OS thread.
func WithPinWorkerThreads(pin bool) Option {
	return func(c *Config) { c.PinWorkerThreads = pin }
}

// WithLogger sets the logger shared by the pool and its hazard registry.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
