package hazpool

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/tahsin716/hazpool/hazard"
)

// Config contains all configuration options for the worker pool
type Config struct {
	// NumWorkers is the number of worker goroutines
	// If 0, defaults to runtime.NumCPU()
	NumWorkers int

	// SubmitterContexts is the number of hazard contexts shared by goroutines
	// calling ScheduleJob and JoinAll. Context 0 is reserved for the owner.
	// If 0, defaults to runtime.GOMAXPROCS(0)
	SubmitterContexts int

	// WaitTimeout bounds how long an idle worker parks before re-checking
	// the queue and its run flag. Defaults to 1ms
	WaitTimeout time.Duration

	// JoinTimeout bounds each wait of JoinAll for busy workers to go idle.
	// Defaults to 1ms
	JoinTimeout time.Duration

	// ScanThreshold is the number of retired nodes a context holds before
	// it scans the hazard slots. Defaults to hazard.DefaultThreshold
	ScanThreshold int

	// PanicHandler is called when a job panics
	// If nil, panics are logged at error level
	PanicHandler func(*PanicError)

	// OnWorkerStart is called when a worker starts
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops
	OnWorkerStop func(workerID int)

	// PinWorkerThreads locks every worker to its own OS thread and, on
	// Linux, that thread to one CPU of the process affinity set
	PinWorkerThreads bool

	// Logger receives lifecycle messages. Defaults to a discarding logger
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		NumWorkers:        0, // will be set to runtime.NumCPU()
		SubmitterContexts: 0, // will be set to runtime.GOMAXPROCS(0)
		WaitTimeout:       time.Millisecond,
		JoinTimeout:       time.Millisecond,
		ScanThreshold:     hazard.DefaultThreshold,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// validate checks the configuration and fills in derived defaults
func (c *Config) validate() error {
	if c.NumWorkers < 0 {
		return errInvalidConfig("NumWorkers must be >= 0")
	}

	if c.SubmitterContexts < 0 {
		return errInvalidConfig("SubmitterContexts must be >= 0")
	}

	if c.WaitTimeout <= 0 {
		return errInvalidConfig("WaitTimeout must be > 0")
	}

	if c.JoinTimeout <= 0 {
		return errInvalidConfig("JoinTimeout must be > 0")
	}

	if c.ScanThreshold < 1 {
		return errInvalidConfig("ScanThreshold must be >= 1")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = runtime.NumCPU()
	}

	if c.SubmitterContexts == 0 {
		c.SubmitterContexts = runtime.GOMAXPROCS(0)
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return nil
}
