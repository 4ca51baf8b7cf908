package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tahsin716/hazpool"
)

// Scenario describes one benchmark workload. Zero pool fields keep the
// pool defaults.
type Scenario struct {
	Name string `yaml:"name"`

	// Pool
	Workers           int           `yaml:"workers"`
	SubmitterContexts int           `yaml:"submitter_contexts"`
	WaitTimeout       time.Duration `yaml:"wait_timeout"`
	JoinTimeout       time.Duration `yaml:"join_timeout"`
	ScanThreshold     int           `yaml:"scan_threshold"`
	PinWorkerThreads  bool          `yaml:"pin_worker_threads"`

	// Workload
	Producers       int           `yaml:"producers"`
	JobsPerProducer int           `yaml:"jobs_per_producer"`
	Rounds          int           `yaml:"rounds"`
	JobWork         time.Duration `yaml:"job_work"`
	FanOut          int           `yaml:"fan_out"`
	PanicEvery      int           `yaml:"panic_every"`

	// Rate caps scheduling across all producers, in jobs per second.
	// Zero means unthrottled.
	Rate float64 `yaml:"rate"`
}

// DefaultScenario returns a short, CPU-bound workload.
func DefaultScenario() Scenario {
	return Scenario{
		Name:            "default",
		Producers:       4,
		JobsPerProducer: 10000,
		Rounds:          1,
	}
}

// LoadScenario reads a YAML scenario. Fields missing from the file keep the
// values of DefaultScenario.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}

	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Validate rejects workloads that could not run.
func (s Scenario) Validate() error {
	var errs []error
	if s.Workers < 0 {
		errs = append(errs, errors.New("workers must be >= 0"))
	}
	if s.Producers < 1 {
		errs = append(errs, errors.New("producers must be >= 1"))
	}
	if s.JobsPerProducer < 0 {
		errs = append(errs, errors.New("jobs_per_producer must be >= 0"))
	}
	if s.Rounds < 1 {
		errs = append(errs, errors.New("rounds must be >= 1"))
	}
	if s.JobWork < 0 {
		errs = append(errs, errors.New("job_work must be >= 0"))
	}
	if s.FanOut < 0 {
		errs = append(errs, errors.New("fan_out must be >= 0"))
	}
	if s.Rate < 0 {
		errs = append(errs, errors.New("rate must be >= 0"))
	}
	if s.PanicEvery < 0 {
		errs = append(errs, errors.New("panic_every must be >= 0"))
	}
	return errors.Join(errs...)
}

// Options maps the pool section onto hazpool options. Invalid values are
// passed through so that hazpool.New reports them.
func (s Scenario) Options() []hazpool.Option {
	var opts []hazpool.Option
	if s.SubmitterContexts != 0 {
		opts = append(opts, hazpool.WithSubmitterContexts(s.SubmitterContexts))
	}
	if s.WaitTimeout != 0 {
		opts = append(opts, hazpool.WithWaitTimeout(s.WaitTimeout))
	}
	if s.JoinTimeout != 0 {
		opts = append(opts, hazpool.WithJoinTimeout(s.JoinTimeout))
	}
	if s.ScanThreshold != 0 {
		opts = append(opts, hazpool.WithScanThreshold(s.ScanThreshold))
	}
	if s.PinWorkerThreads {
		opts = append(opts, hazpool.WithPinWorkerThreads(true))
	}
	return opts
}

// TotalJobs is the number of jobs the scenario schedules, children included.
func (s Scenario) TotalJobs() int {
	return s.Rounds * s.Producers * s.JobsPerProducer * (1 + s.FanOut)
}
