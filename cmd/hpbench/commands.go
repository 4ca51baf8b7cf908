package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tahsin716/hazpool/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type runFlags struct {
	configPath  string
	workers     int
	producers   int
	jobs        int
	logLevel    string
	logJSON     bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hpbench",
		Short: "Load generator for the hazpool worker pool",
		Long: `hpbench schedules a configurable workload on a hazpool worker pool,
waits for it to drain, tears the pool down and checks that every queue node
the hazard registry allocated was freed again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario and print a report",
		Example: `  hpbench run --config scenario.yaml
  hpbench run --workers 8 --producers 4 --jobs 100000 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := DefaultScenario()
			if f.configPath != "" {
				loaded, err := LoadScenario(f.configPath)
				if err != nil {
					return err
				}
				sc = loaded
			}

			// Flags override the file only when given.
			if cmd.Flags().Changed("workers") {
				sc.Workers = f.workers
			}
			if cmd.Flags().Changed("producers") {
				sc.Producers = f.producers
			}
			if cmd.Flags().Changed("jobs") {
				sc.JobsPerProducer = f.jobs
			}
			if err := sc.Validate(); err != nil {
				return err
			}

			level, err := logging.ParseLevel(f.logLevel)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{
				Level:   level,
				JSON:    f.logJSON,
				Service: "hpbench",
				Writer:  cmd.ErrOrStderr(),
			})

			report, err := runScenario(cmd.Context(), sc, runEnv{
				logger:      logger,
				metricsAddr: f.metricsAddr,
			})
			if err != nil {
				return err
			}

			report.Print(cmd.OutOrStdout())
			if !report.Balanced() {
				return fmt.Errorf("node accounting unbalanced: allocated %d, freed %d",
					report.Hazard.Allocated, report.Hazard.Freed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML scenario file")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of workers (0 = NumCPU)")
	cmd.Flags().IntVarP(&f.producers, "producers", "p", 0, "number of concurrent producers")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "n", 0, "jobs scheduled by each producer per round")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.logJSON, "log-json", false, "log as JSON")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hpbench version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hpbench %s (%s %s/%s)\n",
				version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
