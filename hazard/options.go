package hazard

import (
	"io"
	"log/slog"
)

// DefaultThreshold is the number of privately retired nodes a Local may hold
// before a Retire triggers a Scan.
const DefaultThreshold = 10

// Option configures a Registry.
type Option func(*config)

type config struct {
	threshold int
	logger    *slog.Logger
}

func defaultConfig() config {
	return config{
		threshold: DefaultThreshold,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithThreshold sets the scan threshold. Values below 1 are ignored.
func WithThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
