package hazpool

import "fmt"

// Common errors returned by the worker pool.
var (
	// ErrPoolClosed is returned when scheduling on a pool whose Clear has
	// started. A cleared pool can not be restarted.
	ErrPoolClosed = &PoolError{msg: "pool is closed"}

	// ErrNilJob is returned when scheduling a job without a function.
	ErrNilJob = &PoolError{msg: "job function is nil"}

	// ErrInvalidConfig is matched by every configuration error returned
	// from New.
	//
	// Example:
	//  _, err := hazpool.New(-1)
	//  if errors.Is(err, hazpool.ErrInvalidConfig) {
	//      ...
	//  }
	ErrInvalidConfig = &PoolError{msg: "invalid config"}
)

// PoolError represents an error that occurred within the worker pool.
// It wraps underlying errors and provides context about pool operations.
type PoolError struct {
	msg  string     // Human-readable error message
	err  error      // Underlying error (if any)
	kind *PoolError // Sentinel this error matches under errors.Is (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("hazpool: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("hazpool: %s", e.msg)
}

// Unwrap returns the underlying error, allowing use with errors.Is and errors.As.
func (e *PoolError) Unwrap() error {
	return e.err
}

// Is reports whether target is the sentinel this error was derived from.
func (e *PoolError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// errInvalidConfig creates an error for invalid pool configuration.
// This is returned during pool creation when validation fails.
func errInvalidConfig(msg string) error {
	return &PoolError{msg: "invalid config: " + msg, kind: ErrInvalidConfig}
}

// PanicError wraps a value recovered from a panicking job together with the
// stack of the goroutine that ran it.
type PanicError struct {
	WorkerID int // -1 when the job ran inside JoinAll
	Value    interface{}
	Stack    string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}
