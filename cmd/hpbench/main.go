// Command hpbench drives a hazpool worker pool with a YAML-described
// workload and reports throughput and node accounting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "hpbench:", err)
		stop()
		os.Exit(1)
	}
}
