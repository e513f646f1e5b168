package ports

import (
	"context"
	"time"
)

// RunResult captures the outcome of one external tool invocation
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// PreviewProcess is a handle to a running preview process
type PreviewProcess interface {
	// Stop terminates the process, asking politely before killing
	Stop(ctx context.Context) error

	// Done is closed when the process exits for any reason
	Done() <-chan struct{}
}

// ToolRunner invokes the external build/serve tool
type ToolRunner interface {
	// Run executes the tool to completion in dir, honoring ctx cancellation
	// and deadline. A non-zero exit is reported in the result, not as an
	// error; errors are reserved for spawn failures and timeouts.
	Run(ctx context.Context, dir string, args ...string) (*RunResult, error)

	// Start launches the long-lived preview process in dir and returns once
	// it is confirmed running
	Start(ctx context.Context, dir string, args ...string) (PreviewProcess, error)
}
