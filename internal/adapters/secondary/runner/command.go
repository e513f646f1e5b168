package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/siteforge/siteforge/internal/domain/ports"
)

const (
	// startupWindow is how long a preview process must survive before its
	// start is considered successful
	startupWindow = 300 * time.Millisecond

	// stopGrace is how long Stop waits after SIGTERM before killing
	stopGrace = 5 * time.Second
)

// CommandRunner invokes the configured external build/serve tool via
// os/exec. Non-zero exits are reported in the result; the error return is
// reserved for spawn failures and deadline expiry.
type CommandRunner struct {
	command string
	logger  *slog.Logger
}

// NewCommandRunner creates a runner for the given tool binary
func NewCommandRunner(command string, logger *slog.Logger) *CommandRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRunner{
		command: command,
		logger:  logger.With("adapter", "runner"),
	}
}

// Run executes the tool to completion in dir, capturing stdout and stderr
func (r *CommandRunner) Run(ctx context.Context, dir string, args ...string) (*ports.RunResult, error) {
	cmd := exec.CommandContext(ctx, r.command, args...) // #nosec G204 - command comes from operator config
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Ask politely on cancellation, then kill after the grace window
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := &ports.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("running %s: %w", r.command, err)
	}
	return result, nil
}

// Start launches the long-lived preview process in dir. The start is
// confirmed by the process surviving a short startup window.
func (r *CommandRunner) Start(ctx context.Context, dir string, args ...string) (ports.PreviewProcess, error) {
	cmd := exec.Command(r.command, args...) // #nosec G204 - command comes from operator config
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", r.command, err)
	}

	p := &previewProcess{
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: r.logger,
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	select {
	case <-p.done:
		return nil, fmt.Errorf("preview process exited immediately: %s", firstLine(stderr.String()))
	case <-ctx.Done():
		_ = p.Stop(context.Background())
		return nil, ctx.Err()
	case <-time.After(startupWindow):
		return p, nil
	}
}

// previewProcess wraps a running preview command
type previewProcess struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
	logger  *slog.Logger
}

// Done is closed when the process exits for any reason
func (p *previewProcess) Done() <-chan struct{} {
	return p.done
}

// Stop sends SIGTERM and escalates to SIGKILL after the grace window
func (p *previewProcess) Stop(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		p.logger.Debug("signaling preview process", slog.String("error", err.Error()))
	}

	grace := time.NewTimer(stopGrace)
	defer grace.Stop()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	case <-grace.C:
	}

	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("killing preview process: %w", err)
	}
	<-p.done
	return nil
}

// firstLine trims diagnostics to their first line for error messages
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
