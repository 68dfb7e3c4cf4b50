package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// Command describes an external tool invocation: an executable name plus its
// arguments, never interpreted through a shell.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the normalized outcome of a tool invocation. Tool output is
// captured verbatim and never interpreted here; parsing tool-specific formats
// is the caller's job.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Success reports whether the tool exited cleanly.
func (r *Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// CombinedOutput returns stdout followed by stderr, for diagnostic text.
func (r *Result) CombinedOutput() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Executor runs external analysis and test tools as child processes scoped to
// a working directory inside the sandbox, bounded by a timeout. A timeout is
// reported in the Result, not as an error, so callers decide how to proceed.
type Executor struct {
	sandbox *sandbox.Sandbox
	logger  *utils.Logger
	timeout time.Duration
}

// NewExecutor creates an executor bound to the given sandbox. The timeout
// applies to every invocation unless overridden per call.
func NewExecutor(sb *sandbox.Sandbox, logger *utils.Logger, timeout time.Duration) *Executor {
	return &Executor{
		sandbox: sb,
		logger:  logger,
		timeout: timeout,
	}
}

// Run launches the tool in workDir (a sandbox-relative directory) and waits up
// to the executor timeout. On expiry the process is forcibly terminated and
// the partial output is still returned with TimedOut set. Errors are reserved
// for invocations that never produced a process: a working directory outside
// the sandbox or a missing executable.
func (e *Executor) Run(ctx context.Context, command Command, workDir string) (*Result, error) {
	return e.RunWithTimeout(ctx, command, workDir, e.timeout)
}

// RunWithTimeout is Run with an explicit per-call timeout.
func (e *Executor) RunWithTimeout(ctx context.Context, command Command, workDir string, timeout time.Duration) (*Result, error) {
	if command.Name == "" {
		return nil, fmt.Errorf("empty command provided")
	}

	resolvedDir, err := e.sandbox.Resolve(workDir)
	if err != nil {
		return nil, fmt.Errorf("tool working directory rejected: %w", err)
	}

	if e.logger != nil {
		e.logger.LogProcessStep(fmt.Sprintf("Running tool: %s (in %s)", command, workDir))
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command.Name, command.Args...)
	cmd.Dir = resolvedDir
	// Give the process a short grace period after the context fires so Wait
	// cannot hang on inherited pipes.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		if e.logger != nil {
			e.logger.Logf("Tool timed out after %v: %s", timeout, command)
		}
		return result, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The process never started (e.g. executable not found)
			return nil, fmt.Errorf("failed to run tool %s: %w", command.Name, runErr)
		}
	}

	if e.logger != nil {
		e.logger.Logf("Tool finished: %s (exit %d, %v)", command, result.ExitCode, utils.FormatDuration(duration))
	}

	return result, nil
}
