package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/refactor-swarm/swarm/pkg/config"
	"github.com/refactor-swarm/swarm/pkg/toolexec"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// TestRunResult is the immutable verdict of one test run. The boolean comes
// from the tool's exit status; the parsed counts are diagnostic only.
type TestRunResult struct {
	Passed      bool
	Diagnostics string
	ExitCode    int
	Duration    time.Duration
	Counts      TestCounts
}

// Judge runs the test suite through the tool adapter and reports pass/fail.
// It never edits files.
type Judge struct {
	runner ToolRunner
	cfg    *config.Config
	logger *utils.Logger
}

// NewJudge wires a judge from its collaborators.
func NewJudge(runner ToolRunner, cfg *config.Config, logger *utils.Logger) *Judge {
	return &Judge{runner: runner, cfg: cfg, logger: logger}
}

// Run executes the configured test command in the sandbox root. A timeout is
// folded into the result as a failure with fixed diagnostic text, never an
// error, so the self-healing loop can absorb it.
func (j *Judge) Run(ctx context.Context) (*TestRunResult, error) {
	command := toolexec.Command{
		Name: j.cfg.TestCommand[0],
		Args: j.cfg.TestCommand[1:],
	}
	timeout := time.Duration(j.cfg.TestTimeoutSecs) * time.Second

	result, err := j.runner.RunWithTimeout(ctx, command, ".", timeout)
	if err != nil {
		return nil, fmt.Errorf("test tool failed to start: %w", err)
	}

	if result.TimedOut {
		j.logger.Logf("Test run timed out after %v", timeout)
		return &TestRunResult{
			Passed:      false,
			Diagnostics: "test execution timed out",
			ExitCode:    result.ExitCode,
			Duration:    result.Duration,
		}, nil
	}

	verdict := &TestRunResult{
		Passed:      result.Success(),
		Diagnostics: result.CombinedOutput(),
		ExitCode:    result.ExitCode,
		Duration:    result.Duration,
		Counts:      ParseTestSummary(result.CombinedOutput()),
	}

	j.logger.LogProcessStep(fmt.Sprintf("Judge: tests %s (%s)", passFailWord(verdict.Passed), utils.FormatDuration(verdict.Duration)))
	return verdict, nil
}

func passFailWord(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
