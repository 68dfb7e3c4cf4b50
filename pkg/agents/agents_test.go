package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refactor-swarm/swarm/pkg/changetracker"
	"github.com/refactor-swarm/swarm/pkg/config"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/toolexec"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

type fakeBrain struct {
	plan     []llm.FileActionItem
	planErr  error
	fix      func(item llm.FileActionItem, contents, feedback string) (string, error)
	fixCalls int
}

func (b *fakeBrain) ProducePlan(ctx context.Context, report string) ([]llm.FileActionItem, error) {
	return b.plan, b.planErr
}

func (b *fakeBrain) ApplyFix(ctx context.Context, item llm.FileActionItem, contents, feedback string) (string, error) {
	b.fixCalls++
	if b.fix != nil {
		return b.fix(item, contents, feedback)
	}
	return contents + "\n# fixed\n", nil
}

type fakeRunner struct {
	result     *toolexec.Result
	err        error
	gotCommand toolexec.Command
	gotTimeout time.Duration
}

func (r *fakeRunner) RunWithTimeout(ctx context.Context, command toolexec.Command, workDir string, timeout time.Duration) (*toolexec.Result, error) {
	r.gotCommand = command
	r.gotTimeout = timeout
	return r.result, r.err
}

func newTestTarget(t *testing.T, files map[string]string) *sandbox.Sandbox {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	sb, err := sandbox.New(dir)
	require.NoError(t, err)
	return sb
}

func TestAuditorProducesPlanAndScore(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"app.py": "x = 1\n"})
	brain := &fakeBrain{plan: []llm.FileActionItem{
		{Path: "app.py", Description: "remove unused variable", Category: "style", Severity: "low"},
	}}
	runner := &fakeRunner{result: &toolexec.Result{
		ExitCode: 16,
		Stdout:   "app.py:1:0: W0612 unused variable\nYour code has been rated at 6.50/10\n",
	}}
	cfg := config.DefaultConfig()
	auditor := NewAuditor(brain, runner, sb, cfg, utils.GetLogger(false))

	result, err := auditor.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Plan, 1)
	assert.Equal(t, 6.5, result.Score)
	assert.Equal(t, []string{"app.py"}, result.Files)
	assert.Equal(t, cfg.AnalyzeCommand[0], runner.gotCommand.Name)
	assert.Equal(t, 60*time.Second, runner.gotTimeout)
}

func TestAuditorEmptyPlanIsSentinel(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"clean.py": "def f():\n    return 1\n"})
	brain := &fakeBrain{plan: nil}
	runner := &fakeRunner{result: &toolexec.Result{ExitCode: 0, Stdout: "Your code has been rated at 10.00/10\n"}}
	auditor := NewAuditor(brain, runner, sb, config.DefaultConfig(), utils.GetLogger(false))

	result, err := auditor.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyPlan)
	assert.Empty(t, result.Plan)
	assert.Equal(t, 10.0, result.Score)
}

func TestAuditorNoSourceFiles(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"README.md": "docs only\n"})
	auditor := NewAuditor(&fakeBrain{}, &fakeRunner{}, sb, config.DefaultConfig(), utils.GetLogger(false))

	_, err := auditor.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestAuditorFoldsAnalyzerTimeout(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"slow.py": "pass\n"})
	brain := &fakeBrain{plan: []llm.FileActionItem{
		{Path: "slow.py", Description: "fix it", Category: "bug", Severity: "high"},
	}}
	runner := &fakeRunner{result: &toolexec.Result{ExitCode: -1, TimedOut: true, Stdout: "partial findings"}}
	auditor := NewAuditor(brain, runner, sb, config.DefaultConfig(), utils.GetLogger(false))

	result, err := auditor.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.AnalyzerOutput, "timed out")
	assert.Contains(t, result.AnalyzerOutput, "partial findings")
}

func TestFixerAppliesPlanItems(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"a.py": "broken\n", "b.py": "also broken\n"})
	tracker := changetracker.NewTracker(sb.Root())
	fixer := NewFixer(&fakeBrain{}, sb, tracker, false, utils.GetLogger(false))

	plan := []llm.FileActionItem{
		{Path: "a.py", Description: "fix a", Category: "bug", Severity: "high"},
		{Path: "b.py", Description: "fix b", Category: "bug", Severity: "medium"},
	}
	result, err := fixer.Run(context.Background(), plan, "", 2)
	require.NoError(t, err)
	assert.Len(t, result.Applied, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, result.Applied[0].Iteration)

	content, err := sb.Read("a.py")
	require.NoError(t, err)
	assert.Contains(t, content, "# fixed")

	history, err := tracker.History()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestFixerViolationAbortsRun(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"a.py": "ok\n"})
	brain := &fakeBrain{}
	fixer := NewFixer(brain, sb, changetracker.NewTracker(sb.Root()), false, utils.GetLogger(false))

	plan := []llm.FileActionItem{
		{Path: "../escape.py", Description: "sneak out", Category: "bug", Severity: "high"},
		{Path: "a.py", Description: "never reached", Category: "bug", Severity: "low"},
	}
	result, err := fixer.Run(context.Background(), plan, "", 0)
	require.Error(t, err)
	var violation *sandbox.ViolationError
	assert.ErrorAs(t, err, &violation)
	assert.Empty(t, result.Applied)
	// The violation aborts before the model is consulted and before the
	// remaining items run.
	assert.Zero(t, brain.fixCalls)
}

func TestFixerRecordsPerItemFailures(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"a.py": "ok\n", "b.py": "ok\n"})
	brain := &fakeBrain{fix: func(item llm.FileActionItem, contents, _ string) (string, error) {
		if item.Path == "a.py" {
			return "", errors.New("generation failed")
		}
		return contents + "patched\n", nil
	}}
	fixer := NewFixer(brain, sb, changetracker.NewTracker(sb.Root()), false, utils.GetLogger(false))

	plan := []llm.FileActionItem{
		{Path: "a.py", Description: "fails", Category: "bug", Severity: "high"},
		{Path: "b.py", Description: "succeeds", Category: "bug", Severity: "low"},
	}
	result, err := fixer.Run(context.Background(), plan, "tests failed: assert 1 == 2", 1)
	require.NoError(t, err)
	assert.Len(t, result.Applied, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "a.py", result.Failed[0].Item.Path)
}

func TestFixerDryRunWritesNothing(t *testing.T) {
	sb := newTestTarget(t, map[string]string{"a.py": "original\n"})
	tracker := changetracker.NewTracker(sb.Root())
	fixer := NewFixer(&fakeBrain{}, sb, tracker, true, utils.GetLogger(false))

	plan := []llm.FileActionItem{{Path: "a.py", Description: "fix", Category: "bug", Severity: "low"}}
	result, err := fixer.Run(context.Background(), plan, "", 0)
	require.NoError(t, err)
	assert.Empty(t, result.Applied)

	content, err := sb.Read("a.py")
	require.NoError(t, err)
	assert.Equal(t, "original\n", content)

	history, err := tracker.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestJudgeVerdictFromExitCode(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name   string
		result *toolexec.Result
		passed bool
	}{
		{
			name:   "passing suite",
			result: &toolexec.Result{ExitCode: 0, Stdout: "3 passed in 0.05s\n"},
			passed: true,
		},
		{
			name:   "failing suite",
			result: &toolexec.Result{ExitCode: 1, Stdout: "1 passed, 2 failed in 0.10s\n"},
			passed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: tt.result}
			judge := NewJudge(runner, cfg, utils.GetLogger(false))

			verdict, err := judge.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.passed, verdict.Passed)
			assert.Equal(t, tt.result.ExitCode, verdict.ExitCode)
			assert.Equal(t, cfg.TestCommand[0], runner.gotCommand.Name)
		})
	}
}

func TestJudgeTimeoutIsFailure(t *testing.T) {
	runner := &fakeRunner{result: &toolexec.Result{ExitCode: -1, TimedOut: true, Stdout: "collecting..."}}
	judge := NewJudge(runner, config.DefaultConfig(), utils.GetLogger(false))

	verdict, err := judge.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, verdict.Passed)
	assert.Equal(t, "test execution timed out", verdict.Diagnostics)
}

func TestJudgeStartFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("executable not found")}
	judge := NewJudge(runner, config.DefaultConfig(), utils.GetLogger(false))

	_, err := judge.Run(context.Background())
	assert.Error(t, err)
}
