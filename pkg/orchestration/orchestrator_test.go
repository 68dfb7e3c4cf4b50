package orchestration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refactor-swarm/swarm/pkg/agents"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/telemetry"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

type stubAuditor struct {
	result     *agents.AuditResult
	err        error
	finalScore float64
}

func (a *stubAuditor) Run(ctx context.Context) (*agents.AuditResult, error) {
	return a.result, a.err
}

func (a *stubAuditor) Score(ctx context.Context) (float64, error) {
	return a.finalScore, nil
}

type stubFixer struct {
	err       error
	feedbacks []string
}

func (f *stubFixer) Run(ctx context.Context, plan []llm.FileActionItem, feedback string, iteration int) (*agents.FixResult, error) {
	f.feedbacks = append(f.feedbacks, feedback)
	if f.err != nil {
		return nil, f.err
	}
	return &agents.FixResult{
		Applied: []sandbox.FileChangeRecord{
			{Path: "app.py", Existed: true, Before: "old", After: "new", Iteration: iteration},
		},
	}, nil
}

type stubJudge struct {
	// passAt is the iteration at which tests start passing; -1 never passes.
	passAt int
	calls  int
}

func (j *stubJudge) Run(ctx context.Context) (*agents.TestRunResult, error) {
	iteration := j.calls
	j.calls++
	if j.passAt >= 0 && iteration >= j.passAt {
		return &agents.TestRunResult{Passed: true, Diagnostics: "all tests passed"}, nil
	}
	return &agents.TestRunResult{Passed: false, Diagnostics: "assert 1 == 2"}, nil
}

func testRecorder(t *testing.T) *telemetry.Recorder {
	t.Helper()
	return telemetry.NewRecorder(filepath.Join(t.TempDir(), "experiment_data.json"), "target", 10, "test-model")
}

func somePlan() []llm.FileActionItem {
	return []llm.FileActionItem{
		{Path: "app.py", Description: "fix bug", Category: "bug", Severity: "high"},
	}
}

func TestRunSucceedsOnFirstIteration(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan(), Score: 4.0}, finalScore: 9.5}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, &stubFixer{}, &stubJudge{passAt: 0}, recorder, utils.GetLogger(false))

	state, err := orch.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, PhaseDoneOK, state.Phase)
	assert.Equal(t, 0, state.Iteration)

	doc, err := telemetry.Load(recorder.Path())
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, 4.0, doc.InitialScore)
	assert.Equal(t, 9.5, doc.FinalScore)

	// One decision point, one entry: the judge verdict carries the
	// iteration's file changes.
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, string(PhaseJudge), doc.Entries[0].Phase)
	assert.True(t, doc.Entries[0].TestPassed)
	require.Len(t, doc.Entries[0].FileChanges, 1)
	assert.Equal(t, "app.py", doc.Entries[0].FileChanges[0].Path)
}

func TestRunExhaustsIterationBudget(t *testing.T) {
	const max = 3
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan(), Score: 2.0}}
	judge := &stubJudge{passAt: -1}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, &stubFixer{}, judge, recorder, utils.GetLogger(false))

	state, err := orch.Run(context.Background(), max)
	require.NoError(t, err)
	assert.Equal(t, PhaseDoneFail, state.Phase)
	assert.Equal(t, max, state.Iteration)

	doc, err := telemetry.Load(recorder.Path())
	require.NoError(t, err)
	assert.Equal(t, "max_iterations_reached", doc.Status)

	// Iterations 0..max each produce exactly one entry, so a never-passing
	// run with budget N ends with a history of length N+1.
	require.Len(t, doc.Entries, max+1)
	for i, entry := range doc.Entries {
		assert.Equal(t, string(PhaseJudge), entry.Phase)
		assert.Equal(t, i, entry.Iteration)
		assert.False(t, entry.TestPassed)
		assert.NotEmpty(t, entry.FileChanges)
	}
}

func TestRunZeroBudgetJudgesOnce(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan()}}
	judge := &stubJudge{passAt: -1}
	orch := NewOrchestrator(auditor, &stubFixer{}, judge, testRecorder(t), utils.GetLogger(false))

	state, err := orch.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, PhaseDoneFail, state.Phase)
	assert.Equal(t, 1, judge.calls)
}

func TestRunEmptyPlanIsImmediateSuccess(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Score: 10.0}, err: agents.ErrEmptyPlan}
	fixer := &stubFixer{}
	judge := &stubJudge{passAt: -1}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, fixer, judge, recorder, utils.GetLogger(false))

	state, err := orch.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, PhaseDoneOK, state.Phase)
	assert.Empty(t, fixer.feedbacks)
	assert.Zero(t, judge.calls)

	doc, err := telemetry.Load(recorder.Path())
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Status)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, string(PhaseAudit), doc.Entries[0].Phase)
	assert.Equal(t, "empty_plan", doc.Entries[0].Outcome)
	assert.Equal(t, doc.InitialScore, doc.FinalScore)
}

func TestRunFeedbackCarriesDiagnostics(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan()}}
	fixer := &stubFixer{}
	orch := NewOrchestrator(auditor, fixer, &stubJudge{passAt: 2}, testRecorder(t), utils.GetLogger(false))

	_, err := orch.Run(context.Background(), 10)
	require.NoError(t, err)

	// First pass has no verdict yet; retries carry the failing diagnostics.
	require.Len(t, fixer.feedbacks, 3)
	assert.Empty(t, fixer.feedbacks[0])
	assert.Equal(t, "assert 1 == 2", fixer.feedbacks[1])
	assert.Equal(t, "assert 1 == 2", fixer.feedbacks[2])
}

func TestRunSandboxViolationAborts(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan()}}
	violation := &sandbox.ViolationError{Path: "../escape.py", Resolved: "/escape.py"}
	judge := &stubJudge{passAt: -1}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, &stubFixer{err: violation}, judge, recorder, utils.GetLogger(false))

	_, err := orch.Run(context.Background(), 10)
	var got *sandbox.ViolationError
	require.ErrorAs(t, err, &got)
	assert.Zero(t, judge.calls)

	// The telemetry document is finalized and valid even though the run died.
	doc, loadErr := telemetry.Load(recorder.Path())
	require.NoError(t, loadErr)
	assert.Equal(t, "sandbox_violation", doc.Status)
	assert.False(t, doc.CompletedAt.IsZero())
}

func TestRunAuditFailureAborts(t *testing.T) {
	auditor := &stubAuditor{err: errors.New("analyzer missing")}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, &stubFixer{}, &stubJudge{passAt: 0}, recorder, utils.GetLogger(false))

	_, err := orch.Run(context.Background(), 10)
	require.Error(t, err)

	doc, loadErr := telemetry.Load(recorder.Path())
	require.NoError(t, loadErr)
	assert.Equal(t, "error", doc.Status)
}

func TestRunCancellationFlushesTelemetry(t *testing.T) {
	auditor := &stubAuditor{result: &agents.AuditResult{Plan: somePlan()}}
	recorder := testRecorder(t)
	orch := NewOrchestrator(auditor, &stubFixer{err: context.Canceled}, &stubJudge{passAt: -1}, recorder, utils.GetLogger(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := orch.Run(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)

	doc, loadErr := telemetry.Load(recorder.Path())
	require.NoError(t, loadErr)
	assert.Equal(t, "cancelled", doc.Status)
}
