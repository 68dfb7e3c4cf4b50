package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/refactor-swarm/swarm/pkg/agents"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/telemetry"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// AuditRunner produces the remediation plan. Implemented by agents.Auditor.
type AuditRunner interface {
	Run(ctx context.Context) (*agents.AuditResult, error)
	Score(ctx context.Context) (float64, error)
}

// FixRunner applies plan items. Implemented by agents.Fixer.
type FixRunner interface {
	Run(ctx context.Context, plan []llm.FileActionItem, feedback string, iteration int) (*agents.FixResult, error)
}

// JudgeRunner runs the test suite. Implemented by agents.Judge.
type JudgeRunner interface {
	Run(ctx context.Context) (*agents.TestRunResult, error)
}

// Orchestrator drives the audit/fix/judge loop to a terminal phase. It is the
// only component that advances the workflow state, and it records telemetry
// at every decision point so an aborted run still leaves a readable trail.
type Orchestrator struct {
	auditor  AuditRunner
	fixer    FixRunner
	judge    JudgeRunner
	recorder *telemetry.Recorder
	logger   *utils.Logger
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(auditor AuditRunner, fixer FixRunner, judge JudgeRunner, recorder *telemetry.Recorder, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		auditor:  auditor,
		fixer:    fixer,
		judge:    judge,
		recorder: recorder,
		logger:   logger,
	}
}

// Run executes one full workflow and returns the final state. The returned
// error is non-nil only for faults that invalidate the run itself (setup
// failures, sandbox violations, cancellation, internal state faults); a run
// that merely exhausts its iterations ends cleanly in DONE_FAIL with a nil
// error. The telemetry document is finalized on every path out of here.
func (o *Orchestrator) Run(ctx context.Context, maxIterations int) (*WorkflowState, error) {
	state := NewWorkflowState(maxIterations)

	audit, err := o.auditor.Run(ctx)
	if err != nil && !errors.Is(err, agents.ErrEmptyPlan) {
		return state, o.abort(state, err)
	}
	initialScore := audit.Score

	planSize := len(audit.Plan)
	if errors.Is(err, agents.ErrEmptyPlan) {
		planSize = 0
	}
	if planSize == 0 {
		// Nothing to repair. The audit entry is still recorded so the run
		// is distinguishable from one that never started.
		o.logger.LogProcessStep("Audit found nothing actionable; target is already healthy")
		if recErr := o.recorder.Append(telemetry.Entry{
			Iteration: 0,
			Phase:     string(PhaseAudit),
			Outcome:   "empty_plan",
		}); recErr != nil {
			return state, o.abort(state, recErr)
		}
		next, trErr := Transition(*state, PhaseResult{Phase: PhaseAudit, PlanSize: 0})
		if trErr != nil {
			return state, o.abort(state, trErr)
		}
		*state = next
		o.recorder.SetScores(initialScore, initialScore)
		return state, o.finish(state)
	}

	state.Plan = audit.Plan
	next, trErr := Transition(*state, PhaseResult{Phase: PhaseAudit, PlanSize: planSize})
	if trErr != nil {
		return state, o.abort(state, trErr)
	}
	*state = next

	for !state.Phase.Terminal() {
		if ctx.Err() != nil {
			return state, o.abort(state, ctx.Err())
		}

		switch state.Phase {
		case PhaseFix:
			feedback := ""
			if state.LastTest != nil {
				feedback = state.LastTest.Diagnostics
			}
			fix, err := o.fixer.Run(ctx, state.Plan, feedback, state.Iteration)
			if err != nil {
				return state, o.abort(state, err)
			}
			// The fix pass produces no telemetry entry of its own: its changes
			// ride along on this iteration's judge entry, so one entry exists
			// per decision point.
			state.LastChanges = fix.Applied
			next, trErr := Transition(*state, PhaseResult{Phase: PhaseFix})
			if trErr != nil {
				return state, o.abort(state, trErr)
			}
			*state = next

		case PhaseJudge:
			verdict, err := o.judge.Run(ctx)
			if err != nil {
				return state, o.abort(state, err)
			}
			state.LastTest = verdict
			if recErr := o.recorder.Append(telemetry.Entry{
				Iteration:   state.Iteration,
				Phase:       string(PhaseJudge),
				Outcome:     judgeOutcome(verdict.Passed),
				TestPassed:  verdict.Passed,
				Diagnostics: verdict.Diagnostics,
				FileChanges: state.LastChanges,
			}); recErr != nil {
				return state, o.abort(state, recErr)
			}
			next, trErr := Transition(*state, PhaseResult{Phase: PhaseJudge, TestPassed: verdict.Passed})
			if trErr != nil {
				return state, o.abort(state, trErr)
			}
			*state = next

		default:
			return state, o.abort(state, &InternalStateFault{From: state.Phase, Result: state.Phase})
		}
	}

	finalScore := initialScore
	if state.Phase == PhaseDoneOK {
		if score, err := o.auditor.Score(ctx); err == nil {
			finalScore = score
		} else {
			o.logger.Logf("Final score measurement failed: %v", err)
		}
	}
	o.recorder.SetScores(initialScore, finalScore)
	return state, o.finish(state)
}

// abort finalizes telemetry before surfacing a fatal fault. The recorder
// write is best-effort here: the original fault is what the caller needs.
func (o *Orchestrator) abort(state *WorkflowState, err error) error {
	status := "error"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = "cancelled"
	}
	var violation *sandbox.ViolationError
	if errors.As(err, &violation) {
		status = "sandbox_violation"
	}
	var fault *InternalStateFault
	if errors.As(err, &fault) {
		status = "internal_fault"
		for _, step := range state.History {
			o.logger.Logf("history: iteration=%d phase=%s outcome=%s", step.Iteration, step.Phase, step.Outcome)
		}
	}
	o.logger.LogError(err)
	if recErr := o.recorder.Finalize(status); recErr != nil {
		o.logger.LogError(recErr)
	}
	return err
}

func (o *Orchestrator) finish(state *WorkflowState) error {
	status := "completed"
	if state.Phase == PhaseDoneFail {
		status = "max_iterations_reached"
	}
	o.logger.LogProcessStep(fmt.Sprintf("Workflow finished: %s after iteration %d", state.Phase, state.Iteration))
	return o.recorder.Finalize(status)
}

func judgeOutcome(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
