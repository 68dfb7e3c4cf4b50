package orchestration

import "fmt"

// PhaseResult is the outcome of one completed phase, the only input the
// transition function accepts.
type PhaseResult struct {
	Phase      Phase // the phase that just completed
	PlanSize   int   // audit only
	TestPassed bool  // judge only
}

// InternalStateFault reports a transition that the state machine does not
// define. It always indicates a programming error, never bad user input, so
// the orchestrator surfaces it as a fatal fault rather than retrying.
type InternalStateFault struct {
	From   Phase
	Result Phase
}

func (e *InternalStateFault) Error() string {
	return fmt.Sprintf("internal state fault: no transition from %s with result for %s", e.From, e.Result)
}

// Transition advances the state by one completed phase. It is pure: the input
// state is not modified and no I/O happens here.
//
// The rules:
//
//	AUDIT, empty plan     -> DONE_OK
//	AUDIT, non-empty plan -> FIX
//	FIX                   -> JUDGE
//	JUDGE, tests pass     -> DONE_OK
//	JUDGE, tests fail     -> FIX (iteration+1) while iteration < max
//	JUDGE, tests fail     -> DONE_FAIL once iteration reaches max
func Transition(state WorkflowState, result PhaseResult) (WorkflowState, error) {
	if result.Phase != state.Phase || state.Phase.Terminal() {
		return state, &InternalStateFault{From: state.Phase, Result: result.Phase}
	}

	next := state
	switch state.Phase {
	case PhaseAudit:
		if result.PlanSize == 0 {
			next.Phase = PhaseDoneOK
			next.History = appendStep(state.History, Step{Phase: PhaseAudit, Outcome: "empty_plan", Iteration: state.Iteration})
		} else {
			next.Phase = PhaseFix
			next.History = appendStep(state.History, Step{Phase: PhaseAudit, Outcome: "plan_produced", Iteration: state.Iteration})
		}

	case PhaseFix:
		next.Phase = PhaseJudge
		next.History = appendStep(state.History, Step{Phase: PhaseFix, Outcome: "applied", Iteration: state.Iteration})

	case PhaseJudge:
		switch {
		case result.TestPassed:
			next.Phase = PhaseDoneOK
			next.History = appendStep(state.History, Step{Phase: PhaseJudge, Outcome: "pass", Iteration: state.Iteration})
		case state.Iteration < state.MaxIterations:
			next.Phase = PhaseFix
			next.Iteration = state.Iteration + 1
			next.History = appendStep(state.History, Step{Phase: PhaseJudge, Outcome: "fail", Iteration: state.Iteration})
		default:
			next.Phase = PhaseDoneFail
			next.History = appendStep(state.History, Step{Phase: PhaseJudge, Outcome: "fail", Iteration: state.Iteration})
		}

	default:
		return state, &InternalStateFault{From: state.Phase, Result: result.Phase}
	}

	return next, nil
}

// appendStep copies the history so the returned state shares no slice backing
// with the input state.
func appendStep(history []Step, step Step) []Step {
	out := make([]Step, len(history), len(history)+1)
	copy(out, history)
	return append(out, step)
}
