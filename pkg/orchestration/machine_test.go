package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionRules(t *testing.T) {
	tests := []struct {
		name          string
		state         WorkflowState
		result        PhaseResult
		wantPhase     Phase
		wantIteration int
	}{
		{
			name:      "audit with empty plan succeeds immediately",
			state:     WorkflowState{Phase: PhaseAudit, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseAudit, PlanSize: 0},
			wantPhase: PhaseDoneOK,
		},
		{
			name:      "audit with plan moves to fix",
			state:     WorkflowState{Phase: PhaseAudit, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseAudit, PlanSize: 3},
			wantPhase: PhaseFix,
		},
		{
			name:      "fix always moves to judge",
			state:     WorkflowState{Phase: PhaseFix, Iteration: 2, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseFix},
			wantPhase: PhaseJudge, wantIteration: 2,
		},
		{
			name:      "judge pass terminates successfully",
			state:     WorkflowState{Phase: PhaseJudge, Iteration: 1, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseJudge, TestPassed: true},
			wantPhase: PhaseDoneOK, wantIteration: 1,
		},
		{
			name:      "judge fail below the bound retries and increments",
			state:     WorkflowState{Phase: PhaseJudge, Iteration: 1, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseJudge, TestPassed: false},
			wantPhase: PhaseFix, wantIteration: 2,
		},
		{
			name:      "judge fail at the bound terminates",
			state:     WorkflowState{Phase: PhaseJudge, Iteration: 10, MaxIterations: 10},
			result:    PhaseResult{Phase: PhaseJudge, TestPassed: false},
			wantPhase: PhaseDoneFail, wantIteration: 10,
		},
		{
			name:      "zero iteration budget fails on the first judge",
			state:     WorkflowState{Phase: PhaseJudge, Iteration: 0, MaxIterations: 0},
			result:    PhaseResult{Phase: PhaseJudge, TestPassed: false},
			wantPhase: PhaseDoneFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, tt.result)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, next.Phase)
			assert.Equal(t, tt.wantIteration, next.Iteration)
			assert.Len(t, next.History, len(tt.state.History)+1)
		})
	}
}

func TestTransitionFaults(t *testing.T) {
	tests := []struct {
		name   string
		state  WorkflowState
		result PhaseResult
	}{
		{
			name:   "result phase does not match state phase",
			state:  WorkflowState{Phase: PhaseAudit},
			result: PhaseResult{Phase: PhaseJudge, TestPassed: true},
		},
		{
			name:   "no transition out of DONE_OK",
			state:  WorkflowState{Phase: PhaseDoneOK},
			result: PhaseResult{Phase: PhaseDoneOK},
		},
		{
			name:   "no transition out of DONE_FAIL",
			state:  WorkflowState{Phase: PhaseDoneFail},
			result: PhaseResult{Phase: PhaseDoneFail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(tt.state, tt.result)
			var fault *InternalStateFault
			require.ErrorAs(t, err, &fault)
		})
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	state := WorkflowState{Phase: PhaseJudge, Iteration: 1, MaxIterations: 5}
	next, err := Transition(state, PhaseResult{Phase: PhaseJudge, TestPassed: false})
	require.NoError(t, err)

	assert.Equal(t, PhaseJudge, state.Phase)
	assert.Equal(t, 1, state.Iteration)
	assert.Empty(t, state.History)
	assert.Equal(t, 2, next.Iteration)
}

func TestTerminal(t *testing.T) {
	assert.True(t, PhaseDoneOK.Terminal())
	assert.True(t, PhaseDoneFail.Terminal())
	assert.False(t, PhaseAudit.Terminal())
	assert.False(t, PhaseFix.Terminal())
	assert.False(t, PhaseJudge.Terminal())
}
