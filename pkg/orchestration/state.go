// Package orchestration owns the workflow state machine. All mutable run
// state lives here; the agent roles are stateless and are driven through the
// transition function one phase at a time.
package orchestration

import (
	"github.com/refactor-swarm/swarm/pkg/agents"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
)

// Phase is one node of the workflow state machine.
type Phase string

const (
	PhaseAudit    Phase = "AUDIT"
	PhaseFix      Phase = "FIX"
	PhaseJudge    Phase = "JUDGE"
	PhaseDoneOK   Phase = "DONE_OK"
	PhaseDoneFail Phase = "DONE_FAIL"
)

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseDoneOK || p == PhaseDoneFail
}

// Step records one completed phase for the run history.
type Step struct {
	Phase     Phase  `json:"phase"`
	Outcome   string `json:"outcome"`
	Iteration int    `json:"iteration"`
}

// WorkflowState is the single authoritative record of a run. It is advanced
// only through Transition; nothing else mutates the phase or the iteration
// counter.
type WorkflowState struct {
	Phase         Phase
	Iteration     int
	MaxIterations int
	Plan          []llm.FileActionItem
	LastTest      *agents.TestRunResult

	// Changes applied by the current iteration's fix pass, held until the
	// judge verdict lands so both end up in the same telemetry entry.
	LastChanges []sandbox.FileChangeRecord

	History []Step
}

// NewWorkflowState returns the initial state: the audit phase at iteration
// zero.
func NewWorkflowState(maxIterations int) *WorkflowState {
	return &WorkflowState{
		Phase:         PhaseAudit,
		Iteration:     0,
		MaxIterations: maxIterations,
	}
}
