package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/refactor-swarm/swarm/pkg/changetracker"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// ItemFailure records one plan item the fixer could not apply. Partial
// application is legal; failures are carried in the result, not thrown.
type ItemFailure struct {
	Item llm.FileActionItem
	Err  error
}

// FixResult summarizes one fix pass over the plan.
type FixResult struct {
	Applied []sandbox.FileChangeRecord
	Failed  []ItemFailure
}

// Fixer applies plan items as file edits through the sandbox. It is the only
// role that writes files, and every write goes through the sandbox layer.
type Fixer struct {
	brain   llm.Brain
	sb      *sandbox.Sandbox
	tracker *changetracker.Tracker
	dryRun  bool
	logger  *utils.Logger
}

// NewFixer wires a fixer from its collaborators. With dryRun set, fixes are
// computed but never written.
func NewFixer(brain llm.Brain, sb *sandbox.Sandbox, tracker *changetracker.Tracker, dryRun bool, logger *utils.Logger) *Fixer {
	return &Fixer{brain: brain, sb: sb, tracker: tracker, dryRun: dryRun, logger: logger}
}

// Run applies the plan. Feedback carries the diagnostic text of the previous
// failed test run (empty on the first pass) and iteration stamps the change
// records. A sandbox violation aborts immediately — before any byte of the
// offending write — and is returned as a fatal error; every other per-item
// failure is recorded and the remaining items still run.
func (f *Fixer) Run(ctx context.Context, plan []llm.FileActionItem, feedback string, iteration int) (*FixResult, error) {
	result := &FixResult{}

	for _, item := range plan {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		record, err := f.applyItem(ctx, item, feedback, iteration)
		if err != nil {
			var violation *sandbox.ViolationError
			if errors.As(err, &violation) {
				return result, err
			}
			f.logger.Logf("Fix item failed (%s): %v", item.Path, err)
			result.Failed = append(result.Failed, ItemFailure{Item: item, Err: err})
			continue
		}
		if record != nil {
			result.Applied = append(result.Applied, *record)
		}
	}

	if !f.dryRun && len(result.Applied) > 0 {
		description := fmt.Sprintf("fix pass %d (%d of %d items applied)", iteration, len(result.Applied), len(plan))
		if err := f.tracker.Record(result.Applied, description); err != nil {
			return result, fmt.Errorf("failed to record changes: %w", err)
		}
	}

	f.logger.LogProcessStep(fmt.Sprintf("Fix: applied %d/%d items (iteration %d)", len(result.Applied), len(plan), iteration))
	return result, nil
}

func (f *Fixer) applyItem(ctx context.Context, item llm.FileActionItem, feedback string, iteration int) (*sandbox.FileChangeRecord, error) {
	// The containment check runs against the item path before the model is
	// even consulted, so a malicious plan item cannot cost a generation call.
	if _, err := f.sb.ResolveForWrite(item.Path); err != nil {
		return nil, err
	}

	contents := ""
	if f.sb.Exists(item.Path) {
		read, err := f.sb.Read(item.Path)
		if err != nil {
			return nil, err
		}
		contents = read
	}

	fixed, err := f.brain.ApplyFix(ctx, item, contents, feedback)
	if err != nil {
		return nil, err
	}

	if fixed == contents {
		f.logger.Logf("Fix item produced no change: %s", item.Path)
		return nil, nil
	}

	if f.dryRun {
		f.logger.LogProcessStep("Dry run diff:\n" + changetracker.GetDiff(item.Path, contents, fixed, utils.IsTerminal()))
		return nil, nil
	}

	record, err := f.sb.Write(item.Path, fixed)
	if err != nil {
		return nil, err
	}
	record.Iteration = iteration
	f.logger.LogWorkspaceOperation("write", fmt.Sprintf("%s (iteration %d)", item.Path, iteration))
	return record, nil
}
