// Package agents implements the three workflow roles: the Auditor inspects
// the target and produces a remediation plan, the Fixer applies plan items as
// sandboxed file edits, and the Judge runs the test suite. The roles hold no
// workflow state; the orchestrator owns that.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/refactor-swarm/swarm/pkg/config"
	"github.com/refactor-swarm/swarm/pkg/filediscovery"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/toolexec"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

// ErrEmptyPlan signals that the audit found nothing actionable. The
// orchestrator treats a first-pass empty plan as immediate success.
var ErrEmptyPlan = errors.New("audit produced no actionable items")

// ToolRunner is the slice of the tool executor the agents need.
type ToolRunner interface {
	RunWithTimeout(ctx context.Context, command toolexec.Command, workDir string, timeout time.Duration) (*toolexec.Result, error)
}

// AuditResult carries the remediation plan together with the analyzer
// evidence it was derived from.
type AuditResult struct {
	Plan           []llm.FileActionItem
	AnalyzerOutput string
	Score          float64 // analyzer rating when the tool reports one, else 0
	Files          []string
}

// Auditor inspects the target code and produces the remediation plan.
type Auditor struct {
	brain  llm.Brain
	runner ToolRunner
	sb     *sandbox.Sandbox
	cfg    *config.Config
	logger *utils.Logger
}

// NewAuditor wires an auditor from its collaborators.
func NewAuditor(brain llm.Brain, runner ToolRunner, sb *sandbox.Sandbox, cfg *config.Config, logger *utils.Logger) *Auditor {
	return &Auditor{brain: brain, runner: runner, sb: sb, cfg: cfg, logger: logger}
}

// Run performs the audit: static analysis via the tool adapter, then plan
// generation via the reasoning capability. Returns ErrEmptyPlan when the
// validated plan has no items.
func (a *Auditor) Run(ctx context.Context) (*AuditResult, error) {
	files, err := filediscovery.ListSourceFiles(a.sb.Root(), a.cfg.SourceExtensions)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}
	if len(files) == 0 {
		a.logger.LogProcessStep("Audit: no source files found in target")
		return &AuditResult{}, ErrEmptyPlan
	}
	a.logger.LogProcessStep(fmt.Sprintf("Audit: analyzing %d source files", len(files)))

	report, score, err := a.analyze(ctx, files)
	if err != nil {
		return nil, err
	}

	plan, err := a.brain.ProducePlan(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	result := &AuditResult{
		Plan:           plan,
		AnalyzerOutput: report,
		Score:          score,
		Files:          files,
	}
	if len(plan) == 0 {
		return result, ErrEmptyPlan
	}

	a.logger.LogProcessStep(fmt.Sprintf("Audit: plan has %d items", len(plan)))
	return result, nil
}

// Score runs only the analyzer and extracts its rating. Used after a
// successful run to record the final score.
func (a *Auditor) Score(ctx context.Context) (float64, error) {
	files, err := filediscovery.ListSourceFiles(a.sb.Root(), a.cfg.SourceExtensions)
	if err != nil || len(files) == 0 {
		return 0, err
	}
	_, score, err := a.analyze(ctx, files)
	return score, err
}

func (a *Auditor) analyze(ctx context.Context, files []string) (string, float64, error) {
	command := toolexec.Command{
		Name: a.cfg.AnalyzeCommand[0],
		Args: a.cfg.AnalyzeCommand[1:],
	}
	timeout := time.Duration(a.cfg.AnalyzeTimeoutSecs) * time.Second

	result, err := a.runner.RunWithTimeout(ctx, command, ".", timeout)
	if err != nil {
		return "", 0, fmt.Errorf("analysis tool failed to start: %w", err)
	}

	var report string
	if result.TimedOut {
		// A hung analyzer is recoverable: the plan is derived from whatever
		// the tool printed before it was terminated.
		a.logger.Logf("Analysis tool timed out after %v", timeout)
		report = "analysis tool timed out; partial output follows\n" + result.CombinedOutput()
	} else {
		report = result.CombinedOutput()
	}

	if strings.TrimSpace(report) == "" {
		report = fmt.Sprintf("The analyzer produced no output (exit %d). Source files: %s",
			result.ExitCode, strings.Join(files, ", "))
	}

	return report, ExtractAnalyzerScore(report), nil
}
