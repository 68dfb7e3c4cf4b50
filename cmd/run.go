package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/refactor-swarm/swarm/pkg/agents"
	"github.com/refactor-swarm/swarm/pkg/changetracker"
	"github.com/refactor-swarm/swarm/pkg/config"
	"github.com/refactor-swarm/swarm/pkg/llm"
	"github.com/refactor-swarm/swarm/pkg/orchestration"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
	"github.com/refactor-swarm/swarm/pkg/telemetry"
	"github.com/refactor-swarm/swarm/pkg/toolexec"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

var (
	runTargetDir     string
	runMaxIterations int
	runModel         string
	runVerbose       bool
	runDryRun        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the repair workflow against a target directory",
	Long: `Runs the full audit/fix/judge loop against the target directory.

The run ends in one of three ways:
  exit 0 - the test suite passed (or the audit found nothing to fix)
  exit 1 - the iteration budget was exhausted without a passing suite
  exit 2 - the run itself failed: bad arguments, a missing tool, a sandbox
           violation, or an interrupt

Examples:
  swarm run --target_dir ./myproject
  swarm run --target_dir ./myproject --max_iterations 5 --model qwen2.5-coder:32b
  swarm run --target_dir ./myproject --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWorkflow())
	},
}

func init() {
	runCmd.Flags().StringVar(&runTargetDir, "target_dir", "", "Directory to repair (required)")
	runCmd.Flags().IntVar(&runMaxIterations, "max_iterations", 10, "Maximum fix/judge iterations before giving up")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the configured LLM model")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Echo process steps to stdout")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Compute fixes and show diffs without writing files")
	runCmd.MarkFlagRequired("target_dir")
}

// runWorkflow wires the run and returns the process exit code.
func runWorkflow() int {
	logger := utils.GetLogger(runVerbose)

	info, err := os.Stat(runTargetDir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: target_dir %q is not an accessible directory\n", runTargetDir)
		return 2
	}
	if runMaxIterations < 0 {
		fmt.Fprintln(os.Stderr, "Error: max_iterations must not be negative")
		return 2
	}

	cfg, err := config.LoadOrInitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if runModel != "" {
		cfg.Model = runModel
	}
	cfg.DryRun = runDryRun
	cfg.Verbose = runVerbose

	sb, err := sandbox.New(runTargetDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	brain, err := llm.NewOllamaBrain(llm.OllamaOptions{
		Model:     cfg.Model,
		ServerURL: cfg.OllamaServerURL,
		Timeout:   time.Duration(cfg.BrainTimeoutSecs) * time.Second,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	telemetryPath := cfg.TelemetryFile
	if !filepath.IsAbs(telemetryPath) {
		telemetryPath = filepath.Join(sb.Root(), telemetryPath)
	}
	recorder := telemetry.NewRecorder(telemetryPath, sb.Root(), runMaxIterations, cfg.Model)

	executor := toolexec.NewExecutor(sb, logger, time.Duration(cfg.TestTimeoutSecs)*time.Second)
	tracker := changetracker.NewTracker(sb.Root())

	auditor := agents.NewAuditor(brain, executor, sb, cfg, logger)
	fixer := agents.NewFixer(brain, sb, tracker, cfg.DryRun, logger)
	judge := agents.NewJudge(executor, cfg, logger)
	orch := orchestration.NewOrchestrator(auditor, fixer, judge, recorder, logger)

	// Ctrl-C cancels the run cooperatively; telemetry is flushed on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting repair run %s (target: %s, budget: %d iterations)\n",
		recorder.ExperimentID(), sb.Root(), runMaxIterations)

	state, err := orch.Run(ctx, runMaxIterations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run aborted: %v\n", err)
		return 2
	}

	switch state.Phase {
	case orchestration.PhaseDoneOK:
		fmt.Printf("✅ Success after iteration %d. Telemetry: %s\n", state.Iteration, telemetryPath)
		return 0
	case orchestration.PhaseDoneFail:
		fmt.Printf("❌ Gave up at iteration %d without a passing test suite. Telemetry: %s\n",
			state.Iteration, telemetryPath)
		return 1
	default:
		// Unreachable: Run only returns without error in a terminal phase.
		fmt.Fprintf(os.Stderr, "Run ended in unexpected phase %s\n", state.Phase)
		return 2
	}
}
