package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refactor-swarm/swarm/pkg/telemetry"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

var (
	reportTargetDir string
	reportFile      string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the telemetry of a finished run",
	Long: `Reads the telemetry file written by a run and prints a human-readable
summary: experiment identity, outcome, analyzer scores, and the per-iteration
decision trail.

Examples:
  swarm report --target_dir ./myproject
  swarm report --file ./myproject/.swarm/experiment_data.json`,
	Run: func(cmd *cobra.Command, args []string) {
		path := reportFile
		if path == "" {
			path = filepath.Join(reportTargetDir, ".swarm", "experiment_data.json")
		}

		doc, err := telemetry.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		printReport(doc)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportTargetDir, "target_dir", ".", "Directory whose run telemetry to report")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "Explicit telemetry file path (overrides --target_dir)")
}

func printReport(doc *telemetry.Document) {
	fmt.Printf("Experiment: %s\n", doc.ExperimentID)
	fmt.Printf("Target:     %s\n", doc.TargetDirectory)
	if doc.Model != "" {
		fmt.Printf("Model:      %s\n", doc.Model)
	}
	fmt.Printf("Status:     %s\n", utils.CapitalizeWords(strings.ReplaceAll(doc.Status, "_", " ")))
	fmt.Printf("Iterations: reached %d (budget %d)\n", doc.TotalIterations, doc.MaxIterations)
	fmt.Printf("Score:      %.2f -> %.2f\n", doc.InitialScore, doc.FinalScore)
	if !doc.CompletedAt.IsZero() {
		fmt.Printf("Duration:   %s\n", utils.FormatDuration(doc.CompletedAt.Sub(doc.StartedAt)))
	}

	if len(doc.Entries) == 0 {
		fmt.Println("\nNo decision entries recorded.")
		return
	}

	fmt.Printf("\n%-10s %-7s %-22s %s\n", "Iteration", "Phase", "Outcome", "Changes")
	fmt.Println(strings.Repeat("-", 60))
	for _, entry := range doc.Entries {
		fmt.Printf("%-10d %-7s %-22s %d\n", entry.Iteration, entry.Phase, entry.Outcome, len(entry.FileChanges))
	}

	last := doc.Entries[len(doc.Entries)-1]
	if strings.TrimSpace(last.Diagnostics) != "" {
		fmt.Println("\nFinal test output:")
		fmt.Println(utils.WrapAndIndent(last.Diagnostics, utils.TerminalWidth()-4, 2))
	}
}
