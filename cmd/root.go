package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Autonomous code repair workflow",
	Long: `Swarm is a command-line tool that repairs a target codebase through a
bounded audit/fix/judge loop. An auditor runs static analysis and asks an LLM
for a remediation plan, a fixer applies the plan as sandboxed file edits, and
a judge runs the test suite to decide whether another iteration is needed.

Available commands:
  run       - Execute the repair workflow against a target directory
  report    - Summarize the telemetry of a finished run
  log       - Print the revision history of applied fixes
  rollback  - Revert every change the workflow made
  version   - Print version information

Every file the workflow touches stays inside the target directory, and every
change is recorded so it can be rolled back.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(versionCmd)
}
