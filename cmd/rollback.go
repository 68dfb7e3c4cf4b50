package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refactor-swarm/swarm/pkg/changetracker"
	"github.com/refactor-swarm/swarm/pkg/sandbox"
)

var (
	rollbackTargetDir string
	rollbackYes       bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert every change the workflow made",
	Long: `Restores the original content of every active revision in the target
directory, newest first. Files the workflow created are removed.

Examples:
  swarm rollback --target_dir ./myproject
  swarm rollback --target_dir ./myproject --yes`,
	Run: func(cmd *cobra.Command, args []string) {
		sb, err := sandbox.New(rollbackTargetDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}

		if !rollbackYes {
			fmt.Printf("About to revert all recorded changes in %s\n", sb.Root())
			fmt.Print("Are you sure? (y/N): ")
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(strings.TrimSpace(response)) != "y" {
				fmt.Println("Rollback cancelled.")
				return
			}
		}

		tracker := changetracker.NewTracker(sb.Root())
		reverted, err := tracker.RevertAll(sb)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: rollback failed after %d revisions: %v\n", reverted, err)
			os.Exit(2)
		}
		if reverted == 0 {
			fmt.Println("Nothing to revert.")
			return
		}
		fmt.Printf("Reverted %d revisions.\n", reverted)
	},
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackTargetDir, "target_dir", ".", "Directory whose changes to revert")
	rollbackCmd.Flags().BoolVar(&rollbackYes, "yes", false, "Skip the confirmation prompt")
}
