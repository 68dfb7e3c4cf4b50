package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refactor-swarm/swarm/pkg/changetracker"
	"github.com/refactor-swarm/swarm/pkg/utils"
)

var (
	logTargetDir string
	logShowDiffs bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the revision history of applied fixes",
	Long: `Displays every file change the workflow recorded for the target
directory, newest last. Use --diff to include the line-level changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		tracker := changetracker.NewTracker(logTargetDir)
		revisions, err := tracker.History()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		if len(revisions) == 0 {
			fmt.Println("No revisions recorded.")
			return
		}

		colorize := utils.IsTerminal()
		for _, rev := range revisions {
			fmt.Printf("%s  iteration %d  [%s]  %s\n", rev.ID, rev.Iteration, rev.Status, rev.Path)
			fmt.Printf("    %s  %s\n", rev.Timestamp.Format("2006-01-02 15:04:05"), rev.Description)
			if logShowDiffs {
				diff := changetracker.GetDiff(rev.Path, rev.Original, rev.Updated, colorize)
				for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
					fmt.Printf("    %s\n", line)
				}
			}
		}
	},
}

func init() {
	logCmd.Flags().StringVar(&logTargetDir, "target_dir", ".", "Directory whose revision history to print")
	logCmd.Flags().BoolVar(&logShowDiffs, "diff", false, "Include line-level diffs for each revision")
}
