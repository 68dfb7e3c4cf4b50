package changetracker

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Color constants for better readability
const (
	RedColor   = "\x1b[31m"
	GreenColor = "\x1b[32m"
	BoldStyle  = "\x1b[1m"
	ResetColor = "\x1b[0m"
)

// GetDiff renders a line-based diff between two versions of a file, prefixed
// with a stats header. Color codes are included only when colorize is set.
func GetDiff(filename, originalCode, newCode string, colorize bool) string {
	dmp := diffmatchpatch.New()

	// Line-mode diff: map lines to runes, diff, then map back
	chars1, chars2, lineArray := dmp.DiffLinesToChars(originalCode, newCode)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	b.WriteString(statsHeader(filename, diffs, colorize))

	for _, diff := range diffs {
		lines := splitDiffLines(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				if colorize {
					b.WriteString(fmt.Sprintf("%s- %s%s\n", RedColor, line, ResetColor))
				} else {
					b.WriteString(fmt.Sprintf("- %s\n", line))
				}
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				if colorize {
					b.WriteString(fmt.Sprintf("%s+ %s%s\n", GreenColor, line, ResetColor))
				} else {
					b.WriteString(fmt.Sprintf("+ %s\n", line))
				}
			}
		case diffmatchpatch.DiffEqual:
			// Keep at most one context line on either side of a change block
			if len(lines) > 2 {
				b.WriteString(fmt.Sprintf("  %s\n", lines[0]))
				b.WriteString("  ...\n")
				b.WriteString(fmt.Sprintf("  %s\n", lines[len(lines)-1]))
			} else {
				for _, line := range lines {
					b.WriteString(fmt.Sprintf("  %s\n", line))
				}
			}
		}
	}

	return b.String()
}

func statsHeader(filename string, diffs []diffmatchpatch.Diff, colorize bool) string {
	additions := 0
	deletions := 0
	for _, diff := range diffs {
		count := len(splitDiffLines(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			additions += count
		case diffmatchpatch.DiffDelete:
			deletions += count
		}
	}
	if colorize {
		return fmt.Sprintf("%s%s%s | %s+%d%s %s-%d%s\n", BoldStyle, filename, ResetColor, GreenColor, additions, ResetColor, RedColor, deletions, ResetColor)
	}
	return fmt.Sprintf("%s | +%d -%d\n", filename, additions, deletions)
}

func splitDiffLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
