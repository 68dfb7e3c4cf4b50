package agents

import (
	"regexp"
	"strconv"
	"strings"
)

// TestCounts holds the statistics parsed from a test runner's summary line,
// e.g. pytest's "5 passed, 2 failed in 0.12s". Zero values mean the runner
// printed no recognizable summary.
type TestCounts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Total returns the number of tests accounted for in the summary.
func (c TestCounts) Total() int {
	return c.Passed + c.Failed + c.Errors + c.Skipped
}

var (
	summaryPattern = regexp.MustCompile(`(?i)(\d+)\s+(passed|failed|error(?:s)?|skipped)`)
	// Pattern to match pylint's "Your code has been rated at X.XX/10"
	scorePattern = regexp.MustCompile(`rated at (-?\d+\.?\d*)/10`)
)

// ParseTestSummary extracts pass/fail/error/skip counts from combined test
// runner output. Unknown formats yield zero counts; the verdict never depends
// on this parse.
func ParseTestSummary(output string) TestCounts {
	var counts TestCounts
	for _, match := range summaryPattern.FindAllStringSubmatch(output, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(strings.ToLower(match[2]), "pass"):
			counts.Passed = n
		case strings.HasPrefix(strings.ToLower(match[2]), "fail"):
			counts.Failed = n
		case strings.HasPrefix(strings.ToLower(match[2]), "error"):
			counts.Errors = n
		case strings.HasPrefix(strings.ToLower(match[2]), "skip"):
			counts.Skipped = n
		}
	}
	return counts
}

// ExtractAnalyzerScore pulls the 0-10 rating from analyzer output when the
// tool reports one (pylint does). Returns 0 when no rating is present.
func ExtractAnalyzerScore(output string) float64 {
	match := scorePattern.FindStringSubmatch(output)
	if match == nil {
		return 0
	}
	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return score
}
