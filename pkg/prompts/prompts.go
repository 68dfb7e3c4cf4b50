// Package prompts holds the instruction templates sent to the reasoning
// capability. Wording lives here so the rest of the system stays free of
// prompt text.
package prompts

import (
	"fmt"
	"strings"
)

const auditorSystem = `You are a code auditor. You receive a static-analysis report for a codebase
and produce a remediation plan as JSON. Respond with ONLY a JSON array of plan
items, each an object with exactly these fields:
  "path": file path relative to the project root,
  "description": the specific change to make,
  "category": one of "bug", "style", "refactor", "security", "performance", "testing",
  "severity": one of "low", "medium", "high", "critical".
Order items so the most severe issues come first. If the report shows nothing
actionable, respond with an empty array: [].`

const fixerSystem = `You are a code fixer. You receive one remediation instruction and the full
current content of a file. Respond with the COMPLETE corrected file content in
a single fenced code block. Do not omit unchanged sections, do not add
commentary outside the code block, and do not touch anything unrelated to the
instruction.`

// AuditorSystem returns the system prompt for plan generation.
func AuditorSystem() string {
	return auditorSystem
}

// AuditorUser builds the user prompt carrying the analysis report.
func AuditorUser(report string) string {
	var b strings.Builder
	b.WriteString("Static analysis report:\n")
	b.WriteString("-------\n")
	b.WriteString(report)
	b.WriteString("\n-------\n")
	b.WriteString("\nProduce the remediation plan.")
	return b.String()
}

// SchemaRetry is sent when a plan response failed validation, asking for a
// corrected response.
func SchemaRetry(reason string) string {
	return fmt.Sprintf("Your previous response was rejected: %s\nRespond again with ONLY the JSON array in the required schema.", reason)
}

// FixerSystem returns the system prompt for applying a single plan item.
func FixerSystem() string {
	return fixerSystem
}

// FixerUser builds the user prompt for one plan item. Feedback carries test
// diagnostics from the previous failed attempt and is empty on the first pass.
func FixerUser(path, category, severity, description, contents, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nCategory: %s (severity: %s)\nInstruction: %s\n", path, category, severity, description)
	if feedback != "" {
		b.WriteString("\nThe previous fix attempt did not make the tests pass. Test output:\n-------\n")
		b.WriteString(feedback)
		b.WriteString("\n-------\n")
	}
	b.WriteString("\nCurrent file content:\n-------\n")
	b.WriteString(contents)
	b.WriteString("\n-------\n")
	b.WriteString("\nReturn the complete corrected file.")
	return b.String()
}
