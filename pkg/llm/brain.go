package llm

import "context"

// FileActionItem is one remediation step proposed by the reasoning capability.
// Items are immutable once produced by the audit; the fix phase consumes them
// without mutation.
type FileActionItem struct {
	Path        string `json:"path" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=bug style refactor security performance testing"`
	Severity    string `json:"severity" validate:"required,oneof=low medium high critical"`
}

// Brain is the reasoning capability boundary. Both operations are pure from
// the workflow's point of view: any file mutation happens only through the
// sandbox, never inside an implementation of this interface.
type Brain interface {
	// ProducePlan turns a static-analysis report into an ordered remediation
	// plan. An empty plan means nothing actionable was found.
	ProducePlan(ctx context.Context, report string) ([]FileActionItem, error)

	// ApplyFix returns the new content for a file given one plan item and the
	// current content. Feedback carries diagnostic text from a failed test
	// run on retry passes; it is empty on the first attempt.
	ApplyFix(ctx context.Context, item FileActionItem, contents string, feedback string) (string, error)
}
