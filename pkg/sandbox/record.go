package sandbox

import "time"

// FileChangeRecord captures a single successful write: the prior content (or
// its absence) and the new content. Records are immutable once created and
// are what rollback and telemetry reference.
type FileChangeRecord struct {
	Path      string    `json:"path"` // relative to the sandbox root
	Existed   bool      `json:"existed"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after"`
	Iteration int       `json:"iteration"`
	Written   time.Time `json:"written"`
}
