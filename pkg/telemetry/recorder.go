package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/refactor-swarm/swarm/pkg/sandbox"
)

// Entry is one structured record per decision point in the workflow. Entries
// are append-only: once written they are never edited or removed.
type Entry struct {
	Iteration   int                        `json:"iteration"`
	Phase       string                     `json:"phase"`
	Outcome     string                     `json:"outcome"`
	TestPassed  bool                       `json:"test_passed"`
	Diagnostics string                     `json:"diagnostics,omitempty"`
	FileChanges []sandbox.FileChangeRecord `json:"file_changes"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// Document is the full telemetry file written after every decision point. The
// file is always valid JSON, even after an aborted run.
type Document struct {
	ExperimentID    string    `json:"experiment_id"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at,omitzero"`
	TargetDirectory string    `json:"target_directory"`
	MaxIterations   int       `json:"max_iterations"`
	Model           string    `json:"llm_model,omitempty"`
	Status          string    `json:"status"`
	TotalIterations int       `json:"total_iterations"`
	InitialScore    float64   `json:"initial_score"`
	FinalScore      float64   `json:"final_score"`
	Entries         []Entry   `json:"entries"`
}

// Recorder durably persists the telemetry document. Every Append rewrites the
// whole document through a temp file plus rename, so a crash between entries
// can never corrupt previously written ones.
type Recorder struct {
	path string
	doc  Document
}

// NewRecorder creates a recorder that writes to the given path. The parent
// directory is created on first save.
func NewRecorder(path, targetDir string, maxIterations int, model string) *Recorder {
	return &Recorder{
		path: path,
		doc: Document{
			ExperimentID:    fmt.Sprintf("swarm_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8]),
			StartedAt:       time.Now(),
			TargetDirectory: targetDir,
			MaxIterations:   maxIterations,
			Model:           model,
			Status:          "running",
		},
	}
}

// Path returns the telemetry file location.
func (r *Recorder) Path() string {
	return r.path
}

// ExperimentID returns the unique identifier of this run.
func (r *Recorder) ExperimentID() string {
	return r.doc.ExperimentID
}

// Append persists one entry. Prior entries are never truncated or reordered.
func (r *Recorder) Append(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.FileChanges == nil {
		entry.FileChanges = []sandbox.FileChangeRecord{}
	}
	r.doc.Entries = append(r.doc.Entries, entry)
	if entry.Iteration > r.doc.TotalIterations {
		r.doc.TotalIterations = entry.Iteration
	}
	return r.save()
}

// SetScores records the analyzer ratings measured before and after the run.
func (r *Recorder) SetScores(initial, final float64) {
	r.doc.InitialScore = initial
	r.doc.FinalScore = final
}

// Finalize marks the run as finished with the given status and persists the
// document one last time. Safe to call after a partial run; used on fatal
// errors and interrupts so partial progress stays auditable.
func (r *Recorder) Finalize(status string) error {
	r.doc.Status = status
	r.doc.CompletedAt = time.Now()
	return r.save()
}

func (r *Recorder) save() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize telemetry: %w", err)
	}

	// Write to a temporary file first, then rename for atomicity
	tempPath := r.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary telemetry file: %w", err)
	}
	if err := os.Rename(tempPath, r.path); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return fmt.Errorf("failed to save telemetry file: %w", err)
	}

	return nil
}

// Load reconstructs a telemetry document for post-hoc reporting. It is never
// used to resume a crashed run.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read telemetry file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse telemetry file: %w", err)
	}
	return &doc, nil
}
