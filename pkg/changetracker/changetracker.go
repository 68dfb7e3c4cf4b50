package changetracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/refactor-swarm/swarm/pkg/sandbox"
)

// Revision is one recorded file change, kept so every edit the workflow makes
// can be inspected and rolled back after the run.
type Revision struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"` // relative to the sandbox root
	Description string    `json:"description"`
	Iteration   int       `json:"iteration"`
	Existed     bool      `json:"existed"`
	Original    string    `json:"original,omitempty"`
	Updated     string    `json:"updated"`
	Status      string    `json:"status"` // "active" or "reverted"
	Timestamp   time.Time `json:"timestamp"`
}

// Tracker persists the revision log under the target's .swarm directory.
type Tracker struct {
	path string
}

// NewTracker creates a tracker for the given sandbox root.
func NewTracker(rootDir string) *Tracker {
	return &Tracker{path: filepath.Join(rootDir, ".swarm", "revisions.json")}
}

// Record appends one revision per change record. The log file is rewritten
// atomically so an interrupted run never leaves it truncated.
func (t *Tracker) Record(records []sandbox.FileChangeRecord, description string) error {
	if len(records) == 0 {
		return nil
	}

	revisions, err := t.load()
	if err != nil {
		return err
	}

	for _, rec := range records {
		revisions = append(revisions, Revision{
			ID:          uuid.NewString()[:8],
			Path:        rec.Path,
			Description: description,
			Iteration:   rec.Iteration,
			Existed:     rec.Existed,
			Original:    rec.Before,
			Updated:     rec.After,
			Status:      "active",
			Timestamp:   rec.Written,
		})
	}

	return t.save(revisions)
}

// History returns all revisions, oldest first.
func (t *Tracker) History() ([]Revision, error) {
	return t.load()
}

// RevertAll restores the original content of every active revision, newest
// first so stacked edits to the same file unwind correctly. Files that did
// not exist before the run are removed.
func (t *Tracker) RevertAll(sb *sandbox.Sandbox) (int, error) {
	revisions, err := t.load()
	if err != nil {
		return 0, err
	}

	reverted := 0
	for i := len(revisions) - 1; i >= 0; i-- {
		rev := &revisions[i]
		if rev.Status != "active" {
			continue
		}
		if rev.Existed {
			if _, err := sb.Write(rev.Path, rev.Original); err != nil {
				return reverted, fmt.Errorf("failed to revert %s: %w", rev.Path, err)
			}
		} else {
			if err := sb.Remove(rev.Path); err != nil {
				return reverted, fmt.Errorf("failed to remove created file %s: %w", rev.Path, err)
			}
		}
		rev.Status = "reverted"
		reverted++
	}

	if reverted > 0 {
		if err := t.save(revisions); err != nil {
			return reverted, err
		}
	}
	return reverted, nil
}

func (t *Tracker) load() ([]Revision, error) {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read revision log: %w", err)
	}
	var revisions []Revision
	if err := json.Unmarshal(data, &revisions); err != nil {
		return nil, fmt.Errorf("failed to parse revision log: %w", err)
	}
	return revisions, nil
}

func (t *Tracker) save(revisions []Revision) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create revision log directory: %w", err)
	}
	data, err := json.MarshalIndent(revisions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize revision log: %w", err)
	}
	tempPath := t.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary revision log: %w", err)
	}
	if err := os.Rename(tempPath, t.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save revision log: %w", err)
	}
	return nil
}
