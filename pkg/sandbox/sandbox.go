package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ViolationError reports an attempted file access outside the sandbox root.
// It is always fatal: the run aborts instead of retrying.
type ViolationError struct {
	Path     string // path as requested by the caller
	Resolved string // where it actually pointed after normalization
}

func (e *ViolationError) Error() string {
	if e.Resolved != "" {
		return fmt.Sprintf("security violation: attempt to access path outside sandbox: %s (resolves to: %s)", e.Path, e.Resolved)
	}
	return fmt.Sprintf("security violation: attempt to access path outside sandbox: %s", e.Path)
}

// Sandbox mediates every read and write against a root directory fixed at
// workflow start. All paths are resolved relative to the root; anything that
// normalizes to a location outside it is rejected before any byte is touched.
type Sandbox struct {
	root string // absolute, symlink-resolved
}

// New creates a sandbox rooted at the given directory. The directory must
// exist; its symlink-resolved absolute path becomes the containment boundary.
func New(root string) (*Sandbox, error) {
	if root == "" {
		return nil, fmt.Errorf("empty sandbox root provided")
	}

	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for sandbox root: %w", err)
	}

	// Resolve the root itself in case it is a symlink
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root: %w", err)
	}

	info, err := os.Stat(resolvedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root is not a directory: %s", root)
	}

	return &Sandbox{root: resolvedRoot}, nil
}

// Root returns the absolute, symlink-resolved sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Rel converts an absolute path inside the sandbox back to a root-relative one.
func (s *Sandbox) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// Resolve validates a path for reading. The path is interpreted relative to
// the root (absolute paths are checked as given), cleaned, and its symlinks
// are evaluated. A *ViolationError is returned if the result escapes the root.
func (s *Sandbox) Resolve(path string) (string, error) {
	return s.resolve(path, true)
}

// ResolveForWrite validates a path for writing. The file itself may not exist
// yet, so the nearest existing parent directory is resolved and checked for
// containment instead.
func (s *Sandbox) ResolveForWrite(path string) (string, error) {
	return s.resolve(path, false)
}

func (s *Sandbox) resolve(path string, mustExist bool) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty file path provided")
	}

	absPath := filepath.Clean(path)
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(s.root, absPath)
	}

	if mustExist {
		// Lexical containment first, so a traversal path is a violation even
		// when its target does not exist.
		if !s.contains(absPath) {
			return "", &ViolationError{Path: path, Resolved: absPath}
		}
		resolved, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("file not found: %s", path)
			}
			return "", fmt.Errorf("failed to resolve path (including symlink evaluation): %w", err)
		}
		if !s.contains(resolved) {
			return "", &ViolationError{Path: path, Resolved: resolved}
		}
		return resolved, nil
	}

	// Find the nearest existing parent directory and resolve that; the file
	// being written may not exist yet.
	parentDir := filepath.Dir(absPath)
	maxDepth := 50 // Prevent infinite loops
	depth := 0
	for depth < maxDepth {
		if _, statErr := os.Stat(parentDir); statErr == nil {
			break
		}
		newParent := filepath.Dir(parentDir)
		if newParent == parentDir {
			return "", fmt.Errorf("no existing parent directory found for path: %s", path)
		}
		parentDir = newParent
		depth++
	}
	if depth >= maxDepth {
		return "", fmt.Errorf("parent directory search exceeded maximum depth for path: %s", path)
	}

	resolvedParent, err := filepath.EvalSymlinks(parentDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve parent directory symlink: %w", err)
	}
	if !s.contains(resolvedParent) {
		return "", &ViolationError{Path: path, Resolved: resolvedParent}
	}

	return absPath, nil
}

// contains reports whether an already-resolved absolute path is the root or a
// descendant of it.
func (s *Sandbox) contains(resolved string) bool {
	rel, err := filepath.Rel(s.root, resolved)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// Read returns the content of a file inside the sandbox.
func (s *Sandbox) Read(path string) (string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("could not read file %s: %w", path, err)
	}
	return string(data), nil
}

// Exists reports whether a path exists inside the sandbox. Paths that resolve
// outside the root are reported as not existing.
func (s *Sandbox) Exists(path string) bool {
	_, err := s.Resolve(path)
	return err == nil
}

// Write stores content at the given path, creating parent directories inside
// the root as needed. The containment check happens before any byte is
// written, and the write itself goes through a temp file plus rename so a
// failure never leaves a truncated file behind. On success a FileChangeRecord
// capturing the prior content is returned.
func (s *Sandbox) Write(path, content string) (*FileChangeRecord, error) {
	resolved, err := s.ResolveForWrite(path)
	if err != nil {
		return nil, err
	}

	record := &FileChangeRecord{
		Path:    s.Rel(resolved),
		After:   content,
		Written: time.Now(),
	}

	if prior, readErr := os.ReadFile(resolved); readErr == nil {
		record.Existed = true
		record.Before = string(prior)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
	}

	// Write to a temporary file in the same directory, then rename for atomicity
	tmp, err := os.CreateTemp(dir, ".swarm-write-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, resolved); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to save file %s: %w", path, err)
	}

	return record, nil
}

// Remove deletes a file inside the sandbox. Used by rollback to undo the
// creation of new files; subject to the same containment check as writes.
func (s *Sandbox) Remove(path string) error {
	resolved, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("could not remove file %s: %w", path, err)
	}
	return nil
}

// List enumerates entries under a directory inside the sandbox. With recursive
// set, the full subtree is walked; otherwise only direct children are
// returned. Paths in the result are relative to the sandbox root and sorted.
func (s *Sandbox) List(path string, recursive bool) ([]string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	var entries []string
	if recursive {
		err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if p == resolved {
				return nil
			}
			entries = append(entries, s.Rel(p))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", path, err)
		}
	} else {
		dirEntries, readErr := os.ReadDir(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, readErr)
		}
		for _, entry := range dirEntries {
			entries = append(entries, s.Rel(filepath.Join(resolved, entry.Name())))
		}
	}

	sort.Strings(entries)
	return entries, nil
}
