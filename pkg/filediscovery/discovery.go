package filediscovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Directories that are never worth auditing, regardless of ignore rules.
var alwaysSkippedDirs = map[string]bool{
	".git":         true,
	".swarm":       true,
	".backups":     true,
	"__pycache__":  true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
}

// ListSourceFiles walks the root and returns root-relative paths of source
// files with one of the given extensions, honoring .gitignore and
// .swarm/.ignore rules. Extensions are matched case-insensitively and must
// include the leading dot.
func ListSourceFiles(rootDir string, extensions []string) ([]string, error) {
	rules := GetIgnoreRules(rootDir)

	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if alwaysSkippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if rules != nil && rules.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !hasExtension(d.Name(), extensions) {
			return nil
		}
		if rules != nil && rules.MatchesPath(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, allowed := range extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}
