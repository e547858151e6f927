package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the largest file the walker will pick up (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// DefaultIncludes covers the document formats ingestion understands.
var DefaultIncludes = []string{"**/*.md", "**/*.markdown", "**/*.txt"}

// defaultExcludeDirs are subtrees skipped during traversal.
var defaultExcludeDirs = []string{
	".git",
	"node_modules",
	"vendor",
	"__pycache__",
	"dist",
	"build",
	".next",
	"target",
	".venv",
	".idea",
	".vscode",
}

// FileInfo describes one file discovered during traversal.
type FileInfo struct {
	Path        string // absolute path on disk
	RelPath     string // path relative to the walk root, slash-separated
	Size        int64
	ContentHash string // SHA-256 hex digest
}

// WalkConfig controls Walk.
type WalkConfig struct {
	RootDir     string
	Include     []string // glob patterns; empty means DefaultIncludes
	Exclude     []string // glob patterns; empty excludes nothing extra
	MaxFileSize int64    // 0 means DefaultMaxFileSize
}

// Walk finds ingestable files under config.RootDir. It skips binary files,
// honours .gitignore at the root, and applies include/exclude globs.
func Walk(config WalkConfig) ([]FileInfo, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walk: resolve root: %w", err)
	}

	include := config.Include
	if len(include) == 0 {
		include = DefaultIncludes
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	gitignorePatterns := loadGitignore(filepath.Join(root, ".gitignore"))

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}

		if d.IsDir() {
			if shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if matchesAny(relPath, gitignorePatterns) {
			return nil
		}
		if !matchesAny(relPath, include) {
			return nil
		}
		if matchesAny(relPath, config.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxSize {
			return nil
		}
		if isBinary(path) {
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:        path,
			RelPath:     relPath,
			Size:        info.Size(),
			ContentHash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: traversal: %w", err)
	}

	return files, nil
}

func shouldExcludeDir(name string) bool {
	for _, excl := range defaultExcludeDirs {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesAny checks relPath against the given glob patterns, matching both
// the full relative path and the bare filename so a pattern like "*.md"
// works at any depth.
func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(relPath)); err == nil && matched {
			return true
		}
	}
	return false
}

// isBinary checks the first 512 bytes for NUL bytes.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
