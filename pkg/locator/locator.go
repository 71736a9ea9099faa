// Package locator expands glob patterns (with "**" support) into file lists.
package locator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/spf13/afero"
)

// ErrBadPattern is returned for a pattern zglob cannot compile.
var ErrBadPattern = errors.New("bad glob pattern")

// Locator finds files below a base directory.
type Locator struct {
	fs      afero.Fs
	baseDir string
	logger  *slog.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithFs sets the filesystem to search.
func WithFs(fsys afero.Fs) Option {
	return func(l *Locator) { l.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// New creates a Locator rooted at baseDir.
func New(baseDir string, opts ...Option) *Locator {
	l := &Locator{
		fs:      afero.NewOsFs(),
		baseDir: filepath.Clean(baseDir),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// BaseDir returns the directory relative patterns are resolved against.
func (l *Locator) BaseDir() string { return l.baseDir }

// Abs joins a relative result with the base directory.
func (l *Locator) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(l.baseDir, filepath.FromSlash(p))
}

// SplitPatterns splits a comma separated pattern list, dropping blanks.
func SplitPatterns(list string) []string {
	var patterns []string

	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}

	return patterns
}

// Find returns the regular files matching any pattern, sorted and deduplicated.
// Relative patterns yield slash-separated paths relative to the base directory;
// absolute patterns yield absolute paths. A pattern whose root does not exist
// matches nothing.
func (l *Locator) Find(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})

	for _, pattern := range patterns {
		matches, err := l.find(pattern)
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}

	found := make([]string, 0, len(seen))
	for m := range seen {
		found = append(found, m)
	}

	slices.Sort(found)

	l.logger.Debug("located files", "patterns", patterns, "count", len(found))

	return found, nil
}

func (l *Locator) find(pattern string) ([]string, error) {
	pattern = path.Clean(filepath.ToSlash(pattern))
	absolute := path.IsAbs(pattern)

	root := globRoot(pattern)
	if !absolute {
		root = filepath.Join(l.baseDir, filepath.FromSlash(root))
	}

	var matches []string

	err := afero.Walk(l.fs, root, func(p string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}

			return walkErr
		}

		if info.IsDir() {
			if p != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		candidate := filepath.ToSlash(p)
		if !absolute {
			rel, relErr := filepath.Rel(l.baseDir, p)
			if relErr != nil {
				return relErr
			}

			candidate = filepath.ToSlash(rel)
		}

		ok, matchErr := zglob.Match(pattern, candidate)
		if matchErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadPattern, pattern, matchErr)
		}

		if ok {
			matches = append(matches, candidate)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", pattern, err)
	}

	return matches, nil
}

// globRoot returns the leading directory segments of pattern that contain no
// glob metacharacters; the walk starts there.
func globRoot(pattern string) string {
	segments := strings.Split(pattern, "/")
	root := make([]string, 0, len(segments))

	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, "*?[{") {
			break
		}

		root = append(root, seg)
	}

	joined := strings.Join(root, "/")
	if joined == "" && path.IsAbs(pattern) {
		return "/"
	}

	if joined == "" {
		return "."
	}

	return joined
}
