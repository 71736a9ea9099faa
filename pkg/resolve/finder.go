package resolve

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Resource identifies a source unit test cases are attributed to.
type Resource struct {
	// Key is the slash-separated path relative to the base directory,
	// or the absolute path for files outside it.
	Key string
	// Path is the file-system path the key was found at.
	Path string
}

// Finder maps a file-system-style path to a known source unit.
type Finder interface {
	Find(path string) (Resource, bool)
}

// FinderFunc adapts a function to the Finder interface.
type FinderFunc func(path string) (Resource, bool)

// Find calls f.
func (f FinderFunc) Find(path string) (Resource, bool) { return f(path) }

// FsFinder looks paths up on a file system. Relative paths are tried against
// the base directory first and then against each source root in order.
type FsFinder struct {
	fs      afero.Fs
	baseDir string
	roots   []string
	logger  *slog.Logger
}

// FinderOption configures an FsFinder.
type FinderOption func(*FsFinder)

// WithFinderFs sets the file system.
func WithFinderFs(fs afero.Fs) FinderOption {
	return func(f *FsFinder) { f.fs = fs }
}

// WithRoots adds source roots. Relative roots are joined with the base directory.
func WithRoots(roots ...string) FinderOption {
	return func(f *FsFinder) { f.roots = append(f.roots, roots...) }
}

// WithFinderLogger sets the logger.
func WithFinderLogger(logger *slog.Logger) FinderOption {
	return func(f *FsFinder) { f.logger = logger }
}

// NewFsFinder creates a finder rooted at baseDir.
func NewFsFinder(baseDir string, opts ...FinderOption) *FsFinder {
	f := &FsFinder{
		fs:      afero.NewOsFs(),
		baseDir: filepath.Clean(baseDir),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Find implements Finder. Only regular files match.
func (f *FsFinder) Find(path string) (Resource, bool) {
	if path == "" {
		return Resource{}, false
	}

	for _, candidate := range f.candidates(filepath.FromSlash(path)) {
		info, err := f.fs.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		return Resource{Key: f.key(candidate), Path: candidate}, true
	}

	f.logger.Debug("no source unit for path", "path", path)

	return Resource{}, false
}

func (f *FsFinder) candidates(path string) []string {
	if filepath.IsAbs(path) {
		return []string{filepath.Clean(path)}
	}

	out := make([]string, 0, len(f.roots)+1)
	out = append(out, filepath.Join(f.baseDir, path))

	for _, root := range f.roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(f.baseDir, root)
		}

		out = append(out, filepath.Join(root, path))
	}

	return out
}

func (f *FsFinder) key(candidate string) string {
	rel, err := filepath.Rel(f.baseDir, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(candidate)
	}

	return filepath.ToSlash(rel)
}
