// Package resolve attributes test cases to source units.
package resolve

import (
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/testfang/pkg/srcindex"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
)

// Tier tells which lookup strategy resolved a test case.
type Tier int

// Resolution tiers, in evaluation order.
const (
	TierNone Tier = iota
	// TierFilename resolves the reported file path. It is authoritative.
	TierFilename
	// TierClassname resolves the classname as if it were a path.
	TierClassname
	// TierIndex resolves through the source index.
	TierIndex
)

func (t Tier) String() string {
	switch t {
	case TierFilename:
		return "filename"
	case TierClassname:
		return "classname"
	case TierIndex:
		return "index"
	case TierNone:
		return "none"
	default:
		return "unknown"
	}
}

// Resolver maps test cases to resources.
type Resolver struct {
	finder Finder
	index  srcindex.Index
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New creates a Resolver over a frozen index.
func New(finder Finder, index srcindex.Index, opts ...Option) *Resolver {
	r := &Resolver{finder: finder, index: index, logger: slog.Default()}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the resource tc is attributed to.
func (r *Resolver) Resolve(tc xunit.TestCase) (Resource, bool) {
	res, tier := r.ResolveTier(tc)

	return res, tier != TierNone
}

// ResolveTier is Resolve reporting the tier that succeeded.
//
// A test case carrying a filename is resolved by that path alone; a failed lookup
// does not fall through to the classname tiers.
func (r *Resolver) ResolveTier(tc xunit.TestCase) (Resource, Tier) {
	if tc.Filename != "" {
		r.logger.Debug("filename lookup", "test", tc.Name, "path", tc.Filename)

		if res, ok := r.finder.Find(tc.Filename); ok {
			return res, TierFilename
		}

		return Resource{}, TierNone
	}

	if tc.Classname == "" {
		return Resource{}, TierNone
	}

	r.logger.Debug("classname lookup", "test", tc.Name, "classname", tc.Classname)

	if res, ok := r.finder.Find(tc.Classname); ok {
		return res, TierClassname
	}

	path := r.indexPath(tc.Classname)
	r.logger.Debug("index lookup", "test", tc.Name, "classname", tc.Classname, "path", path)

	if res, ok := r.finder.Find(path); ok {
		return res, TierIndex
	}

	return Resource{}, TierNone
}

// indexPath looks the classname up in the implementation table, then the
// declaration table, first as reported and then by its unqualified name.
// The classname itself is the last resort.
func (r *Resolver) indexPath(classname string) string {
	names := []string{classname}
	if i := strings.LastIndex(classname, "::"); i >= 0 && i+2 < len(classname) {
		names = append(names, classname[i+2:])
	}

	for _, name := range names {
		if path, ok := r.index.Implementation(name); ok {
			return path
		}

		if path, ok := r.index.Declaration(name); ok {
			return path
		}
	}

	return classname
}
