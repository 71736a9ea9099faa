package srcindex

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Builder accumulates scanned entities and freezes them into an Index.
// Entries are last-write-wins: a class name seen in several files keeps the
// path of the file added last.
type Builder struct {
	decl    map[string]string
	impl    map[string]string
	filter  Filter
	matcher ClassNameMatcher
	logger  *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithFilter replaces the KeepAll implementation filter.
func WithFilter(filter Filter) Option {
	return func(b *Builder) { b.filter = filter }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		decl:    make(map[string]string),
		impl:    make(map[string]string),
		filter:  KeepAll,
		matcher: NewClassNameMatcher(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add records the entities of one file.
func (b *Builder) Add(path string, entities []Entity) {
	for _, entity := range entities {
		switch entity.Kind {
		case KindClass:
			b.put(b.decl, "declaration", entity.Name, path)
		case KindFunction:
			class, ok := b.matcher.Match(entity.Key())
			if ok {
				b.put(b.impl, "implementation", class, path)
			}
		case KindUnknown:
		}
	}
}

func (b *Builder) put(table map[string]string, tableName, class, path string) {
	if prev, ok := table[class]; ok && prev != path {
		b.logger.Debug("class name seen in several files, keeping the last one",
			"table", tableName, "class", class, "previous", prev, "path", path)
	}

	table[class] = path
}

// Index applies the filter and returns an immutable snapshot.
func (b *Builder) Index() Index {
	decl := maps.Clone(b.decl)
	impl := b.filter(maps.Clone(b.impl), decl)

	return Index{decl: decl, impl: impl}
}

// Build scans files one by one and returns the resulting Index.
func Build(ctx context.Context, files []string, scanner Scanner, opts ...Option) (Index, error) {
	b := NewBuilder(opts...)

	for _, file := range files {
		entities, err := scanner.Scan(ctx, file)
		if err != nil {
			return Index{}, fmt.Errorf("scan %s: %w", file, err)
		}

		b.Add(file, entities)
	}

	return b.Index(), nil
}

// BuildParallel scans files with up to workers goroutines (0 means GOMAXPROCS)
// and adds the results in file order, so the Index equals the one Build returns.
func BuildParallel(ctx context.Context, files []string, scanner Scanner, workers int, opts ...Option) (Index, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]Entity, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, file := range files {
		group.Go(func() error {
			entities, err := scanner.Scan(groupCtx, file)
			if err != nil {
				return fmt.Errorf("scan %s: %w", file, err)
			}

			results[i] = entities

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return Index{}, err
	}

	b := NewBuilder(opts...)
	for i, file := range files {
		b.Add(file, results[i])
	}

	return b.Index(), nil
}
