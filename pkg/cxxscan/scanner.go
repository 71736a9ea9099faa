// Package cxxscan extracts class declarations and function definitions from
// C and C++ sources with tree-sitter.
package cxxscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/spf13/afero"

	"github.com/Sumatoshi-tech/testfang/pkg/safeconv"
	"github.com/Sumatoshi-tech/testfang/pkg/srcindex"
)

var (
	errGrammarNotAvailable = errors.New("grammar not available")
	errPoolType            = errors.New("unexpected parser pool entry")
	errNoRootNode          = errors.New("no root node")
)

// Scanner implements srcindex.Scanner for C and C++ files. It is safe for
// concurrent use: tree-sitter parsers are pooled per grammar.
type Scanner struct {
	fs      afero.Fs
	baseDir string
	defines *Defines
	logger  *slog.Logger
	pools   map[string]*sync.Pool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFs sets the filesystem sources are read from.
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) { s.fs = fs }
}

// WithBaseDir resolves relative paths against dir.
func WithBaseDir(dir string) Option {
	return func(s *Scanner) { s.baseDir = dir }
}

// WithDefines sets the macros expanded before parsing.
func WithDefines(defines *Defines) Option {
	return func(s *Scanner) { s.defines = defines }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// New creates a Scanner.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
		pools:  make(map[string]*sync.Pool, len(grammarFuncs)),
	}

	for _, opt := range opts {
		opt(s)
	}

	for name := range grammarFuncs {
		lang := language(name)
		if lang == nil {
			return nil, fmt.Errorf("%w: %s", errGrammarNotAvailable, name)
		}

		s.pools[name] = &sync.Pool{
			New: func() any {
				parser := sitter.NewParser()
				parser.SetLanguage(lang)

				return parser
			},
		}
	}

	return s, nil
}

var _ srcindex.Scanner = (*Scanner)(nil)

// Scan reads and parses path, returning its top-level classes and function definitions.
func (s *Scanner) Scan(ctx context.Context, path string) ([]srcindex.Entity, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	full := path
	if s.baseDir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(s.baseDir, path)
	}

	content, err := afero.ReadFile(s.fs, full)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	return s.ScanSource(ctx, path, content)
}

// ScanSource parses content as if read from path.
func (s *Scanner) ScanSource(ctx context.Context, path string, content []byte) ([]srcindex.Entity, error) {
	grammar := grammarFor(path)

	parser, ok := s.pools[grammar].Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer s.pools[grammar].Put(parser)

	content = s.defines.Expand(content)

	tree, err := parser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("parse %s: %w", path, errNoRootNode)
	}

	w := &walker{source: content}
	w.visitChildren(root)

	s.logger.Debug("scanned source", "path", path, "grammar", grammar, "entities", len(w.entities))

	return w.entities, nil
}

type walker struct {
	source   []byte
	entities []srcindex.Entity
}

func (w *walker) visitChildren(n sitter.Node) {
	for idx := range n.NamedChildCount() {
		w.visit(n.NamedChild(idx))
	}
}

// visit handles one top-level item. Member functions defined inside a class
// body belong to the class and are not reported.
func (w *walker) visit(n sitter.Node) {
	switch n.Type() {
	case "namespace_definition", "linkage_specification":
		body := n.ChildByFieldName("body")
		if body.IsNull() {
			return
		}

		if body.Type() == "declaration_list" {
			w.visitChildren(body)
		} else {
			w.visit(body)
		}
	case "template_declaration", "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "export_declaration":
		w.visitChildren(n)
	case "declaration", "type_definition":
		typ := n.ChildByFieldName("type")
		if !typ.IsNull() {
			w.visit(typ)
		}
	case "class_specifier", "struct_specifier":
		w.class(n)
	case "function_definition":
		w.function(n)
	}
}

func (w *walker) class(n sitter.Node) {
	name := n.ChildByFieldName("name")
	if name.IsNull() || n.ChildByFieldName("body").IsNull() {
		return
	}

	qualified := w.text(name)
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		qualified = qualified[i+2:]
	}

	w.entities = append(w.entities, srcindex.Entity{
		Kind: srcindex.KindClass,
		Name: qualified,
		Line: line(n),
	})
}

func (w *walker) function(n sitter.Node) {
	decl := functionDeclarator(n.ChildByFieldName("declarator"))
	if decl.IsNull() {
		return
	}

	nameNode := decl.ChildByFieldName("declarator")
	if nameNode.IsNull() {
		return
	}

	w.entities = append(w.entities, srcindex.Entity{
		Kind:          srcindex.KindFunction,
		QualifiedName: stripTemplateArgs(w.text(nameNode)),
		Line:          line(n),
	})
}

// functionDeclarator unwraps pointer and reference declarators
// ("Widget* Factory::make()") down to the function_declarator.
func functionDeclarator(n sitter.Node) sitter.Node {
	for !n.IsNull() {
		switch n.Type() {
		case "function_declarator":
			return n
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "attributed_declarator":
			inner := n.ChildByFieldName("declarator")
			if inner.IsNull() {
				count := n.NamedChildCount()
				if count == 0 {
					return inner
				}

				inner = n.NamedChild(count - 1)
			}

			n = inner
		default:
			return sitter.Node{}
		}
	}

	return n
}

func (w *walker) text(n sitter.Node) string {
	start := safeconv.MustUintToInt(n.StartByte())
	end := safeconv.MustUintToInt(n.EndByte())

	if end > len(w.source) || start > end {
		return ""
	}

	return strings.Join(strings.Fields(string(w.source[start:end])), "")
}

// stripTemplateArgs drops balanced template argument lists, so
// "Box<T>::put" becomes "Box::put". Unbalanced names are returned as is.
func stripTemplateArgs(name string) string {
	if !strings.ContainsRune(name, '<') {
		return name
	}

	var (
		b     strings.Builder
		depth int
	)

	for _, r := range name {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
			if depth < 0 {
				return name
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}

	if depth != 0 {
		return name
	}

	return b.String()
}

func line(n sitter.Node) int {
	return safeconv.MustUintToInt(n.StartPoint().Row) + 1
}
