// Package srcindex builds the class-name lookup tables used to attribute test cases
// to the source files that declare or implement the class under test.
package srcindex

import (
	"context"
	"strconv"
)

// Kind discriminates the entities a Scanner reports.
type Kind int

// Entity kinds.
const (
	// KindUnknown is any entity the index ignores.
	KindUnknown Kind = iota
	// KindClass is a class or struct declaration.
	KindClass
	// KindFunction is a function definition.
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindUnknown:
		return "unknown"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Entity is one top-level declaration found in a source file.
type Entity struct {
	Kind Kind
	// Name is the unqualified name for classes.
	Name string
	// QualifiedName is the declarator as written for functions, e.g. "NS::Widget::paint".
	QualifiedName string
	// Line is the 1-based line the entity starts on.
	Line int
}

// Key is the function key the class-name pattern is matched against:
// the qualified name followed by ":" and the line number.
func (e Entity) Key() string {
	return e.QualifiedName + ":" + strconv.Itoa(e.Line)
}

// Scanner extracts the top-level entities of a source file.
type Scanner interface {
	Scan(ctx context.Context, path string) ([]Entity, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, path string) ([]Entity, error)

// Scan calls f.
func (f ScannerFunc) Scan(ctx context.Context, path string) ([]Entity, error) {
	return f(ctx, path)
}
