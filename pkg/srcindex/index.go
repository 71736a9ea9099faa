package srcindex

import "maps"

// Index maps unqualified class names to the file declaring (decl) or
// implementing (impl) them. It is read-only once built.
type Index struct {
	decl map[string]string
	impl map[string]string
}

// Declaration returns the file declaring the class.
func (ix Index) Declaration(class string) (string, bool) {
	path, ok := ix.decl[class]

	return path, ok
}

// Implementation returns the file defining member functions of the class.
func (ix Index) Implementation(class string) (string, bool) {
	path, ok := ix.impl[class]

	return path, ok
}

// FilePath resolves a class name: implementation first, then declaration, and
// finally the class name itself as a last-resort path.
func (ix Index) FilePath(class string) string {
	if path, ok := ix.impl[class]; ok {
		return path
	}

	if path, ok := ix.decl[class]; ok {
		return path
	}

	return class
}

// Len returns the sizes of the declaration and implementation tables.
func (ix Index) Len() (decl, impl int) {
	return len(ix.decl), len(ix.impl)
}

// Declarations returns a copy of the declaration table.
func (ix Index) Declarations() map[string]string { return maps.Clone(ix.decl) }

// Implementations returns a copy of the implementation table.
func (ix Index) Implementations() map[string]string { return maps.Clone(ix.impl) }

// Filter post-processes the implementation table against the declaration table.
type Filter func(impl, decl map[string]string) map[string]string

// KeepAll is the default filter: implementation entries are kept even when the
// class has no declaration among the scanned files.
func KeepAll(impl, _ map[string]string) map[string]string {
	return impl
}

// DeclaredOnly drops implementation entries whose class is not declared.
func DeclaredOnly(impl, decl map[string]string) map[string]string {
	kept := make(map[string]string, len(impl))

	for class, path := range impl {
		if _, ok := decl[class]; ok {
			kept[class] = path
		}
	}

	return kept
}
