package cxxscan

import (
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/c"
	"github.com/alexaandru/go-sitter-forest/cpp"
)

// Grammar names.
const (
	grammarC   = "c"
	grammarCPP = "cpp"
)

var grammarFuncs = map[string]func() unsafe.Pointer{
	grammarC:   c.GetLanguage,
	grammarCPP: cpp.GetLanguage,
}

var grammarCache sync.Map

// grammarFor picks the grammar by extension. Plain ".c" files use the C grammar,
// everything else (headers included) is parsed as C++.
func grammarFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".c") {
		return grammarC
	}

	return grammarCPP
}

func language(name string) *sitter.Language {
	if cached, ok := grammarCache.Load(name); ok {
		lang, castOK := cached.(*sitter.Language)
		if castOK {
			return lang
		}
	}

	fn, ok := grammarFuncs[name]
	if !ok {
		return nil
	}

	lang := sitter.NewLanguage(fn())
	grammarCache.Store(name, lang)

	return lang
}
