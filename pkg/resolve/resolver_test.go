package resolve_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testfang/pkg/resolve"
	"github.com/Sumatoshi-tech/testfang/pkg/srcindex"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
)

// recordingFinder knows a fixed set of paths and records every lookup.
type recordingFinder struct {
	known   map[string]bool
	lookups []string
}

func (f *recordingFinder) Find(path string) (resolve.Resource, bool) {
	f.lookups = append(f.lookups, path)
	if !f.known[path] {
		return resolve.Resource{}, false
	}

	return resolve.Resource{Key: path, Path: "/proj/" + path}, true
}

func widgetIndex() srcindex.Index {
	b := srcindex.NewBuilder()
	b.Add("include/widget.h", []srcindex.Entity{
		{Kind: srcindex.KindClass, Name: "Widget"},
		{Kind: srcindex.KindClass, Name: "Gadget"},
	})
	b.Add("src/widget.cpp", []srcindex.Entity{
		{Kind: srcindex.KindFunction, QualifiedName: "NS::Widget::draw", Line: 4},
	})

	return b.Index()
}

func TestResolve_ImplementationTableFallback(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{"src/widget.cpp": true}}
	r := resolve.New(finder, widgetIndex())

	res, tier := r.ResolveTier(xunit.TestCase{Classname: "NS::Widget", Name: "draws"})

	assert.Equal(t, resolve.TierIndex, tier)
	assert.Equal(t, "src/widget.cpp", res.Key)
	assert.Equal(t, []string{"NS::Widget", "src/widget.cpp"}, finder.lookups)
}

func TestResolve_DeclarationTableFallback(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{"include/widget.h": true}}
	r := resolve.New(finder, widgetIndex())

	res, ok := r.Resolve(xunit.TestCase{Classname: "Gadget"})
	require.True(t, ok)
	assert.Equal(t, "include/widget.h", res.Key)
}

func TestResolve_FilenameIsAuthoritative(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{"src/widget.cpp": true, "NS::Widget": true}}
	r := resolve.New(finder, widgetIndex())

	_, tier := r.ResolveTier(xunit.TestCase{Classname: "NS::Widget", Filename: "missing.cpp"})

	assert.Equal(t, resolve.TierNone, tier)
	assert.Equal(t, []string{"missing.cpp"}, finder.lookups, "classname tiers must not be consulted")
}

func TestResolve_FilenameFound(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{"test/widget_test.cpp": true}}
	r := resolve.New(finder, srcindex.Index{})

	res, tier := r.ResolveTier(xunit.TestCase{Filename: "test/widget_test.cpp"})
	assert.Equal(t, resolve.TierFilename, tier)
	assert.Equal(t, "test/widget_test.cpp", res.Key)
	assert.Equal(t, "filename", tier.String())
}

func TestResolve_LiteralClassname(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{"tests/widget_test.py": true}}
	r := resolve.New(finder, widgetIndex())

	res, tier := r.ResolveTier(xunit.TestCase{Classname: "tests/widget_test.py"})
	assert.Equal(t, resolve.TierClassname, tier)
	assert.Equal(t, "tests/widget_test.py", res.Key)
}

func TestResolve_Unresolved(t *testing.T) {
	t.Parallel()

	finder := &recordingFinder{known: map[string]bool{}}
	r := resolve.New(finder, widgetIndex())

	_, ok := r.Resolve(xunit.TestCase{Name: "orphan"})
	assert.False(t, ok)
	assert.Empty(t, finder.lookups)

	_, ok = r.Resolve(xunit.TestCase{Classname: "Unknown"})
	assert.False(t, ok)
	assert.Equal(t, []string{"Unknown", "Unknown"}, finder.lookups, "literal classname is the last resort path")
}

func TestFsFinder(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/src/widget.cpp", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/include/ui/button.h", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/opt/sdk/include/sdk.h", []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll("/proj/src/dir.cpp", 0o755))

	finder := resolve.NewFsFinder("/proj",
		resolve.WithFinderFs(fs),
		resolve.WithRoots("include", "/opt/sdk/include"))

	tests := []struct {
		path string
		key  string
		ok   bool
	}{
		{path: "src/widget.cpp", key: "src/widget.cpp", ok: true},
		{path: "ui/button.h", key: "include/ui/button.h", ok: true},
		{path: "/proj/src/widget.cpp", key: "src/widget.cpp", ok: true},
		{path: "sdk.h", key: "/opt/sdk/include/sdk.h", ok: true},
		{path: "src/dir.cpp", ok: false},
		{path: "NS::Widget", ok: false},
		{path: "", ok: false},
	}

	for _, tt := range tests {
		res, ok := finder.Find(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.key, res.Key, tt.path)
	}
}

func TestFinderFunc(t *testing.T) {
	t.Parallel()

	finder := resolve.FinderFunc(func(path string) (resolve.Resource, bool) {
		return resolve.Resource{Key: path}, path == "a.cpp"
	})

	_, ok := finder.Find("a.cpp")
	assert.True(t, ok)
}
