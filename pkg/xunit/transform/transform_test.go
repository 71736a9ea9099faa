package transform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit/transform"
)

const boostLog = `<?xml version="1.0" encoding="UTF-8"?>
<TestLog>
  <TestSuite name="Master">
    <TestSuite name="Widget">
      <TestCase name="draws"><TestingTime>1500000</TestingTime></TestCase>
      <TestCase name="resizes">
        <Error file="widget_test.cpp" line="12">check w == 3 failed</Error>
        <TestingTime>500000</TestingTime>
      </TestCase>
    </TestSuite>
  </TestSuite>
</TestLog>`

const identitySheet = `<?xml version="1.0"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:template match="@*|node()"><xsl:copy><xsl:apply-templates select="@*|node()"/></xsl:copy></xsl:template>
</xsl:stylesheet>`

func TestTransform_NoStylesheetIsIdentity(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	tr := transform.New("", transform.WithFs(fs))

	assert.False(t, tr.Enabled())

	got, err := tr.Transform(context.Background(), "/reports/xunit-result-1.xml")
	require.NoError(t, err)
	assert.Equal(t, "/reports/xunit-result-1.xml", got)

	exists, err := afero.Exists(fs, "/reports/xunit-result-1.xml"+transform.OutputSuffix)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransform_BuiltinBoostStylesheet(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/reports/boost.xml", []byte(boostLog), 0o644))

	tr := transform.New("boosttest-1.x-to-junit-1.0.xsl", transform.WithFs(fs))

	got, err := tr.Transform(context.Background(), "/reports/boost.xml")
	require.NoError(t, err)
	assert.Equal(t, "/reports/boost.xml.after_xslt", got)

	cases, err := xunit.NewParser(xunit.WithFs(fs)).ParseFile(got)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "Widget", cases[0].Classname)
	assert.Equal(t, xunit.StatusPassed, cases[0].Status)
	assert.Equal(t, xunit.StatusFailure, cases[1].Status)
	assert.Equal(t, "check w == 3 failed", cases[1].Message)
}

func TestTransform_OutputIsIndented(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.xml", []byte(`<testsuite><testcase name="a"/></testsuite>`), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(identitySheet))
	}))
	defer srv.Close()

	tr := transform.New(srv.URL+"/identity.xsl", transform.WithFs(fs))

	got, err := tr.Transform(context.Background(), "/r.xml")
	require.NoError(t, err)

	out, err := afero.ReadFile(fs, got)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  <testcase")
}

func TestTransform_UnknownReferenceFails(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.xml", []byte(`<testsuite/>`), 0o644))

	tr := transform.New("no-such-sheet.xsl", transform.WithFs(fs))

	_, err := tr.Transform(context.Background(), "/r.xml")
	require.ErrorIs(t, err, transform.ErrTransform)

	var trErr *transform.Error
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "no-such-sheet.xsl", trErr.Ref)
	assert.Empty(t, trErr.Report)
}

func TestTransform_RemoteNotFoundFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.xml", []byte(`<testsuite/>`), 0o644))

	tr := transform.New(srv.URL+"/missing.xsl", transform.WithFs(fs), transform.WithFetchPolicy(0, 0))

	_, err := tr.Transform(context.Background(), "/r.xml")
	require.ErrorIs(t, err, transform.ErrTransform)
	assert.Contains(t, err.Error(), "404")
}

func TestTransform_OversizedStylesheetFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat(" ", 9<<20)))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.xml", []byte(`<testsuite/>`), 0o644))

	tr := transform.New(srv.URL+"/huge.xsl", transform.WithFs(fs), transform.WithFetchPolicy(0, 0))

	_, err := tr.Transform(context.Background(), "/r.xml")
	require.ErrorIs(t, err, transform.ErrTransform)
	assert.Contains(t, err.Error(), "too large")
}

func TestTransform_InvalidStylesheetFails(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.xml", []byte(`<testsuite/>`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/broken.xsl", []byte(`<not-a-stylesheet`), 0o644))

	tr := transform.New("file:///broken.xsl", transform.WithFs(fs))

	_, err := tr.Transform(context.Background(), "/r.xml")
	require.ErrorIs(t, err, transform.ErrTransform)

	var trErr *transform.Error
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "/r.xml", trErr.Report)
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	names := strings.Join(transform.Builtins(), ",")
	assert.Contains(t, names, "boosttest-1.x-to-junit-1.0.xsl")
	assert.Contains(t, names, "cppunit-1.x-to-junit-1.0.xsl")
}
