package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specparity/specparity/pkg/conformance"
)

func TestParseArgs(t *testing.T) {
	t.Run("named flags", func(t *testing.T) {
		opts, err := parseArgs([]string{"-ref", "ref.json", "-impl", "impl.json", "-format", "json", "-endpoint", "/models", "-no-fail"})
		require.NoError(t, err)
		assert.Equal(t, "ref.json", opts.refPath)
		assert.Equal(t, "impl.json", opts.implPath)
		assert.Equal(t, "json", opts.format)
		assert.Equal(t, "/models", opts.endpoint)
		assert.True(t, opts.noFail)
		assert.False(t, opts.watch)
	})

	t.Run("positional specs", func(t *testing.T) {
		opts, err := parseArgs([]string{"ref.yml", "impl.yml"})
		require.NoError(t, err)
		assert.Equal(t, "ref.yml", opts.refPath)
		assert.Equal(t, "impl.yml", opts.implPath)
		assert.Equal(t, "text", opts.format)
	})

	t.Run("missing specs", func(t *testing.T) {
		_, err := parseArgs([]string{"-ref", "ref.json"})
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := parseArgs([]string{"-ref", "a", "-impl", "b", "-format", "xml"})
		assert.Error(t, err)
	})
}

func writeSpecFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	refPath := filepath.Join(dir, "reference.json")
	refSpec := `{
		"info": {"version": "2.0.0"},
		"paths": {
			"/widgets": {"get": {"responses": {"200": {"description": "ok"}}}},
			"/legacy": {"get": {"responses": {"200": {"description": "ok"}}}}
		}
	}`
	require.NoError(t, os.WriteFile(refPath, []byte(refSpec), 0o644))

	implPath := filepath.Join(dir, "implementation.json")
	implSpec := `{
		"info": {"version": "1.0.0"},
		"paths": {
			"/api/v1/widgets": {"get": {"responses": {"200": {"description": "ok"}}}}
		}
	}`
	require.NoError(t, os.WriteFile(implPath, []byte(implSpec), 0o644))

	return refPath, implPath
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("text report with a missing endpoint", func(t *testing.T) {
		refPath, implPath := writeSpecFixtures(t)
		outPath := filepath.Join(t.TempDir(), "report.txt")

		hasViolations, err := runOnce(ctx, runOptions{
			refPath:  refPath,
			implPath: implPath,
			format:   "text",
			outPath:  outPath,
		})
		require.NoError(t, err)
		assert.True(t, hasViolations)

		content, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "OpenAPI Conformance Report")
		assert.Contains(t, string(content), "Reference spec version: 2.0.0")
		assert.Contains(t, string(content), "  - GET /legacy")
	})

	t.Run("json report", func(t *testing.T) {
		refPath, implPath := writeSpecFixtures(t)
		outPath := filepath.Join(t.TempDir(), "report.json")

		_, err := runOnce(ctx, runOptions{
			refPath:  refPath,
			implPath: implPath,
			format:   "json",
			outPath:  outPath,
		})
		require.NoError(t, err)

		content, err := os.ReadFile(outPath)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(content, &decoded))
		assert.Equal(t, "2.0.0", decoded["reference_version"])
		assert.Equal(t, "1.0.0", decoded["implementation_version"])
	})

	t.Run("endpoint filter suppresses the missing endpoint", func(t *testing.T) {
		refPath, implPath := writeSpecFixtures(t)

		hasViolations, err := runOnce(ctx, runOptions{
			refPath:  refPath,
			implPath: implPath,
			format:   "text",
			endpoint: "/widgets",
			outPath:  filepath.Join(t.TempDir(), "report.txt"),
		})
		require.NoError(t, err)
		assert.False(t, hasViolations)
	})

	t.Run("missing reference spec", func(t *testing.T) {
		_, implPath := writeSpecFixtures(t)

		_, err := runOnce(ctx, runOptions{
			refPath:  filepath.Join(t.TempDir(), "absent.json"),
			implPath: implPath,
			format:   "text",
			outPath:  filepath.Join(t.TempDir(), "report.txt"),
		})
		assert.Error(t, err)
	})
}

func TestRenderReport(t *testing.T) {
	result := &conformance.Report{
		ReferenceVersion:      "1.0.0",
		ImplementationVersion: "1.0.0",
		EndpointsWithDiffs:    []conformance.EndpointDiff{},
		Violations:            []conformance.Violation{},
		ExtensionEndpoints:    []string{},
		OutOfScopeEndpoints:   []string{"/assistants"},
	}

	t.Run("text", func(t *testing.T) {
		out, err := renderReport(result, runOptions{format: "text"})
		require.NoError(t, err)
		assert.Contains(t, out, "CI STATUS: PASS")
		assert.NotContains(t, out, "Out of Scope Endpoints:")
	})

	t.Run("text verbose", func(t *testing.T) {
		out, err := renderReport(result, runOptions{format: "text", verbose: true})
		require.NoError(t, err)
		assert.Contains(t, out, "Out of Scope Endpoints:")
	})

	t.Run("json", func(t *testing.T) {
		out, err := renderReport(result, runOptions{format: "json"})
		require.NoError(t, err)
		assert.Contains(t, out, "\"reference_version\": \"1.0.0\"")
	})
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.txt")
	require.NoError(t, writeOutput(path, "report body"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body\n", string(content))
}
