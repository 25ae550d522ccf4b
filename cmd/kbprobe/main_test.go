package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specparity/specparity/internal/probe/kb"
)

func TestSelectSources(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		sources, err := selectSources("all")
		require.NoError(t, err)
		assert.Len(t, sources, 4)
	})

	t.Run("by name", func(t *testing.T) {
		sources, err := selectSources("synthetic")
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, "synthetic", sources[0].Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := selectSources("wikipedia")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no source named "wikipedia"`)
		assert.Contains(t, err.Error(), "synthetic")
	})
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources(&buf)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "rfc")
	assert.Contains(t, out, "IETF RFC")
	assert.Contains(t, out, "synthetic")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, []kb.SourceOutcome{
		{Source: "rfc", Documents: 3, FilesIndexed: 3, Queries: []kb.QueryOutcome{{Query: "q"}}},
		{Source: "blog", Documents: 2, FilesFailed: 1, Err: errors.New("boom")},
	})

	out := buf.String()
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "rfc")
	assert.Contains(t, out, "blog")
}
