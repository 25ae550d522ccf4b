package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("json content", func(t *testing.T) {
		doc, err := Parse([]byte(`{"openapi": "3.1.0", "info": {"version": "2.0.0"}, "paths": {"/models": {}}}`))
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", doc.Version())
		assert.Len(t, doc.Paths(), 1)
	})

	t.Run("json with leading whitespace", func(t *testing.T) {
		doc, err := Parse([]byte("\n\t {\"openapi\": \"3.1.0\"}"))
		require.NoError(t, err)
		assert.Equal(t, "3.1.0", doc.Root()["openapi"])
	})

	t.Run("yaml content", func(t *testing.T) {
		doc, err := Parse([]byte("openapi: 3.1.0\ninfo:\n  version: 2.0.0\npaths:\n  /models: {}\n"))
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", doc.Version())
		assert.Len(t, doc.Paths(), 1)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := Parse([]byte("  \n  "))
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := Parse([]byte(`{"openapi": `))
		assert.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := Parse([]byte("openapi: [\n"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "spec.yml")
		require.NoError(t, os.WriteFile(path, []byte("info:\n  version: 1.2.3\n"), 0o644))

		doc, err := Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "1.2.3", doc.Version())
	})

	t.Run("from url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"info": {"version": "9.9.9"}}`))
		}))
		t.Cleanup(srv.Close)

		doc, err := Load(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "9.9.9", doc.Version())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(ctx, filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestPreflight(t *testing.T) {
	ctx := context.Background()

	t.Run("valid 3.1 document", func(t *testing.T) {
		info := Preflight(ctx, []byte(`{
			"openapi": "3.1.0",
			"info": {"title": "Demo API", "version": "1.0.0"},
			"paths": {"/widgets": {"get": {"responses": {"200": {"description": "ok"}}}}}
		}`))

		assert.Equal(t, "3.1.0", info.SpecVersion)
		assert.Equal(t, "Demo API", info.Title)
		assert.Equal(t, "1.0.0", info.Version)
		assert.Equal(t, 1, info.PathCount)
		assert.Empty(t, info.Warnings)
	})

	t.Run("valid 3.0 document passes strict validation", func(t *testing.T) {
		info := Preflight(ctx, []byte(`{
			"openapi": "3.0.3",
			"info": {"title": "Demo API", "version": "1.0.0"},
			"paths": {"/widgets": {"get": {"responses": {"200": {"description": "ok"}}}}}
		}`))

		assert.Equal(t, "3.0.3", info.SpecVersion)
		assert.Empty(t, info.Warnings)
	})

	t.Run("strict validation findings become warnings", func(t *testing.T) {
		info := Preflight(ctx, []byte(`{
			"openapi": "3.0.3",
			"info": {"title": "Demo API", "version": "1.0.0"},
			"paths": {"/widgets": {"get": {"responses": {"200": {}}}}}
		}`))

		assert.Equal(t, 1, info.PathCount)
		assert.Contains(t, strings.Join(info.Warnings, "\n"), "strict")
	})

	t.Run("unparseable content only warns", func(t *testing.T) {
		info := Preflight(ctx, []byte("not: [valid"))
		assert.NotEmpty(t, info.Warnings)
		assert.Equal(t, 0, info.PathCount)
	})
}
