// Package loader reads reference and implementation OpenAPI documents from
// files or URLs and decodes them into the raw tree the engine works on.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/specparity/specparity/internal/files"
	"github.com/specparity/specparity/pkg/openapi"
)

// ErrEmptyDocument is returned for content that is empty or whitespace only.
var ErrEmptyDocument = errors.New("empty openapi document")

// Load reads a document from a local path or an http(s) URL and parses it.
func Load(ctx context.Context, pathOrURL string) (*openapi.Document, error) {
	content, err := files.ReadFileOrURL(ctx, pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pathOrURL, err)
	}

	doc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pathOrURL, err)
	}
	return doc, nil
}

// Parse decodes JSON or YAML content. JSON is detected by the first
// non-space byte; everything else goes through the YAML decoder.
func Parse(content []byte) (*openapi.Document, error) {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, ErrEmptyDocument
	}

	root := map[string]any{}
	if trimmed[0] == '{' {
		if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
			return nil, err
		}
		return openapi.NewDocument(root), nil
	}

	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, err
	}
	return openapi.NewDocument(root), nil
}
