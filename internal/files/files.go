// Package files reads OpenAPI documents from the local filesystem or over
// HTTP, whichever the caller points at.
package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
)

// ErrGettingFileFromURL is returned when a URL fetch comes back with a
// non-200 status.
var ErrGettingFileFromURL = errors.New("error getting file from url")

// IsURL checks if a path is a URL (starts with http:// or https://).
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// GetFileContentsFromURL fetches file contents from a URL.
// Returns the contents and the Content-Type reported by the server.
func GetFileContentsFromURL(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", ErrGettingFileFromURL
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return content, contentType, nil
}

// ReadFileOrURL reads content from either a local file path or a URL.
// If the path starts with http:// or https://, it fetches from the URL.
// Otherwise, it reads from the local file system.
func ReadFileOrURL(ctx context.Context, path string) ([]byte, error) {
	if IsURL(path) {
		content, _, err := GetFileContentsFromURL(ctx, nil, path)
		return content, err
	}

	return os.ReadFile(path)
}
