package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// authTransport injects the gateway auth headers on every request, including
// the ones issued by the OpenAI SDK.
type authTransport struct {
	apiKey string
	orgID  string
	next   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("X-API-Key", t.apiKey)
	clone.Header.Set("X-Org-Id", t.orgID)
	return t.next.RoundTrip(clone)
}

// Client talks to the gateway's knowledge-base API. OpenAI-compatible calls
// go through the SDK, gateway extensions use raw HTTP.
type Client struct {
	sdk          *openai.Client
	http         *http.Client
	baseURL      string
	settings     Settings
	pollInterval time.Duration
}

func NewClient(settings Settings) *Client {
	httpClient := &http.Client{
		Timeout: settings.Timeout,
		Transport: &authTransport{
			apiKey: settings.APIKey,
			orgID:  settings.OrgID,
			next:   http.DefaultTransport,
		},
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	cfg.BaseURL = strings.TrimRight(settings.GatewayURL, "/") + "/api/v1"
	cfg.HTTPClient = httpClient

	return &Client{
		sdk:          openai.NewClientWithConfig(cfg),
		http:         httpClient,
		baseURL:      cfg.BaseURL,
		settings:     settings,
		pollInterval: 2 * time.Second,
	}
}

// UploadDocument pushes one document through the gateway's file API and
// returns the file id.
func (c *Client) UploadDocument(ctx context.Context, doc Document) (string, error) {
	file, err := c.sdk.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    doc.Filename,
		Bytes:   doc.Content,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", doc.Filename, err)
	}
	return file.ID, nil
}

// VectorStoreInfo identifies a store on the gateway.
type VectorStoreInfo struct {
	ID     string
	Name   string
	Reused bool
}

// EnsureVectorStore returns the store with the given name, creating it if
// the gateway has none. Reusing stores by name keeps repeated probe runs
// from piling up duplicates.
func (c *Client) EnsureVectorStore(ctx context.Context, name, description string) (VectorStoreInfo, error) {
	limit := 100
	stores, err := c.sdk.ListVectorStores(ctx, openai.Pagination{Limit: &limit})
	if err != nil {
		return VectorStoreInfo{}, fmt.Errorf("listing vector stores: %w", err)
	}
	for _, store := range stores.VectorStores {
		if store.Name == name {
			return VectorStoreInfo{ID: store.ID, Name: name, Reused: true}, nil
		}
	}

	// Creation goes through raw HTTP: the owner block is a gateway
	// extension the SDK cannot express.
	payload := map[string]any{
		"owner": map[string]any{
			"type":            "organization",
			"organization_id": c.settings.OrgID,
		},
		"name":            name,
		"description":     description,
		"embedding_model": c.settings.EmbeddingModel,
		"metadata": map[string]string{
			"created_by": "kbprobe",
			"run_id":     uuid.NewString(),
		},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := c.postJSON(ctx, "/vector_stores", payload, &created); err != nil {
		return VectorStoreInfo{}, fmt.Errorf("creating vector store: %w", err)
	}
	return VectorStoreInfo{ID: created.ID, Name: name}, nil
}

// AttachFile links an uploaded file into the store and reports whether the
// gateway already had it. Store membership is keyed on the bare id, without
// the "file-" prefix.
func (c *Client) AttachFile(ctx context.Context, storeID, fileID string) (string, bool, error) {
	vsFile, err := c.sdk.CreateVectorStoreFile(ctx, storeID, openai.VectorStoreFileRequest{
		FileID: strings.TrimPrefix(fileID, "file-"),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusConflict {
			return "", true, nil
		}
		return "", false, fmt.Errorf("attaching file %s: %w", fileID, err)
	}
	return vsFile.ID, false, nil
}

// WaitForProcessing polls the store file until the gateway finishes
// embedding it or the budget runs out.
func (c *Client) WaitForProcessing(ctx context.Context, storeID, storeFileID string, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	for {
		file, err := c.sdk.RetrieveVectorStoreFile(ctx, storeID, storeFileID)
		if err != nil {
			return fmt.Errorf("polling file %s: %w", storeFileID, err)
		}
		switch file.Status {
		case "completed":
			return nil
		case "failed":
			return fmt.Errorf("file %s failed to process", storeFileID)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("file %s still %s after %s", storeFileID, file.Status, budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// SearchHit is one semantic search result.
type SearchHit struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// Search runs a semantic query against the store. Search is a gateway
// extension with no equivalent in the upstream API.
func (c *Client) Search(ctx context.Context, storeID, query string, maxResults int) ([]SearchHit, error) {
	payload := map[string]any{
		"query":           query,
		"max_num_results": maxResults,
	}

	var out struct {
		Data []SearchHit `json:"data"`
	}
	if err := c.postJSON(ctx, "/vector_stores/"+storeID+"/search", payload, &out); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return out.Data, nil
}

func (c *Client) DeleteVectorStore(ctx context.Context, storeID string) error {
	if _, err := c.sdk.DeleteVectorStore(ctx, storeID); err != nil {
		return fmt.Errorf("deleting vector store %s: %w", storeID, err)
	}
	return nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.sdk.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
