package kb

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// processingBudget caps how long one file may sit in the embedding queue.
const processingBudget = 120 * time.Second

// QueryOutcome records one semantic search against a freshly built store.
type QueryOutcome struct {
	Query    string
	Hits     int
	TopScore float64
}

// SourceOutcome is the result of probing one source end to end.
type SourceOutcome struct {
	Source       string
	Documents    int
	Skipped      int
	FetchErrors  []string
	StoreID      string
	StoreReused  bool
	FilesIndexed int
	FilesFailed  int
	Queries      []QueryOutcome
	Err          error
}

// Failed reports whether the outcome should fail the probe.
func (o SourceOutcome) Failed() bool {
	return o.Err != nil || o.FilesFailed > 0
}

// Runner drives the full probe: fetch documents, build a vector store,
// run searches, clean up.
type Runner struct {
	settings Settings
	client   *Client
}

func NewRunner(settings Settings) *Runner {
	return &Runner{settings: settings, client: NewClient(settings)}
}

// Run probes each source in turn. A failing source does not stop the rest.
func (r *Runner) Run(ctx context.Context, sources []Source) []SourceOutcome {
	outcomes := make([]SourceOutcome, 0, len(sources))
	for _, src := range sources {
		outcomes = append(outcomes, r.runSource(ctx, src))
	}
	return outcomes
}

func (r *Runner) runSource(ctx context.Context, src Source) SourceOutcome {
	outcome := SourceOutcome{Source: src.Name()}
	log := slog.With("source", src.Name())

	log.Info("Fetching documents", "max", r.settings.MaxDocs)
	fetchClient := &http.Client{Timeout: r.settings.Timeout}
	fetched := src.Fetch(ctx, newFetcher(src.Name(), fetchClient, r.settings.MaxFileSizeBytes()), r.settings.MaxDocs)
	outcome.FetchErrors = fetched.Errors

	var docs []Document
	for _, doc := range fetched.Documents {
		if int64(len(doc.Content)) > r.settings.MaxFileSizeBytes() {
			log.Warn("Skipping oversized document", "file", doc.Filename, "bytes", len(doc.Content))
			outcome.Skipped++
			continue
		}
		docs = append(docs, doc)
	}
	outcome.Documents = len(docs)

	if len(docs) == 0 {
		outcome.Err = errors.New("no documents fetched")
		return outcome
	}

	if r.settings.DryRun {
		log.Info("Dry run, stopping before upload", "documents", len(docs))
		return outcome
	}

	store, err := r.client.EnsureVectorStore(ctx, "Test: "+src.Description(), src.Description())
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.StoreID = store.ID
	outcome.StoreReused = store.Reused
	log.Info("Vector store ready", "store_id", store.ID, "reused", store.Reused)

	var fileIDs []string
	for _, doc := range docs {
		fileID, err := r.client.UploadDocument(ctx, doc)
		if err != nil {
			log.Error("Upload failed", "file", doc.Filename, "error", err)
			outcome.FilesFailed++
			continue
		}
		fileIDs = append(fileIDs, fileID)

		storeFileID, exists, err := r.client.AttachFile(ctx, store.ID, fileID)
		if err != nil {
			log.Error("Attach failed", "file", doc.Filename, "error", err)
			outcome.FilesFailed++
			continue
		}
		if exists {
			log.Info("File already indexed", "file", doc.Filename)
			outcome.FilesIndexed++
			continue
		}

		if err := r.client.WaitForProcessing(ctx, store.ID, storeFileID, processingBudget); err != nil {
			log.Error("Processing failed", "file", doc.Filename, "error", err)
			outcome.FilesFailed++
			continue
		}
		outcome.FilesIndexed++
	}

	if outcome.FilesIndexed > 0 {
		queries := src.Queries()
		if len(queries) > 2 {
			queries = queries[:2]
		}
		for _, query := range queries {
			hits, err := r.client.Search(ctx, store.ID, query, 3)
			if err != nil {
				log.Error("Search failed", "query", query, "error", err)
				continue
			}
			q := QueryOutcome{Query: query, Hits: len(hits)}
			if len(hits) > 0 {
				q.TopScore = hits[0].Score
			}
			outcome.Queries = append(outcome.Queries, q)
			log.Info("Search done", "query", query, "hits", q.Hits, "top_score", q.TopScore)
		}
	}

	if !r.settings.KeepStores {
		r.cleanup(ctx, store.ID, fileIDs, log)
	}

	return outcome
}

func (r *Runner) cleanup(ctx context.Context, storeID string, fileIDs []string, log *slog.Logger) {
	if err := r.client.DeleteVectorStore(ctx, storeID); err != nil {
		log.Warn("Failed to delete vector store", "store_id", storeID, "error", err)
	}
	for _, fileID := range fileIDs {
		if err := r.client.DeleteFile(ctx, fileID); err != nil {
			log.Warn("Failed to delete file", "file_id", fileID, "error", err)
		}
	}
	log.Info("Cleanup complete", "store_id", storeID, "files", len(fileIDs))
}
