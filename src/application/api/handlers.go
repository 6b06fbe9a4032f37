package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"mediagrab-be-server/src/application/batch"
	"mediagrab-be-server/src/application/config"
	"mediagrab-be-server/src/application/fetch"
	"mediagrab-be-server/src/application/infocache"
	"mediagrab-be-server/src/application/platform"
	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/application/video"
	"mediagrab-be-server/src/lib/env"
)

type Handler struct {
	orchestrator batch.Orchestrator
	fetcher      fetch.Fetcher
	extractor    video.Extractor
	classifier   platform.Classifier
	recordStore  entity.RecordStore
	cache        infocache.InfoCache
	cfg          *config.Config
	environment  env.Environment
}

func NewHandler(
	orchestrator batch.Orchestrator,
	fetcher fetch.Fetcher,
	extractor video.Extractor,
	classifier platform.Classifier,
	recordStore entity.RecordStore,
	cache infocache.InfoCache,
	cfg *config.Config,
	environment env.Environment,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		fetcher:      fetcher,
		extractor:    extractor,
		classifier:   classifier,
		recordStore:  recordStore,
		cache:        cache,
		cfg:          cfg,
		environment:  environment,
	}
}

type downloadRequest struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Timeout  int    `json:"timeout"`
}

type batchOptions struct {
	MaxConcurrent int `json:"maxConcurrent"`
}

type batchRequest struct {
	URLs    []string     `json:"urls"`
	Options batchOptions `json:"options"`
}

// DownloadSingle fetches one generic URL and streams the file back.
func (h *Handler) DownloadSingle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !validDownloadURL(req.URL) {
		writeError(w, http.StatusBadRequest, "A valid http(s) URL is required")
		return
	}

	item := h.fetchItem(req.FileName, time.Duration(req.Timeout)*time.Second)
	outcome, err := h.orchestrator.Run(r.Context(), UserID(r), []string{req.URL}, 1, item)
	if err != nil {
		h.writeBatchError(w, err)
		return
	}

	result := outcome.Results[0]
	if !result.Success {
		writeError(w, http.StatusUnprocessableEntity, result.Error)
		return
	}

	if err := streamFile(w, result.FilePath, result.FileName, result.Metadata["contentType"]); err != nil {
		// headers are gone at this point, logging is all that's left
		writeStreamFailure(err)
	}
}

// DownloadBatch runs up to 10 generic downloads under the concurrency
// cap and reports per-item outcomes.
func (h *Handler) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	for _, rawURL := range req.URLs {
		if !validDownloadURL(rawURL) {
			writeError(w, http.StatusBadRequest, "Every entry must be a valid http(s) URL")
			return
		}
	}

	outcome, err := h.orchestrator.Run(r.Context(), UserID(r), req.URLs, h.concurrencyFor(req.Options), h.fetchItem("", 0))
	if err != nil {
		h.writeBatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) fetchItem(preferredName string, timeout time.Duration) batch.ItemFunc {
	return func(ctx context.Context, sourceURL string) (batch.ItemResult, error) {
		result, err := h.fetcher.Fetch(ctx, fetch.Request{
			URL:           sourceURL,
			PreferredName: preferredName,
			Timeout:       timeout,
		})
		if err != nil {
			return batch.ItemResult{}, err
		}

		return batch.ItemResult{
			FilePath: result.FilePath,
			FileName: result.FileName,
			Size:     result.Size,
			Metadata: map[string]string{"contentType": result.ContentType},
		}, nil
	}
}

func (h *Handler) concurrencyFor(options batchOptions) int {
	if options.MaxConcurrent > 0 {
		return options.MaxConcurrent
	}
	return h.cfg.MaxConcurrent
}

// batch-level errors are either caller errors or infrastructure
// failures, per-item outcomes never end up here
func (h *Handler) writeBatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, batch.ErrNoURLs) || errors.Is(err, batch.ErrBatchTooLarge) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeInternalError(w, h.environment, err)
}

func validDownloadURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
