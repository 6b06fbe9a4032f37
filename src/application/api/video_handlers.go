package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediagrab-be-server/src/application/batch"
	"mediagrab-be-server/src/application/platform"
	"mediagrab-be-server/src/application/video"
	"mediagrab-be-server/src/lib/cerr"
)

type videoCheckRequest struct {
	URL string `json:"url"`
}

type videoCheckResponse struct {
	IsSocialMedia bool                 `json:"isSocialMedia"`
	Platform      platform.Platform    `json:"platform,omitempty"`
	Info          *video.Info          `json:"info,omitempty"`
	Formats       *video.FormatListing `json:"formats,omitempty"`
}

type videoDownloadRequest struct {
	URL          string `json:"url"`
	Quality      string `json:"quality"`
	Format       string `json:"format"`
	FileName     string `json:"fileName"`
	ExtractAudio bool   `json:"extractAudio"`
}

type videoBatchRequest struct {
	URLs    []string `json:"urls"`
	Options struct {
		MaxConcurrent int    `json:"maxConcurrent"`
		Quality       string `json:"quality"`
		Format        string `json:"format"`
	} `json:"options"`
}

// VideoCheck reports whether a URL belongs to a known platform and, if
// so, returns its metadata and available formats.
func (h *Handler) VideoCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req videoCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	family, ok := h.classifier.Classify(req.URL)
	if !ok {
		writeJSON(w, http.StatusOK, videoCheckResponse{IsSocialMedia: false})
		return
	}

	info, err := h.cachedInfo(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	listing, err := h.cachedFormats(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, videoCheckResponse{
		IsSocialMedia: true,
		Platform:      family,
		Info:          &info,
		Formats:       &listing,
	})
}

// VideoFormats lists the renditions available for a video URL.
func (h *Handler) VideoFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rawURL := r.URL.Query().Get("url")
	if _, ok := h.classifier.Classify(rawURL); !ok {
		writeError(w, http.StatusBadRequest, "URL does not belong to a supported platform")
		return
	}

	info, err := h.cachedInfo(r.Context(), rawURL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	listing, err := h.cachedFormats(r.Context(), rawURL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats":   listing.ByResolution,
		"audioOnly": listing.AudioOnly,
		"bestVideo": listing.Best,
		"thumbnail": info.Thumbnail,
		"duration":  info.Duration.Seconds(),
		"title":     info.Title,
	})
}

// VideoDownload extracts one video (or its audio track) and streams the
// file back.
func (h *Handler) VideoDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req videoDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	family, ok := h.classifier.Classify(req.URL)
	if !ok {
		writeError(w, http.StatusBadRequest, "URL does not belong to a supported platform")
		return
	}

	opts := video.DownloadOptions{
		Quality:  req.Quality,
		Format:   req.Format,
		FileName: req.FileName,
	}

	item := h.videoItem(family, opts, req.ExtractAudio)
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

	if err := streamFile(w, result.FilePath, result.FileName, ""); err != nil {
		writeStreamFailure(err)
	}
}

// VideoBatch extracts up to 10 videos under the concurrency cap.
func (h *Handler) VideoBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req videoBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	families := make([]platform.Platform, len(req.URLs))
	for i, rawURL := range req.URLs {
		family, ok := h.classifier.Classify(rawURL)
		if !ok {
			writeError(w, http.StatusBadRequest, "Every entry must belong to a supported platform")
			return
		}
		families[i] = family
	}

	opts := video.DownloadOptions{
		Quality: req.Options.Quality,
		Format:  req.Options.Format,
	}

	// families were resolved per URL up front, the item func re-resolves
	// cheaply from its own URL argument to stay self-contained
	item := func(ctx context.Context, sourceURL string) (batch.ItemResult, error) {
		family, _ := h.classifier.Classify(sourceURL)
		return h.videoItem(family, opts, false)(ctx, sourceURL)
	}

	outcome, err := h.orchestrator.Run(r.Context(), UserID(r), req.URLs, h.concurrencyFor(batchOptions{MaxConcurrent: req.Options.MaxConcurrent}), item)
	if err != nil {
		h.writeBatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) videoItem(family platform.Platform, opts video.DownloadOptions, extractAudio bool) batch.ItemFunc {
	return func(ctx context.Context, sourceURL string) (batch.ItemResult, error) {
		download, err := h.extractor.Download(ctx, sourceURL, opts)
		if err != nil {
			return batch.ItemResult{}, err
		}

		metadata := map[string]string{
			"platform":  string(family),
			"duration":  download.Info.Duration.String(),
			"thumbnail": download.Info.Thumbnail,
		}
		if opts.Quality != "" {
			metadata["quality"] = opts.Quality
		}
		if opts.Format != "" {
			metadata["format"] = opts.Format
		}

		if !extractAudio {
			return batch.ItemResult{
				FilePath: download.FilePath,
				FileName: download.FileName,
				Size:     download.Size,
				Metadata: metadata,
			}, nil
		}

		audioPath, err := h.extractor.ExtractAudio(download.FilePath, opts.Format)
		// the source video is transient either way once the audio
		// extraction has been attempted
		_ = os.Remove(download.FilePath)
		if err != nil {
			return batch.ItemResult{}, err
		}

		stat, err := os.Stat(audioPath)
		if err != nil {
			_ = os.Remove(audioPath)
			return batch.ItemResult{}, cerr.Field("audio_path", audioPath).
				Wrap(err).Error("Failed to stat extracted audio file")
		}

		return batch.ItemResult{
			FilePath: audioPath,
			FileName: replaceExtension(download.FileName, filepath.Ext(audioPath)),
			Size:     stat.Size(),
			Metadata: metadata,
		}, nil
	}
}

func replaceExtension(fileName string, newExt string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + newExt
}

func (h *Handler) cachedInfo(ctx context.Context, sourceURL string) (video.Info, error) {
	var info video.Info

	hit, err := h.cache.Lookup(ctx, "video_info:"+sourceURL, &info)
	if err != nil {
		cerr.Log(err)
	}
	if hit {
		return info, nil
	}

	info, err = h.extractor.Info(ctx, sourceURL)
	if err != nil {
		return video.Info{}, err
	}

	if err := h.cache.Store(ctx, "video_info:"+sourceURL, info); err != nil {
		cerr.Log(err)
	}

	return info, nil
}

func (h *Handler) cachedFormats(ctx context.Context, sourceURL string) (video.FormatListing, error) {
	var listing video.FormatListing

	hit, err := h.cache.Lookup(ctx, "video_formats:"+sourceURL, &listing)
	if err != nil {
		cerr.Log(err)
	}
	if hit {
		return listing, nil
	}

	listing, err = h.extractor.ListFormats(ctx, sourceURL)
	if err != nil {
		return video.FormatListing{}, err
	}

	if err := h.cache.Store(ctx, "video_formats:"+sourceURL, listing); err != nil {
		cerr.Log(err)
	}

	return listing, nil
}
