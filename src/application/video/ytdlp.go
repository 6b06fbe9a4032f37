package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediagrab-be-server/src/application/executor"
	"mediagrab-be-server/src/application/fetch"
	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/working_dir"

	"github.com/apex/log"
)

var _ Strategy = YTDLPStrategy{}

// YTDLPStrategy shells out to the general-purpose extraction binary. It
// is the fallback for the YouTube family and the only path for every
// other platform family.
type YTDLPStrategy struct {
	binPath         string
	workingDir      working_dir.WorkingDir
	commandExecutor executor.Executor
}

func NewYTDLPStrategy(binPath string, workingDirStr string, commandExecutor executor.Executor) (YTDLPStrategy, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return YTDLPStrategy{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return YTDLPStrategy{
		binPath:         binPath,
		workingDir:      workingDir,
		commandExecutor: commandExecutor,
	}, nil
}

func (y YTDLPStrategy) Name() string {
	return "ytdlp"
}

type ytdlpMetadata struct {
	Title       string   `json:"title"`
	Duration    float64  `json:"duration"`
	Thumbnail   string   `json:"thumbnail"`
	Uploader    string   `json:"uploader"`
	ViewCount   int64    `json:"view_count"`
	Categories  []string `json:"categories"`
	Description string   `json:"description"`
	Formats     []struct {
		FormatID string  `json:"format_id"`
		Ext      string  `json:"ext"`
		Height   int     `json:"height"`
		VCodec   string  `json:"vcodec"`
		ACodec   string  `json:"acodec"`
		Filesize int64   `json:"filesize"`
		TBR      float64 `json:"tbr"`
	} `json:"formats"`
}

func (y YTDLPStrategy) Info(ctx context.Context, sourceURL string) (Info, error) {
	metadata, err := y.fetchMetadata(sourceURL)
	if err != nil {
		return Info{}, err
	}

	return metadata.toInfo(), nil
}

func (y YTDLPStrategy) ListFormats(ctx context.Context, sourceURL string) (FormatListing, error) {
	metadata, err := y.fetchMetadata(sourceURL)
	if err != nil {
		return FormatListing{}, err
	}

	listing := FormatListing{
		ByResolution: map[string][]Format{},
		AudioOnly:    []Format{},
	}

	bestHeight := 0
	for _, f := range metadata.Formats {
		format := Format{
			Extension: f.Ext,
			SizeBytes: f.Filesize,
		}

		switch {
		case f.Height > 0 && f.VCodec != "none":
			format.Height = f.Height
			format.Resolution = resolutionLabel(f.Height)
			listing.ByResolution[format.Resolution] = append(listing.ByResolution[format.Resolution], format)

			if f.Height > bestHeight {
				bestHeight = f.Height
				listing.Best = format
			}
		case f.VCodec == "none" && f.ACodec != "none":
			format.AudioOnly = true
			listing.AudioOnly = append(listing.AudioOnly, format)
		}
	}

	return listing, nil
}

func (y YTDLPStrategy) Download(ctx context.Context, sourceURL string, opts DownloadOptions) (Download, error) {
	errctx := cerr.Field("source_url", sourceURL)

	metadata, err := y.fetchMetadata(sourceURL)
	if err != nil {
		return Download{}, errctx.Wrap(err).Error("Failed to inspect video before downloading")
	}

	tempDir, err := os.MkdirTemp(y.workingDir.TempDir(), "ytdlp-*")
	if err != nil {
		return Download{}, errctx.Field("temp_dir", y.workingDir.TempDir()).
			Wrap(err).Error("Failed to create temp dir to download to")
	}
	defer os.RemoveAll(tempDir)

	outputTemplate := filepath.Join(tempDir, "media.%(ext)s")

	log.WithFields(log.Fields{
		"source_url": sourceURL,
		"quality":    opts.Quality,
	}).Info("Running the extraction binary")

	cmd := y.commandExecutor.Command(y.binPath,
		"-f", formatSelector(opts),
		"--no-warnings", "--no-playlist",
		"-o", outputTemplate,
		sourceURL)
	cmd.SetDir(y.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return Download{}, errctx.Field("error_msg", string(output)).
			Wrap(err).Error("Failed to run the extraction binary")
	}

	downloadedPath, err := singleFileIn(tempDir)
	if err != nil {
		return Download{}, errctx.Wrap(err).Error("Extraction binary produced no output file")
	}

	// move out of the per-attempt dir so the sweeper sees one flat
	// temp directory of uniquely named files
	extension := filepath.Ext(downloadedPath)
	finalPath := y.workingDir.UniqueTempPath("video", extension)
	if err := os.Rename(downloadedPath, finalPath); err != nil {
		return Download{}, errctx.Wrap(err).Error("Failed to move downloaded file into place")
	}

	stat, err := os.Stat(finalPath)
	if err != nil || stat.Size() == 0 {
		_ = os.Remove(finalPath)
		return Download{}, errctx.Error("Downloaded file is missing or empty")
	}

	fileName := opts.FileName
	if fileName == "" {
		fileName = fetch.SanitizeFileName(metadata.Title) + extension
	}

	return Download{
		FilePath: finalPath,
		FileName: fileName,
		Size:     stat.Size(),
		Info:     metadata.toInfo(),
	}, nil
}

func (y YTDLPStrategy) fetchMetadata(sourceURL string) (ytdlpMetadata, error) {
	errctx := cerr.Field("source_url", sourceURL)

	cmd := y.commandExecutor.Command(y.binPath,
		"--dump-single-json", "--no-warnings", "--no-playlist",
		sourceURL)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return ytdlpMetadata{}, errctx.Field("error_msg", string(output)).
			Wrap(err).Error("Failed to query video metadata")
	}

	metadata := ytdlpMetadata{}
	if err := json.Unmarshal(output, &metadata); err != nil {
		return ytdlpMetadata{}, errctx.Wrap(err).Error("Failed to parse video metadata JSON")
	}

	return metadata, nil
}

func (m ytdlpMetadata) toInfo() Info {
	return Info{
		Title:       m.Title,
		Duration:    time.Duration(m.Duration * float64(time.Second)),
		Thumbnail:   m.Thumbnail,
		Uploader:    m.Uploader,
		ViewCount:   m.ViewCount,
		Categories:  m.Categories,
		Description: m.Description,
	}
}

func formatSelector(opts DownloadOptions) string {
	kind, height := resolveQuality(opts.Quality)

	var selector string
	switch kind {
	case qualityAudioOnly:
		return "bestaudio"
	case qualityBest:
		selector = "best"
	case qualityLowest:
		selector = "worst"
	default:
		selector = fmt.Sprintf("best[height<=%d]/best", height)
	}

	if opts.Format != "" {
		selector = fmt.Sprintf("%s[ext=%s]/%s", selectorHead(selector), opts.Format, selector)
	}

	return selector
}

func selectorHead(selector string) string {
	for i, r := range selector {
		if r == '/' {
			return selector[:i]
		}
	}
	return selector
}

func singleFileIn(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", cerr.Field("dir", dir).Wrap(err).Error("Failed to read output directory")
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", cerr.Field("dir", dir).Error("No files in output directory")
}
