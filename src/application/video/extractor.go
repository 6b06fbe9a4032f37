package video

import (
	"context"
	"time"

	"mediagrab-be-server/src/lib/cerr"

	"github.com/apex/log"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Info is the source-specific metadata for a video URL.
type Info struct {
	Title       string        `json:"title"`
	Duration    time.Duration `json:"duration"`
	Thumbnail   string        `json:"thumbnail"`
	Uploader    string        `json:"uploader"`
	ViewCount   int64         `json:"viewCount"`
	Categories  []string      `json:"categories,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Format describes one downloadable rendition of a video.
type Format struct {
	Resolution string `json:"resolution,omitempty"`
	Height     int    `json:"height,omitempty"`
	Extension  string `json:"extension"`
	MimeType   string `json:"mimeType,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
	AudioOnly  bool   `json:"audioOnly"`
}

// FormatListing groups a video's formats by resolution, with audio-only
// renditions and a best overall pick broken out.
type FormatListing struct {
	ByResolution map[string][]Format `json:"byResolution"`
	AudioOnly    []Format            `json:"audioOnly"`
	Best         Format              `json:"best"`
}

type DownloadOptions struct {
	Quality  string
	Format   string
	FileName string
}

// Download is the outcome of a successful video download: a local file
// plus the same metadata Info would have returned.
type Download struct {
	FilePath string
	FileName string
	Size     int64
	Info     Info
}

//counterfeiter:generate . Strategy
type Strategy interface {
	Name() string
	Info(ctx context.Context, sourceURL string) (Info, error)
	ListFormats(ctx context.Context, sourceURL string) (FormatListing, error)
	Download(ctx context.Context, sourceURL string, opts DownloadOptions) (Download, error)
}

//counterfeiter:generate . Transcoder
type Transcoder interface {
	ExtractAudio(videoPath string, outputFormat string) (string, error)
}

// Extractor fronts an ordered list of extraction strategies. Callers only
// see the final outcome, the fallback from one strategy to the next is
// visible in logs alone.
type Extractor struct {
	strategyPicker StrategyPicker
	transcoder     Transcoder
}

// StrategyPicker returns the ordered strategies to try for a URL, first
// success wins.
type StrategyPicker func(sourceURL string) []Strategy

func NewExtractor(picker StrategyPicker, transcoder Transcoder) Extractor {
	return Extractor{
		strategyPicker: picker,
		transcoder:     transcoder,
	}
}

func (e Extractor) Info(ctx context.Context, sourceURL string) (Info, error) {
	var info Info
	err := e.eachStrategy(sourceURL, "info", func(strategy Strategy) error {
		var strategyErr error
		info, strategyErr = strategy.Info(ctx, sourceURL)
		return strategyErr
	})
	return info, err
}

func (e Extractor) ListFormats(ctx context.Context, sourceURL string) (FormatListing, error) {
	var listing FormatListing
	err := e.eachStrategy(sourceURL, "list_formats", func(strategy Strategy) error {
		var strategyErr error
		listing, strategyErr = strategy.ListFormats(ctx, sourceURL)
		return strategyErr
	})
	return listing, err
}

func (e Extractor) Download(ctx context.Context, sourceURL string, opts DownloadOptions) (Download, error) {
	var download Download
	err := e.eachStrategy(sourceURL, "download", func(strategy Strategy) error {
		var strategyErr error
		download, strategyErr = strategy.Download(ctx, sourceURL, opts)
		return strategyErr
	})
	return download, err
}

// ExtractAudio transcodes an already-downloaded local video file into an
// audio-only file and returns its path.
func (e Extractor) ExtractAudio(videoPath string, outputFormat string) (string, error) {
	return e.transcoder.ExtractAudio(videoPath, outputFormat)
}

func (e Extractor) eachStrategy(sourceURL string, operation string, attempt func(Strategy) error) error {
	strategies := e.strategyPicker(sourceURL)
	if len(strategies) == 0 {
		return cerr.Field("source_url", sourceURL).Error("No extraction strategy available for URL")
	}

	var lastErr error
	for i, strategy := range strategies {
		lastErr = attempt(strategy)
		if lastErr == nil {
			return nil
		}

		if i < len(strategies)-1 {
			log.WithFields(log.Fields{
				"strategy":   strategy.Name(),
				"operation":  operation,
				"source_url": sourceURL,
			}).Warnf("Extraction strategy failed, falling back: %s", lastErr.Error())
		}
	}

	return cerr.Field("source_url", sourceURL).
		Wrap(lastErr).Error("All extraction strategies failed")
}
