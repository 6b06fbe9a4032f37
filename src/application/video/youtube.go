package video

import (
	"context"
	"io"
	"mime"
	"os"
	"strings"

	"mediagrab-be-server/src/application/fetch"
	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/working_dir"

	"github.com/apex/log"
	youtube "github.com/kkdai/youtube/v2"
)

var _ Strategy = YouTubeNativeStrategy{}

// YouTubeNativeStrategy talks the YouTube protocol directly through the
// native client, no external binary involved. It only ever sees URLs the
// classifier has already put in the YouTube family.
type YouTubeNativeStrategy struct {
	client     youtube.Client
	workingDir working_dir.WorkingDir
}

func NewYouTubeNativeStrategy(workingDirStr string) (YouTubeNativeStrategy, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return YouTubeNativeStrategy{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return YouTubeNativeStrategy{
		client:     youtube.Client{},
		workingDir: workingDir,
	}, nil
}

func (y YouTubeNativeStrategy) Name() string {
	return "youtube_native"
}

func (y YouTubeNativeStrategy) Info(ctx context.Context, sourceURL string) (Info, error) {
	videoData, err := y.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return Info{}, cerr.Field("source_url", sourceURL).
			Wrap(err).Error("Failed to look up video through the native client")
	}

	return infoFromVideo(videoData), nil
}

func (y YouTubeNativeStrategy) ListFormats(ctx context.Context, sourceURL string) (FormatListing, error) {
	videoData, err := y.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return FormatListing{}, cerr.Field("source_url", sourceURL).
			Wrap(err).Error("Failed to look up video through the native client")
	}

	listing := FormatListing{
		ByResolution: map[string][]Format{},
		AudioOnly:    []Format{},
	}

	bestHeight := 0
	for _, f := range videoData.Formats {
		format := Format{
			Extension: extensionFromMimeType(f.MimeType),
			MimeType:  f.MimeType,
			SizeBytes: f.ContentLength,
		}

		switch {
		case strings.Contains(f.MimeType, "video"):
			height := parseHeight(f.QualityLabel)
			if height <= 0 {
				continue
			}
			format.Height = height
			format.Resolution = resolutionLabel(height)
			listing.ByResolution[format.Resolution] = append(listing.ByResolution[format.Resolution], format)

			if height > bestHeight {
				bestHeight = height
				listing.Best = format
			}
		case strings.Contains(f.MimeType, "audio"):
			format.AudioOnly = true
			listing.AudioOnly = append(listing.AudioOnly, format)
		}
	}

	return listing, nil
}

func (y YouTubeNativeStrategy) Download(ctx context.Context, sourceURL string, opts DownloadOptions) (Download, error) {
	errctx := cerr.Field("source_url", sourceURL)

	videoData, err := y.client.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return Download{}, errctx.Wrap(err).Error("Failed to look up video through the native client")
	}

	format, err := pickNativeFormat(videoData.Formats, opts.Quality)
	if err != nil {
		return Download{}, errctx.Wrap(err).Error("No usable format for requested quality")
	}

	extension := extensionFromMimeType(format.MimeType)
	tempPath := y.workingDir.UniqueTempPath("video", "."+extension)

	log.WithFields(log.Fields{
		"source_url": sourceURL,
		"quality":    format.QualityLabel,
		"temp_path":  tempPath,
	}).Info("Downloading through the native YouTube client")

	size, err := y.streamFormat(ctx, videoData, format, tempPath)
	if err != nil {
		_ = os.Remove(tempPath)
		return Download{}, errctx.Wrap(err).Error("Failed to stream video format to disk")
	}

	fileName := opts.FileName
	if fileName == "" {
		fileName = fetch.SanitizeFileName(videoData.Title) + "." + extension
	}

	return Download{
		FilePath: tempPath,
		FileName: fileName,
		Size:     size,
		Info:     infoFromVideo(videoData),
	}, nil
}

func (y YouTubeNativeStrategy) streamFormat(ctx context.Context, videoData *youtube.Video, format *youtube.Format, tempPath string) (int64, error) {
	stream, _, err := y.client.GetStreamContext(ctx, videoData, format)
	if err != nil {
		return 0, cerr.Wrap(err).Error("Failed to open video stream")
	}
	defer stream.Close()

	out, err := os.Create(tempPath)
	if err != nil {
		return 0, cerr.Wrap(err).Error("Failed to create temp file")
	}
	defer out.Close()

	size, err := io.Copy(out, stream)
	if err != nil {
		return 0, cerr.Wrap(err).Error("Failed to write video stream to disk")
	}

	return size, nil
}

// pickNativeFormat prefers progressive formats (video with audio muxed
// in) so a single stream produces a playable file.
func pickNativeFormat(formats youtube.FormatList, quality string) (*youtube.Format, error) {
	kind, targetHeight := resolveQuality(quality)

	if kind == qualityAudioOnly {
		return pickBestAudioFormat(formats)
	}

	var best *youtube.Format
	var bestUnder *youtube.Format

	for i := range formats {
		f := &formats[i]
		if !strings.Contains(f.MimeType, "video") || f.AudioChannels == 0 {
			continue
		}

		height := parseHeight(f.QualityLabel)
		if height <= 0 {
			continue
		}

		if best == nil || height > parseHeight(best.QualityLabel) {
			best = f
		}

		if kind == qualityLowest {
			if bestUnder == nil || height < parseHeight(bestUnder.QualityLabel) {
				bestUnder = f
			}
			continue
		}

		if kind == qualityHeight && height <= targetHeight {
			if bestUnder == nil || height > parseHeight(bestUnder.QualityLabel) {
				bestUnder = f
			}
		}
	}

	switch {
	case kind == qualityBest && best != nil:
		return best, nil
	case bestUnder != nil:
		return bestUnder, nil
	case best != nil:
		return best, nil
	default:
		return nil, cerr.Error("No progressive video format available")
	}
}

func pickBestAudioFormat(formats youtube.FormatList) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.Contains(f.MimeType, "audio") {
			continue
		}
		if best == nil || (strings.Contains(f.MimeType, "mp4") && !strings.Contains(best.MimeType, "mp4")) {
			best = f
		}
	}

	if best == nil {
		return nil, cerr.Error("No audio format available")
	}

	return best, nil
}

func infoFromVideo(videoData *youtube.Video) Info {
	thumbnail := ""
	if len(videoData.Thumbnails) > 0 {
		// last entry is the highest resolution
		thumbnail = videoData.Thumbnails[len(videoData.Thumbnails)-1].URL
	}

	return Info{
		Title:       videoData.Title,
		Duration:    videoData.Duration,
		Thumbnail:   thumbnail,
		Uploader:    videoData.Author,
		ViewCount:   int64(videoData.Views),
		Description: videoData.Description,
	}
}

func extensionFromMimeType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "mp4"
	}

	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "mp4"
	}

	return parts[1]
}
