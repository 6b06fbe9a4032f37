package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/working_dir"

	"github.com/apex/log"
)

// broad content type categories the fetcher is willing to save
var allowedTypeCategories = []string{"image", "application", "text", "video", "audio"}

// Request describes one fetch attempt. Zero values for Timeout and
// MaxBytes fall back to the fetcher's configured defaults.
type Request struct {
	URL           string
	PreferredName string
	Timeout       time.Duration
	MaxBytes      int64
}

// Result describes a successfully fetched file sitting in the temp dir.
type Result struct {
	SourceURL   string
	FilePath    string
	FileName    string
	ContentType string
	Size        int64
}

func NewFetcher(workingDirStr string, defaultMaxBytes int64, defaultTimeout time.Duration) (Fetcher, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return Fetcher{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return Fetcher{
		client:          &http.Client{},
		workingDir:      workingDir,
		defaultMaxBytes: defaultMaxBytes,
		defaultTimeout:  defaultTimeout,
	}, nil
}

type Fetcher struct {
	client          *http.Client
	workingDir      working_dir.WorkingDir
	defaultMaxBytes int64
	defaultTimeout  time.Duration
}

// Fetch streams one URL to a uniquely named temp file while enforcing a
// hard byte ceiling. On any failure path the partial temp file is removed
// before the error is surfaced.
func (f Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	errctx := cerr.Field("source_url", req.URL)

	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = f.defaultMaxBytes
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Result{}, errctx.Wrap(err).Error("Invalid download URL")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return Result{}, errctx.Wrap(err).Error(describeTransportFailure(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, errctx.Field("status_code", resp.StatusCode).
			Error(fmt.Sprintf("Remote server responded with status %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !contentTypeAllowed(contentType) {
		return Result{}, errctx.Field("content_type", contentType).
			Error("Unsupported content type: " + contentType)
	}

	// a truthful server lets us bail before reading a single byte
	if resp.ContentLength > maxBytes {
		return Result{}, errctx.Field("content_length", resp.ContentLength).
			Field("max_bytes", maxBytes).
			Error("File size exceeds the allowed maximum")
	}

	tempPath := f.workingDir.UniqueTempPath("fetch", "")
	size, err := f.streamToFile(resp.Body, tempPath, maxBytes)
	if err != nil {
		return Result{}, errctx.Field("temp_path", tempPath).Wrap(err).
			Error("Failed to stream response body to disk")
	}

	fileName := DeriveFileName(req.PreferredName, resp.Header, req.URL, contentType)

	log.WithFields(log.Fields{
		"source_url": req.URL,
		"file_name":  fileName,
		"size":       size,
	}).Info("Fetched file")

	return Result{
		SourceURL:   req.URL,
		FilePath:    tempPath,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// streamToFile copies the body into tempPath and enforces the byte
// ceiling during the transfer. The header check above is advisory only,
// a server that lies about content-length still gets bounded here.
func (f Fetcher) streamToFile(body io.Reader, tempPath string, maxBytes int64) (int64, error) {
	out, err := os.Create(tempPath)
	if err != nil {
		return 0, cerr.Wrap(err).Error("Failed to create temp file")
	}

	written, err := io.Copy(out, io.LimitReader(body, maxBytes+1))
	closeErr := out.Close()

	if err != nil {
		_ = os.Remove(tempPath)
		return 0, cerr.Wrap(err).Error(describeTransportFailure(err))
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return 0, cerr.Wrap(closeErr).Error("Failed to flush temp file")
	}

	if written > maxBytes {
		_ = os.Remove(tempPath)
		return 0, cerr.Field("max_bytes", maxBytes).
			Error("File size exceeds the allowed maximum")
	}

	return written, nil
}

func contentTypeAllowed(contentType string) bool {
	if contentType == "" {
		// absent or unknown content type is allowed
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}

	category := strings.SplitN(mediaType, "/", 2)[0]
	for _, allowed := range allowedTypeCategories {
		if strings.EqualFold(category, allowed) {
			return true
		}
	}

	return false
}

// describeTransportFailure maps raw transport errors to messages that a
// caller can tell apart without parsing Go error chains.
func describeTransportFailure(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "Could not resolve the remote host"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Download timed out"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Download timed out"
	}

	return "Network error while downloading"
}
