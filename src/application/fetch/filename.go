package fetch

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// extensions for content types the backend commonly serves; anything not
// listed here simply gets no extension appended
var extensionsByType = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/svg+xml":    ".svg",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
	"application/json": ".json",
	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/csv":         ".csv",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"audio/mpeg":       ".mp3",
	"audio/wav":        ".wav",
	"audio/ogg":        ".ogg",
}

// DeriveFileName picks the output filename with the priority:
// caller-supplied name > Content-Disposition > last URL path segment >
// generated fallback. Missing extensions are filled in from the response
// content type when the type is known.
func DeriveFileName(preferred string, header http.Header, rawURL string, contentType string) string {
	name := preferred

	if name == "" {
		name = nameFromContentDisposition(header.Get("Content-Disposition"))
	}

	if name == "" {
		name = nameFromURLPath(rawURL)
	}

	if name == "" {
		name = fmt.Sprintf("download-%s", uuid.NewString()[:8])
	}

	name = SanitizeFileName(name)

	if filepath.Ext(name) == "" {
		name += extensionForType(contentType)
	}

	return normalizeExtension(name)
}

func nameFromContentDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}

	return params["filename"]
}

func nameFromURLPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segment := path.Base(parsed.Path)
	if segment == "." || segment == "/" || segment == "" {
		return ""
	}

	return segment
}

func extensionForType(contentType string) string {
	if contentType == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return extensionsByType[strings.ToLower(mediaType)]
}

// SanitizeFileName strips path separators and characters that are unsafe
// in a Content-Disposition header or on common filesystems.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
}

func normalizeExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name
	}

	return strings.TrimSuffix(name, ext) + strings.ToLower(ext)
}
