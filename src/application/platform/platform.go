package platform

import (
	"net/url"
	"strings"
)

// Platform names a video hosting service recognized by host matching.
type Platform string

const (
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	Twitter   Platform = "twitter"
	Facebook  Platform = "facebook"
	Vimeo     Platform = "vimeo"
	Twitch    Platform = "twitch"
	Reddit    Platform = "reddit"
)

// HostTable maps a platform to the host suffixes that belong to it.
type HostTable map[Platform][]string

// DefaultHostTable covers the platform families the video extractor
// knows how to handle.
func DefaultHostTable() HostTable {
	return HostTable{
		YouTube:   {"youtube.com", "youtu.be"},
		Instagram: {"instagram.com"},
		TikTok:    {"tiktok.com"},
		Twitter:   {"twitter.com", "x.com"},
		Facebook:  {"facebook.com", "fb.watch"},
		Vimeo:     {"vimeo.com"},
		Twitch:    {"twitch.tv"},
		Reddit:    {"reddit.com"},
	}
}

// Classifier decides whether a URL belongs to a known platform family.
// The host table is a plain value handed in at construction, there is
// no process-wide mutable registry.
type Classifier struct {
	table HostTable
}

func NewClassifier() Classifier {
	return NewClassifierWithTable(DefaultHostTable())
}

func NewClassifierWithTable(table HostTable) Classifier {
	return Classifier{table: table}
}

// Classify matches only on the URL's host component, never on the path
// or query, so a query parameter mentioning a platform name can't cause
// a false positive. Malformed URLs classify as unmatched.
func (c Classifier) Classify(rawURL string) (Platform, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}

	for platform, suffixes := range c.table {
		for _, suffix := range suffixes {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return platform, true
			}
		}
	}

	return "", false
}
