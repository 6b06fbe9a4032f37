package video

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	QualityBest   = "best"
	QualityLowest = "lowest"
	QualityAudio  = "audio"

	// unrecognized quality values default to a mid-tier resolution
	// instead of failing the download
	defaultHeight = 720
)

type qualityKind int

const (
	qualityHeight qualityKind = iota
	qualityBest
	qualityLowest
	qualityAudioOnly
)

// resolveQuality normalizes a caller-supplied quality into either one of
// the sentinels or a target pixel height.
func resolveQuality(quality string) (qualityKind, int) {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case QualityBest:
		return qualityBest, 0
	case QualityLowest:
		return qualityLowest, 0
	case QualityAudio:
		return qualityAudioOnly, 0
	case "":
		return qualityHeight, defaultHeight
	}

	if height := parseHeight(quality); height > 0 {
		return qualityHeight, height
	}

	return qualityHeight, defaultHeight
}

// parseHeight extracts the pixel height from labels like "720p",
// "1080p60" or a bare "480". "4k" is a common alias worth honoring.
func parseHeight(label string) int {
	if strings.EqualFold(strings.TrimSpace(label), "4k") {
		return 2160
	}

	digits := ""
	for _, c := range label {
		if c >= '0' && c <= '9' {
			digits += string(c)
		} else if digits != "" {
			break
		}
	}

	if digits == "" {
		return 0
	}

	height, _ := strconv.Atoi(digits)
	return height
}

func resolutionLabel(height int) string {
	if height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dp", height)
}
