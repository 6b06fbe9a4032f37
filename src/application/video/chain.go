package video

import (
	"mediagrab-be-server/src/application/platform"
)

// NewPlatformStrategyPicker encodes the fallback policy: the YouTube
// family first tries the native client and falls back to the general
// binary, every other family goes straight to the general binary.
func NewPlatformStrategyPicker(classifier platform.Classifier, native Strategy, general Strategy) StrategyPicker {
	return func(sourceURL string) []Strategy {
		if family, ok := classifier.Classify(sourceURL); ok && family == platform.YouTube && native != nil {
			return []Strategy{native, general}
		}

		return []Strategy{general}
	}
}
