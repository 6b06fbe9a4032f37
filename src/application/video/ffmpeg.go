package video

import (
	"fmt"
	"os"
	"strings"

	"mediagrab-be-server/src/application/executor"
	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/working_dir"

	"github.com/apex/log"
)

var _ Transcoder = FFmpegTranscoder{}

var audioCodecs = map[string]string{
	"mp3":  "libmp3lame",
	"m4a":  "aac",
	"aac":  "aac",
	"opus": "libopus",
	"flac": "flac",
	"wav":  "pcm_s16le",
}

type FFmpegTranscoder struct {
	binPath         string
	workingDir      working_dir.WorkingDir
	commandExecutor executor.Executor
}

func NewFFmpegTranscoder(binPath string, workingDirStr string, commandExecutor executor.Executor) (FFmpegTranscoder, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return FFmpegTranscoder{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return FFmpegTranscoder{
		binPath:         binPath,
		workingDir:      workingDir,
		commandExecutor: commandExecutor,
	}, nil
}

// ExtractAudio transcodes a local video file into an audio-only file in
// the temp dir and returns its path. The partial output is removed when
// the transcode fails.
func (t FFmpegTranscoder) ExtractAudio(videoPath string, outputFormat string) (string, error) {
	outputFormat = strings.ToLower(strings.TrimSpace(outputFormat))
	if outputFormat == "" {
		outputFormat = "mp3"
	}

	codec, ok := audioCodecs[outputFormat]
	if !ok {
		return "", cerr.Field("output_format", outputFormat).Error("Unsupported audio output format")
	}

	outputPath := t.workingDir.UniqueTempPath("audio", "."+outputFormat)

	log.WithFields(log.Fields{
		"video_path":  videoPath,
		"output_path": outputPath,
	}).Info("Extracting audio track")

	cmd := t.commandExecutor.Command(t.binPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vn", "-acodec", codec,
		outputPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(outputPath)
		errMsg := fmt.Sprintf("Error occurred while extracting audio - output: %s", string(output))
		return "", cerr.Field("video_path", videoPath).Wrap(err).Error(errMsg)
	}

	return outputPath, nil
}
