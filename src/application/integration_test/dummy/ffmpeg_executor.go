package dummy

import (
	"os"

	"mediagrab-be-server/src/application/executor"
)

var _ executor.Executor = FFmpegExecutor{}

func NewDummyFFmpegExecutor() *FFmpegExecutor {
	return &FFmpegExecutor{
		Unavailable: false,
		AudioBytes:  []byte("dummy audio bytes"),
	}
}

// FFmpegExecutor pretends to transcode by writing AudioBytes to the
// output path, which is always the last argument.
type FFmpegExecutor struct {
	Unavailable bool
	AudioBytes  []byte
}

func (f FFmpegExecutor) Command(_ string, arg ...string) executor.Command {
	return &ffmpegCommand{
		unavailable: f.Unavailable,
		args:        arg,
		audioBytes:  f.AudioBytes,
	}
}

type ffmpegCommand struct {
	unavailable bool
	args        []string
	audioBytes  []byte
}

func (c *ffmpegCommand) SetDir(_ string) {}

func (c *ffmpegCommand) CombinedOutput() ([]byte, error) {
	if c.unavailable {
		return nil, NetworkFailure
	}

	if len(c.args) == 0 || c.args[0] != "-y" {
		return nil, UnexpectedInput
	}

	outputPath := c.args[len(c.args)-1]
	if err := os.WriteFile(outputPath, c.audioBytes, os.ModePerm); err != nil {
		return nil, err
	}

	return []byte(""), nil
}
