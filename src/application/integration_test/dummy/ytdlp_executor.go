package dummy

import (
	"os"
	"path/filepath"
	"strings"

	"mediagrab-be-server/src/application/executor"
)

var _ executor.Executor = YTDLPExecutor{}

func NewDummyYTDLPExecutor() *YTDLPExecutor {
	return &YTDLPExecutor{
		Unavailable: false,
		Metadata:    make(map[string][]byte),
		URLContent:  make(map[string][]byte),
	}
}

// YTDLPExecutor pretends to be the extraction binary. Metadata holds the
// JSON returned for --dump-single-json, URLContent holds the bytes
// written for a real download.
type YTDLPExecutor struct {
	Unavailable bool
	Metadata    map[string][]byte
	URLContent  map[string][]byte
}

func (y *YTDLPExecutor) AddVideo(url string, metadataJSON []byte, content []byte) {
	y.Metadata[url] = append([]byte{}, metadataJSON...)
	y.URLContent[url] = append([]byte{}, content...)
}

func (y YTDLPExecutor) Command(_ string, arg ...string) executor.Command {
	return &ytdlpCommand{
		unavailable: y.Unavailable,
		args:        arg,
		metadata:    y.Metadata,
		urlContent:  y.URLContent,
	}
}

type ytdlpCommand struct {
	unavailable bool
	args        []string
	metadata    map[string][]byte
	urlContent  map[string][]byte
}

func (c *ytdlpCommand) SetDir(_ string) {}

func (c *ytdlpCommand) CombinedOutput() ([]byte, error) {
	if c.unavailable {
		return nil, NetworkFailure
	}

	sourceURL := c.args[len(c.args)-1]

	if c.args[0] == "--dump-single-json" {
		metadataJSON, ok := c.metadata[sourceURL]
		if !ok {
			return nil, NotFound
		}
		return metadataJSON, nil
	}

	if c.args[0] != "-f" {
		return nil, UnexpectedInput
	}

	outputTemplate := ""
	for i, arg := range c.args {
		if arg == "-o" && i+1 < len(c.args) {
			outputTemplate = c.args[i+1]
		}
	}
	if outputTemplate == "" {
		return nil, UnexpectedInput
	}

	content, ok := c.urlContent[sourceURL]
	if !ok {
		return nil, NotFound
	}

	outputPath := strings.Replace(outputTemplate, "%(ext)s", "mp4", 1)
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputPath, content, os.ModePerm); err != nil {
		return nil, err
	}

	return []byte("Success"), nil
}
