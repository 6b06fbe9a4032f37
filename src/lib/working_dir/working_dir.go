package working_dir

import (
	"fmt"
	"os"
	"path/filepath"

	"mediagrab-be-server/src/lib/cerr"

	"github.com/google/uuid"
)

// WorkingDir owns the on-disk scratch space for download attempts.
// Everything under TempDir is fair game for the cleanup sweeper.
type WorkingDir struct {
	root string
}

func NewWorkingDir(root string) (WorkingDir, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return WorkingDir{}, cerr.Field("root", root).
			Wrap(err).Error("Failed to generate absolute path for working directory")
	}

	if err := os.MkdirAll(filepath.Join(absRoot, "tmp"), os.ModePerm); err != nil {
		return WorkingDir{}, cerr.Field("root", absRoot).
			Wrap(err).Error("Failed to create working directory layout")
	}

	return WorkingDir{
		root: absRoot,
	}, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, "tmp")
}

// UniqueTempPath returns a path under TempDir that is guaranteed not to
// collide with any other attempt. Uniqueness is the isolation mechanism
// between concurrent downloads, no locking happens at this layer.
func (w WorkingDir) UniqueTempPath(prefix string, extension string) string {
	name := fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), extension)
	return filepath.Join(w.TempDir(), name)
}
