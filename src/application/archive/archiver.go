package archive

import (
	"context"
	"fmt"
	"os"

	"mediagrab-be-server/src/application/archive/entity"
	"mediagrab-be-server/src/application/archive/store"
	"mediagrab-be-server/src/lib/cerr"

	"github.com/apex/log"
)

// Archiver copies completed downloads into the long-term object store.
// Archival is best-effort: callers treat a failure here as a logged
// degradation, not a failed download.
type Archiver struct {
	fileStore  entity.FileStore
	bucketName string
}

func NewArchiver(fileStore entity.FileStore, bucketName string) Archiver {
	return Archiver{
		fileStore:  fileStore,
		bucketName: bucketName,
	}
}

// Archive uploads the local file and returns the remote URL it now
// lives at.
func (a Archiver) Archive(ctx context.Context, localPath string, recordID string, fileName string) (string, error) {
	errctx := cerr.Field("local_path", localPath).Field("record_id", recordID)

	file, err := os.Open(localPath)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to open downloaded file for archival")
	}
	defer file.Close()

	destinationURL := a.generatePath(recordID, fileName)

	log.WithFields(log.Fields{
		"record_id":       recordID,
		"destination_url": destinationURL,
	}).Info("Archiving completed download")

	if err := a.fileStore.WriteFile(ctx, destinationURL, file); err != nil {
		return "", errctx.Field("destination_url", destinationURL).
			Wrap(err).Error("Failed to write file to the archive store")
	}

	return destinationURL, nil
}

func (a Archiver) generatePath(recordID string, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s", store.GOOGLE_STORAGE_HOST, a.bucketName, recordID, fileName)
}
