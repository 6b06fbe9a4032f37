package store

import (
	"context"
	"io"
	"strings"

	"mediagrab-be-server/src/application/archive/entity"
	"mediagrab-be-server/src/lib/cerr"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var _ entity.FileStore = GoogleFileStore{}

const GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"

type GoogleFileStore struct {
	storageClient *storage.Client
}

func NewGoogleFileStore(jsonKey string) (GoogleFileStore, error) {
	googleStorageClient, err := storage.NewClient(context.Background(), option.WithCredentialsJSON([]byte(jsonKey)))
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create Google Cloud Storage client")
	}

	return GoogleFileStore{
		storageClient: googleStorageClient,
	}, nil
}

// WriteFile streams contents to the object, archived downloads can be
// large so nothing is buffered in memory here.
func (g GoogleFileStore) WriteFile(ctx context.Context, fileURL string, contents io.Reader) (err error) {
	bucket, filePath, err := g.bucketAndPathFromURL(fileURL)
	if err != nil {
		return cerr.Field("file_url", fileURL).
			Wrap(err).Error("Couldn't extract file path from URL")
	}

	writer := g.objectHandle(bucket, filePath).NewWriter(ctx)
	defer func() {
		closeErr := writer.Close()
		if err == nil && closeErr != nil {
			err = cerr.Wrap(closeErr).Error("Error occurred when closing the upload stream")
		}
	}()

	if _, err = io.Copy(writer, contents); err != nil {
		return cerr.Wrap(err).Error("Error occurred when uploading file")
	}

	return nil
}

func (g GoogleFileStore) bucketAndPathFromURL(fileURL string) (string, string, error) {
	if !strings.HasPrefix(fileURL, GOOGLE_STORAGE_HOST+"/") {
		return "", "", cerr.Error("File path given not in the Google cloud storage format")
	}

	bucketAndPath := strings.TrimPrefix(fileURL, GOOGLE_STORAGE_HOST+"/")

	chunks := strings.SplitN(bucketAndPath, "/", 2)
	if len(chunks) != 2 {
		return "", "", cerr.Error("File path given not in the Google cloud storage format")
	}

	return chunks[0], chunks[1], nil
}

func (g GoogleFileStore) objectHandle(bucket string, filePath string) *storage.ObjectHandle {
	return g.storageClient.Bucket(bucket).Object(filePath)
}
