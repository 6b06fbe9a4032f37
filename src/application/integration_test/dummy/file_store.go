package dummy

import (
	"context"
	"io"
	"sync"

	"mediagrab-be-server/src/application/archive/entity"
)

var _ entity.FileStore = &FileStore{}

func NewDummyFileStore() *FileStore {
	return &FileStore{
		Unavailable: false,
		State:       make(map[string][]byte),
	}
}

type FileStore struct {
	Unavailable bool
	State       map[string][]byte
	mutex       sync.RWMutex
}

func (f *FileStore) WriteFile(_ context.Context, url string, contents io.Reader) error {
	if f.Unavailable {
		return NetworkFailure
	}

	fileContent, err := io.ReadAll(contents)
	if err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.State[url] = fileContent
	return nil
}
