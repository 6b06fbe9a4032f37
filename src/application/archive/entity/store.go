package entity

import (
	"context"
	"io"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// FileStore is the write side of the archive; retrieval is served by
// the object store directly.
//
//counterfeiter:generate . FileStore
type FileStore interface {
	WriteFile(ctx context.Context, url string, contents io.Reader) error
}
