// Package storage holds attachment file content, addressed by stored filename.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned when a blob is missing.
var ErrNotExist = errors.New("blob does not exist")

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid blob name")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// BlobStore is where attachment content lives.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]BlobInfo, error)
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == 0 {
			return false
		}
	}
	return true
}
