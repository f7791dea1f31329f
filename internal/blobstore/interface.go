package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidKey rejects empty, absolute, or dot-segment object keys.
var ErrInvalidKey = errors.New("invalid blob key")

// PutResult describes one persisted object.
type PutResult struct {
	Key       string
	URL       string
	SizeBytes int64
}

// Object is an open stored object.
type Object struct {
	io.ReadCloser
	ContentType string
	SizeBytes   int64
}

// BlobStore is the byte-storage abstraction used by the image resolver.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (PutResult, error)
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// StorageWriteError reports a failed object write.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("write object %q: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
