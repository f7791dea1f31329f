package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Bucket stores objects in a gocloud.dev bucket and publishes them under a
// public base URL.
type Bucket struct {
	bucket        *blob.Bucket
	publicBaseURL string
}

var _ BlobStore = (*Bucket)(nil)

// OpenBucket opens the bucket named by bucketURL ("file:///srv/topten/blobs",
// "mem://", "s3://bucket?region=us-east-1", "gs://bucket").
func OpenBucket(ctx context.Context, bucketURL, publicBaseURL string) (*Bucket, error) {
	bucketURL = strings.TrimSpace(bucketURL)
	if bucketURL == "" {
		return nil, fmt.Errorf("blob url is required")
	}
	if err := ensureFileBucketDir(bucketURL); err != nil {
		return nil, err
	}
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return NewBucket(b, publicBaseURL), nil
}

// NewBucket wraps an already opened bucket.
func NewBucket(b *blob.Bucket, publicBaseURL string) *Bucket {
	return &Bucket{bucket: b, publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")}
}

// Put writes r under key. Any failure is reported as *StorageWriteError.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader, contentType string) (PutResult, error) {
	var zero PutResult
	if b == nil || b.bucket == nil {
		return zero, &StorageWriteError{Key: key, Err: errors.New("blob store is not configured")}
	}
	if r == nil {
		return zero, &StorageWriteError{Key: key, Err: errors.New("reader is required")}
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return zero, &StorageWriteError{Key: key, Err: err}
	}
	key = cleaned
	if err := ctx.Err(); err != nil {
		return zero, &StorageWriteError{Key: key, Err: err}
	}

	w, err := b.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: strings.TrimSpace(contentType)})
	if err != nil {
		return zero, &StorageWriteError{Key: key, Err: err}
	}
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return zero, &StorageWriteError{Key: key, Err: err}
	}
	if err := w.Close(); err != nil {
		return zero, &StorageWriteError{Key: key, Err: err}
	}

	return PutResult{Key: key, URL: b.URL(key), SizeBytes: n}, nil
}

// Open returns a reader for the object stored under key.
func (b *Bucket) Open(ctx context.Context, key string) (*Object, error) {
	if b == nil || b.bucket == nil {
		return nil, errors.New("blob store is not configured")
	}
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("object %q: %w", key, os.ErrNotExist)
		}
		return nil, err
	}
	return &Object{ReadCloser: r, ContentType: r.ContentType(), SizeBytes: r.Size()}, nil
}

// Delete removes an object. Missing objects are ignored.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if b == nil || b.bucket == nil {
		return errors.New("blob store is not configured")
	}
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := b.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return err
	}
	return nil
}

// URL returns the public URL of key.
func (b *Bucket) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")
	if b.publicBaseURL == "" {
		return "/" + escaped
	}
	return b.publicBaseURL + "/" + escaped
}

// Close releases the underlying bucket.
func (b *Bucket) Close() error {
	if b == nil || b.bucket == nil {
		return nil
	}
	return b.bucket.Close()
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: key must be relative", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return key, nil
}

// fileblob refuses to open a directory that does not exist yet.
func ensureFileBucketDir(bucketURL string) error {
	u, err := url.Parse(bucketURL)
	if err != nil || u.Scheme != "file" {
		return nil
	}
	dir := filepath.FromSlash(u.Path)
	if dir == "" {
		return fmt.Errorf("file bucket path is required")
	}
	return os.MkdirAll(dir, 0o755)
}
