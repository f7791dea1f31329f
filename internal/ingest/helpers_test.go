package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"gocloud.dev/blob/memblob"

	"topten/internal/blobstore"
	"topten/internal/models"
)

const testPublicBase = "https://cdn.example.com"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake png payload")

type field struct {
	name, value string
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

func buildForm(t *testing.T, fields []field, files []filePart) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func itemJSON(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal item: %v", err)
	}
	return string(data)
}

func memUpload(name, contentType string, data []byte) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func strPtr(s string) *string { return &s }

func testBucket(t *testing.T) *blobstore.Bucket {
	t.Helper()
	b := blobstore.NewBucket(memblob.OpenBucket(nil), testPublicBase)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// failingBlobs fails writes whose key matches failKey and records deletes.
type failingBlobs struct {
	*blobstore.Bucket
	failKey func(key string) bool

	mu      sync.Mutex
	deleted []string
}

func (f *failingBlobs) Put(ctx context.Context, key string, r io.Reader, contentType string) (blobstore.PutResult, error) {
	if f.failKey != nil && f.failKey(key) {
		return blobstore.PutResult{}, &blobstore.StorageWriteError{Key: key, Err: errors.New("bucket unavailable")}
	}
	return f.Bucket.Put(ctx, key, r, contentType)
}

func (f *failingBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, key)
	f.mu.Unlock()
	return f.Bucket.Delete(ctx, key)
}

// failsItemIndex matches keys written for the given item index.
func failsItemIndex(index int) func(string) bool {
	return func(key string) bool {
		name := key[strings.LastIndex(key, "/")+1:]
		parts := strings.SplitN(name, "_", 3)
		return len(parts) == 3 && parts[1] == fmt.Sprint(index)
	}
}

type failingStore struct {
	err   error
	calls int
}

func (s *failingStore) CreateListWithItems(context.Context, *models.List, []models.ListItem) (int64, error) {
	s.calls++
	return 0, s.err
}
