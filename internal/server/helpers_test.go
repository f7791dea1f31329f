package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"gocloud.dev/blob/memblob"

	"topten/internal/blobstore"
	"topten/internal/ingest"
	"topten/internal/search"
	"topten/internal/store"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR test image")

type testEnv struct {
	srv     *Server
	handler http.Handler
	store   *store.Store
	bucket  *blobstore.Bucket
}

type envOption func(*Deps, *Options)

func withSearch(c *search.Client) envOption {
	return func(d *Deps, _ *Options) { d.Search = c }
}

func withIngest(svc *ingest.Service) envOption {
	return func(d *Deps, _ *Options) { d.Ingest = svc }
}

func withOptions(fn func(*Options)) envOption {
	return func(_ *Deps, o *Options) { fn(o) }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	bucket := blobstore.NewBucket(memblob.OpenBucket(nil), "/assets")
	t.Cleanup(func() { bucket.Close() })

	deps := Deps{
		Store:  st,
		Ingest: ingest.New(st, bucket, ingest.Options{Logger: quietLogger()}),
		Blobs:  bucket,
		Logger: quietLogger(),
	}
	options := Options{ServeAssets: true}
	for _, opt := range opts {
		opt(&deps, &options)
	}

	srv := New("127.0.0.1:0", deps, options)
	return &testEnv{srv: srv, handler: srv.Handler(), store: st, bucket: bucket}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

type formFile struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, fields [][2]string, files []formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
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
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/new", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}
