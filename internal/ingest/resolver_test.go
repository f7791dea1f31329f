package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carlmjohnson/be"

	"topten/internal/blobstore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestResolveItemPrecedence(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(testBucket(t), ResolverOptions{Now: fixedClock(), Logger: quietLogger()})

	t.Run("upload wins over supplied url", func(t *testing.T) {
		got := r.ResolveItem(ctx, 0, ItemPayload{
			ImageURL: strPtr("https://cdn/x.jpg"),
			Upload:   memUpload("pie.png", "image/png", pngBytes),
		})
		be.NilErr(t, got.Err)
		be.True(t, got.ImageURL != nil)
		be.True(t, strings.HasPrefix(*got.ImageURL, testPublicBase+"/lists/1717236000000_0_"))
		be.True(t, strings.HasSuffix(*got.ImageURL, "_pie.png"))
		be.True(t, *got.ImageURL != "https://cdn/x.jpg")
		be.Equal(t, strings.TrimPrefix(*got.ImageURL, testPublicBase+"/"), got.ObjectKey)
	})

	t.Run("supplied url kept verbatim", func(t *testing.T) {
		got := r.ResolveItem(ctx, 1, ItemPayload{ImageURL: strPtr("https://cdn/x.jpg?w=200")})
		be.NilErr(t, got.Err)
		be.Equal(t, "https://cdn/x.jpg?w=200", *got.ImageURL)
		be.Equal(t, "", got.ObjectKey)
	})

	t.Run("nothing supplied stays nil", func(t *testing.T) {
		got := r.ResolveItem(ctx, 2, ItemPayload{})
		be.NilErr(t, got.Err)
		be.True(t, got.ImageURL == nil)
	})

	t.Run("empty upload falls back to url", func(t *testing.T) {
		got := r.ResolveItem(ctx, 3, ItemPayload{
			ImageURL: strPtr("https://cdn/y.jpg"),
			Upload:   memUpload("empty.png", "image/png", nil),
		})
		be.Equal(t, "https://cdn/y.jpg", *got.ImageURL)
		be.Equal(t, "", got.ObjectKey)
	})
}

func TestResolveItemStoresContentType(t *testing.T) {
	ctx := context.Background()
	bucket := testBucket(t)
	r := NewResolver(bucket, ResolverOptions{Logger: quietLogger()})

	declared := r.ResolveItem(ctx, 0, ItemPayload{Upload: memUpload("a.bin", "image/webp", []byte("webp bytes"))})
	be.NilErr(t, declared.Err)
	obj, err := bucket.Open(ctx, declared.ObjectKey)
	be.NilErr(t, err)
	be.Equal(t, "image/webp", obj.ContentType)
	be.NilErr(t, obj.Close())

	sniffed := r.ResolveItem(ctx, 1, ItemPayload{Upload: memUpload("b", "", pngBytes)})
	be.NilErr(t, sniffed.Err)
	obj, err = bucket.Open(ctx, sniffed.ObjectKey)
	be.NilErr(t, err)
	be.Equal(t, "image/png", obj.ContentType)
	data, err := io.ReadAll(obj)
	be.NilErr(t, err)
	be.NilErr(t, obj.Close())
	be.Equal(t, string(pngBytes), string(data))
}

func TestResolveFailSoftIsolatesItem(t *testing.T) {
	ctx := context.Background()
	blobs := &failingBlobs{Bucket: testBucket(t), failKey: failsItemIndex(1)}
	r := NewResolver(blobs, ResolverOptions{Logger: quietLogger()})

	res := r.Resolve(ctx, []ItemPayload{
		{Upload: memUpload("a.png", "image/png", pngBytes)},
		{ImageURL: strPtr("https://cdn/fallback.jpg"), Upload: memUpload("b.png", "image/png", pngBytes)},
		{ImageURL: strPtr("https://cdn/c.jpg")},
	})

	be.Equal(t, 3, len(res.Items))
	be.NilErr(t, res.Items[0].Err)
	be.True(t, res.Items[0].ImageURL != nil)

	var writeErr *blobstore.StorageWriteError
	be.True(t, errors.As(res.Items[1].Err, &writeErr))
	be.True(t, res.Items[1].ImageURL == nil)

	be.Equal(t, "https://cdn/c.jpg", *res.Items[2].ImageURL)
	be.Equal(t, 1, res.Failures())
	be.Equal(t, 1, len(res.WrittenKeys()))
}

func TestResolveDroppedUploadLogsClientID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	blobs := &failingBlobs{Bucket: testBucket(t), failKey: failsItemIndex(0)}
	r := NewResolver(blobs, ResolverOptions{Logger: logger})

	got := r.ResolveItem(context.Background(), 0, ItemPayload{
		ClientID: "row-7",
		Upload:   memUpload("a.png", "image/png", pngBytes),
	})
	be.True(t, got.Err != nil)
	be.In(t, "image upload dropped", logs.String())
	be.In(t, "client_id=row-7", logs.String())
	be.In(t, "filename=a.png", logs.String())
}

func TestResolveRejectsDisallowedMediaType(t *testing.T) {
	r := NewResolver(testBucket(t), ResolverOptions{
		AllowedMediaTypes: []string{"image/png", " IMAGE/JPEG ", "not a type;;"},
		Logger:            quietLogger(),
	})

	got := r.ResolveItem(context.Background(), 0, ItemPayload{
		ImageURL: strPtr("https://cdn/x.jpg"),
		Upload:   memUpload("evil.html", "text/html", []byte("<html></html>")),
	})
	be.True(t, errors.Is(got.Err, ErrMediaTypeNotAllowed))
	be.True(t, got.ImageURL == nil)
	be.Equal(t, "", got.ObjectKey)

	ok := r.ResolveItem(context.Background(), 1, ItemPayload{Upload: memUpload("b.jpg", "image/jpeg; charset=binary", []byte("jpeg"))})
	be.NilErr(t, ok.Err)
}

func TestResolveOpenFailureIsFailSoft(t *testing.T) {
	r := NewResolver(testBucket(t), ResolverOptions{Logger: quietLogger()})
	upload := &Upload{
		Filename: "gone.png",
		Size:     10,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("temp file removed")
		},
	}
	got := r.ResolveItem(context.Background(), 0, ItemPayload{ImageURL: strPtr("https://cdn/x.jpg"), Upload: upload})
	be.True(t, got.Err != nil)
	be.True(t, got.ImageURL == nil)
}

func TestResolveParallelPreservesOrder(t *testing.T) {
	ctx := context.Background()
	blobs := &slowBlobs{Bucket: testBucket(t)}
	r := NewResolver(blobs, ResolverOptions{Concurrency: 4, Logger: quietLogger()})

	items := make([]ItemPayload, 10)
	for i := range items {
		items[i] = ItemPayload{Upload: memUpload(string(rune('a'+i))+".png", "image/png", append([]byte{byte(i)}, pngBytes...))}
	}

	res := r.Resolve(ctx, items)
	be.Equal(t, 10, len(res.Items))
	for i, item := range res.Items {
		be.NilErr(t, item.Err)
		be.True(t, strings.HasSuffix(item.ObjectKey, "_"+string(rune('a'+i))+".png"))
	}
	be.True(t, blobs.maxInFlight() > 1)
	be.True(t, blobs.maxInFlight() <= 4)
}

// slowBlobs delays every write and records peak concurrency.
type slowBlobs struct {
	*blobstore.Bucket

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *slowBlobs) Put(ctx context.Context, key string, r io.Reader, contentType string) (blobstore.PutResult, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return s.Bucket.Put(ctx, key, r, contentType)
}

func (s *slowBlobs) maxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
