package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"topten/internal/blobstore"
)

const fallbackContentType = "application/octet-stream"

// ErrMediaTypeNotAllowed is recorded for uploads outside the allow-list.
var ErrMediaTypeNotAllowed = errors.New("media type not allowed")

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	KeyPrefix         string
	AllowedMediaTypes []string
	Concurrency       int
	Now               func() time.Time
	Logger            *slog.Logger
}

// Resolver turns item payloads into final image references, writing uploads
// to the blob store.
type Resolver struct {
	blobs       blobstore.BlobStore
	keyPrefix   string
	allowed     map[string]struct{}
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// ResolvedItem is the outcome for one item. Err holds the swallowed upload
// failure, if any; the item then carries a nil ImageURL.
type ResolvedItem struct {
	ImageURL  *string
	ObjectKey string
	Err       error
}

// Resolution holds per-item outcomes in submission order.
type Resolution struct {
	Items []ResolvedItem
}

// WrittenKeys returns the keys of every object written for the submission.
func (r Resolution) WrittenKeys() []string {
	keys := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		if item.ObjectKey != "" {
			keys = append(keys, item.ObjectKey)
		}
	}
	return keys
}

// Failures counts items whose upload was dropped.
func (r Resolution) Failures() int {
	n := 0
	for _, item := range r.Items {
		if item.Err != nil {
			n++
		}
	}
	return n
}

// NewResolver constructs a Resolver.
func NewResolver(blobs blobstore.BlobStore, opts ResolverOptions) *Resolver {
	r := &Resolver{
		blobs:       blobs,
		keyPrefix:   opts.KeyPrefix,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if r.keyPrefix == "" {
		r.keyPrefix = blobstore.DefaultKeyPrefix
	}
	if r.concurrency <= 0 {
		r.concurrency = 1
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	for _, raw := range opts.AllowedMediaTypes {
		mediaType := normalizeMediaType(raw)
		if mediaType == "" {
			continue
		}
		if r.allowed == nil {
			r.allowed = map[string]struct{}{}
		}
		r.allowed[mediaType] = struct{}{}
	}
	return r
}

// Resolve resolves every item. Upload failures never abort the batch.
func (r *Resolver) Resolve(ctx context.Context, items []ItemPayload) Resolution {
	res := Resolution{Items: make([]ResolvedItem, len(items))}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range items {
		g.Go(func() error {
			res.Items[i] = r.ResolveItem(ctx, i, items[i])
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// ResolveItem applies the precedence rule to one item: a non-empty upload wins,
// otherwise the supplied URL is used verbatim.
func (r *Resolver) ResolveItem(ctx context.Context, index int, item ItemPayload) ResolvedItem {
	if !item.Upload.Present() {
		return ResolvedItem{ImageURL: item.ImageURL}
	}

	put, err := r.store(ctx, index, item.Upload)
	if err != nil {
		r.logger.Warn("image upload dropped",
			"item", index,
			"client_id", item.ClientID,
			"filename", item.Upload.Filename,
			"error", err,
		)
		return ResolvedItem{Err: err}
	}

	url := put.URL
	return ResolvedItem{ImageURL: &url, ObjectKey: put.Key}
}

func (r *Resolver) store(ctx context.Context, index int, upload *Upload) (blobstore.PutResult, error) {
	if r.blobs == nil {
		return blobstore.PutResult{}, &blobstore.StorageWriteError{Err: fmt.Errorf("blob store is not configured")}
	}

	rc, err := upload.Open()
	if err != nil {
		return blobstore.PutResult{}, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return blobstore.PutResult{}, fmt.Errorf("read upload: %w", err)
	}

	contentType := normalizeMediaType(upload.ContentType)
	if contentType == "" {
		contentType = normalizeMediaType(http.DetectContentType(data))
	}
	if contentType == "" {
		contentType = fallbackContentType
	}
	if r.allowed != nil {
		if _, ok := r.allowed[contentType]; !ok {
			return blobstore.PutResult{}, fmt.Errorf("%w: %s", ErrMediaTypeNotAllowed, contentType)
		}
	}

	digest, err := blobstore.Digest(bytes.NewReader(data))
	if err != nil {
		return blobstore.PutResult{}, fmt.Errorf("digest upload: %w", err)
	}
	key := blobstore.ObjectKey(r.keyPrefix, r.now(), index, blobstore.NewNonce(), digest, upload.Filename)

	put, err := r.blobs.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return blobstore.PutResult{}, err
	}
	r.logger.Debug("image stored", "item", index, "key", put.Key, "size_bytes", put.SizeBytes)
	return put, nil
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parsed))
}
