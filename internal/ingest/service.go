package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"topten/internal/blobstore"
	"topten/internal/models"
)

// ListCreator is the persistence dependency of the ingestion service.
type ListCreator interface {
	CreateListWithItems(ctx context.Context, list *models.List, items []models.ListItem) (int64, error)
}

// Options configures a Service.
type Options struct {
	OwnerID            string
	KeyPrefix          string
	AllowedMediaTypes  []string
	ResolveConcurrency int
	Now                func() time.Time
	Logger             *slog.Logger
}

// Service runs the submission pipeline: resolve images, then persist the list
// and its items atomically.
type Service struct {
	store    ListCreator
	blobs    blobstore.BlobStore
	resolver *Resolver
	ownerID  string
	now      func() time.Time
	logger   *slog.Logger
}

// Result describes a persisted submission.
type Result struct {
	ListID        int64
	List          models.List
	Items         []models.ListItem
	ImageFailures int
}

// New constructs a Service.
func New(st ListCreator, blobs blobstore.BlobStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	owner := strings.TrimSpace(opts.OwnerID)
	if owner == "" {
		owner = models.DefaultOwnerID
	}
	return &Service{
		store: st,
		blobs: blobs,
		resolver: NewResolver(blobs, ResolverOptions{
			KeyPrefix:         opts.KeyPrefix,
			AllowedMediaTypes: opts.AllowedMediaTypes,
			Concurrency:       opts.ResolveConcurrency,
			Now:               now,
			Logger:            logger,
		}),
		ownerID: owner,
		now:     now,
		logger:  logger,
	}
}

// Submit resolves every item image and then writes the list and its items in
// one transaction. Image failures are absorbed per item; a persistence
// failure returns *PersistenceError and leaves no rows behind.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return Result{}, malformed("title is required")
	}
	if len(sub.Items) > models.MaxListItems {
		return Result{}, malformed("at most %d items are allowed, got %d", models.MaxListItems, len(sub.Items))
	}

	resolution := s.resolver.Resolve(ctx, sub.Items)

	list := models.List{
		Title:     title,
		Category:  sub.Category,
		OwnerID:   s.ownerID,
		CreatedAt: s.now().UTC(),
	}
	items := make([]models.ListItem, len(sub.Items))
	for i, payload := range sub.Items {
		items[i] = models.ListItem{
			Position:    payload.Position,
			Title:       payload.Title,
			Description: payload.Description,
			ImageURL:    resolution.Items[i].ImageURL,
			ExternalURL: payload.ExternalURL,
		}
	}

	id, err := s.store.CreateListWithItems(ctx, &list, items)
	if err != nil {
		s.discardObjects(ctx, resolution.WrittenKeys())
		return Result{}, &PersistenceError{Op: "create list", Err: err}
	}

	s.logger.Info("list created",
		"list_id", id,
		"items", len(items),
		"image_failures", resolution.Failures(),
	)
	list.Items = items
	return Result{ListID: id, List: list, Items: items, ImageFailures: resolution.Failures()}, nil
}

// discardObjects removes objects written for a submission that was not
// persisted. Failures are logged only.
func (s *Service) discardObjects(ctx context.Context, keys []string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("orphaned object cleanup failed", "key", key, "error", err)
		}
	}
}
