package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carlmjohnson/be"

	"topten/internal/models"
	"topten/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	be.NilErr(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSubmitBestPizzaWithUpload(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	svc := New(st, testBucket(t), Options{Now: fixedClock(), Logger: quietLogger()})

	form := buildForm(t, []field{
		{"title", "Best Pizza"},
		{"category", "food"},
		{"items[]", `{"title":"Margherita","position":1,"imageUrl":"https://cdn/x.jpg","hasImage":true}`},
		{"items[]", `{"title":"Diavola","position":2,"imageUrl":"https://cdn/y.jpg"}`},
	}, []filePart{{field: "images", filename: "pie.png", contentType: "image/png", data: pngBytes}})
	sub, err := ParseSubmission(form)
	be.NilErr(t, err)

	res, err := svc.Submit(ctx, sub)
	be.NilErr(t, err)
	be.True(t, res.ListID > 0)
	be.Equal(t, 0, res.ImageFailures)

	got, err := st.GetList(ctx, res.ListID)
	be.NilErr(t, err)
	be.Equal(t, "Best Pizza", got.Title)
	be.Equal(t, "food", got.Category)
	be.Equal(t, models.DefaultOwnerID, got.OwnerID)
	be.Equal(t, 2, len(got.Items))

	first := got.Items[0]
	be.Equal(t, "Margherita", first.Title)
	be.True(t, strings.HasPrefix(*first.ImageURL, testPublicBase+"/lists/"))
	be.True(t, *first.ImageURL != "https://cdn/x.jpg")
	be.Equal(t, "https://cdn/y.jpg", *got.Items[1].ImageURL)
}

func TestSubmitBestPizzaWithoutUpload(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	svc := New(st, testBucket(t), Options{Logger: quietLogger()})

	sub := Submission{
		Title:    "Best Pizza",
		Category: "food",
		Items: []ItemPayload{
			{Title: "Margherita", Position: 1, ImageURL: strPtr("https://cdn/x.jpg")},
			{Title: "Diavola", Position: 2},
		},
	}
	res, err := svc.Submit(ctx, sub)
	be.NilErr(t, err)

	got, err := st.GetList(ctx, res.ListID)
	be.NilErr(t, err)
	be.Equal(t, "https://cdn/x.jpg", *got.Items[0].ImageURL)
	be.True(t, got.Items[1].ImageURL == nil)
	be.True(t, got.Items[1].ExternalURL == nil)
}

func TestSubmitPersistsListAndEveryItem(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	svc := New(st, testBucket(t), Options{Logger: quietLogger(), OwnerID: "owner-1"})

	items := make([]ItemPayload, models.MaxListItems)
	for i := range items {
		items[i] = ItemPayload{Position: models.MaxListItems - i, Title: string(rune('A' + i))}
	}
	res, err := svc.Submit(ctx, Submission{Title: "Full", Items: items})
	be.NilErr(t, err)
	be.Equal(t, models.MaxListItems, len(res.Items))

	got, err := st.GetList(ctx, res.ListID)
	be.NilErr(t, err)
	be.Equal(t, "owner-1", got.OwnerID)
	be.Equal(t, models.MaxListItems, got.ItemCount)
	for i, item := range got.Items {
		be.Equal(t, i+1, item.Position)
	}
	be.Equal(t, "J", got.Items[0].Title)

	info, err := st.StoreInfo(ctx)
	be.NilErr(t, err)
	be.Equal(t, 1, info.TotalLists)
	be.Equal(t, models.MaxListItems, info.TotalItems)
}

func TestSubmitFailSoftPerItem(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	blobs := &failingBlobs{Bucket: testBucket(t), failKey: failsItemIndex(1)}
	svc := New(st, blobs, Options{Logger: quietLogger()})

	res, err := svc.Submit(ctx, Submission{
		Title: "Partial",
		Items: []ItemPayload{
			{Position: 1, Upload: memUpload("a.png", "image/png", pngBytes)},
			{Position: 2, ImageURL: strPtr("https://cdn/b.jpg"), Upload: memUpload("b.png", "image/png", pngBytes)},
			{Position: 3, Upload: memUpload("c.png", "image/png", pngBytes)},
		},
	})
	be.NilErr(t, err)
	be.Equal(t, 1, res.ImageFailures)

	got, err := st.GetList(ctx, res.ListID)
	be.NilErr(t, err)
	be.Equal(t, 3, len(got.Items))
	be.True(t, got.Items[0].ImageURL != nil)
	be.True(t, got.Items[1].ImageURL == nil)
	be.True(t, got.Items[2].ImageURL != nil)
	be.Equal(t, 0, len(blobs.deleted))
}

func TestSubmitPersistenceFailureCleansUpObjects(t *testing.T) {
	ctx := context.Background()
	bucket := testBucket(t)
	blobs := &failingBlobs{Bucket: bucket}
	failing := &failingStore{err: errors.New("disk I/O error")}
	svc := New(failing, blobs, Options{Logger: quietLogger()})

	_, err := svc.Submit(ctx, Submission{
		Title: "Doomed",
		Items: []ItemPayload{
			{Position: 1, Upload: memUpload("a.png", "image/png", pngBytes)},
			{Position: 2, ImageURL: strPtr("https://cdn/b.jpg")},
		},
	})

	var perr *PersistenceError
	be.True(t, errors.As(err, &perr))
	be.Equal(t, "create list", perr.Op)
	be.True(t, strings.Contains(err.Error(), "disk I/O error"))
	be.Equal(t, 1, failing.calls)
	be.Equal(t, 1, len(blobs.deleted))

	_, err = bucket.Open(ctx, blobs.deleted[0])
	be.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSubmitRejectsInvalidSubmission(t *testing.T) {
	failing := &failingStore{err: errors.New("unreachable")}
	svc := New(failing, testBucket(t), Options{Logger: quietLogger()})

	_, err := svc.Submit(context.Background(), Submission{Title: "  "})
	be.True(t, errors.Is(err, ErrMalformedSubmission))

	_, err = svc.Submit(context.Background(), Submission{Title: "x", Items: make([]ItemPayload, 11)})
	be.True(t, errors.Is(err, ErrMalformedSubmission))
	be.Equal(t, 0, failing.calls)
}

func TestSubmitStoreRejectionLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	svc := New(st, testBucket(t), Options{Logger: quietLogger()})

	// Duplicate positions bypassing the parser are rejected by the schema.
	_, err := svc.Submit(ctx, Submission{
		Title: "Dupes",
		Items: []ItemPayload{{Position: 1}, {Position: 1}},
	})
	var perr *PersistenceError
	be.True(t, errors.As(err, &perr))

	lists, err := st.ListLists(ctx)
	be.NilErr(t, err)
	be.Equal(t, 0, len(lists))
	info, err := st.StoreInfo(ctx)
	be.NilErr(t, err)
	be.Equal(t, 0, info.TotalItems)
}

func TestSubmitCleanupKeepsConcurrentIdenticalUpload(t *testing.T) {
	ctx := context.Background()
	bucket := testBucket(t)
	st := testStore(t)

	ok := New(st, bucket, Options{Now: fixedClock(), Logger: quietLogger()})
	blobs := &failingBlobs{Bucket: bucket}
	doomed := New(&failingStore{err: errors.New("disk I/O error")}, blobs, Options{Now: fixedClock(), Logger: quietLogger()})

	same := func() Submission {
		return Submission{
			Title: "Same",
			Items: []ItemPayload{{Position: 1, Upload: memUpload("a.png", "image/png", pngBytes)}},
		}
	}

	res, err := ok.Submit(ctx, same())
	be.NilErr(t, err)
	_, err = doomed.Submit(ctx, same())
	var perr *PersistenceError
	be.True(t, errors.As(err, &perr))

	got, err := st.GetList(ctx, res.ListID)
	be.NilErr(t, err)
	key := strings.TrimPrefix(*got.Items[0].ImageURL, testPublicBase+"/")
	be.Equal(t, 1, len(blobs.deleted))
	be.True(t, blobs.deleted[0] != key)

	rc, err := bucket.Open(ctx, key)
	be.NilErr(t, err)
	_ = rc.Close()
}
