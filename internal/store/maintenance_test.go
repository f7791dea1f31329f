package store

import (
	"context"
	"testing"

	"topten/internal/models"
)

func TestStoreInfo(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	info, err := st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.SchemaVersion == 0 {
		t.Fatal("expected non-zero schema version")
	}
	if info.TotalLists != 0 || info.TotalItems != 0 {
		t.Fatalf("expected empty store, got %+v", info)
	}

	img := "https://cdn/a.png"
	if _, err := st.CreateListWithItems(ctx, &models.List{Title: "A", Category: "food"}, []models.ListItem{
		{Position: 1, ImageURL: &img},
		{Position: 2},
	}); err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := st.CreateListWithItems(ctx, &models.List{Title: "B", Category: "food"}, []models.ListItem{{Position: 1}}); err != nil {
		t.Fatalf("create B: %v", err)
	}
	if _, err := st.CreateListWithItems(ctx, &models.List{Title: "C", Category: "books"}, nil); err != nil {
		t.Fatalf("create C: %v", err)
	}

	info, err = st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.TotalLists != 3 {
		t.Fatalf("expected 3 lists, got %d", info.TotalLists)
	}
	if info.TotalItems != 3 {
		t.Fatalf("expected 3 items, got %d", info.TotalItems)
	}
	if info.ItemsWithImages != 1 {
		t.Fatalf("expected 1 item with image, got %d", info.ItemsWithImages)
	}
	if info.ListsByCategory["food"] != 2 || info.ListsByCategory["books"] != 1 {
		t.Fatalf("unexpected category counts: %v", info.ListsByCategory)
	}
}
