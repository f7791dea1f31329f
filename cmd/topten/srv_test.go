package main

import (
	"strings"
	"testing"

	"topten/internal/config"
)

func TestBlobSettingsDefaultsToLocalAssets(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = "/data/topten.db"

	bucketURL, publicBase, serveAssets := blobSettings(&cfg)
	if bucketURL != "file:///data/.topten-blobs" {
		t.Fatalf("unexpected bucket url %q", bucketURL)
	}
	if publicBase != "/assets" || !serveAssets {
		t.Fatalf("expected API-served assets, got base=%q serve=%v", publicBase, serveAssets)
	}
}

func TestBlobSettingsWithPublicBase(t *testing.T) {
	cfg := config.Default()
	cfg.Blob.URL = "s3://bucket?region=eu-west-1"
	cfg.Blob.PublicBaseURL = "https://cdn.example.com"

	bucketURL, publicBase, serveAssets := blobSettings(&cfg)
	if bucketURL != cfg.Blob.URL || publicBase != "https://cdn.example.com" || serveAssets {
		t.Fatalf("unexpected settings: %q %q %v", bucketURL, publicBase, serveAssets)
	}
}

func TestEffectiveConfigLinesRedactsSearchKey(t *testing.T) {
	cfg := config.Default()
	cfg.Search.APIKey = "super-secret"

	lines := effectiveConfigLines(&cfg)
	if len(lines) != len(config.AllowedKeys()) {
		t.Fatalf("expected one line per key, got %d", len(lines))
	}
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, "super-secret") {
		t.Fatalf("search key leaked: %s", joined)
	}
	if !containsLine(lines, "search.api_key = "+redactedValue) {
		t.Fatalf("expected redacted key line, got %v", lines)
	}
	if !containsLine(lines, "owner_id = anonymous") {
		t.Fatalf("expected owner line, got %v", lines)
	}
}

func TestRootCommandSurface(t *testing.T) {
	cfg := config.Default()
	root := newRootCmd(&cfg)

	want := []string{"srv", "submit", "lists", "show", "search", "categories", "info", "config", "migrate"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected %q subcommand", name)
		}
	}
}

func TestParseListID(t *testing.T) {
	id, err := parseListID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
	for _, raw := range []string{"0", "-3", "abc", ""} {
		if _, err := parseListID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
