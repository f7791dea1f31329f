package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"topten/internal/blobstore"
	"topten/internal/config"
	"topten/internal/ingest"
	"topten/internal/search"
	"topten/internal/server"
	"topten/internal/store"
)

const assetsPathPrefix = "/assets"

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the topten API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, slog.Default().With("component", "server"))
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return err
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	bucketURL, publicBase, serveAssets := blobSettings(cfg)
	logger.Info("opening blob bucket", "url", bucketURL, "serve_assets", serveAssets)
	blobs, err := blobstore.OpenBucket(ctx, bucketURL, publicBase)
	if err != nil {
		return err
	}
	defer blobs.Close()

	svc := ingest.New(st, blobs, ingest.Options{
		OwnerID:            cfg.OwnerID,
		KeyPrefix:          cfg.Blob.KeyPrefix,
		AllowedMediaTypes:  cfg.Uploads.AllowedMediaTypes,
		ResolveConcurrency: cfg.Uploads.ResolveConcurrency,
		Logger:             logger.With("component", "ingest"),
	})

	searcher := search.New(search.Options{
		Endpoint: cfg.Search.Endpoint,
		APIKey:   cfg.Search.APIKey,
		Limit:    cfg.Search.Limit,
	})
	if !searcher.Configured() {
		logger.Warn("search api key not set; /api/search will answer 503")
	}

	srv := server.New(addr, server.Deps{
		Store:  st,
		Ingest: svc,
		Blobs:  blobs,
		Search: searcher,
		Logger: logger,
	}, server.Options{
		MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
		MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
		ServeAssets:        serveAssets,
	})
	return srv.ListenAndServe(ctx)
}

// blobSettings falls back to a local fileblob bucket next to the database,
// served by the API itself when no public base URL is configured.
func blobSettings(cfg *config.Config) (bucketURL, publicBase string, serveAssets bool) {
	bucketURL = cfg.Blob.URL
	if bucketURL == "" {
		bucketURL = cfg.DefaultBlobURL()
	}
	publicBase = cfg.Blob.PublicBaseURL
	if publicBase == "" {
		return bucketURL, assetsPathPrefix, true
	}
	return bucketURL, publicBase, false
}
