package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/solovoro/solovoro-api/config"
	"github.com/solovoro/solovoro-api/internal/database/postgres"
	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/internal/services"
	"github.com/solovoro/solovoro-api/pkg/db"
	"github.com/solovoro/solovoro-api/pkg/httpclient"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/sanity"
	"go.uber.org/zap"
)

// sync fills the Postgres content mirror from Sanity. Run it after
// migrations and whenever the mirror is suspected stale; the API keeps it
// current from webhooks and periodic syncs afterwards.
func main() {
	documentID := flag.String("id", "", "sync a single document instead of the whole dataset")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: "solovoro-sync",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required to sync the content mirror")
	}
	if cfg.Sanity.ProjectID == "" {
		logger.Fatal("SANITY_PROJECT_ID is required to sync the content mirror")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:        cfg.Database.URL,
		MaxConns:   2,
		MinConns:   1,
		CACertFile: cfg.Database.CACertFile,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := postgres.NewClient(pool)
	defer store.Close()

	client, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		APIVersion: cfg.Sanity.APIVersion,
		Token:      cfg.Sanity.ReadToken,
	}, httpclient.NewStandardClient())
	if err != nil {
		logger.Fatal("Failed to create Sanity client", zap.Error(err))
	}

	mirror := services.NewMirrorSyncService(repository.NewSanityMirrorSource(client), store)

	if *documentID != "" {
		if err := mirror.SyncDocument(ctx, *documentID); err != nil {
			logger.Error("Document sync failed", zap.String("document_id", *documentID), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Document synced", zap.String("document_id", *documentID))
		return
	}

	stats, err := mirror.SyncAll(ctx)
	if err != nil {
		logger.Error("Content mirror sync failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("synced %d documents (%d posts, %d authors), deleted %d\n",
		stats.Documents, stats.Posts, stats.Authors, stats.Deleted)
}
