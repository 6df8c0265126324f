package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solovoro/solovoro-api/config"
	"github.com/solovoro/solovoro-api/internal/cache"
	"github.com/solovoro/solovoro-api/internal/database/postgres"
	"github.com/solovoro/solovoro-api/internal/handlers"
	"github.com/solovoro/solovoro-api/internal/middleware"
	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/internal/services"
	"github.com/solovoro/solovoro-api/pkg/db"
	"github.com/solovoro/solovoro-api/pkg/httpclient"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/objectstore"
	"github.com/solovoro/solovoro-api/pkg/profiling"
	"github.com/solovoro/solovoro-api/pkg/revalidate"
	"github.com/solovoro/solovoro-api/pkg/sanity"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// contentStore bundles the resolver's backend with its health probe and cleanup.
// mirror is set when the backend is the Postgres mirror.
type contentStore struct {
	repo   repository.ContentRepositoryInterface
	ping   func(ctx context.Context) error
	close  func()
	mirror *services.MirrorSyncService
}

func newSanityClient(cfg *config.Config, httpClient httpclient.Client, useCDN bool) (*sanity.Client, error) {
	return sanity.NewClient(sanity.Config{
		ProjectID:  cfg.Sanity.ProjectID,
		Dataset:    cfg.Sanity.Dataset,
		APIVersion: cfg.Sanity.APIVersion,
		Token:      cfg.Sanity.ReadToken,
		UseCDN:     useCDN,
	}, httpClient)
}

func newContentStore(ctx context.Context, cfg *config.Config, httpClient httpclient.Client) (*contentStore, error) {
	switch cfg.Content.Source {
	case config.ContentSourceSanity:
		client, err := newSanityClient(cfg, httpClient, cfg.Sanity.UseCDN)
		if err != nil {
			return nil, err
		}
		return &contentStore{
			repo:  repository.NewSanityContentRepository(client),
			ping:  client.Ping,
			close: func() {},
		}, nil

	case config.ContentSourcePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:        cfg.Database.URL,
			MaxConns:   cfg.Database.MaxConns,
			MinConns:   cfg.Database.MinConns,
			CACertFile: cfg.Database.CACertFile,
		})
		if err != nil {
			return nil, err
		}
		client := postgres.NewClient(pool)

		// The mirror must see writes as soon as the webhook fires, so never the CDN.
		sanityClient, err := newSanityClient(cfg, httpClient, false)
		if err != nil {
			client.Close()
			return nil, err
		}
		return &contentStore{
			repo:   repository.NewPostgresContentRepository(client),
			ping:   client.Ping,
			close:  client.Close,
			mirror: services.NewMirrorSyncService(repository.NewSanityMirrorSource(sanityClient), client),
		}, nil

	case config.ContentSourceMemory:
		logger.Warn("Using in-memory content store, webhooks will resolve against an empty site")
		return &contentStore{
			repo:  repository.NewMemoryContentRepository(),
			close: func() {},
		}, nil
	}

	return nil, fmt.Errorf("unsupported content source %q", cfg.Content.Source)
}

func newCatalogSource(cfg *config.Config) (repository.ProviderCatalogSource, error) {
	if cfg.Catalog.Source == config.CatalogSourceS3 {
		store, err := objectstore.NewStorageClient(objectstore.Options{
			Bucket:          cfg.Catalog.S3Bucket,
			Endpoint:        cfg.Catalog.S3Endpoint,
			Region:          cfg.Catalog.S3Region,
			AccessKeyID:     cfg.Catalog.S3AccessKeyID,
			SecretAccessKey: cfg.Catalog.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewS3CatalogSource(store, cfg.Catalog.S3Key), nil
	}

	path := cfg.ProvidersFile()
	if path == cfg.Catalog.SampleFile {
		logger.Warn("Serving sample provider catalog", zap.String("path", path))
	}
	return repository.NewFileCatalogSource(path), nil
}

func newRevalidator(cfg *config.Config, httpClient httpclient.Client) (revalidate.Revalidator, error) {
	if cfg.NextJS.BaseURL == "" {
		logger.Warn("NEXTJS_BASE_URL not set, stale routes will be logged but not revalidated")
		return revalidate.Noop{}, nil
	}
	return revalidate.NewHTTPRevalidator(revalidate.Config{
		BaseURL: cfg.NextJS.BaseURL,
		Path:    cfg.NextJS.RevalidatePath,
		Secret:  cfg.NextJS.RevalidateSecret,
		Issuer:  cfg.Observability.ServiceName,
	}, httpClient)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Solovoro API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("content_source", cfg.Content.Source),
		zap.String("providers_source", cfg.Catalog.Source),
	)

	tracerShutdown, err := tracing.InitTracer(tracing.Settings{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, profiling.Labels{
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	metrics.Init(cfg.Observability.ServiceName)
	metrics.RecordInfrastructureMetrics()

	// Cancelled on shutdown to stop background goroutines
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	httpClient := httpclient.NewStandardClient()

	content, err := newContentStore(appCtx, cfg, httpClient)
	if err != nil {
		logger.Fatal("Failed to initialize content store", zap.Error(err))
	}
	defer content.close()

	catalogSource, err := newCatalogSource(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize provider catalog source", zap.Error(err))
	}
	providersCache := cache.NewProvidersCache(catalogSource, cache.DefaultProvidersCacheTTL)
	if err := providersCache.Initialize(appCtx); err != nil {
		logger.Fatal("Failed to initialize providers cache", zap.Error(err))
	}
	if err := providersCache.Watch(); err != nil {
		logger.Error("Provider catalog watcher not started", zap.Error(err))
	}
	defer func() {
		if err := providersCache.Close(); err != nil {
			logger.Error("Failed to stop provider catalog watcher", zap.Error(err))
		}
	}()

	revalidator, err := newRevalidator(cfg, httpClient)
	if err != nil {
		logger.Fatal("Failed to initialize revalidator", zap.Error(err))
	}

	if cfg.Sanity.RevalidateSecret == "" {
		logger.Warn("SANITY_REVALIDATE_SECRET not set, every webhook will be rejected")
	}

	// Initialize services
	resolver := services.NewStaleRouteResolver(content.repo)
	webhookService := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{
		Secret:           cfg.Sanity.RevalidateSecret,
		ConsistencyDelay: cfg.Content.ConsistencyDelay,
	})
	discoverService := services.NewDiscoverService(providersCache)

	if content.mirror != nil {
		webhookService.WithMirror(content.mirror)

		syncCtx, cancelSync := context.WithTimeout(appCtx, 2*time.Minute)
		if _, err := content.mirror.SyncAll(syncCtx); err != nil {
			logger.Error("Initial content mirror sync failed, serving the mirror as is", zap.Error(err))
		}
		cancelSync()

		go content.mirror.Run(appCtx, cfg.Content.MirrorSyncInterval)
	}

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	discoverHandler := handlers.NewDiscoverHandler(discoverService)
	healthHandler := handlers.NewHealthHandler(providersCache.IsReady, content.ping)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorReportingMiddleware(cfg.ErrorReporting.HoneybadgerAPIKey, cfg.Server.AppEnv))
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	discoverCORS := cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Accept", "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	})

	// SECURITY: Rate limiters to prevent abuse and DoS attacks
	generalRateLimiter := middleware.NewRateLimiter(appCtx, 100, 200) // 100 req/sec, burst of 200
	webhookRateLimiter := middleware.NewRateLimiter(appCtx, 20, 50)   // CMS bursts on bulk publish
	manualRateLimiter := middleware.NewRateLimiter(appCtx, 0.2, 3)    // 1 req/5s, burst of 3

	bodyLimit := middleware.BodySizeLimitMiddleware(cfg.Server.MaxBodyBytes)

	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	api.GET("/discover", discoverCORS, generalRateLimiter.Middleware(), discoverHandler.Discover)
	api.OPTIONS("/discover", discoverCORS)
	api.POST("/revalidate", webhookRateLimiter.Middleware(), bodyLimit, webhookHandler.HandleContentWebhook)

	v1 := router.Group("/api/v1")
	v1.POST("/revalidate", webhookRateLimiter.Middleware(), bodyLimit, webhookHandler.HandleContentWebhook)
	v1.POST("/revalidate/manual",
		manualRateLimiter.Middleware(),
		middleware.RevalidateTokenMiddleware(cfg.Auth.RevalidateSecret),
		bodyLimit,
		webhookHandler.RevalidateManual)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Webhook handling includes the consistency delay and the revalidation fan-out
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // SECURITY: 1 MB max header size
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopApp()

	logger.Info("Server exited")
}
