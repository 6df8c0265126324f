package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gocache "github.com/patrickmn/go-cache"
	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	providersCacheKey  = "providers"
	providersCacheName = "providers"

	// DefaultProvidersCacheTTL bounds how stale an object-store catalog can get.
	// File catalogs are also reloaded by the watcher as soon as they change.
	DefaultProvidersCacheTTL = time.Hour

	watchDebounce = 200 * time.Millisecond
)

// ProvidersCache manages the in-memory copy of the provider catalog
type ProvidersCache struct {
	cache  *gocache.Cache
	source repository.ProviderCatalogSource
	ttl    time.Duration

	mu       sync.RWMutex
	ready    bool
	lastGood *models.ProviderCatalog

	refreshMu sync.Mutex

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewProvidersCache creates a new providers cache
func NewProvidersCache(source repository.ProviderCatalogSource, ttl time.Duration) *ProvidersCache {
	if ttl <= 0 {
		ttl = DefaultProvidersCacheTTL
	}
	return &ProvidersCache{
		cache:  gocache.New(ttl, 10*time.Minute),
		source: source,
		ttl:    ttl,
	}
}

// Initialize performs initial cache population (synchronous, blocks until ready)
// Should be called during application startup before accepting requests
func (pc *ProvidersCache) Initialize(ctx context.Context) error {
	logger.Info("Initializing providers cache...", zap.String("source", pc.source.Name()))
	if _, err := pc.Refresh(ctx); err != nil {
		logger.Error("Failed to initialize providers cache", zap.Error(err))
		return err
	}

	pc.mu.Lock()
	pc.ready = true
	pc.mu.Unlock()

	logger.Info("Providers cache initialized successfully")
	return nil
}

// IsReady returns true if the cache has been successfully initialized
func (pc *ProvidersCache) IsReady() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.ready
}

// Get returns the cached catalog, reloading it on a miss. When the reload
// fails the last catalog that loaded successfully is served instead.
func (pc *ProvidersCache) Get(ctx context.Context) (*models.ProviderCatalog, error) {
	if !pc.IsReady() {
		return nil, fmt.Errorf("providers cache not initialized")
	}

	if data, found := pc.cache.Get(providersCacheKey); found {
		if catalog, ok := data.(*models.ProviderCatalog); ok {
			metrics.CacheHits.WithLabelValues(providersCacheName).Inc()
			return catalog, nil
		}
		logger.Error("Invalid providers cache data type")
		pc.cache.Delete(providersCacheKey)
	}

	metrics.CacheMisses.WithLabelValues(providersCacheName).Inc()
	logger.Info("Providers cache miss, reloading catalog", zap.String("source", pc.source.Name()))

	catalog, err := pc.Refresh(ctx)
	if err == nil {
		return catalog, nil
	}

	pc.mu.RLock()
	stale := pc.lastGood
	pc.mu.RUnlock()
	if stale == nil {
		return nil, err
	}
	logger.Warn("Serving stale provider catalog",
		zap.String("source", stale.Source),
		zap.Time("loaded_at", stale.LoadedAt),
		zap.Error(err))
	return stale, nil
}

// Refresh reloads the catalog from its source and replaces the cached copy.
// A failed reload leaves the previous copy in place.
func (pc *ProvidersCache) Refresh(ctx context.Context) (*models.ProviderCatalog, error) {
	pc.refreshMu.Lock()
	defer pc.refreshMu.Unlock()

	catalog, err := pc.source.LoadCatalog(ctx)
	if err != nil {
		logger.Error("Failed to refresh providers cache",
			zap.String("source", pc.source.Name()),
			zap.Error(err))
		return nil, err
	}

	pc.cache.Set(providersCacheKey, catalog, pc.ttl)
	metrics.CacheSize.WithLabelValues(providersCacheName).Set(float64(pc.cache.ItemCount()))

	pc.mu.Lock()
	pc.lastGood = catalog
	pc.mu.Unlock()

	logger.Info("Providers cache refreshed",
		zap.String("source", catalog.Source),
		zap.Int("bytes", len(catalog.Providers)))

	return catalog, nil
}

// Watch reloads a file-backed catalog whenever the file changes on disk.
// It is a no-op for other sources, which rely on the TTL instead.
func (pc *ProvidersCache) Watch() error {
	fileSource, ok := pc.source.(*repository.FileCatalogSource)
	if !ok {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	// Watch the directory: editors and deploy tools replace the file by rename,
	// which drops a watch placed on the file itself.
	path := fileSource.Path()
	dir, base := filepath.Dir(path), filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	pc.watcher = watcher
	pc.done = make(chan struct{})
	pc.wg.Add(1)
	go pc.watchLoop(base)

	logger.Info("Watching provider catalog for changes", zap.String("path", path))
	return nil
}

func (pc *ProvidersCache) watchLoop(base string) {
	defer pc.wg.Done()

	// debounce coalesces write+chmod bursts into a single reload
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-pc.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-pc.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := pc.Refresh(context.Background()); err != nil {
				logger.Warn("Provider catalog changed but could not be reloaded", zap.Error(err))
			}

		case err, ok := <-pc.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Provider catalog watcher error", zap.Error(err))
		}
	}
}

// Close stops the file watcher, if one is running.
func (pc *ProvidersCache) Close() error {
	if pc.watcher == nil {
		return nil
	}
	close(pc.done)
	err := pc.watcher.Close()
	pc.wg.Wait()
	pc.watcher = nil
	return err
}
