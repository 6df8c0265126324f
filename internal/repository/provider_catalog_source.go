package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/pkg/objectstore"
)

// FileCatalogSource reads the provider catalog from a local JSON file.
type FileCatalogSource struct {
	path string
}

// NewFileCatalogSource creates a new file-backed catalog source
func NewFileCatalogSource(path string) *FileCatalogSource {
	return &FileCatalogSource{path: path}
}

// Path returns the file being served, for the cache's file watcher.
func (s *FileCatalogSource) Path() string {
	return s.path
}

func (s *FileCatalogSource) Name() string {
	return "file"
}

func (s *FileCatalogSource) LoadCatalog(_ context.Context) (*models.ProviderCatalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog %s: %w", s.path, err)
	}
	return decodeCatalog(data, "file:"+s.path)
}

// ObjectGetter downloads an object. Satisfied by *objectstore.StorageClient.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (*objectstore.Object, error)
}

// S3CatalogSource reads the provider catalog from an object store.
type S3CatalogSource struct {
	store ObjectGetter
	key   string
}

// NewS3CatalogSource creates a new object-store catalog source
func NewS3CatalogSource(store ObjectGetter, key string) *S3CatalogSource {
	return &S3CatalogSource{store: store, key: key}
}

func (s *S3CatalogSource) Name() string {
	return "s3"
}

func (s *S3CatalogSource) LoadCatalog(ctx context.Context) (*models.ProviderCatalog, error) {
	obj, err := s.store.GetObject(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to download provider catalog: %w", err)
	}
	return decodeCatalog(obj.Body, "s3:"+s.key)
}

// decodeCatalog checks the payload is JSON and keeps it verbatim.
func decodeCatalog(data []byte, source string) (*models.ProviderCatalog, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("provider catalog %s is not valid JSON", source)
	}
	return &models.ProviderCatalog{
		Providers: json.RawMessage(data),
		Source:    source,
		LoadedAt:  time.Now().UTC(),
	}, nil
}

var (
	_ ProviderCatalogSource = (*FileCatalogSource)(nil)
	_ ProviderCatalogSource = (*S3CatalogSource)(nil)
)
