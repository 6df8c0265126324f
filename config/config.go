package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Content sources
const (
	ContentSourceSanity   = "sanity"
	ContentSourcePostgres = "postgres"
	ContentSourceMemory   = "memory"
)

// Provider catalog sources
const (
	CatalogSourceFile = "file"
	CatalogSourceS3   = "s3"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server         ServerConfig
	Sanity         SanityConfig
	Content        ContentConfig
	Database       DatabaseConfig
	NextJS         NextJSConfig
	Auth           AuthConfig
	Catalog        CatalogConfig
	Logging        LoggingConfig
	Observability  ObservabilityConfig
	Profiling      ProfilingConfig
	ErrorReporting ErrorReportingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	BaseURL        string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// SanityConfig holds content store connection parameters and the webhook secret.
type SanityConfig struct {
	ProjectID        string
	Dataset          string
	APIVersion       string
	ReadToken        string
	UseCDN           bool
	RevalidateSecret string
}

type ContentConfig struct {
	Source           string
	ConsistencyDelay time.Duration

	// MirrorSyncInterval is the period of full Postgres mirror syncs. Zero
	// leaves the mirror to webhook-driven updates only.
	MirrorSyncInterval time.Duration
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	CACertFile     string
	MigrationsPath string
}

type NextJSConfig struct {
	BaseURL          string
	RevalidatePath   string
	RevalidateSecret string
}

type AuthConfig struct {
	RevalidateSecret string // token for the manual revalidation endpoint
}

type CatalogConfig struct {
	Source             string
	File               string
	SampleFile         string
	UseSampleProviders bool
	S3Bucket           string
	S3Key              string
	S3Endpoint         string
	S3Region           string
	S3AccessKeyID      string
	S3SecretAccessKey  string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

type ErrorReportingConfig struct {
	HoneybadgerAPIKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("BASE_URL", "https://solovoro.ca")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://solovoro.ca,https://www.solovoro.ca")
	v.SetDefault("MAX_BODY_BYTES", 1024*1024)
	v.SetDefault("SANITY_DATASET", "production")
	v.SetDefault("SANITY_API_VERSION", "2023-06-21")
	v.SetDefault("SANITY_USE_CDN", false)
	v.SetDefault("CONTENT_SOURCE", ContentSourceSanity)
	v.SetDefault("CONSISTENCY_DELAY_MS", 1000)
	v.SetDefault("MIRROR_SYNC_INTERVAL", "15m")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_CA_CERT_FILE", "certs/db-ca.crt")
	v.SetDefault("DB_MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("NEXTJS_REVALIDATE_PATH", "/api/revalidate-path")
	v.SetDefault("PROVIDERS_SOURCE", CatalogSourceFile)
	v.SetDefault("PROVIDERS_FILE", "providers.json")
	v.SetDefault("PROVIDERS_SAMPLE_FILE", "providers.sample.json")
	v.SetDefault("USE_SAMPLE_PROVIDERS", false)
	v.SetDefault("PROVIDERS_S3_KEY", "providers.json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "/app/logs")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "solovoro-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "solovoro")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "solovoro-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			BaseURL:        v.GetString("BASE_URL"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
			MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		},
		Sanity: SanityConfig{
			ProjectID:        v.GetString("SANITY_PROJECT_ID"),
			Dataset:          v.GetString("SANITY_DATASET"),
			APIVersion:       v.GetString("SANITY_API_VERSION"),
			ReadToken:        v.GetString("SANITY_API_READ_TOKEN"),
			UseCDN:           v.GetBool("SANITY_USE_CDN"),
			RevalidateSecret: strings.TrimSpace(v.GetString("SANITY_REVALIDATE_SECRET")),
		},
		Content: ContentConfig{
			Source:             strings.ToLower(v.GetString("CONTENT_SOURCE")),
			ConsistencyDelay:   time.Duration(v.GetInt("CONSISTENCY_DELAY_MS")) * time.Millisecond,
			MirrorSyncInterval: v.GetDuration("MIRROR_SYNC_INTERVAL"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("DATABASE_URL"),
			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			MinConns:       v.GetInt32("DB_MIN_CONNS"),
			CACertFile:     v.GetString("DB_CA_CERT_FILE"),
			MigrationsPath: v.GetString("DB_MIGRATIONS_PATH"),
		},
		NextJS: NextJSConfig{
			BaseURL:          strings.TrimRight(v.GetString("NEXTJS_BASE_URL"), "/"),
			RevalidatePath:   v.GetString("NEXTJS_REVALIDATE_PATH"),
			RevalidateSecret: v.GetString("NEXTJS_REVALIDATE_SECRET"),
		},
		Auth: AuthConfig{
			RevalidateSecret: v.GetString("REVALIDATE_SECRET_TOKEN"),
		},
		Catalog: CatalogConfig{
			Source:             strings.ToLower(v.GetString("PROVIDERS_SOURCE")),
			File:               v.GetString("PROVIDERS_FILE"),
			SampleFile:         v.GetString("PROVIDERS_SAMPLE_FILE"),
			UseSampleProviders: v.GetBool("USE_SAMPLE_PROVIDERS"),
			S3Bucket:           v.GetString("PROVIDERS_S3_BUCKET"),
			S3Key:              v.GetString("PROVIDERS_S3_KEY"),
			S3Endpoint:         v.GetString("PROVIDERS_S3_ENDPOINT"),
			S3Region:           v.GetString("PROVIDERS_S3_REGION"),
			S3AccessKeyID:      v.GetString("PROVIDERS_S3_ACCESS_KEY_ID"),
			S3SecretAccessKey:  v.GetString("PROVIDERS_S3_SECRET_ACCESS_KEY"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
		ErrorReporting: ErrorReportingConfig{
			HoneybadgerAPIKey: v.GetString("HONEYBADGER_API_KEY"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	// Server configuration
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.Content.ConsistencyDelay < 0 {
		return fmt.Errorf("CONSISTENCY_DELAY_MS must not be negative")
	}

	// Content store. The Postgres mirror is kept in sync from Sanity, so
	// both sources need the dataset settings.
	switch c.Content.Source {
	case ContentSourceSanity, ContentSourcePostgres:
		if c.Sanity.ProjectID == "" {
			return fmt.Errorf("SANITY_PROJECT_ID is required when CONTENT_SOURCE=%s", c.Content.Source)
		}
		if c.Sanity.Dataset == "" {
			return fmt.Errorf("SANITY_DATASET is required")
		}
		if c.Sanity.APIVersion == "" {
			return fmt.Errorf("SANITY_API_VERSION is required")
		}
		if c.Content.Source == ContentSourcePostgres {
			if c.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required when CONTENT_SOURCE=postgres")
			}
			if c.Content.MirrorSyncInterval < 0 {
				return fmt.Errorf("MIRROR_SYNC_INTERVAL must not be negative")
			}
		}
	case ContentSourceMemory:
		if c.IsProduction() {
			return fmt.Errorf("CONTENT_SOURCE=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported CONTENT_SOURCE %q", c.Content.Source)
	}

	// Provider catalog
	switch c.Catalog.Source {
	case CatalogSourceFile:
		if c.Catalog.File == "" {
			return fmt.Errorf("PROVIDERS_FILE is required when PROVIDERS_SOURCE=file")
		}
	case CatalogSourceS3:
		if c.Catalog.S3Bucket == "" || c.Catalog.S3Key == "" {
			return fmt.Errorf("PROVIDERS_S3_BUCKET and PROVIDERS_S3_KEY are required when PROVIDERS_SOURCE=s3")
		}
	default:
		return fmt.Errorf("unsupported PROVIDERS_SOURCE %q", c.Catalog.Source)
	}

	if c.NextJS.BaseURL != "" && c.NextJS.RevalidateSecret == "" {
		return fmt.Errorf("NEXTJS_REVALIDATE_SECRET is required when NEXTJS_BASE_URL is set")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// ProvidersFile returns the catalog file to serve. The sample file is only
// honored outside production.
func (c *Config) ProvidersFile() string {
	if c.Catalog.UseSampleProviders && !c.IsProduction() {
		return c.Catalog.SampleFile
	}
	return c.Catalog.File
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
