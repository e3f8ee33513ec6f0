// Package config loads service settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Notion   NotionConfig
	Ingest   IngestConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
	Location *time.Location
}

// HTTPConfig governs the API server.
type HTTPConfig struct {
	Addr            string
	APIToken        string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// StoreConfig selects and configures the transaction store.
type StoreConfig struct {
	Backend          string
	PostgresURL      string
	BigQueryProject  string
	BigQueryDataset  string
	BigQueryLocation string
}

// CacheConfig configures the redis report cache. An empty Addr disables it.
type CacheConfig struct {
	Addr string
	TTL  time.Duration
}

// StorageConfig configures the raw payload archive.
type StorageConfig struct {
	Bucket string
}

// NotionConfig configures the Notion export.
type NotionConfig struct {
	Token      string
	DatabaseID string
}

// IngestConfig controls payload handling.
type IngestConfig struct {
	DefaultFormat string
	DefaultOwner  string
	// ArchiveRaw stores uploaded payloads in the bucket before ingesting.
	ArchiveRaw bool
}

// WorkerConfig controls the async job queue.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
	MaxRetries  int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // console|json
}

const (
	defaultAddr            = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultMaxUploadBytes  = 10 << 20
	defaultCacheTTL        = 5 * time.Minute
	defaultTimeZone        = "Africa/Nairobi"
	defaultWorkers         = 5
	defaultQueueSize       = 100
	defaultMaxRetries      = 3
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:           valueOrDefault("HTTP_ADDR", defaultAddr),
			APIToken:       os.Getenv("API_TOKEN"),
			AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
			MaxUploadBytes: int64(parseIntWithDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		},
		Store: StoreConfig{
			Backend:          strings.ToLower(valueOrDefault("STORE_BACKEND", BackendMemory)),
			PostgresURL:      os.Getenv("DATABASE_URL"),
			BigQueryProject:  os.Getenv("BQ_PROJECT"),
			BigQueryDataset:  valueOrDefault("BQ_DATASET", "mpesa_ledger"),
			BigQueryLocation: valueOrDefault("BQ_LOCATION", "US"),
		},
		Cache: CacheConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Storage: StorageConfig{
			Bucket: os.Getenv("GCS_BUCKET"),
		},
		Notion: NotionConfig{
			Token:      os.Getenv("NOTION_TOKEN"),
			DatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		},
		Ingest: IngestConfig{
			DefaultFormat: valueOrDefault("DEFAULT_FORMAT", "tabular"),
			DefaultOwner:  valueOrDefault("DEFAULT_OWNER", "default"),
			ArchiveRaw:    parseBoolWithDefault("ARCHIVE_RAW", true),
		},
		Worker: WorkerConfig{
			Concurrency: parseIntWithDefault("WORKER_CONCURRENCY", defaultWorkers),
			QueueSize:   parseIntWithDefault("WORKER_QUEUE_SIZE", defaultQueueSize),
			MaxRetries:  parseIntWithDefault("WORKER_MAX_RETRIES", defaultMaxRetries),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", "info"),
			Format: valueOrDefault("LOG_FORMAT", "console"),
		},
	}

	var err error
	if cfg.HTTP.ReadTimeout, err = parseDurationWithDefault("HTTP_READ_TIMEOUT", defaultReadTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.WriteTimeout, err = parseDurationWithDefault("HTTP_WRITE_TIMEOUT", defaultWriteTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.ShutdownTimeout, err = parseDurationWithDefault("HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Cache.TTL, err = parseDurationWithDefault("CACHE_TTL", defaultCacheTTL); err != nil {
		return Config{}, err
	}

	tz := valueOrDefault("TIME_ZONE", defaultTimeZone)
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid TIME_ZONE %q: %w", tz, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case BackendBigQuery:
		if c.Store.BigQueryProject == "" {
			return fmt.Errorf("BQ_PROJECT is required for the bigquery store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
