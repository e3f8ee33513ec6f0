// Package app wires configuration into the store, cache, archive and
// ingestion services shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/mpesa-ledger/internal/analytics"
	"github.com/dvloznov/mpesa-ledger/internal/api"
	"github.com/dvloznov/mpesa-ledger/internal/api/handlers"
	"github.com/dvloznov/mpesa-ledger/internal/categorize"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/extract"
	"github.com/dvloznov/mpesa-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/mpesa-ledger/internal/infra/bigquery"
	"github.com/dvloznov/mpesa-ledger/internal/infra/postgres"
	"github.com/dvloznov/mpesa-ledger/internal/infra/rediscache"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/dvloznov/mpesa-ledger/internal/store/inmemory"
	"github.com/rs/zerolog"
)

// App holds the long-lived services built from Config. Cache and Archive
// are nil when not configured.
type App struct {
	Config     config.Config
	Log        zerolog.Logger
	Store      store.Store
	Runs       pipeline.RunRecorder
	Cache      *rediscache.Cache
	Archive    *gcsuploader.Archive
	Classifier *categorize.Categorizer
	Ingester   *pipeline.Ingester
	Engine     *analytics.Engine

	postgres *postgres.Store
	bigquery *infraBQ.Store
}

// Logger builds the process logger from the logging section of cfg.
func Logger(cfg config.Config, service string) zerolog.Logger {
	return logger.NewWithConfig(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  logger.Format(cfg.Logging.Format),
		Service: service,
	})
}

// New opens every configured backend. Optional services that fail to
// connect are logged and left nil; a store failure is fatal.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Classifier: categorize.New()}
	ctx = logger.WithContext(ctx, log)

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	if cfg.Cache.Addr != "" {
		cache, err := rediscache.New(ctx, cfg.Cache.Addr, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.Addr).Msg("Report cache disabled")
		} else {
			a.Cache = cache
		}
	}

	if cfg.Storage.Bucket != "" {
		archive, err := gcsuploader.NewArchive(ctx, cfg.Storage.Bucket)
		if err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Payload archive disabled")
		} else {
			a.Archive = archive
		}
	} else {
		log.Warn().Msg("No GCS bucket configured - raw payloads will not be archived")
	}

	opts := []pipeline.Option{
		pipeline.WithExtractOptions(extract.WithLocation(cfg.Location)),
		pipeline.WithDefaultFormat(domain.ParseFormat(cfg.Ingest.DefaultFormat)),
	}
	if a.Cache != nil {
		opts = append(opts, pipeline.WithCacheInvalidator(a.Cache))
	}
	if a.Runs != nil {
		opts = append(opts, pipeline.WithRunRecorder(a.Runs))
	}
	a.Ingester = pipeline.NewIngester(a.Store, a.Classifier, opts...)
	a.Engine = analytics.NewEngine(a.Store, analytics.WithLocation(cfg.Location))
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store
	switch cfg.Backend {
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("opening postgres store: %w", err)
		}
		a.Store, a.Runs, a.postgres = s, s, s
	case config.BackendBigQuery:
		s, err := infraBQ.NewStore(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return fmt.Errorf("opening bigquery store: %w", err)
		}
		a.Store, a.Runs, a.bigquery = s, s, s
	default:
		a.Store = inmemory.NewStore()
	}
	a.Log.Info().Str("backend", cfg.Backend).Msg("Transaction store ready")
	return nil
}

// Migrate creates the tables of the configured store. The memory store
// needs none.
func (a *App) Migrate(ctx context.Context) error {
	switch {
	case a.postgres != nil:
		return a.postgres.Migrate(ctx)
	case a.bigquery != nil:
		return a.bigquery.EnsureSchema(ctx, a.Config.Store.BigQueryLocation)
	default:
		return nil
	}
}

// ReportCache returns the cache as an interface, or nil when disabled.
func (a *App) ReportCache() api.ReportCache {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}

// Archiver returns the archive as an interface, or nil when disabled.
func (a *App) Archiver() handlers.Archiver {
	if a.Archive == nil {
		return nil
	}
	return a.Archive
}

// Close releases every opened backend.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Archive != nil {
		errs = append(errs, a.Archive.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
