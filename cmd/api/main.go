package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/api"
	"github.com/dvloznov/mpesa-ledger/internal/api/handlers"
	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/jobs"
	"github.com/dvloznov/mpesa-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	addr := flag.String("addr", cfg.HTTP.Addr, "HTTP listen address (or set HTTP_ADDR env)")
	migrate := flag.Bool("migrate", false, "Create store tables before serving")
	flag.Parse()

	log := app.Logger(cfg, "api")
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := logger.WithContext(context.Background(), log)
	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer svc.Close()

	if *migrate {
		if err := svc.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate store")
		}
	}

	// Async uploads run on an in-process queue.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, jobStore,
		inmemory.WithWorkers(cfg.Worker.Concurrency),
		inmemory.WithMaxRetries(cfg.Worker.MaxRetries),
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var fetcher jobs.PayloadFetcher
	if svc.Archive != nil {
		fetcher = svc.Archive
	}
	if err := jobQueue.Start(workerCtx, jobs.NewIngestHandler(svc.Ingester, fetcher)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := api.NewRouter(log, api.Deps{
		Ingester:   svc.Ingester,
		Store:      svc.Store,
		Classifier: svc.Classifier,
		Engine:     svc.Engine,
		Publisher:  jobQueue,
		Jobs:       jobStore,
		Archive:    svc.Archiver(),
		Cache:      svc.ReportCache(),
	}, api.Config{
		APIToken:       cfg.HTTP.APIToken,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Transactions: handlers.TransactionsConfig{
			DefaultOwner:   cfg.Ingest.DefaultOwner,
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
			ArchiveRaw:     cfg.Ingest.ArchiveRaw,
			Location:       cfg.Location,
		},
	})

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("store", cfg.Store.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight jobs before the store closes.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
