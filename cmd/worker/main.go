package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/jobs"
	"github.com/dvloznov/mpesa-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

// The worker backfills many payloads concurrently. Every argument is a
// local file, a directory of files, or a gs:// URI; each becomes one
// ingest job with retries.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := app.Logger(cfg, "worker")

	owner := flag.String("owner", cfg.Ingest.DefaultOwner, "Owner the transactions belong to")
	format := flag.String("format", "auto", "Payload format: message, tabular, document or auto")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal().Msg("Usage: worker [-owner id] [-format f] <file|dir|gs://uri>...")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer svc.Close()

	sources, err := expand(flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list sources")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(sources), jobStore,
		inmemory.WithWorkers(cfg.Worker.Concurrency),
		inmemory.WithMaxRetries(cfg.Worker.MaxRetries),
	)

	var fetcher jobs.PayloadFetcher
	if svc.Archive != nil {
		fetcher = svc.Archive
	}
	if err := jobQueue.Start(ctx, jobs.NewIngestHandler(svc.Ingester, fetcher)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("sources", len(sources)).Int("workers", cfg.Worker.Concurrency).Msg("Worker started")

	for _, src := range sources {
		job := &jobs.IngestJob{OwnerID: *owner, Format: domain.ParseFormat(*format), FileName: filepath.Base(src)}
		if strings.HasPrefix(src, "gs://") {
			job.SourceURI = src
		} else {
			payload, err := os.ReadFile(src)
			if err != nil {
				log.Error().Err(err).Str("source", src).Msg("Skipping unreadable file")
				continue
			}
			job.Payload = payload
		}
		if err := jobQueue.PublishIngest(ctx, job); err != nil {
			log.Fatal().Err(err).Str("source", src).Msg("Failed to enqueue job")
		}
	}

	result := waitForJobs(ctx, jobStore)

	log.Info().Msg("Shutting down worker service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	fmt.Printf("completed=%d failed=%d created=%d duplicates=%d\n",
		result.completed, result.failed, result.created, result.duplicates)
	if result.failed > 0 {
		os.Exit(1)
	}
}

type summary struct {
	completed, failed   int
	created, duplicates int
}

// waitForJobs polls the job store until every job has finished or ctx ends.
func waitForJobs(ctx context.Context, store jobs.JobStore) summary {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		list, err := store.ListJobs(ctx, jobs.JobFilter{})
		if err == nil {
			var s summary
			pending := 0
			for _, job := range list {
				switch job.Status {
				case jobs.JobStatusCompleted:
					s.completed++
				case jobs.JobStatusFailed:
					s.failed++
				default:
					pending++
				}
				if job.Report != nil {
					s.created += job.Report.Created
					s.duplicates += job.Report.Duplicates
				}
			}
			if pending == 0 {
				return s
			}
		}

		select {
		case <-ctx.Done():
			return summary{}
		case <-ticker.C:
		}
	}
}

// expand replaces directories with the regular files they contain.
func expand(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "gs://") {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
	}
	return out, nil
}
