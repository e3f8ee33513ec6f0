package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
)

// Ingester is the ingestion entry point a job runs.
type Ingester interface {
	Ingest(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error)
}

// PayloadFetcher downloads a payload referenced by a job.
type PayloadFetcher interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// NewIngestHandler returns a JobHandler that ingests IngestJob payloads.
// fetcher may be nil when jobs always carry their payload inline.
func NewIngestHandler(ingester Ingester, fetcher PayloadFetcher) JobHandler {
	return func(ctx context.Context, job Job) error {
		ingestJob, ok := job.(*IngestJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		ctx = logger.WithContext(ctx, logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
			"job_id":   ingestJob.JobID,
			"owner_id": ingestJob.OwnerID,
		}))
		log := logger.FromContext(ctx)

		payload := ingestJob.Payload
		if len(payload) == 0 && ingestJob.SourceURI != "" {
			if fetcher == nil {
				return fmt.Errorf("job %s: no fetcher configured for %s", ingestJob.JobID, ingestJob.SourceURI)
			}
			var err error
			payload, err = fetcher.FetchFromGCS(ctx, ingestJob.SourceURI)
			if err != nil {
				return fmt.Errorf("job %s: fetching payload: %w", ingestJob.JobID, err)
			}
		}

		log.Info().
			Str("format", string(ingestJob.Format)).
			Str("source_uri", ingestJob.SourceURI).
			Int("bytes", len(payload)).
			Msg("Processing ingest job")

		report, err := ingester.Ingest(ctx, ingestJob.OwnerID, payload, ingestJob.Format)
		ingestJob.Report = &report
		if err != nil {
			return fmt.Errorf("job %s: %w", ingestJob.JobID, err)
		}

		log.Info().
			Int("created", report.Created).
			Int("duplicates", report.Duplicates).
			Msg("Ingest job completed")
		return nil
	}
}
