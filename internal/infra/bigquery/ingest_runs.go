package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
)

// maxErrorMessageLen bounds error_message in ingest_runs.
const maxErrorMessageLen = 2000

// IngestRunRow mirrors one row of the ingest_runs table.
type IngestRunRow struct {
	RunID   string `bigquery:"run_id"`   // REQUIRED
	OwnerID string `bigquery:"owner_id"` // REQUIRED
	Format  string `bigquery:"format"`

	StartedTS  time.Time `bigquery:"started_ts"`  // REQUIRED
	FinishedTS time.Time `bigquery:"finished_ts"` // REQUIRED

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	Created    int64 `bigquery:"created"`
	Duplicates int64 `bigquery:"duplicates"`
	Attempted  int64 `bigquery:"attempted"`
	Skipped    int64 `bigquery:"skipped"`
}

func toRunRow(run pipeline.Run) *IngestRunRow {
	msg := run.Error
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return &IngestRunRow{
		RunID:        run.RunID,
		OwnerID:      run.OwnerID,
		Format:       string(run.Format),
		StartedTS:    run.StartedAt,
		FinishedTS:   run.FinishedAt,
		Status:       run.Status,
		ErrorMessage: msg,
		Created:      int64(run.Report.Created),
		Duplicates:   int64(run.Report.Duplicates),
		Attempted:    int64(run.Report.TotalAttempted),
		Skipped:      int64(run.Report.Skipped),
	}
}

// RecordRun implements pipeline.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, run pipeline.Run) error {
	row := toRunRow(run)

	q := s.client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id, owner_id, format, started_ts, finished_ts, status,
			error_message, created, duplicates, attempted, skipped
		)
		VALUES (
			@run_id, @owner_id, @format, @started_ts, @finished_ts, @status,
			@error_message, @created, @duplicates, @attempted, @skipped
		)
	`, s.table(ingestRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "format", Value: row.Format},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "finished_ts", Value: row.FinishedTS},
		{Name: "status", Value: row.Status},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "created", Value: row.Created},
		{Name: "duplicates", Value: row.Duplicates},
		{Name: "attempted", Value: row.Attempted},
		{Name: "skipped", Value: row.Skipped},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("RecordRun: %w", err)
	}
	return nil
}

var _ pipeline.RunRecorder = (*Store)(nil)
