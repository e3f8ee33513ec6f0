package pipeline

import (
	"fmt"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	OwnerID      string
	Payload      []byte
	FormatHint   domain.Format
	Format       domain.Format
	Transactions []domain.Transaction
	Report       Report
}

// Report summarises one ingestion batch.
type Report struct {
	Format         domain.Format `json:"format"`
	Created        int           `json:"created"`
	Duplicates     int           `json:"duplicates"`
	TotalAttempted int           `json:"total_attempted"`
	Skipped        int           `json:"skipped"`
	Errors         []string      `json:"errors"`
}

// addError records a per-item error, keeping at most MaxReportedErrors.
func (r *Report) addError(format string, args ...any) {
	if len(r.Errors) >= MaxReportedErrors {
		return
	}
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Run statuses recorded for each ingestion batch.
const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Run is the audit record of one Ingest call.
type Run struct {
	RunID      string
	OwnerID    string
	Format     domain.Format
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Report     Report
}
