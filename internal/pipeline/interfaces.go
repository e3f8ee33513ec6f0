package pipeline

import (
	"context"

	"github.com/dvloznov/mpesa-ledger/internal/categorize"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

// TransactionWriter is the subset of store.Store ingestion needs.
type TransactionWriter interface {
	InsertIfAbsent(ctx context.Context, tx domain.Transaction) (bool, error)
}

// Classifier assigns a category to a description.
// *categorize.Categorizer is the concrete implementation.
type Classifier interface {
	Categorize(description string, direction domain.Direction) categorize.Result
}

// CacheInvalidator drops cached reports for an owner after new records land.
type CacheInvalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// RunRecorder keeps an audit trail of ingestion batches.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}
