// Package store defines the durable transaction store the ingestion and
// analytics code depend on. Implementations live in store/inmemory,
// infra/postgres and infra/bigquery.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

var (
	// ErrDuplicate is returned when (owner, external code) already exists.
	ErrDuplicate = errors.New("store: duplicate external code")
	// ErrNotFound is returned when a transaction does not exist.
	ErrNotFound = errors.New("store: transaction not found")
	// ErrUnavailable wraps connectivity failures that prevent any write.
	ErrUnavailable = errors.New("store: unavailable")
)

// Filter selects transactions for QueryByFilter. Zero values mean "any".
// Start and End are inclusive.
type Filter struct {
	OwnerID           string
	Category          string
	Direction         domain.Direction
	Start             time.Time
	End               time.Time
	UncategorizedOnly bool
	Limit             int
	Offset            int
}

// Matches reports whether tx satisfies f. It is shared by implementations
// that filter in process.
func (f Filter) Matches(tx domain.Transaction) bool {
	if f.OwnerID != "" && tx.OwnerID != f.OwnerID {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Direction != "" && tx.Direction != f.Direction {
		return false
	}
	if f.UncategorizedOnly && tx.Categorized() {
		return false
	}
	if !f.Start.IsZero() && tx.OccurredAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && tx.OccurredAt.After(f.End) {
		return false
	}
	return true
}

// Reader is the query side used by analytics.
type Reader interface {
	// QueryByOwnerAndWindow returns the owner's transactions with
	// start <= occurredAt <= end, oldest first.
	QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error)

	// QueryByFilter returns transactions matching f, newest first.
	QueryByFilter(ctx context.Context, f Filter) ([]domain.Transaction, error)

	// Get returns one transaction by owner and external code.
	Get(ctx context.Context, ownerID, externalCode string) (domain.Transaction, error)
}

// Writer is the mutation side used by ingestion and manual corrections.
type Writer interface {
	// InsertIfAbsent stores tx unless (tx.OwnerID, tx.ExternalCode) exists.
	// It returns created=false, or ErrDuplicate, for an existing code.
	InsertIfAbsent(ctx context.Context, tx domain.Transaction) (bool, error)

	// UpdateCategory overwrites the category fields of one transaction.
	UpdateCategory(ctx context.Context, ownerID, externalCode, category, subCategory string, confidence float64) error
}

// Store is the full durable store.
type Store interface {
	Reader
	Writer
	Close() error
}
