package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/google/uuid"
)

// Store is an in-memory transaction store, safe for concurrent use.
// Data is lost on restart; use the postgres or bigquery store to persist.
type Store struct {
	mu     sync.RWMutex
	owners map[string]map[string]*domain.Transaction
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		owners: make(map[string]map[string]*domain.Transaction),
		now:    time.Now,
	}
}

// InsertIfAbsent implements store.Writer.
func (s *Store) InsertIfAbsent(ctx context.Context, tx domain.Transaction) (bool, error) {
	if tx.ExternalCode == "" {
		return false, fmt.Errorf("InsertIfAbsent: external code is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byCode, ok := s.owners[tx.OwnerID]
	if !ok {
		byCode = make(map[string]*domain.Transaction)
		s.owners[tx.OwnerID] = byCode
	}
	if _, exists := byCode[tx.ExternalCode]; exists {
		return false, nil
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	byCode[tx.ExternalCode] = &tx
	return true, nil
}

// UpdateCategory implements store.Writer.
func (s *Store) UpdateCategory(ctx context.Context, ownerID, externalCode, category, subCategory string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.owners[ownerID][externalCode]
	if !ok {
		return fmt.Errorf("UpdateCategory: %s: %w", externalCode, store.ErrNotFound)
	}
	tx.Category = category
	tx.SubCategory = subCategory
	tx.Confidence = confidence
	return nil
}

// Get implements store.Reader.
func (s *Store) Get(ctx context.Context, ownerID, externalCode string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.owners[ownerID][externalCode]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("Get: %s: %w", externalCode, store.ErrNotFound)
	}
	return *tx, nil
}

// QueryByOwnerAndWindow implements store.Reader.
func (s *Store) QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error) {
	out := s.collect(store.Filter{OwnerID: ownerID, Start: start, End: end})
	sort.Slice(out, func(i, j int) bool { return oldestFirst(out[i], out[j]) })
	return out, nil
}

// QueryByFilter implements store.Reader.
func (s *Store) QueryByFilter(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	out := s.collect(f)
	sort.Slice(out, func(i, j int) bool { return oldestFirst(out[j], out[i]) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// collect returns copies of every transaction matching f.
func (s *Store) collect(f store.Filter) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Transaction{}
	for owner, byCode := range s.owners {
		if f.OwnerID != "" && owner != f.OwnerID {
			continue
		}
		for _, tx := range byCode {
			if f.Matches(*tx) {
				out = append(out, *tx)
			}
		}
	}
	return out
}

func oldestFirst(a, b domain.Transaction) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.Before(b.OccurredAt)
	}
	return a.ExternalCode < b.ExternalCode
}

var _ store.Store = (*Store)(nil)
