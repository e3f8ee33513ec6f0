package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/mpesa-ledger/internal/categorize"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
)

// MockWriter is a mock implementation of TransactionWriter for testing.
type MockWriter struct {
	InsertIfAbsentFunc func(ctx context.Context, tx domain.Transaction) (bool, error)
	calls              int
}

func (m *MockWriter) InsertIfAbsent(ctx context.Context, tx domain.Transaction) (bool, error) {
	m.calls++
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, tx)
	}
	return true, nil
}

// MockClassifier is a mock implementation of Classifier for testing.
type MockClassifier struct {
	CategorizeFunc func(description string, direction domain.Direction) categorize.Result
}

func (m *MockClassifier) Categorize(description string, direction domain.Direction) categorize.Result {
	if m.CategorizeFunc != nil {
		return m.CategorizeFunc(description, direction)
	}
	return categorize.Result{Category: "Other", Confidence: 0.5}
}

// MockCache is a mock implementation of CacheInvalidator for testing.
type MockCache struct {
	InvalidateOwnerFunc func(ctx context.Context, ownerID string) error
	owners              []string
}

func (m *MockCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	m.owners = append(m.owners, ownerID)
	if m.InvalidateOwnerFunc != nil {
		return m.InvalidateOwnerFunc(ctx, ownerID)
	}
	return nil
}

const twoMessages = `QGH7K2L9MN Confirmed. You have received Ksh2,500.00 from JOHN DOE 0712345678 on 1/15/24 at 3:45 PM. New M-PESA balance is Ksh10,000.00.

QGH7K2L9MS Confirmed. Ksh450.00 paid to JAVA HOUSE. on 6/3/24 at 1:15 PM.New M-PESA balance is Ksh1,550.00.`

func TestPersistStep(t *testing.T) {
	ctx := context.Background()
	txs := func() []domain.Transaction {
		return []domain.Transaction{
			{ExternalCode: "A000000001", OccurredAt: fixedNow, Direction: domain.DirectionPaidPerson},
			{ExternalCode: "A000000002", OccurredAt: fixedNow, Direction: domain.DirectionPaidPerson},
			{ExternalCode: "A000000003", OccurredAt: fixedNow, Direction: domain.DirectionPaidPerson},
		}
	}

	tests := []struct {
		name           string
		insert         func(ctx context.Context, tx domain.Transaction) (bool, error)
		wantErr        bool
		wantCreated    int
		wantDuplicates int
		wantErrors     int
	}{
		{
			name:        "all created",
			insert:      func(ctx context.Context, tx domain.Transaction) (bool, error) { return true, nil },
			wantCreated: 3,
		},
		{
			name: "duplicates by flag and by error",
			insert: func(ctx context.Context, tx domain.Transaction) (bool, error) {
				switch tx.ExternalCode {
				case "A000000001":
					return false, nil
				case "A000000002":
					return false, fmt.Errorf("insert: %w", store.ErrDuplicate)
				}
				return true, nil
			},
			wantCreated:    1,
			wantDuplicates: 2,
		},
		{
			name: "one failure is reported, not fatal",
			insert: func(ctx context.Context, tx domain.Transaction) (bool, error) {
				if tx.ExternalCode == "A000000002" {
					return false, fmt.Errorf("insert: %w", store.ErrUnavailable)
				}
				return true, nil
			},
			wantCreated: 2,
			wantErrors:  1,
		},
		{
			name: "store unavailable for every write",
			insert: func(ctx context.Context, tx domain.Transaction) (bool, error) {
				return false, fmt.Errorf("insert: %w", store.ErrUnavailable)
			},
			wantErr:    true,
			wantErrors: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &pipeline.PipelineState{Transactions: txs()}
			step := &pipeline.PersistStep{Writer: &MockWriter{InsertIfAbsentFunc: tt.insert}}

			err := step.Execute(ctx, state)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, store.ErrUnavailable) {
				t.Errorf("error %v should wrap ErrUnavailable", err)
			}
			r := state.Report
			if r.Created != tt.wantCreated || r.Duplicates != tt.wantDuplicates || r.TotalAttempted != 3 {
				t.Errorf("report = %+v, want created=%d duplicates=%d attempted=3", r, tt.wantCreated, tt.wantDuplicates)
			}
			if len(r.Errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", r.Errors, tt.wantErrors)
			}
		})
	}
}

func TestPersistStep_SkipsInvalidRecords(t *testing.T) {
	writer := &MockWriter{}
	state := &pipeline.PipelineState{Transactions: []domain.Transaction{
		{ExternalCode: "", OccurredAt: fixedNow},
		{ExternalCode: "A000000001", OccurredAt: fixedNow},
	}}

	if err := (&pipeline.PersistStep{Writer: writer}).Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if writer.calls != 1 {
		t.Errorf("writer called %d times, want 1", writer.calls)
	}
	if state.Report.TotalAttempted != 1 || len(state.Report.Errors) != 1 {
		t.Errorf("report = %+v", state.Report)
	}
}

func TestCategorizeStep_KeepsExistingCategory(t *testing.T) {
	var seen []string
	classifier := &MockClassifier{
		CategorizeFunc: func(description string, direction domain.Direction) categorize.Result {
			seen = append(seen, description)
			return categorize.Result{Category: "Food", Confidence: 0.7}
		},
	}
	state := &pipeline.PipelineState{Transactions: []domain.Transaction{
		{ExternalCode: "A", RawDescription: "lunch"},
		{ExternalCode: "B", RawDescription: "fare", Category: "Transport", Confidence: 1},
	}}

	if err := (&pipeline.CategorizeStep{Classifier: classifier}).Execute(context.Background(), state); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "lunch" {
		t.Errorf("classifier saw %v, want [lunch]", seen)
	}
	if state.Transactions[0].Category != "Food" || state.Transactions[1].Category != "Transport" {
		t.Errorf("categories = %q, %q", state.Transactions[0].Category, state.Transactions[1].Category)
	}
}

func TestExtractStep_UnknownFormat(t *testing.T) {
	state := &pipeline.PipelineState{Format: domain.Format("xml")}
	step := &pipeline.ExtractStep{}
	if err := step.Execute(context.Background(), state); err == nil {
		t.Error("expected error for unregistered format")
	}
}

func TestPipeline_StopsAtFirstError(t *testing.T) {
	writer := &MockWriter{
		InsertIfAbsentFunc: func(ctx context.Context, tx domain.Transaction) (bool, error) {
			return false, store.ErrUnavailable
		},
	}
	cache := &MockCache{}
	ing := pipeline.NewIngester(writer, &MockClassifier{}, pipeline.WithCacheInvalidator(cache))

	report, err := ing.Ingest(context.Background(), "alice", []byte(twoMessages), domain.FormatAuto)
	if err == nil {
		t.Fatal("expected error when the store is down")
	}
	if report.TotalAttempted != 2 {
		t.Errorf("TotalAttempted = %d, want 2", report.TotalAttempted)
	}
	if len(cache.owners) != 0 {
		t.Errorf("cache should not be invalidated after a failed batch, got %v", cache.owners)
	}
}
