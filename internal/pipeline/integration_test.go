package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/categorize"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/extract"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/dvloznov/mpesa-ledger/internal/store/inmemory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestIngester(s *inmemory.Store, opts ...pipeline.Option) *pipeline.Ingester {
	opts = append(opts, pipeline.WithExtractOptions(extract.WithClock(func() time.Time { return fixedNow })))
	return pipeline.NewIngester(s, categorize.New(), opts...)
}

func TestIngest_MessagesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := inmemory.NewStore()
	cache := &MockCache{}
	ing := newTestIngester(s, pipeline.WithCacheInvalidator(cache))

	first, err := ing.Ingest(ctx, "alice", []byte(twoMessages), domain.FormatAuto)
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	if first.Format != domain.FormatMessage {
		t.Errorf("Format = %q, want message", first.Format)
	}
	if first.Created != 2 || first.Duplicates != 0 {
		t.Errorf("first report = %+v, want created=2", first)
	}

	second, err := ing.Ingest(ctx, "alice", []byte(twoMessages), domain.FormatAuto)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if second.Created != 0 || second.Duplicates != 2 {
		t.Errorf("second report = %+v, want duplicates=2", second)
	}

	if len(cache.owners) != 1 || cache.owners[0] != "alice" {
		t.Errorf("cache invalidated for %v, want [alice] once", cache.owners)
	}

	got, err := s.Get(ctx, "alice", "QGH7K2L9MN")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Category != categorize.CategoryIncome || got.OwnerID != "alice" {
		t.Errorf("stored = %+v, want Income for alice", got)
	}
	if got.Amount.String() != "2500" {
		t.Errorf("Amount = %s, want 2500", got.Amount)
	}
}

func TestIngest_DefaultOwner(t *testing.T) {
	ctx := context.Background()
	s := inmemory.NewStore()
	ing := newTestIngester(s)

	if _, err := ing.Ingest(ctx, "", []byte(twoMessages), domain.FormatMessage); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, pipeline.DefaultOwnerID, "QGH7K2L9MS"); err != nil {
		t.Errorf("record not stored under default owner: %v", err)
	}
}

func TestIngest_TabularWithBadRows(t *testing.T) {
	ctx := context.Background()
	s := inmemory.NewStore()
	ing := newTestIngester(s)

	payload := "Receipt No,Completion Time,Details,Paid In,Withdrawn\n" +
		"QGH7K2L9MN,15/01/2024 14:30:00,Salary from ACME,50000.00,\n" +
		",16/01/2024 09:00:00,no code here,,100.00\n" +
		"QGH7K2L9MP,17/01/2024 08:15:00,Uber trip,,-350.00\n"

	report, err := ing.Ingest(ctx, "bob", []byte(payload), domain.FormatAuto)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.Format != domain.FormatTabular {
		t.Errorf("Format = %q, want tabular", report.Format)
	}
	if report.Created != 2 || report.Skipped != 1 {
		t.Errorf("report = %+v, want created=2 skipped=1", report)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", report.Errors)
	}

	uber, err := s.Get(ctx, "bob", "QGH7K2L9MP")
	if err != nil {
		t.Fatal(err)
	}
	if uber.Category != "Transport" {
		t.Errorf("Category = %q, want Transport", uber.Category)
	}
}

func TestIngest_DetectedTabularHeadersAreRead(t *testing.T) {
	ctx := context.Background()
	s := inmemory.NewStore()
	ing := newTestIngester(s)

	payload := "receipt no,completion time,details,paid in,withdrawn\n" +
		"QGH7K2L9MN,15/01/2024 14:30:00,Salary from ACME,50000.00,\n"

	report, err := ing.Ingest(ctx, "bob", []byte(payload), domain.FormatAuto)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.Format != domain.FormatTabular {
		t.Errorf("Format = %q, want tabular", report.Format)
	}
	if report.Created != 1 || report.Skipped != 0 {
		t.Errorf("report = %+v, want created=1 skipped=0", report)
	}
}

func TestIngest_EmptyPayload(t *testing.T) {
	ing := newTestIngester(inmemory.NewStore())
	report, err := ing.Ingest(context.Background(), "alice", nil, domain.FormatAuto)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.TotalAttempted != 0 || report.Errors == nil {
		t.Errorf("report = %+v, want empty report with non-nil errors", report)
	}
}

func TestIngest_UnknownHint(t *testing.T) {
	ing := newTestIngester(inmemory.NewStore())
	_, err := ing.Ingest(context.Background(), "alice", []byte("x"), domain.Format("xml"))
	if err == nil || errors.Unwrap(err) == nil {
		t.Errorf("Ingest() error = %v, want wrapped error", err)
	}
}

type MockRunRecorder struct {
	RecordRunFunc func(ctx context.Context, run pipeline.Run) error
	runs          []pipeline.Run
}

func (m *MockRunRecorder) RecordRun(ctx context.Context, run pipeline.Run) error {
	m.runs = append(m.runs, run)
	if m.RecordRunFunc != nil {
		return m.RecordRunFunc(ctx, run)
	}
	return nil
}

func TestIngest_RecordsRuns(t *testing.T) {
	ctx := context.Background()
	recorder := &MockRunRecorder{
		RecordRunFunc: func(ctx context.Context, run pipeline.Run) error {
			return errors.New("audit table missing")
		},
	}
	ing := newTestIngester(inmemory.NewStore(), pipeline.WithRunRecorder(recorder))

	if _, err := ing.Ingest(ctx, "alice", []byte(twoMessages), domain.FormatMessage); err != nil {
		t.Fatalf("Ingest() error = %v, recorder failures must not fail ingestion", err)
	}

	failing := &MockWriter{
		InsertIfAbsentFunc: func(ctx context.Context, tx domain.Transaction) (bool, error) {
			return false, store.ErrUnavailable
		},
	}
	ing = pipeline.NewIngester(failing, categorize.New(),
		pipeline.WithRunRecorder(recorder),
		pipeline.WithExtractOptions(extract.WithClock(func() time.Time { return fixedNow })))
	if _, err := ing.Ingest(ctx, "alice", []byte(twoMessages), domain.FormatMessage); err == nil {
		t.Fatal("expected error when the store is unavailable")
	}

	if len(recorder.runs) != 2 {
		t.Fatalf("recorded %d runs, want 2", len(recorder.runs))
	}
	ok, failed := recorder.runs[0], recorder.runs[1]
	if ok.Status != pipeline.RunStatusSuccess || ok.Report.Created != 2 || ok.OwnerID != "alice" || ok.RunID == "" {
		t.Errorf("first run = %+v", ok)
	}
	if failed.Status != pipeline.RunStatusFailed || failed.Error == "" {
		t.Errorf("second run = %+v, want FAILED with error", failed)
	}
	if ok.RunID == failed.RunID {
		t.Error("run ids should be unique")
	}
}
