package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
)

// MockIngester is a mock implementation of Ingester for testing.
type MockIngester struct {
	IngestFunc func(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error)
}

func (m *MockIngester) Ingest(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error) {
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, ownerID, payload, hint)
	}
	return pipeline.Report{}, nil
}

// MockFetcher is a mock implementation of PayloadFetcher for testing.
type MockFetcher struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockFetcher) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte("mock payload"), nil
}

func TestIngestHandler(t *testing.T) {
	var gotOwner, gotPayload string
	var gotHint domain.Format
	ingester := &MockIngester{
		IngestFunc: func(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error) {
			gotOwner, gotPayload, gotHint = ownerID, string(payload), hint
			return pipeline.Report{Created: 2}, nil
		},
	}
	fetcher := &MockFetcher{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			if gcsURI != "gs://bucket/statement.csv" {
				t.Errorf("fetched %q", gcsURI)
			}
			return []byte("from gcs"), nil
		},
	}
	handler := NewIngestHandler(ingester, fetcher)

	t.Run("inline payload", func(t *testing.T) {
		job := &IngestJob{JobID: "j1", OwnerID: "alice", Format: domain.FormatMessage, Payload: []byte("inline")}
		if err := handler(context.Background(), job); err != nil {
			t.Fatalf("handler() error = %v", err)
		}
		if gotOwner != "alice" || gotPayload != "inline" || gotHint != domain.FormatMessage {
			t.Errorf("Ingest called with %q/%q/%q", gotOwner, gotPayload, gotHint)
		}
		if job.Report == nil || job.Report.Created != 2 {
			t.Errorf("Report = %+v, want Created=2", job.Report)
		}
	})

	t.Run("payload from gcs", func(t *testing.T) {
		job := &IngestJob{JobID: "j2", OwnerID: "bob", SourceURI: "gs://bucket/statement.csv"}
		if err := handler(context.Background(), job); err != nil {
			t.Fatalf("handler() error = %v", err)
		}
		if gotPayload != "from gcs" {
			t.Errorf("payload = %q, want from gcs", gotPayload)
		}
	})
}

func TestIngestHandler_Errors(t *testing.T) {
	storeDown := errors.New("store unavailable")
	fetchFailed := errors.New("object not found")

	tests := []struct {
		name    string
		handler JobHandler
		job     Job
		wantErr error
	}{
		{
			name: "ingest failure",
			handler: NewIngestHandler(&MockIngester{
				IngestFunc: func(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error) {
					return pipeline.Report{TotalAttempted: 1}, storeDown
				},
			}, nil),
			job:     &IngestJob{JobID: "j1", Payload: []byte("x")},
			wantErr: storeDown,
		},
		{
			name: "fetch failure",
			handler: NewIngestHandler(&MockIngester{}, &MockFetcher{
				FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) { return nil, fetchFailed },
			}),
			job:     &IngestJob{JobID: "j2", SourceURI: "gs://b/o"},
			wantErr: fetchFailed,
		},
		{
			name:    "no fetcher",
			handler: NewIngestHandler(&MockIngester{}, nil),
			job:     &IngestJob{JobID: "j3", SourceURI: "gs://b/o"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.handler(context.Background(), tt.job)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
