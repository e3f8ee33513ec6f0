package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"google.golang.org/api/googleapi"
)

// EnsureSchema creates the dataset and both tables when they are missing.
// Existing tables are left untouched.
func (s *Store) EnsureSchema(ctx context.Context, location string) error {
	log := logger.FromContext(ctx)

	ds := s.client.DatasetInProject(s.projectID, s.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("EnsureSchema: dataset metadata: %w", classify(err))
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
			return fmt.Errorf("EnsureSchema: creating dataset: %w", err)
		}
		log.Info().Str("dataset", s.datasetID).Msg("Created dataset")
	}

	tables := []struct {
		name string
		meta func() (*bigquery.TableMetadata, error)
	}{
		{transactionsTable, transactionsMetadata},
		{ingestRunsTable, ingestRunsMetadata},
	}
	for _, t := range tables {
		table := ds.Table(t.name)
		if _, err := table.Metadata(ctx); err == nil {
			continue
		} else if !isNotFound(err) {
			return fmt.Errorf("EnsureSchema: %s metadata: %w", t.name, classify(err))
		}

		meta, err := t.meta()
		if err != nil {
			return fmt.Errorf("EnsureSchema: %s schema: %w", t.name, err)
		}
		if err := table.Create(ctx, meta); err != nil {
			return fmt.Errorf("EnsureSchema: creating %s: %w", t.name, err)
		}
		log.Info().Str("table", t.name).Msg("Created table")
	}
	return nil
}

func transactionsMetadata() (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return nil, err
	}
	return &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.MonthPartitioningType, Field: "occurred_date"},
		Clustering:       &bigquery.Clustering{Fields: []string{"owner_id", "external_code"}},
	}, nil
}

func ingestRunsMetadata() (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(IngestRunRow{})
	if err != nil {
		return nil, err
	}
	return &bigquery.TableMetadata{Schema: schema}, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
