package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/google/uuid"
)

const selectColumns = `
	SELECT id, owner_id, external_code, amount, direction, counterparty_phone,
	       occurred_at, raw_description, category, sub_category, confidence,
	       source, created_at
	FROM transactions`

// InsertIfAbsent implements store.Writer.
func (s *Store) InsertIfAbsent(ctx context.Context, tx domain.Transaction) (bool, error) {
	if tx.ExternalCode == "" {
		return false, fmt.Errorf("InsertIfAbsent: external code is required")
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, external_code, amount, direction, counterparty_phone,
			occurred_at, raw_description, category, sub_category, confidence,
			source, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (owner_id, external_code) DO NOTHING`,
		tx.ID, tx.OwnerID, tx.ExternalCode, tx.Amount, string(tx.Direction), tx.CounterpartyPhone,
		tx.OccurredAt, tx.RawDescription, tx.Category, tx.SubCategory, tx.Confidence,
		string(tx.Source), tx.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: rows affected: %w", classify(err))
	}
	return n > 0, nil
}

// UpdateCategory implements store.Writer.
func (s *Store) UpdateCategory(ctx context.Context, ownerID, externalCode, category, subCategory string, confidence float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = $1, sub_category = $2, confidence = $3
		WHERE owner_id = $4 AND external_code = $5`,
		category, subCategory, confidence, ownerID, externalCode,
	)
	if err != nil {
		return fmt.Errorf("UpdateCategory: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateCategory: rows affected: %w", classify(err))
	}
	if n == 0 {
		return fmt.Errorf("UpdateCategory: %s: %w", externalCode, store.ErrNotFound)
	}
	return nil
}

// Get implements store.Reader.
func (s *Store) Get(ctx context.Context, ownerID, externalCode string) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE owner_id = $1 AND external_code = $2`, ownerID, externalCode)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("Get: %s: %w", externalCode, store.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Get: %w", classify(err))
	}
	return tx, nil
}

// QueryByOwnerAndWindow implements store.Reader.
func (s *Store) QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		ORDER BY occurred_at, external_code`, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("QueryByOwnerAndWindow: %w", classify(err))
	}
	out, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("QueryByOwnerAndWindow: %w", err)
	}
	return out, nil
}

// QueryByFilter implements store.Reader.
func (s *Store) QueryByFilter(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	query, args := filterQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryByFilter: %w", classify(err))
	}
	out, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("QueryByFilter: %w", err)
	}
	return out, nil
}

// filterQuery builds a positional-parameter SELECT for f, newest first.
func filterQuery(f store.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column string, op string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s %s $%d", column, op, len(args)))
	}

	if f.OwnerID != "" {
		add("owner_id", "=", f.OwnerID)
	}
	if f.Category != "" {
		add("category", "=", f.Category)
	}
	if f.Direction != "" {
		add("direction", "=", string(f.Direction))
	}
	if !f.Start.IsZero() {
		add("occurred_at", ">=", f.Start)
	}
	if !f.End.IsZero() {
		add("occurred_at", "<=", f.End)
	}
	if f.UncategorizedOnly {
		where = append(where, "TRIM(category) = ''")
	}

	var b strings.Builder
	b.WriteString(selectColumns)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\n\tORDER BY occurred_at DESC, external_code DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, "\n\tLIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, "\n\tOFFSET $%d", len(args))
	}
	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		tx        domain.Transaction
		direction string
		source    string
	)
	err := row.Scan(
		&tx.ID, &tx.OwnerID, &tx.ExternalCode, &tx.Amount, &direction, &tx.CounterpartyPhone,
		&tx.OccurredAt, &tx.RawDescription, &tx.Category, &tx.SubCategory, &tx.Confidence,
		&source, &tx.CreatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Direction = domain.Direction(direction)
	tx.Source = domain.Format(source)
	return tx, nil
}

func scanAll(rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", classify(err))
	}
	return out, nil
}

// RecordRun implements pipeline.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, run pipeline.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (
			run_id, owner_id, format, started_at, finished_at, status,
			error_message, created, duplicates, attempted, skipped
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.RunID, run.OwnerID, string(run.Format), run.StartedAt, run.FinishedAt, run.Status,
		run.Error, run.Report.Created, run.Report.Duplicates, run.Report.TotalAttempted, run.Report.Skipped,
	)
	if err != nil {
		return fmt.Errorf("RecordRun: %w", classify(err))
	}
	return nil
}

var _ pipeline.RunRecorder = (*Store)(nil)
