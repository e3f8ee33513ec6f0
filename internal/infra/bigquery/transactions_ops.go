package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// InsertIfAbsent implements store.Writer with a MERGE keyed on
// (owner_id, external_code).
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
	row := toRow(tx)

	q := s.client.Query(fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @owner_id AS owner_id, @external_code AS external_code) S
		ON T.owner_id = S.owner_id AND T.external_code = S.external_code
		WHEN NOT MATCHED THEN
		  INSERT (%s)
		  VALUES (
			@transaction_id,
			@owner_id,
			@external_code,
			@occurred_at,
			@occurred_date,
			@amount,
			@direction,
			@counterparty_phone,
			@raw_description,
			@category_name,
			@subcategory_name,
			@confidence,
			@source,
			@created_ts
		  )
	`, s.table(transactionsTable), transactionColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "external_code", Value: row.ExternalCode},
		{Name: "occurred_at", Value: row.OccurredAt},
		{Name: "occurred_date", Value: row.OccurredDate},
		{Name: "amount", Value: row.Amount},
		{Name: "direction", Value: row.Direction},
		{Name: "counterparty_phone", Value: row.CounterpartyPhone},
		{Name: "raw_description", Value: row.RawDescription},
		{Name: "category_name", Value: row.CategoryName},
		{Name: "subcategory_name", Value: row.SubcategoryName},
		{Name: "confidence", Value: row.Confidence},
		{Name: "source", Value: row.Source},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return false, fmt.Errorf("InsertIfAbsent: %w", err)
	}
	return affected > 0, nil
}

// UpdateCategory implements store.Writer.
func (s *Store) UpdateCategory(ctx context.Context, ownerID, externalCode, category, subCategory string, confidence float64) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET category_name = @category_name,
		    subcategory_name = @subcategory_name,
		    confidence = @confidence
		WHERE owner_id = @owner_id AND external_code = @external_code
	`, s.table(transactionsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_name", Value: nullString(category)},
		{Name: "subcategory_name", Value: nullString(subCategory)},
		{Name: "confidence", Value: confidence},
		{Name: "owner_id", Value: ownerID},
		{Name: "external_code", Value: externalCode},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateCategory: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("UpdateCategory: %s: %w", externalCode, store.ErrNotFound)
	}
	return nil
}

// Get implements store.Reader.
func (s *Store) Get(ctx context.Context, ownerID, externalCode string) (domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = @owner_id AND external_code = @external_code
		LIMIT 1
	`, transactionColumns, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "external_code", Value: externalCode},
	}

	rows, err := s.read(ctx, q)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Get: %w", err)
	}
	if len(rows) == 0 {
		return domain.Transaction{}, fmt.Errorf("Get: %s: %w", externalCode, store.ErrNotFound)
	}
	return rows[0], nil
}

// QueryByOwnerAndWindow implements store.Reader.
func (s *Store) QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = @owner_id
		  AND occurred_at >= @start_ts
		  AND occurred_at <= @end_ts
		ORDER BY occurred_at, external_code
	`, transactionColumns, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "start_ts", Value: start},
		{Name: "end_ts", Value: end},
	}

	rows, err := s.read(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryByOwnerAndWindow: %w", err)
	}
	return rows, nil
}

// QueryByFilter implements store.Reader.
func (s *Store) QueryByFilter(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	sql, params := s.filterQuery(f)
	q := s.client.Query(sql)
	q.Parameters = params

	rows, err := s.read(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryByFilter: %w", err)
	}
	return rows, nil
}

// filterQuery builds the SELECT for f, newest first.
func (s *Store) filterQuery(f store.Filter) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	add := func(clause, name string, value any) {
		where = append(where, clause)
		params = append(params, bigquery.QueryParameter{Name: name, Value: value})
	}

	if f.OwnerID != "" {
		add("owner_id = @owner_id", "owner_id", f.OwnerID)
	}
	if f.Category != "" {
		add("category_name = @category_name", "category_name", f.Category)
	}
	if f.Direction != "" {
		add("direction = @direction", "direction", string(f.Direction))
	}
	if !f.Start.IsZero() {
		add("occurred_at >= @start_ts", "start_ts", f.Start)
	}
	if !f.End.IsZero() {
		add("occurred_at <= @end_ts", "end_ts", f.End)
	}
	if f.UncategorizedOnly {
		where = append(where, "(category_name IS NULL OR TRIM(category_name) = '')")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s\nFROM %s", transactionColumns, s.table(transactionsTable))
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, "\n  AND "))
	}
	b.WriteString("\nORDER BY occurred_at DESC, external_code DESC")
	if f.Limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		if f.Limit <= 0 {
			// BigQuery only accepts OFFSET after LIMIT.
			fmt.Fprintf(&b, "\nLIMIT %d", int64(1)<<62)
		}
		fmt.Fprintf(&b, "\nOFFSET %d", f.Offset)
	}
	return b.String(), params
}

func (s *Store) read(ctx context.Context, q *bigquery.Query) ([]domain.Transaction, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", classify(err))
	}

	out := []domain.Transaction{}
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", classify(err))
		}
		out = append(out, row.toDomain())
	}

	log := logger.FromContext(ctx)
	log.Debug().Int("rows", len(out)).Msg("BigQuery query returned")
	return out, nil
}
