package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	OwnerID       string `bigquery:"owner_id"`       // REQUIRED
	ExternalCode  string `bigquery:"external_code"`  // REQUIRED

	OccurredAt   time.Time  `bigquery:"occurred_at"`   // REQUIRED
	OccurredDate civil.Date `bigquery:"occurred_date"` // REQUIRED, partition column

	Amount    *big.Rat `bigquery:"amount"`    // NUMERIC
	Direction string   `bigquery:"direction"` // REQUIRED

	CounterpartyPhone bigquery.NullString `bigquery:"counterparty_phone"`
	RawDescription    string              `bigquery:"raw_description"`

	CategoryName    bigquery.NullString  `bigquery:"category_name"`
	SubcategoryName bigquery.NullString  `bigquery:"subcategory_name"`
	Confidence      bigquery.NullFloat64 `bigquery:"confidence"`

	Source    bigquery.NullString `bigquery:"source"`
	CreatedTS time.Time           `bigquery:"created_ts"`
}

// transactionColumns is the select list matching TransactionRow.
const transactionColumns = `
	transaction_id,
	owner_id,
	external_code,
	occurred_at,
	occurred_date,
	amount,
	direction,
	counterparty_phone,
	raw_description,
	category_name,
	subcategory_name,
	confidence,
	source,
	created_ts`

func toRow(tx domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:     tx.ID,
		OwnerID:           tx.OwnerID,
		ExternalCode:      tx.ExternalCode,
		OccurredAt:        tx.OccurredAt,
		OccurredDate:      civil.DateOf(tx.OccurredAt),
		Amount:            tx.Amount.Rat(),
		Direction:         string(tx.Direction),
		CounterpartyPhone: nullString(tx.CounterpartyPhone),
		RawDescription:    tx.RawDescription,
		CategoryName:      nullString(tx.Category),
		SubcategoryName:   nullString(tx.SubCategory),
		Confidence:        bigquery.NullFloat64{Float64: tx.Confidence, Valid: tx.Categorized()},
		Source:            nullString(string(tx.Source)),
		CreatedTS:         tx.CreatedAt,
	}
}

func (r *TransactionRow) toDomain() domain.Transaction {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = decimal.RequireFromString(r.Amount.FloatString(2))
	}
	return domain.Transaction{
		ID:                r.TransactionID,
		OwnerID:           r.OwnerID,
		ExternalCode:      r.ExternalCode,
		Amount:            amount,
		Direction:         domain.Direction(r.Direction),
		CounterpartyPhone: r.CounterpartyPhone.StringVal,
		OccurredAt:        r.OccurredAt,
		RawDescription:    r.RawDescription,
		Category:          r.CategoryName.StringVal,
		SubCategory:       r.SubcategoryName.StringVal,
		Confidence:        r.Confidence.Float64,
		Source:            domain.Format(r.Source.StringVal),
		CreatedAt:         r.CreatedTS,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
