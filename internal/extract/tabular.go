package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

// Header synonyms per logical field, in priority order.
var (
	codeColumns        = []string{"Receipt No", "Receipt No.", "Transaction ID", "mpesa_code", "MpesaCode", "code"}
	amountColumns      = []string{"Paid In", "Withdrawn", "Amount", "amount"}
	debitColumns       = []string{"Withdrawn", "Paid Out"}
	typeColumns        = []string{"trans_type", "type"}
	dateColumns        = []string{"Completion Time", "Date", "date"}
	phoneColumns       = []string{"Other Party Info", "Phone Number", "phone_number", "phone"}
	descriptionColumns = []string{"Details", "Description", "description"}
)

// Tabular date layouts, tried in order.
var tabularLayouts = []string{
	"2/1/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"2-1-2006 15:04",
	"2006-01-02",
}

// CodeColumns returns the accepted receipt-code headers.
func CodeColumns() []string {
	return append([]string(nil), codeColumns...)
}

// TabularExtractor reads delimited statement exports.
type TabularExtractor struct {
	base
}

// NewTabularExtractor creates a TabularExtractor.
func NewTabularExtractor(opts ...Option) *TabularExtractor {
	return &TabularExtractor{base: newBase(opts)}
}

// Extract reads payload as CSV with a header row and parses each row.
func (e *TabularExtractor) Extract(payload []byte) Result {
	rows, skipped := ReadRows(bytes.NewReader(payload))
	res := Result{Skipped: skipped}
	for i, row := range rows {
		tx, ok := e.ParseRow(row)
		if !ok {
			res.Skipped = append(res.Skipped, Skip{Index: i + 1, Reason: "missing receipt code"})
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

// ParseRow parses one header-keyed row. Field failures fall back to safe
// defaults; only a missing code yields no record.
func (e *TabularExtractor) ParseRow(row map[string]string) (domain.Transaction, bool) {
	code := lookup(row, codeColumns, nil)
	if code == "" {
		return domain.Transaction{}, false
	}

	amount, _ := ParseAmount(lookup(row, amountColumns, nonZeroAmount))

	direction := domain.DirectionReceived
	if lookup(row, debitColumns, nonZeroAmount) != "" {
		direction = domain.DirectionWithdrawal
	} else if d, ok := domain.ParseDirection(lookup(row, typeColumns, nil)); ok {
		direction = d
	}

	return domain.Transaction{
		ExternalCode:      strings.ToUpper(code),
		Amount:            amount,
		Direction:         direction,
		CounterpartyPhone: findPhone(lookup(row, phoneColumns, nil)),
		OccurredAt:        e.parseTime(lookup(row, dateColumns, nil), tabularLayouts),
		RawDescription:    domain.TruncateDescription(lookup(row, descriptionColumns, nil)),
		Source:            domain.FormatTabular,
	}, true
}

// lookup returns the first non-empty value among keys. Headers match
// case-insensitively, an exact match first. accept, when set, further
// filters candidate values.
func lookup(row map[string]string, keys []string, accept func(string) bool) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" && (accept == nil || accept(v)) {
			return v
		}
		for header, raw := range row {
			if header == k || !strings.EqualFold(header, k) {
				continue
			}
			if v := strings.TrimSpace(raw); v != "" && (accept == nil || accept(v)) {
				return v
			}
		}
	}
	return ""
}

// nonZeroAmount treats "0.00" columns as empty; statements fill both the
// paid-in and withdrawn columns on every line.
func nonZeroAmount(v string) bool {
	d, ok := ParseAmount(v)
	return !ok || !d.IsZero()
}

// ReadRows splits a CSV payload into header-keyed rows. Malformed records
// are reported as skipped and reading continues.
func ReadRows(r io.Reader) ([]map[string]string, []Skip) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, []Skip{{Index: 0, Reason: fmt.Sprintf("reading header: %v", err)}}
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var (
		rows    []map[string]string
		skipped []Skip
	)
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, Skip{Index: n, Reason: perr.Error()})
				continue
			}
			skipped = append(skipped, Skip{Index: n, Reason: err.Error()})
			break
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, skipped
}
