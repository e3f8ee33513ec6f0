package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const statementCSV = `Receipt No,Completion Time,Details,Transaction Status,Paid In,Withdrawn,Balance,Other Party Info
QGH7K2L9MN,15/01/2024 14:30:00,Customer Transfer from JOHN,Completed,"2,500.00",,"10,000.00",254712345678 - JOHN DOE
QGH7K2L9MP,16/01/2024 09:15:00,Pay Bill to KPLC,Completed,0.00,-1000.00,"9,000.00",
,16/01/2024 10:00:00,Opening balance,Completed,,,9000.00,
`

func TestTabularExtractor_Extract(t *testing.T) {
	res := NewTabularExtractor(WithClock(fixedClock)).Extract([]byte(statementCSV))

	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(res.Transactions))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 3 {
		t.Errorf("Skipped = %+v, want row 3", res.Skipped)
	}

	first := res.Transactions[0]
	if first.ExternalCode != "QGH7K2L9MN" {
		t.Errorf("ExternalCode = %q", first.ExternalCode)
	}
	if !first.Amount.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("Amount = %s, want 2500", first.Amount)
	}
	if first.Direction != domain.DirectionReceived {
		t.Errorf("Direction = %q, want C2B", first.Direction)
	}
	if first.CounterpartyPhone != "254712345678" {
		t.Errorf("CounterpartyPhone = %q", first.CounterpartyPhone)
	}
	if want := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC); !first.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", first.OccurredAt, want)
	}
	if first.RawDescription != "Customer Transfer from JOHN" {
		t.Errorf("RawDescription = %q", first.RawDescription)
	}

	second := res.Transactions[1]
	if second.Direction != domain.DirectionWithdrawal {
		t.Errorf("Direction = %q, want B2C", second.Direction)
	}
	if !second.Amount.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Amount = %s, want 1000", second.Amount)
	}
	if second.CounterpartyPhone != "" {
		t.Errorf("CounterpartyPhone = %q, want empty", second.CounterpartyPhone)
	}
}

func TestTabularExtractor_UppercaseHeaders(t *testing.T) {
	payload := "RECEIPT NO,COMPLETION TIME,DETAILS,PAID IN,WITHDRAWN\n" +
		"QGH7K2L9MN,15/01/2024 14:30:00,Customer Transfer from JOHN,,350.00\n"

	res := NewTabularExtractor(WithClock(fixedClock)).Extract([]byte(payload))

	if len(res.Transactions) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("Extract() = %+v, want one transaction", res)
	}
	tx := res.Transactions[0]
	if tx.ExternalCode != "QGH7K2L9MN" || tx.Direction != domain.DirectionWithdrawal {
		t.Errorf("got %s/%s, want QGH7K2L9MN/B2C", tx.ExternalCode, tx.Direction)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(350)) {
		t.Errorf("Amount = %s, want 350", tx.Amount)
	}
	if want := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC); !tx.OccurredAt.Equal(want) {
		t.Errorf("OccurredAt = %v, want %v", tx.OccurredAt, want)
	}
}

func TestParseRow(t *testing.T) {
	e := NewTabularExtractor(WithClock(fixedClock))

	tests := []struct {
		name      string
		row       map[string]string
		wantOK    bool
		amount    string
		direction domain.Direction
		when      time.Time
	}{
		{
			name: "generic export with explicit type",
			row: map[string]string{
				"mpesa_code":  "ABC1234567",
				"amount":      "Ksh 1,500",
				"date":        "2024-03-05",
				"trans_type":  "PAYBILL",
				"description": "KPLC tokens",
			},
			wantOK:    true,
			amount:    "1500",
			direction: domain.DirectionBillPayment,
			when:      time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "withdrawn column wins over type",
			row: map[string]string{
				"Transaction ID": "ABC1234568",
				"Withdrawn":      "200",
				"trans_type":     "C2B",
				"Date":           "2024-03-05 08:00:00",
			},
			wantOK:    true,
			amount:    "200",
			direction: domain.DirectionWithdrawal,
			when:      time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "twelve hour completion time",
			row: map[string]string{
				"Receipt No.":     "ABC1234569",
				"Paid In":         "75.50",
				"Completion Time": "3/5/2024 4:05:09 PM",
			},
			wantOK:    true,
			amount:    "75.5",
			direction: domain.DirectionReceived,
			when:      time.Date(2024, 3, 5, 16, 5, 9, 0, time.UTC),
		},
		{
			name: "malformed fields fall back",
			row: map[string]string{
				"Receipt No": "ABC1234570",
				"Amount":     "n/a",
				"Date":       "yesterday",
				"trans_type": "mystery",
			},
			wantOK:    true,
			amount:    "0",
			direction: domain.DirectionReceived,
			when:      fixedNow,
		},
		{
			name:   "no code",
			row:    map[string]string{"Amount": "100"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := e.ParseRow(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("ParseRow() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !tx.Amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Amount = %s, want %s", tx.Amount, tt.amount)
			}
			if tx.Direction != tt.direction {
				t.Errorf("Direction = %q, want %q", tx.Direction, tt.direction)
			}
			if !tx.OccurredAt.Equal(tt.when) {
				t.Errorf("OccurredAt = %v, want %v", tx.OccurredAt, tt.when)
			}
		})
	}
}

func TestReadRows_TrimsHeaders(t *testing.T) {
	rows, skipped := ReadRows(strings.NewReader("\ufeff Receipt No , Amount\nABC1234567,10\n"))
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", skipped)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["Receipt No"] != "ABC1234567" || rows[0]["Amount"] != "10" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestReadRows_Empty(t *testing.T) {
	rows, skipped := ReadRows(strings.NewReader(""))
	if rows != nil || skipped != nil {
		t.Errorf("ReadRows(empty) = %v, %v", rows, skipped)
	}
}
