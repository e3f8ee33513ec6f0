package extract

import (
	"testing"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const statementText = `MPESA FULL STATEMENT
Receipt No. Completion Time Details Transaction Status Paid In Withdrawn Balance
QGH7K2L9MN 15/01/2024 14:30:00 Customer Transfer from 254712345678 - JOHN DOE 2,500.00 10,000.00
QGH7K2L9MP 16/01/2024 09:15:00 Pay Bill to 888880 - KPLC PREPAID -1,000.00 9,000.00
QGH7K2L9MQ 17/01/2024 11:00:00 Balance adjustment 0.00 9,000.00
Page 1 of 1`

func TestDocumentExtractor_Extract(t *testing.T) {
	res := NewDocumentExtractor(WithClock(fixedClock)).Extract([]byte(statementText))

	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(res.Transactions))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 5 {
		t.Errorf("Skipped = %+v, want line 5", res.Skipped)
	}

	tests := []struct {
		code      string
		amount    string
		direction domain.Direction
		phone     string
		details   string
		when      time.Time
	}{
		{
			code:      "QGH7K2L9MN",
			amount:    "2500",
			direction: domain.DirectionReceived,
			phone:     "254712345678",
			details:   "Customer Transfer from 254712345678 - JOHN DOE",
			when:      time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			code:      "QGH7K2L9MP",
			amount:    "1000",
			direction: domain.DirectionWithdrawal,
			details:   "Pay Bill to 888880 - KPLC PREPAID",
			when:      time.Date(2024, 1, 16, 9, 15, 0, 0, time.UTC),
		},
	}

	for i, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			tx := res.Transactions[i]
			if tx.ExternalCode != tt.code {
				t.Errorf("ExternalCode = %q, want %q", tx.ExternalCode, tt.code)
			}
			if !tx.Amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Amount = %s, want %s", tx.Amount, tt.amount)
			}
			if tx.Direction != tt.direction {
				t.Errorf("Direction = %q, want %q", tx.Direction, tt.direction)
			}
			if tx.CounterpartyPhone != tt.phone {
				t.Errorf("CounterpartyPhone = %q, want %q", tx.CounterpartyPhone, tt.phone)
			}
			if tx.RawDescription != tt.details {
				t.Errorf("RawDescription = %q, want %q", tx.RawDescription, tt.details)
			}
			if !tx.OccurredAt.Equal(tt.when) {
				t.Errorf("OccurredAt = %v, want %v", tx.OccurredAt, tt.when)
			}
		})
	}
}

func TestDocumentExtractor_TrailingAccountNumber(t *testing.T) {
	line := "RKL1234567 06/01/2024 10:00:00 Pay Bill Online to 888880 - KPLC PREPAID Acc. 37181234567 -500.00 10,000.00"

	res := NewDocumentExtractor(WithClock(fixedClock)).Extract([]byte(line))

	if len(res.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1 (skipped %+v)", len(res.Transactions), res.Skipped)
	}
	tx := res.Transactions[0]
	if tx.Direction != domain.DirectionWithdrawal {
		t.Errorf("Direction = %q, want %q", tx.Direction, domain.DirectionWithdrawal)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Amount = %s, want 500", tx.Amount)
	}
	want := "Pay Bill Online to 888880 - KPLC PREPAID Acc. 37181234567"
	if tx.RawDescription != want {
		t.Errorf("RawDescription = %q, want %q", tx.RawDescription, want)
	}
	if tx.CounterpartyPhone != "" {
		t.Errorf("CounterpartyPhone = %q, want none for an 11-digit account number", tx.CounterpartyPhone)
	}
}

func TestDocumentExtractor_NoLines(t *testing.T) {
	res := NewDocumentExtractor().Extract([]byte("nothing to see here\n"))
	if len(res.Transactions) != 0 || len(res.Skipped) != 0 {
		t.Errorf("Extract() = %+v, want empty result", res)
	}
}

func TestLooksLikeDocument(t *testing.T) {
	if !LooksLikeDocument(statementText) {
		t.Error("expected statement text to be detected")
	}
	if LooksLikeDocument("Receipt No,Amount\nABC,1\n") {
		t.Error("csv should not be detected as a document")
	}
}
