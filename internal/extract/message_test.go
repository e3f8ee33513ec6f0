package extract

import (
	"testing"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestParseMessage(t *testing.T) {
	e := NewMessageExtractor(WithClock(fixedClock))

	tests := []struct {
		name      string
		text      string
		wantOK    bool
		code      string
		amount    string
		direction domain.Direction
		phone     string
		when      time.Time
	}{
		{
			name:      "received",
			text:      "QGH7K2L9MN Confirmed. You have received Ksh2,500.00 from JOHN DOE 0712345678 on 1/15/24 at 3:45 PM. New M-PESA balance is Ksh10,000.00.",
			wantOK:    true,
			code:      "QGH7K2L9MN",
			amount:    "2500",
			direction: domain.DirectionReceived,
			phone:     "254712345678",
			when:      time.Date(2024, 1, 15, 15, 45, 0, 0, time.UTC),
		},
		{
			name:      "sent to person",
			text:      "QGH7K2L9MP Confirmed. Ksh1,200.00 sent to JANE WANJIKU 0722000111 on 2/3/24 at 10:15 AM. New M-PESA balance is Ksh5,000.00.",
			wantOK:    true,
			code:      "QGH7K2L9MP",
			amount:    "1200",
			direction: domain.DirectionPaidPerson,
			phone:     "254722000111",
			when:      time.Date(2024, 2, 3, 10, 15, 0, 0, time.UTC),
		},
		{
			name:      "sent to paybill",
			text:      "QGH7K2L9MR Confirmed. Ksh1,000.00 sent to KPLC PREPAID for account 54321 on 4/3/24 at 9:00 AM New M-PESA balance is Ksh2,000.00.",
			wantOK:    true,
			code:      "QGH7K2L9MR",
			amount:    "1000",
			direction: domain.DirectionBillPayment,
			when:      time.Date(2024, 4, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "paid to till",
			text:      "QGH7K2L9MS Confirmed. Ksh450.00 paid to JAVA HOUSE. on 6/3/24 at 1:15 PM.New M-PESA balance is Ksh1,550.00.",
			wantOK:    true,
			code:      "QGH7K2L9MS",
			amount:    "450",
			direction: domain.DirectionGoodsPayment,
			when:      time.Date(2024, 6, 3, 13, 15, 0, 0, time.UTC),
		},
		{
			name:      "verb before amount",
			text:      "QGH7K2L9MV Confirmed. You have sent Ksh300 to MARY 0733444555 on 3/9/24 at 8:05 PM.",
			wantOK:    true,
			code:      "QGH7K2L9MV",
			amount:    "300",
			direction: domain.DirectionPaidPerson,
			phone:     "254733444555",
			when:      time.Date(2024, 3, 9, 20, 5, 0, 0, time.UTC),
		},
		{
			name:      "withdrawal with date before the verb",
			text:      "QGH7K2L9MT Confirmed.on 5/3/24 at 2:00 PMWithdraw Ksh3,000.00 from 123456 - MAMA MBOGA AGENT New M-PESA balance is Ksh7,000.00.",
			wantOK:    true,
			code:      "QGH7K2L9MT",
			amount:    "3000",
			direction: domain.DirectionWithdrawal,
			when:      time.Date(2024, 5, 3, 14, 0, 0, 0, time.UTC),
		},
		{
			name:      "missing date falls back to now",
			text:      "QGH7K2L9MU Confirmed. You have received Ksh500 from PETER 254711222333",
			wantOK:    true,
			code:      "QGH7K2L9MU",
			amount:    "500",
			direction: domain.DirectionReceived,
			phone:     "254711222333",
			when:      fixedNow,
		},
		{
			name:   "no confirmation code",
			text:   "Your M-PESA balance is Ksh100.00",
			wantOK: false,
		},
		{
			name:   "empty",
			text:   "   ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := e.ParseMessage(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ParseMessage() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
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
			if !tx.OccurredAt.Equal(tt.when) {
				t.Errorf("OccurredAt = %v, want %v", tx.OccurredAt, tt.when)
			}
			if tx.Source != domain.FormatMessage {
				t.Errorf("Source = %q, want %q", tx.Source, domain.FormatMessage)
			}
		})
	}
}

func TestMessageExtractor_Batch(t *testing.T) {
	blob := "QGH7K2L9MN Confirmed. You have received Ksh2,500.00 from JOHN DOE 0712345678 on 1/15/24 at 3:45 PM.\n" +
		"\n" +
		"hello there\n" +
		"  \n" +
		"QGH7K2L9MP Confirmed. Ksh1,200.00 sent to JANE WANJIKU 0722000111 on 2/3/24 at 10:15 AM.\n"

	res := NewMessageExtractor(WithClock(fixedClock)).Extract([]byte(blob))

	if len(res.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(res.Transactions))
	}
	if res.Transactions[0].ExternalCode != "QGH7K2L9MN" || res.Transactions[1].ExternalCode != "QGH7K2L9MP" {
		t.Errorf("unexpected order: %q, %q", res.Transactions[0].ExternalCode, res.Transactions[1].ExternalCode)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 2 {
		t.Errorf("Skipped = %+v, want one skip at index 2", res.Skipped)
	}
}

func TestParseMessage_TruncatesDescription(t *testing.T) {
	long := "QGH7K2L9MN Confirmed. You have received Ksh10 from JOHN "
	for len(long) < 400 {
		long += "padding "
	}
	tx, ok := NewMessageExtractor(WithClock(fixedClock)).ParseMessage(long)
	if !ok {
		t.Fatal("expected a record")
	}
	if n := len([]rune(tx.RawDescription)); n != domain.MaxDescriptionLength {
		t.Errorf("description length = %d, want %d", n, domain.MaxDescriptionLength)
	}
}

func TestParseAmount(t *testing.T) {
	want := decimal.RequireFromString("2500.00")
	for _, in := range []string{"2,500.00", "Ksh 2500.00", "2500", "Ksh2,500", "-2,500.00"} {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseAmount(in)
			if !ok {
				t.Fatalf("ParseAmount(%q) failed", in)
			}
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
			}
		})
	}

	for _, in := range []string{"", "Ksh", "abc", ",", "1.234,56", "10.005"} {
		if _, ok := ParseAmount(in); ok {
			t.Errorf("ParseAmount(%q) should fail", in)
		}
	}
}

func TestSplitMessages(t *testing.T) {
	got := SplitMessages("one\r\n\r\ntwo\nstill two\n\n\n three \n")
	want := []string{"one", "two\nstill two", "three"}
	if len(got) != len(want) {
		t.Fatalf("SplitMessages() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}
