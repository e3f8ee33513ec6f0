package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in     string
		want   Direction
		wantOK bool
	}{
		{"PAYBILL", DirectionBillPayment, true},
		{" buygoods ", DirectionGoodsPayment, true},
		{"received-from-customer", DirectionReceived, true},
		{"Withdrawal", DirectionWithdrawal, true},
		{"REVERSAL", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDirection(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseDirection(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDirection_Income(t *testing.T) {
	income := 0
	for _, d := range Directions() {
		if !d.Known() {
			t.Errorf("%q should be known", d)
		}
		if d.IsIncome() {
			income++
		}
	}
	if income != 1 || !DirectionReceived.IsIncome() {
		t.Errorf("expected exactly C2B to be income, got %d income kinds", income)
	}
	if got := Direction("XYZ").Name(); got != "XYZ" {
		t.Errorf("Name() = %q, want raw code", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"SMS":      FormatMessage,
		"csv":      FormatTabular,
		" pdf ":    FormatDocument,
		"document": FormatDocument,
		"":         FormatAuto,
		"xml":      FormatAuto,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0712345678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"0712-345-678", "254712345678"},
		{"712345678", "712345678"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateDescription(t *testing.T) {
	if got := TruncateDescription("  Java House  "); got != "Java House" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("é", MaxDescriptionLength+5)
	if got := TruncateDescription(long); len([]rune(got)) != MaxDescriptionLength {
		t.Errorf("got %d runes, want %d", len([]rune(got)), MaxDescriptionLength)
	}
}

func TestNormalizeAmount(t *testing.T) {
	got := NormalizeAmount(decimal.RequireFromString("-1000.005"))
	if !got.Equal(decimal.RequireFromString("1000.01")) {
		t.Errorf("NormalizeAmount() = %s, want 1000.01", got)
	}
}

func TestTransaction_Categorized(t *testing.T) {
	if (Transaction{Category: "  "}).Categorized() {
		t.Error("blank category should not count as categorized")
	}
	if !(Transaction{Category: "Food"}).Categorized() {
		t.Error("Food should count as categorized")
	}
}
