package categorize

import (
	"sync"
	"testing"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

func TestCategorize(t *testing.T) {
	c := New()

	tests := []struct {
		name           string
		description    string
		direction      domain.Direction
		wantCategory   string
		wantSub        string
		wantConfidence float64
	}{
		{
			name:           "food at a cafe",
			description:    "Java House coffee and breakfast",
			direction:      domain.DirectionPaidBusiness,
			wantCategory:   "Food",
			wantConfidence: 0.9,
		},
		{
			name:           "empty income description",
			description:    "",
			direction:      domain.DirectionReceived,
			wantCategory:   CategoryIncome,
			wantConfidence: 0.8,
		},
		{
			name:           "unmatched expense",
			description:    "transfer to john",
			direction:      domain.DirectionPaidPerson,
			wantCategory:   CategoryUncategorized,
			wantConfidence: 0.5,
		},
		{
			name:           "unknown direction",
			description:    "   ",
			direction:      domain.Direction("REVERSAL"),
			wantCategory:   CategoryOther,
			wantConfidence: 0.5,
		},
		{
			name:           "income override keeps the match as sub category",
			description:    "coffee beans sale",
			direction:      domain.DirectionReceived,
			wantCategory:   CategoryIncome,
			wantSub:        "Food",
			wantConfidence: 0.5,
		},
		{
			name:           "business expenses are not overridden for income",
			description:    "office stationery refund",
			direction:      domain.DirectionReceived,
			wantCategory:   CategoryBusinessExpenses,
			wantConfidence: 0.7,
		},
		{
			name:           "confidence is capped",
			description:    "KPLC electricity power water internet wifi",
			direction:      domain.DirectionBillPayment,
			wantCategory:   "Utilities",
			wantConfidence: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Categorize(tt.description, tt.direction)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.SubCategory != tt.wantSub {
				t.Errorf("SubCategory = %q, want %q", got.SubCategory, tt.wantSub)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.Reasoning == "" {
				t.Error("Reasoning should not be empty")
			}
		})
	}
}

func TestCategorize_TieGoesToFirstRule(t *testing.T) {
	c := NewWithRules([]Rule{
		{Name: "First", Keywords: []string{"alpha"}},
		{Name: "Second", Keywords: []string{"beta"}},
	})
	got := c.Categorize("alpha beta", domain.DirectionPaidPerson)
	if got.Category != "First" {
		t.Errorf("Category = %q, want First", got.Category)
	}
}

func TestSuggest(t *testing.T) {
	c := New()

	got := c.Suggest("uber ride to the supermarket for office stationery")
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("suggestions not sorted: %+v", got)
		}
	}

	if s := c.Suggest(""); len(s) != 0 {
		t.Errorf("Suggest(\"\") = %+v, want empty", s)
	}
	if s := c.Suggest("zzz"); len(s) != 0 {
		t.Errorf("Suggest(zzz) = %+v, want empty", s)
	}
}

func TestCategoriesAndKnown(t *testing.T) {
	c := New()
	names := c.Categories()
	if len(names) != 9 {
		t.Fatalf("got %d categories, want 9", len(names))
	}
	if names[0] != "Food" || names[len(names)-1] != CategoryOther {
		t.Errorf("unexpected order: %v", names)
	}

	if got, ok := c.Known("business expenses"); !ok || got != CategoryBusinessExpenses {
		t.Errorf("Known(business expenses) = %q, %v", got, ok)
	}
	if _, ok := c.Known("Groceries"); ok {
		t.Error("Known(Groceries) should be false")
	}
}

func TestBulkCategorize(t *testing.T) {
	c := New()
	in := []domain.Transaction{
		{ExternalCode: "A", RawDescription: "Uber trip", Direction: domain.DirectionPaidBusiness},
		{ExternalCode: "B", RawDescription: "", Direction: domain.DirectionReceived},
	}

	out := c.BulkCategorize(in)

	if out[0].Category != "Transport" {
		t.Errorf("out[0].Category = %q, want Transport", out[0].Category)
	}
	if out[1].Category != CategoryIncome || out[1].Confidence != 0.8 {
		t.Errorf("out[1] = %q/%v, want Income/0.8", out[1].Category, out[1].Confidence)
	}
	if in[0].Category != "" {
		t.Error("BulkCategorize must not modify its input")
	}
}

func TestCategorize_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Categorize("KFC chicken lunch", domain.DirectionGoodsPayment); got.Category != "Food" {
				t.Errorf("Category = %q, want Food", got.Category)
			}
		}()
	}
	wg.Wait()
}
