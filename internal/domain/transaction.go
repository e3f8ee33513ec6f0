package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds RawDescription, counted in runes.
const MaxDescriptionLength = 200

// Transaction is the canonical, format-independent record every extractor
// produces and every analytics report consumes.
type Transaction struct {
	ID                string          `json:"id,omitempty"`
	OwnerID           string          `json:"owner_id,omitempty"`
	ExternalCode      string          `json:"external_code"`
	Amount            decimal.Decimal `json:"amount"`
	Direction         Direction       `json:"direction"`
	CounterpartyPhone string          `json:"counterparty_phone,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
	RawDescription    string          `json:"raw_description,omitempty"`

	// Assigned after extraction by the categorizer or by a manual override.
	Category    string  `json:"category,omitempty"`
	SubCategory string  `json:"sub_category,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`

	Source    Format    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// IsIncome reports whether the transaction counts as money in.
func (t Transaction) IsIncome() bool {
	return t.Direction.IsIncome()
}

// Categorized reports whether a category has been assigned.
func (t Transaction) Categorized() bool {
	return strings.TrimSpace(t.Category) != ""
}

// NormalizeAmount rounds to two decimal places and drops the sign.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Abs().Round(2)
}

// TruncateDescription trims s and cuts it to MaxDescriptionLength runes.
func TruncateDescription(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxDescriptionLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxDescriptionLength])
}

// NormalizePhone keeps digits only and rewrites a 10-digit local number
// (leading 0) into the 254 international form. Anything else is returned
// as the bare digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 && digits[0] == '0' {
		return "254" + digits[1:]
	}
	return digits
}
