// Package extract turns raw M-PESA payloads (SMS bodies, statement CSV rows,
// statement text) into canonical transactions. Extractors never fail on
// malformed input: items they cannot read are reported as skipped.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Extractor parses one raw payload into zero or more transactions.
type Extractor interface {
	Extract(payload []byte) Result
}

// Result is the outcome of one Extract call.
type Result struct {
	Transactions []domain.Transaction
	Skipped      []Skip
}

// Skip describes an input item that produced no record.
type Skip struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Option configures an extractor.
type Option func(*base)

// WithClock overrides the clock used for the occurredAt fallback.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLocation sets the zone statement timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(b *base) {
		if loc != nil {
			b.loc = loc
		}
	}
}

type base struct {
	now func() time.Time
	loc *time.Location
}

func newBase(opts []Option) base {
	b := base{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// parseTime tries layouts in order and falls back to now.
func (b base) parseTime(value string, layouts []string) time.Time {
	value = normalizeClock(value)
	if value != "" {
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, value, b.loc); err == nil {
				return t
			}
		}
	}
	return b.now().In(b.loc)
}

var (
	phonePattern    = regexp.MustCompile(`\b(254\d{9}|\d{10})\b`)
	meridiemPattern = regexp.MustCompile(`(?i)(\d)\s*(am|pm)\b`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// normalizeClock collapses whitespace and writes AM/PM as " AM"/" PM" so
// that "3:45pm" and "3:45 PM" parse with the same layout.
func normalizeClock(s string) string {
	s = spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
	return meridiemPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := meridiemPattern.FindStringSubmatch(m)
		return sub[1] + " " + strings.ToUpper(sub[2])
	})
}

// ParseAmount strips thousands separators and the currency marker, then
// parses a non-negative two-decimal amount. Values with more precision,
// such as a "1.234,56" written with a decimal comma, are rejected.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	for _, marker := range []string{"Ksh", "KSh", "KSH", "ksh", "KES", "Kes"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Round(2)) {
		return decimal.Zero, false
	}
	return domain.NormalizeAmount(d), true
}

// findPhone returns the first phone-like run in s, normalised.
func findPhone(s string) string {
	m := phonePattern.FindString(s)
	if m == "" {
		return ""
	}
	return domain.NormalizePhone(m)
}
