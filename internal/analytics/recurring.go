package analytics

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency labels the average interval of a recurring pattern.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiWeekly  Frequency = "bi-weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyIrregular Frequency = "irregular"
)

// FrequencyFor maps an average interval in days to a label.
func FrequencyFor(avgIntervalDays float64) Frequency {
	switch {
	case avgIntervalDays <= 1:
		return FrequencyDaily
	case avgIntervalDays <= 7:
		return FrequencyWeekly
	case avgIntervalDays <= 14:
		return FrequencyBiWeekly
	case avgIntervalDays <= 31:
		return FrequencyMonthly
	case avgIntervalDays <= 92:
		return FrequencyQuarterly
	default:
		return FrequencyIrregular
	}
}

var (
	codeRun      = regexp.MustCompile(`[A-Z0-9]{8,}`)
	longDigitRun = regexp.MustCompile(`\d{10,}`)
	slashDate    = regexp.MustCompile(`\d+/\d+/\d+`)
	spaceRun     = regexp.MustCompile(`\s+`)

	// patternNamespace scopes deterministic pattern ids.
	patternNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mpesa-ledger/recurring-pattern"))
)

// DescriptionSignature reduces a description to at most three significant
// words. Receipt codes, long digit runs and dates are removed first.
func DescriptionSignature(description string) string {
	if description == "" {
		return "no_description"
	}
	cleaned := codeRun.ReplaceAllString(description, "")
	cleaned = longDigitRun.ReplaceAllString(cleaned, "")
	cleaned = slashDate.ReplaceAllString(cleaned, "")
	cleaned = spaceRun.ReplaceAllString(cleaned, " ")

	var words []string
	for _, w := range strings.Fields(strings.ToLower(cleaned)) {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
			if len(words) == 3 {
				break
			}
		}
	}
	if len(words) == 0 {
		return "generic"
	}
	return strings.Join(words, " ")
}

// roundToHundred rounds half to even, so 250 becomes 200 and 350 becomes 400.
func roundToHundred(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(hundred).RoundBank(0).Mul(hundred)
}

type recurringKey struct {
	amount    string
	phone     string
	signature string
	category  string
}

func (k recurringKey) String() string {
	return strings.Join([]string{k.amount, k.phone, k.signature, k.category}, "|")
}

func keyFor(tx domain.Transaction) recurringKey {
	k := recurringKey{
		amount:    roundToHundred(tx.Amount).String(),
		phone:     tx.CounterpartyPhone,
		signature: DescriptionSignature(tx.RawDescription),
		category:  tx.Category,
	}
	if k.phone == "" {
		k.phone = "unknown"
	}
	if k.category == "" {
		k.category = "uncategorized"
	}
	return k
}

// RecurringPayments groups outgoing payments of the trailing lookbackDays
// by rounded amount, counterparty, description signature and category.
// Groups with at least minOccurrences members are reported, largest total
// first.
func (e *Engine) RecurringPayments(ctx context.Context, ownerID string, lookbackDays, minOccurrences int) (RecurringReport, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}
	txs, err := e.trailing(ctx, ownerID, lookbackDays)
	if err != nil {
		return RecurringReport{}, fmt.Errorf("RecurringPayments: %w", err)
	}

	var order []recurringKey
	groups := map[recurringKey][]domain.Transaction{}
	for _, tx := range txs {
		if tx.IsIncome() {
			continue
		}
		k := keyFor(tx)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], tx)
	}

	report := RecurringReport{
		Patterns: []RecurringPattern{},
		Summary:  RecurringSummary{LookbackDays: lookbackDays, MinOccurrences: minOccurrences},
	}
	for _, k := range order {
		members := groups[k]
		if len(members) < minOccurrences {
			continue
		}
		report.Patterns = append(report.Patterns, e.pattern(k, members))
	}

	sort.SliceStable(report.Patterns, func(i, j int) bool {
		return report.Patterns[i].TotalSpent.GreaterThan(report.Patterns[j].TotalSpent)
	})
	for _, p := range report.Patterns {
		report.Summary.TotalRecurringSpending = report.Summary.TotalRecurringSpending.Add(p.TotalSpent)
	}
	report.Summary.TotalPatterns = len(report.Patterns)
	return report, nil
}

func (e *Engine) pattern(k recurringKey, members []domain.Transaction) RecurringPattern {
	sort.SliceStable(members, func(i, j int) bool { return members[i].OccurredAt.Before(members[j].OccurredAt) })

	p := RecurringPattern{
		PatternID:          uuid.NewSHA1(patternNamespace, []byte(k.String())).String(),
		DescriptionPattern: k.signature,
		Phone:              k.phone,
		Category:           k.category,
		ApproximateAmount:  roundToHundred(members[0].Amount),
		OccurrenceCount:    len(members),
		FirstOccurrence:    e.date(members[0].OccurredAt),
		LastOccurrence:     e.date(members[len(members)-1].OccurredAt),
		Transactions:       make([]RecurringTransaction, 0, len(members)),
	}

	var intervalDays int
	for i, tx := range members {
		p.TotalSpent = p.TotalSpent.Add(tx.Amount)
		p.Transactions = append(p.Transactions, RecurringTransaction{
			ExternalCode: tx.ExternalCode,
			Amount:       tx.Amount,
			OccurredAt:   tx.OccurredAt,
			Description:  tx.RawDescription,
		})
		if i > 0 {
			intervalDays += int(tx.OccurredAt.Sub(members[i-1].OccurredAt) / day)
		}
	}

	var avg float64
	if n := len(members) - 1; n > 0 {
		avg = float64(intervalDays) / float64(n)
	}
	p.AvgIntervalDays = math.Round(avg*10) / 10
	p.Frequency = FrequencyFor(avg)
	return p
}
