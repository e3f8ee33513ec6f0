package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Granularity is the bucket size of a cashflow report.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// ParseGranularity accepts day/daily and week/weekly. Anything else is day.
func ParseGranularity(s string) Granularity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return GranularityWeek
	default:
		return GranularityDay
	}
}

// bucketStart returns the first day of the bucket containing t. Weeks
// start on Monday.
func (e *Engine) bucketStart(t time.Time, g Granularity) civil.Date {
	d := e.date(t)
	if g != GranularityWeek {
		return d
	}
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Cashflow buckets the trailing days by day or week. The running balance
// starts at zero and accumulates net flow in chronological order.
func (e *Engine) Cashflow(ctx context.Context, ownerID string, days int, g Granularity) (CashflowReport, error) {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	if g != GranularityWeek {
		g = GranularityDay
	}
	txs, err := e.trailing(ctx, ownerID, days)
	if err != nil {
		return CashflowReport{}, fmt.Errorf("Cashflow: %w", err)
	}

	var order []civil.Date
	buckets := map[civil.Date]*CashflowBucket{}
	for _, tx := range txs {
		key := e.bucketStart(tx.OccurredAt, g)
		b, ok := buckets[key]
		if !ok {
			b = &CashflowBucket{Date: key}
			buckets[key] = b
			order = append(order, key)
		}
		if tx.IsIncome() {
			b.MoneyIn = b.MoneyIn.Add(tx.Amount)
		} else {
			b.MoneyOut = b.MoneyOut.Add(tx.Amount)
		}
		b.Count++
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	report := CashflowReport{
		Buckets: make([]CashflowBucket, 0, len(order)),
		Summary: CashflowSummary{PeriodDays: days, Granularity: g},
	}
	s := &report.Summary
	for _, key := range order {
		b := buckets[key]
		b.Net = b.MoneyIn.Sub(b.MoneyOut)
		s.FinalBalance = s.FinalBalance.Add(b.Net)
		b.RunningBalance = s.FinalBalance
		s.TotalIn = s.TotalIn.Add(b.MoneyIn)
		s.TotalOut = s.TotalOut.Add(b.MoneyOut)
		report.Buckets = append(report.Buckets, *b)
	}
	s.Net = s.TotalIn.Sub(s.TotalOut)

	for i := range report.Buckets {
		b := report.Buckets[i]
		if s.Best == nil || b.Net.GreaterThan(s.Best.Net) {
			s.Best = &b
		}
		if s.Worst == nil || b.Net.LessThan(s.Worst.Net) {
			s.Worst = &b
		}
	}
	return report, nil
}
