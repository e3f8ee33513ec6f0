package analytics

import (
	"context"
	"fmt"
	"sort"
)

// MonthlySummary buckets the trailing months*30 days by calendar month.
// Only months with at least one transaction appear in the series.
func (e *Engine) MonthlySummary(ctx context.Context, ownerID string, months int) (MonthlyReport, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	txs, err := e.trailing(ctx, ownerID, months*30)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("MonthlySummary: %w", err)
	}

	buckets := map[string]*MonthBucket{}
	for _, tx := range txs {
		at := tx.OccurredAt.In(e.loc)
		key := at.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &MonthBucket{Month: key, MonthName: at.Format("January 2006")}
			buckets[key] = b
		}
		if tx.IsIncome() {
			b.Income = b.Income.Add(tx.Amount)
		} else {
			b.Expenses = b.Expenses.Add(tx.Amount)
		}
		b.Count++
	}

	report := MonthlyReport{Months: make([]MonthBucket, 0, len(buckets))}
	for _, b := range buckets {
		b.Net = b.Income.Sub(b.Expenses)
		b.Average = average(b.Income.Add(b.Expenses), b.Count)
		report.Months = append(report.Months, *b)
	}
	sort.Slice(report.Months, func(i, j int) bool { return report.Months[i].Month < report.Months[j].Month })

	s := &report.Summary
	for _, b := range report.Months {
		s.TotalIncome = s.TotalIncome.Add(b.Income)
		s.TotalExpenses = s.TotalExpenses.Add(b.Expenses)
	}
	s.NetBalance = s.TotalIncome.Sub(s.TotalExpenses)
	s.MonthsAnalyzed = len(report.Months)
	s.AvgMonthlyIncome = average(s.TotalIncome, s.MonthsAnalyzed)
	s.AvgMonthlyExpenses = average(s.TotalExpenses, s.MonthsAnalyzed)
	return report, nil
}

// Summary returns lifetime totals for ownerID.
func (e *Engine) Summary(ctx context.Context, ownerID string) (SummaryReport, error) {
	txs, err := e.query(ctx, ownerID, lifetimeStart, e.now())
	if err != nil {
		return SummaryReport{}, fmt.Errorf("Summary: %w", err)
	}

	var report SummaryReport
	for _, tx := range txs {
		if tx.IsIncome() {
			report.TotalIncome = report.TotalIncome.Add(tx.Amount)
		} else {
			report.TotalExpenses = report.TotalExpenses.Add(tx.Amount)
		}
	}
	report.Net = report.TotalIncome.Sub(report.TotalExpenses)
	report.Count = len(txs)
	return report, nil
}

