package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Trend classifies a percentage change.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Baseline values reported on a Change.
const (
	BaselinePrevious = "previous"
	BaselineNone     = "none"
)

const trendThreshold = 5.0

// compare returns the change from previous to current. A zero previous
// value yields 0% with BaselineNone.
func compare(current, previous decimal.Decimal) Change {
	if previous.IsZero() {
		return Change{Percentage: 0, Trend: TrendStable, Baseline: BaselineNone}
	}
	pct := current.Sub(previous).Div(previous).Mul(hundred).Round(2).InexactFloat64()
	trend := TrendStable
	switch {
	case pct > trendThreshold:
		trend = TrendIncreasing
	case pct < -trendThreshold:
		trend = TrendDecreasing
	}
	return Change{Percentage: pct, Trend: trend, Baseline: BaselinePrevious}
}

// SpendingTrends compares the last 30 days with the 30 days before them.
// The current window is [now-30d, now]; the previous one is
// [now-60d, now-30d).
func (e *Engine) SpendingTrends(ctx context.Context, ownerID string) (TrendsReport, error) {
	now := e.now()
	currentStart := now.Add(-TrendWindowDays * day)
	previousStart := currentStart.Add(-TrendWindowDays * day)

	txs, err := e.query(ctx, ownerID, previousStart, now)
	if err != nil {
		return TrendsReport{}, fmt.Errorf("SpendingTrends: %w", err)
	}

	var report TrendsReport
	current := map[string]decimal.Decimal{}
	previous := map[string]decimal.Decimal{}
	var categories []string
	for _, tx := range txs {
		period, byCategory := &report.Current, current
		if tx.OccurredAt.Before(currentStart) {
			period, byCategory = &report.Previous, previous
		}
		if tx.IsIncome() {
			period.Income = period.Income.Add(tx.Amount)
		} else {
			period.Spending = period.Spending.Add(tx.Amount)
		}
		period.Count++

		if tx.Category == "" {
			continue
		}
		if _, seen := current[tx.Category]; !seen {
			if _, seen := previous[tx.Category]; !seen {
				categories = append(categories, tx.Category)
			}
		}
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
	}

	report.Spending = compare(report.Current.Spending, report.Previous.Spending)
	report.Income = compare(report.Current.Income, report.Previous.Income)

	report.CategoryTrends = make([]CategoryTrend, 0, len(categories))
	for _, name := range categories {
		report.CategoryTrends = append(report.CategoryTrends, CategoryTrend{
			Category: name,
			Current:  current[name],
			Previous: previous[name],
			Change:   compare(current[name], previous[name]),
		})
	}
	sort.SliceStable(report.CategoryTrends, func(i, j int) bool {
		a, b := math.Abs(report.CategoryTrends[i].Percentage), math.Abs(report.CategoryTrends[j].Percentage)
		if a != b {
			return a > b
		}
		return report.CategoryTrends[i].Category < report.CategoryTrends[j].Category
	})
	if len(report.CategoryTrends) > MaxCategoryTrends {
		report.CategoryTrends = report.CategoryTrends[:MaxCategoryTrends]
	}
	return report, nil
}
