package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetStatus classifies a category against its recommended share.
type BudgetStatus string

const (
	StatusOverBudget  BudgetStatus = "over_budget"
	StatusUnderBudget BudgetStatus = "under_budget"
	StatusOnTrack     BudgetStatus = "on_track"
)

// recommendedShares is the fraction of total spend each category should
// take. Unlisted categories get defaultShare.
var recommendedShares = map[string]decimal.Decimal{
	"Food":              decimal.RequireFromString("0.25"),
	"Transport":         decimal.RequireFromString("0.15"),
	"Utilities":         decimal.RequireFromString("0.15"),
	"Personal":          decimal.RequireFromString("0.10"),
	"Business Expenses": decimal.RequireFromString("0.20"),
	"Inventory":         decimal.RequireFromString("0.15"),
}

var (
	defaultShare     = decimal.RequireFromString("0.10")
	underBudgetSlack = decimal.RequireFromString("0.10")
)

// RecommendedShare returns the recommended fraction of spend for category.
func RecommendedShare(category string) decimal.Decimal {
	if s, ok := recommendedShares[category]; ok {
		return s
	}
	return defaultShare
}

type categoryAccumulator struct {
	order  []string
	totals map[string]*CategoryTotal
}

func newCategoryAccumulator() *categoryAccumulator {
	return &categoryAccumulator{totals: map[string]*CategoryTotal{}}
}

func (a *categoryAccumulator) add(category string, amount decimal.Decimal) {
	c, ok := a.totals[category]
	if !ok {
		c = &CategoryTotal{Category: category}
		a.totals[category] = c
		a.order = append(a.order, category)
	}
	c.Total = c.Total.Add(amount)
	c.Count++
}

// sorted returns the totals by total descending, then by name.
func (a *categoryAccumulator) sorted() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.totals[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopCategories ranks categorized transactions of the trailing days by
// total amount. PercentageOfTotal is relative to every transaction in the
// window, categorized or not.
func (e *Engine) TopCategories(ctx context.Context, ownerID string, limit, days int) (TopCategoriesReport, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if days <= 0 {
		days = DefaultPeriodDays
	}
	txs, err := e.trailing(ctx, ownerID, days)
	if err != nil {
		return TopCategoriesReport{}, fmt.Errorf("TopCategories: %w", err)
	}

	report := TopCategoriesReport{PeriodDays: days}
	acc := newCategoryAccumulator()
	for _, tx := range txs {
		report.TotalAmount = report.TotalAmount.Add(tx.Amount)
		if tx.Category != "" {
			acc.add(tx.Category, tx.Amount)
		}
	}

	ranked := acc.sorted()
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Average = average(ranked[i].Total, ranked[i].Count)
		ranked[i].PercentageOfTotal = percent(ranked[i].Total, report.TotalAmount)
	}
	report.Categories = ranked
	return report, nil
}

// CategoryStats counts transactions per category. days <= 0 covers the
// owner's whole history.
func (e *Engine) CategoryStats(ctx context.Context, ownerID string, days int) (CategoryStatsReport, error) {
	start := lifetimeStart
	if days > 0 {
		start = e.now().Add(-time.Duration(days) * day)
	}
	txs, err := e.query(ctx, ownerID, start, e.now())
	if err != nil {
		return CategoryStatsReport{}, fmt.Errorf("CategoryStats: %w", err)
	}

	report := CategoryStatsReport{TotalTransactions: len(txs)}
	acc := newCategoryAccumulator()
	for _, tx := range txs {
		if !tx.Categorized() {
			report.UncategorizedCount++
			continue
		}
		acc.add(tx.Category, tx.Amount)
		report.CategorizedCount++
	}

	report.Categories = []CategoryCount{}
	for _, c := range acc.sorted() {
		report.Categories = append(report.Categories, CategoryCount{Category: c.Category, Count: c.Count, Total: c.Total})
	}
	return report, nil
}

// BudgetInsights compares each category's share of the last 30 days of
// spending with its recommended share. Income is excluded.
func (e *Engine) BudgetInsights(ctx context.Context, ownerID string) (BudgetReport, error) {
	txs, err := e.trailing(ctx, ownerID, BudgetWindowDays)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("BudgetInsights: %w", err)
	}

	report := BudgetReport{PeriodDays: BudgetWindowDays}
	acc := newCategoryAccumulator()
	for _, tx := range txs {
		if tx.IsIncome() || tx.Category == "" {
			continue
		}
		acc.add(tx.Category, tx.Amount)
		report.TotalSpending = report.TotalSpending.Add(tx.Amount)
	}

	report.Insights = []BudgetInsight{}
	for _, c := range acc.sorted() {
		share := RecommendedShare(c.Category)
		recommended := report.TotalSpending.Mul(share)
		variance := c.Total.Sub(recommended)

		status := StatusOnTrack
		switch {
		case variance.IsPositive():
			status = StatusOverBudget
		case variance.LessThan(recommended.Mul(underBudgetSlack).Neg()):
			status = StatusUnderBudget
		}

		report.Insights = append(report.Insights, BudgetInsight{
			Category:              c.Category,
			ActualSpending:        c.Total,
			ActualPercentage:      percent(c.Total, report.TotalSpending),
			RecommendedPercentage: share.Mul(hundred).Round(2).InexactFloat64(),
			RecommendedAmount:     recommended.Round(2),
			Variance:              variance.Round(2),
			Status:                status,
		})
	}
	return report, nil
}
