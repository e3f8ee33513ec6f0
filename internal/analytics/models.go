package analytics

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MonthBucket aggregates one calendar month.
type MonthBucket struct {
	Month     string          `json:"month"`
	MonthName string          `json:"month_name"`
	Income    decimal.Decimal `json:"total_income"`
	Expenses  decimal.Decimal `json:"total_expenses"`
	Net       decimal.Decimal `json:"net_cashflow"`
	Count     int             `json:"transaction_count"`
	Average   decimal.Decimal `json:"avg_transaction"`
}

// MonthlyReport is the result of MonthlySummary.
type MonthlyReport struct {
	Months  []MonthBucket  `json:"monthly_data"`
	Summary MonthlySummary `json:"summary"`
}

// MonthlySummary holds the totals across every bucket of a MonthlyReport.
type MonthlySummary struct {
	TotalIncome        decimal.Decimal `json:"total_income"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	NetBalance         decimal.Decimal `json:"net_balance"`
	MonthsAnalyzed     int             `json:"months_analyzed"`
	AvgMonthlyIncome   decimal.Decimal `json:"avg_monthly_income"`
	AvgMonthlyExpenses decimal.Decimal `json:"avg_monthly_expenses"`
}

// CategoryTotal is one row of TopCategories.
type CategoryTotal struct {
	Category          string          `json:"category"`
	Total             decimal.Decimal `json:"total_amount"`
	Count             int             `json:"transaction_count"`
	Average           decimal.Decimal `json:"avg_amount"`
	PercentageOfTotal float64         `json:"percentage_of_total"`
}

// TopCategoriesReport is the result of TopCategories.
type TopCategoriesReport struct {
	Categories  []CategoryTotal `json:"top_categories"`
	PeriodDays  int             `json:"period_days"`
	TotalAmount decimal.Decimal `json:"total_spending"`
}

// CashflowBucket aggregates one day or week.
type CashflowBucket struct {
	Date           civil.Date      `json:"date"`
	MoneyIn        decimal.Decimal `json:"money_in"`
	MoneyOut       decimal.Decimal `json:"money_out"`
	Net            decimal.Decimal `json:"net_flow"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Count          int             `json:"transaction_count"`
}

// CashflowReport is the result of Cashflow.
type CashflowReport struct {
	Buckets []CashflowBucket `json:"cashflow_data"`
	Summary CashflowSummary  `json:"summary"`
}

// CashflowSummary holds the totals and extremes of a CashflowReport.
// Best and Worst are nil when the window is empty.
type CashflowSummary struct {
	TotalIn      decimal.Decimal `json:"total_money_in"`
	TotalOut     decimal.Decimal `json:"total_money_out"`
	Net          decimal.Decimal `json:"net_cashflow"`
	FinalBalance decimal.Decimal `json:"final_balance"`
	Best         *CashflowBucket `json:"best_period"`
	Worst        *CashflowBucket `json:"worst_period"`
	PeriodDays   int             `json:"period_days"`
	Granularity  Granularity     `json:"granularity"`
}

// PeriodTotals summarises one side of a trend comparison.
type PeriodTotals struct {
	Spending decimal.Decimal `json:"spending"`
	Income   decimal.Decimal `json:"income"`
	Count    int             `json:"transaction_count"`
}

// Change is a percentage change between two periods. Baseline is
// BaselineNone when the previous value was zero and the percentage is 0.
type Change struct {
	Percentage float64 `json:"change_percentage"`
	Trend      Trend   `json:"trend"`
	Baseline   string  `json:"baseline"`
}

// CategoryTrend compares one category across both periods.
type CategoryTrend struct {
	Category string          `json:"category"`
	Current  decimal.Decimal `json:"current_amount"`
	Previous decimal.Decimal `json:"previous_amount"`
	Change
}

// TrendsReport is the result of SpendingTrends.
type TrendsReport struct {
	Current        PeriodTotals    `json:"current_period"`
	Previous       PeriodTotals    `json:"previous_period"`
	Spending       Change          `json:"spending_change"`
	Income         Change          `json:"income_change"`
	CategoryTrends []CategoryTrend `json:"category_trends"`
}

// BudgetInsight compares one category's spend with its recommended share.
type BudgetInsight struct {
	Category              string          `json:"category"`
	ActualSpending        decimal.Decimal `json:"actual_spending"`
	ActualPercentage      float64         `json:"actual_percentage"`
	RecommendedPercentage float64         `json:"recommended_percentage"`
	RecommendedAmount     decimal.Decimal `json:"recommended_amount"`
	Variance              decimal.Decimal `json:"variance"`
	Status                BudgetStatus    `json:"status"`
}

// BudgetReport is the result of BudgetInsights.
type BudgetReport struct {
	Insights      []BudgetInsight `json:"budget_insights"`
	TotalSpending decimal.Decimal `json:"total_spending"`
	PeriodDays    int             `json:"period_days"`
}

// RecurringTransaction is one member of a RecurringPattern.
type RecurringTransaction struct {
	ExternalCode string          `json:"mpesa_code"`
	Amount       decimal.Decimal `json:"amount"`
	OccurredAt   time.Time       `json:"date"`
	Description  string          `json:"description"`
}

// RecurringPattern is a group of similar outgoing payments.
type RecurringPattern struct {
	PatternID          string                 `json:"pattern_id"`
	DescriptionPattern string                 `json:"description_pattern"`
	Phone              string                 `json:"phone_number"`
	Category           string                 `json:"category"`
	ApproximateAmount  decimal.Decimal        `json:"approximate_amount"`
	OccurrenceCount    int                    `json:"occurrence_count"`
	AvgIntervalDays    float64                `json:"avg_interval_days"`
	Frequency          Frequency              `json:"frequency"`
	TotalSpent         decimal.Decimal        `json:"total_spent"`
	FirstOccurrence    civil.Date             `json:"first_occurrence"`
	LastOccurrence     civil.Date             `json:"last_occurrence"`
	Transactions       []RecurringTransaction `json:"transactions"`
}

// RecurringReport is the result of RecurringPayments.
type RecurringReport struct {
	Patterns []RecurringPattern `json:"recurring_payments"`
	Summary  RecurringSummary   `json:"summary"`
}

// RecurringSummary holds the totals of a RecurringReport.
type RecurringSummary struct {
	TotalPatterns          int             `json:"total_patterns_found"`
	TotalRecurringSpending decimal.Decimal `json:"total_recurring_spending"`
	LookbackDays           int             `json:"lookback_days"`
	MinOccurrences         int             `json:"min_occurrences"`
}

// CategoryCount is one row of CategoryStats.
type CategoryCount struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total_amount"`
}

// CategoryStatsReport is the result of CategoryStats.
type CategoryStatsReport struct {
	Categories         []CategoryCount `json:"categories"`
	TotalTransactions  int             `json:"total_transactions"`
	CategorizedCount   int             `json:"categorized_count"`
	UncategorizedCount int             `json:"uncategorized_count"`
}

// SummaryReport holds lifetime totals for an owner.
type SummaryReport struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Net           decimal.Decimal `json:"net"`
	Count         int             `json:"transaction_count"`
}
