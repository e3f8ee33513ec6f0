package handlers

import (
	"context"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/analytics"
	"github.com/dvloznov/mpesa-ledger/internal/categorize"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/dvloznov/mpesa-ledger/internal/store"
)

// Ingester runs the ingestion pipeline. *pipeline.Ingester implements it.
type Ingester interface {
	Ingest(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (pipeline.Report, error)
}

// TransactionStore is the store surface the transaction endpoints use.
type TransactionStore interface {
	Get(ctx context.Context, ownerID, externalCode string) (domain.Transaction, error)
	QueryByFilter(ctx context.Context, f store.Filter) ([]domain.Transaction, error)
	UpdateCategory(ctx context.Context, ownerID, externalCode, category, subCategory string, confidence float64) error
}

// Classifier is the categorizer surface. *categorize.Categorizer implements it.
type Classifier interface {
	Categorize(description string, direction domain.Direction) categorize.Result
	Suggest(description string) []categorize.Suggestion
	Categories() []string
	Known(name string) (string, bool)
}

// Archiver stores raw uploads. *gcsuploader.Archive implements it.
type Archiver interface {
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// ReportEngine produces analytics reports. *analytics.Engine implements it.
type ReportEngine interface {
	MonthlySummary(ctx context.Context, ownerID string, months int) (analytics.MonthlyReport, error)
	TopCategories(ctx context.Context, ownerID string, limit, days int) (analytics.TopCategoriesReport, error)
	Cashflow(ctx context.Context, ownerID string, days int, g analytics.Granularity) (analytics.CashflowReport, error)
	SpendingTrends(ctx context.Context, ownerID string) (analytics.TrendsReport, error)
	BudgetInsights(ctx context.Context, ownerID string) (analytics.BudgetReport, error)
	RecurringPayments(ctx context.Context, ownerID string, lookbackDays, minOccurrences int) (analytics.RecurringReport, error)
	CategoryStats(ctx context.Context, ownerID string, days int) (analytics.CategoryStatsReport, error)
	Summary(ctx context.Context, ownerID string) (analytics.SummaryReport, error)
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time
