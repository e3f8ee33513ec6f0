// Package api assembles the HTTP surface: middleware, handlers and routes.
package api

import (
	"github.com/dvloznov/mpesa-ledger/internal/analytics"
	"github.com/dvloznov/mpesa-ledger/internal/api/handlers"
	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/jobs"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthPath is served without authentication.
const HealthPath = "/health"

// Deps are the collaborators the router wires into handlers. Publisher,
// Jobs, Archive and Cache are optional and must be left as untyped nil
// when absent.
type Deps struct {
	Ingester   handlers.Ingester
	Store      handlers.TransactionStore
	Classifier handlers.Classifier
	Engine     handlers.ReportEngine
	Publisher  jobs.Publisher
	Jobs       jobs.JobStore
	Archive    handlers.Archiver
	Cache      ReportCache
}

// ReportCache is both read by the analytics endpoints and invalidated by
// category corrections. *rediscache.Cache implements it.
type ReportCache interface {
	analytics.ReportCache
	pipeline.CacheInvalidator
}

// Config holds the router settings.
type Config struct {
	APIToken       string
	AllowedOrigins []string
	Transactions   handlers.TransactionsConfig
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(log zerolog.Logger, deps Deps, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Auth(cfg.APIToken, HealthPath),
	)

	var (
		reports     analytics.ReportCache
		invalidator pipeline.CacheInvalidator
	)
	if deps.Cache != nil {
		reports, invalidator = deps.Cache, deps.Cache
	}

	owner := cfg.Transactions.DefaultOwner
	transactions := handlers.NewTransactionsHandler(deps.Ingester, deps.Store, deps.Classifier, deps.Publisher, deps.Archive, invalidator, cfg.Transactions)
	categories := handlers.NewCategoriesHandler(deps.Classifier, deps.Engine, owner)
	reportsHandler := handlers.NewAnalyticsHandler(deps.Engine, reports, owner)
	webhooks := handlers.NewWebhooksHandler(deps.Ingester, owner)

	r.GET(HealthPath, handlers.Health)

	api := r.Group("/api")
	{
		tx := api.Group("/transactions")
		tx.GET("", transactions.List)
		tx.POST("/upload", transactions.Upload)
		tx.POST("/bulk-categorize", transactions.BulkCategorize)
		tx.GET("/:code", transactions.Get)
		tx.PUT("/:code/category", transactions.UpdateCategory)
		tx.POST("/:code/categorize", transactions.Categorize)

		api.GET("/categories", categories.List)
		api.GET("/categories/suggest", categories.Suggest)
		api.GET("/categories/stats", categories.Stats)

		a := api.Group("/analytics")
		a.GET("/summary", reportsHandler.Summary)
		a.GET("/monthly", reportsHandler.Monthly)
		a.GET("/top-categories", reportsHandler.TopCategories)
		a.GET("/cashflow", reportsHandler.Cashflow)
		a.GET("/recurring-payments", reportsHandler.RecurringPayments)
		a.GET("/spending-trends", reportsHandler.SpendingTrends)
		a.GET("/budget-insights", reportsHandler.BudgetInsights)

		api.POST("/webhooks/sms", webhooks.SMS)

		if deps.Jobs != nil {
			jobsHandler := handlers.NewJobsHandler(deps.Jobs)
			api.GET("/jobs", jobsHandler.ListJobs)
			api.GET("/jobs/:id", jobsHandler.GetJob)
		}
	}
	return r
}
