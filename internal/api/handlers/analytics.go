package handlers

import (
	"fmt"
	"net/http"

	"github.com/dvloznov/mpesa-ledger/internal/analytics"
	"github.com/dvloznov/mpesa-ledger/internal/api/middleware"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the analytics reports, cache-aside when a
// ReportCache is configured.
type AnalyticsHandler struct {
	engine       ReportEngine
	cache        analytics.ReportCache
	defaultOwner string
}

// NewAnalyticsHandler creates a new analytics handler. cache may be nil.
func NewAnalyticsHandler(engine ReportEngine, cache analytics.ReportCache, defaultOwner string) *AnalyticsHandler {
	if defaultOwner == "" {
		defaultOwner = pipeline.DefaultOwnerID
	}
	return &AnalyticsHandler{engine: engine, cache: cache, defaultOwner: defaultOwner}
}

// respond runs a cached report computation and writes the result.
func respond[T any](c *gin.Context, h *AnalyticsHandler, key string, compute func(owner string) (T, error)) {
	ctx := c.Request.Context()
	owner := ownerID(c, h.defaultOwner)

	report, err := analytics.Cached(ctx, h.cache, owner, key, func() (T, error) { return compute(owner) })
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("report", key).Msg("Failed to compute report")
		middleware.WriteError(c, storeStatus(err), "Failed to compute report")
		return
	}
	middleware.WriteJSON(c, http.StatusOK, report)
}

// ints parses the named query parameters with their defaults, writing a
// 400 and returning false on the first bad value.
func ints(c *gin.Context, names []string, defaults []int) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := intQuery(c, name, defaults[i])
		if err != nil {
			middleware.WriteError(c, http.StatusBadRequest, err.Error())
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Monthly handles GET /api/analytics/monthly?months=
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	v, ok := ints(c, []string{"months"}, []int{analytics.DefaultMonths})
	if !ok {
		return
	}
	respond(c, h, fmt.Sprintf("monthly:%d", v[0]), func(owner string) (analytics.MonthlyReport, error) {
		return h.engine.MonthlySummary(c.Request.Context(), owner, v[0])
	})
}

// TopCategories handles GET /api/analytics/top-categories?limit=&days=
func (h *AnalyticsHandler) TopCategories(c *gin.Context) {
	v, ok := ints(c, []string{"limit", "days"}, []int{analytics.DefaultTopLimit, analytics.DefaultPeriodDays})
	if !ok {
		return
	}
	respond(c, h, fmt.Sprintf("top:%d:%d", v[0], v[1]), func(owner string) (analytics.TopCategoriesReport, error) {
		return h.engine.TopCategories(c.Request.Context(), owner, v[0], v[1])
	})
}

// Cashflow handles GET /api/analytics/cashflow?days=&granularity=
func (h *AnalyticsHandler) Cashflow(c *gin.Context) {
	v, ok := ints(c, []string{"days"}, []int{analytics.DefaultPeriodDays})
	if !ok {
		return
	}
	g := analytics.ParseGranularity(c.Query("granularity"))
	respond(c, h, fmt.Sprintf("cashflow:%d:%s", v[0], g), func(owner string) (analytics.CashflowReport, error) {
		return h.engine.Cashflow(c.Request.Context(), owner, v[0], g)
	})
}

// RecurringPayments handles GET /api/analytics/recurring-payments?days=&min_occurrences=
func (h *AnalyticsHandler) RecurringPayments(c *gin.Context) {
	v, ok := ints(c, []string{"days", "min_occurrences"}, []int{analytics.DefaultLookbackDays, analytics.DefaultMinOccurrences})
	if !ok {
		return
	}
	respond(c, h, fmt.Sprintf("recurring:%d:%d", v[0], v[1]), func(owner string) (analytics.RecurringReport, error) {
		return h.engine.RecurringPayments(c.Request.Context(), owner, v[0], v[1])
	})
}

// SpendingTrends handles GET /api/analytics/spending-trends
func (h *AnalyticsHandler) SpendingTrends(c *gin.Context) {
	respond(c, h, "trends", func(owner string) (analytics.TrendsReport, error) {
		return h.engine.SpendingTrends(c.Request.Context(), owner)
	})
}

// BudgetInsights handles GET /api/analytics/budget-insights
func (h *AnalyticsHandler) BudgetInsights(c *gin.Context) {
	respond(c, h, "budget", func(owner string) (analytics.BudgetReport, error) {
		return h.engine.BudgetInsights(c.Request.Context(), owner)
	})
}

// Summary handles GET /api/analytics/summary
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	respond(c, h, "summary", func(owner string) (analytics.SummaryReport, error) {
		return h.engine.Summary(c.Request.Context(), owner)
	})
}
