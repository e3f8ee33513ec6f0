// Package analytics computes read-only reports over an owner's stored
// transactions. Every report is recomputed from a fresh store query.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Default report parameters.
const (
	DefaultMonths         = 6
	DefaultPeriodDays     = 30
	DefaultTopLimit       = 10
	DefaultLookbackDays   = 90
	DefaultMinOccurrences = 2
	TrendWindowDays       = 30
	BudgetWindowDays      = 30
	MaxCategoryTrends     = 10
)

var hundred = decimal.NewFromInt(100)

// Source is the store query the engine needs. Results are oldest first and
// the window is inclusive at both ends.
type Source interface {
	QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error)
}

// Engine computes reports over a Source.
type Engine struct {
	source Source
	now    func() time.Time
	loc    *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock that anchors every trailing window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for month, day and week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine creates an Engine over source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{source: source, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// trailing returns the owner's transactions in [now-days, now].
func (e *Engine) trailing(ctx context.Context, ownerID string, days int) ([]domain.Transaction, error) {
	end := e.now()
	return e.query(ctx, ownerID, end.Add(-time.Duration(days)*day), end)
}

func (e *Engine) query(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error) {
	txs, err := e.source.QueryByOwnerAndWindow(ctx, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Str("owner_id", ownerID).
		Time("start", start).
		Time("end", end).
		Int("rows", len(txs)).
		Msg("Loaded analytics window")
	return txs, nil
}

func (e *Engine) date(t time.Time) civil.Date {
	return civil.DateOf(t.In(e.loc))
}

// percent returns part/whole*100 rounded to two places, or 0 for a zero whole.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}

// average returns total/count rounded to two places, or 0 for no items.
func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// lifetimeStart bounds lifetime queries; no M-Pesa record predates it.
var lifetimeStart = time.Date(2007, 1, 1, 0, 0, 0, 0, time.UTC)
