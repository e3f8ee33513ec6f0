package analytics

import (
	"context"

	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

// ReportCache stores computed reports per owner. *rediscache.Cache is the
// production implementation.
type ReportCache interface {
	Get(ctx context.Context, ownerID, key string, dst any) (bool, error)
	Set(ctx context.Context, ownerID, key string, v any) error
}

// Cached returns the cached report for (ownerID, key) or computes and
// stores it. A nil cache always computes. Cache failures are logged and
// never fail the request.
func Cached[T any](ctx context.Context, cache ReportCache, ownerID, key string, compute func() (T, error)) (T, error) {
	if cache == nil {
		return compute()
	}
	log := logger.FromContext(ctx)

	var cached T
	hit, err := cache.Get(ctx, ownerID, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache read failed")
	}
	if hit {
		return cached, nil
	}

	report, err := compute()
	if err != nil {
		return report, err
	}
	if err := cache.Set(ctx, ownerID, key, report); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Report cache write failed")
	}
	return report, nil
}
