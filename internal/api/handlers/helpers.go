package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/gin-gonic/gin"
)

// OwnerHeader names the ledger owner a request acts for.
const OwnerHeader = "X-Owner-ID"

const dateLayout = "2006-01-02"

// ownerID resolves the owner from the header, then the "owner" query
// parameter, then fallback.
func ownerID(c *gin.Context, fallback string) string {
	if v := c.GetHeader(OwnerHeader); v != "" {
		return v
	}
	if v := c.Query("owner"); v != "" {
		return v
	}
	return fallback
}

// intQuery parses a non-negative integer query parameter.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// dateQuery parses a YYYY-MM-DD parameter in loc. endOfDay moves the
// result to the last nanosecond of that day.
func dateQuery(c *gin.Context, name string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be formatted as YYYY-MM-DD", name)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// storeStatus maps store errors onto HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
