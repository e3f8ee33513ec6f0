// Package postgres implements the transaction store on PostgreSQL through
// the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnectAttempts = 10
	defaultRetryDelay      = 2 * time.Second
)

// Store is the PostgreSQL-backed store.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	attempts   int
	retryDelay time.Duration
}

// WithConnectRetries sets how many pings Open tries before giving up.
func WithConnectRetries(attempts int, delay time.Duration) Option {
	return func(o *openOptions) {
		o.attempts = attempts
		o.retryDelay = delay
	}
}

// Open connects to databaseURL and waits for the server to answer.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	o := openOptions{attempts: defaultConnectAttempts, retryDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.attempts < 1 {
		o.attempts = 1
	}

	config, err := pgx.ParseConfig(NormalizeURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("Open: parse database URL: %w", err)
	}

	log := logger.FromContext(ctx)
	db := stdlib.OpenDB(*config)
	for i := 0; i < o.attempts; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Info().Str("host", config.Host).Msg("Database connection established")
			return &Store{db: db, now: time.Now}, nil
		}
		if i == o.attempts-1 {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", o.attempts).Msg("Database not ready, retrying")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("Open: %w", ctx.Err())
		case <-time.After(o.retryDelay):
		}
	}
	db.Close()
	return nil, fmt.Errorf("Open: connect after %d attempts: %w: %v", o.attempts, store.ErrUnavailable, err)
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// NormalizeURL rewrites postgresql:// to postgres:// and adds
// sslmode=disable when no sslmode is given.
func NormalizeURL(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}
	if databaseURL != "" && !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL += separator + "sslmode=disable"
	}
	return databaseURL
}

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

var _ store.Store = (*Store)(nil)
