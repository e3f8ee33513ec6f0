package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

// schema is idempotent; Migrate may run on every start.
const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id                 UUID PRIMARY KEY,
		owner_id           VARCHAR(128) NOT NULL,
		external_code      VARCHAR(64) NOT NULL,
		amount             NUMERIC(14,2) NOT NULL,
		direction          VARCHAR(16) NOT NULL,
		counterparty_phone VARCHAR(20) NOT NULL DEFAULT '',
		occurred_at        TIMESTAMPTZ NOT NULL,
		raw_description    VARCHAR(200) NOT NULL DEFAULT '',
		category           VARCHAR(100) NOT NULL DEFAULT '',
		sub_category       VARCHAR(100) NOT NULL DEFAULT '',
		confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
		source             VARCHAR(16) NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (owner_id, external_code)
	);

	CREATE INDEX IF NOT EXISTS transactions_owner_occurred_idx
		ON transactions (owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id        UUID PRIMARY KEY,
		owner_id      VARCHAR(128) NOT NULL,
		format        VARCHAR(16) NOT NULL DEFAULT '',
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL,
		status        VARCHAR(16) NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created       INTEGER NOT NULL DEFAULT 0,
		duplicates    INTEGER NOT NULL DEFAULT 0,
		attempted     INTEGER NOT NULL DEFAULT 0,
		skipped       INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR(200) NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		checksum   VARCHAR(64) NOT NULL,
		applied_by VARCHAR(100) NOT NULL DEFAULT ''
	);
`

// Migrate creates the tables and indexes when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("Migrate: create schema: %w", classify(err))
	}
	log := logger.FromContext(ctx)
	log.Info().Msg("Database schema is up to date")
	return nil
}
