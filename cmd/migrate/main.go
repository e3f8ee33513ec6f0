package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/infra/postgres"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := app.Logger(cfg, "migrate")

	migrationsDir := flag.String("migrations", "", "Directory of versioned NNNN_name.sql files (postgres only)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name recorded against applied migrations")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer svc.Close()

	if err := svc.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to create schema")
	}

	if *migrationsDir == "" {
		log.Info().Str("backend", cfg.Store.Backend).Msg("Schema is up to date")
		return
	}

	pg, ok := svc.Store.(*postgres.Store)
	if !ok {
		log.Fatal().Str("backend", cfg.Store.Backend).Msg("Versioned migrations require the postgres store")
	}

	migrations, err := postgres.ReadMigrations(os.DirFS(*migrationsDir))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("found", len(migrations)).Msg("Read migration files")

	applied, err := pg.ApplyMigrations(ctx, migrations, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
	}
	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", applied).Msg("Applied migrations")
	}
}
