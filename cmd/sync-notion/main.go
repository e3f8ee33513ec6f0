package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/notionsync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := app.Logger(cfg, "sync-notion")

	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	owner := flag.String("owner", cfg.Ingest.DefaultOwner, "Owner whose transactions are exported")
	notionToken := flag.String("notion-token", cfg.Notion.Token, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *notionToken == "" || *notionDBID == "" {
		log.Fatal().Msg("Error: a Notion token and database ID are required")
	}

	startDate, err := time.ParseInLocation("2006-01-02", *startDateStr, cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := time.ParseInLocation("2006-01-02", *endDateStr, cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Time("start_date", startDate).
			Time("end_date", endDate).
			Msg("Error: end-date must be after start-date")
	}
	// The end date is inclusive.
	endDate = endDate.AddDate(0, 0, 1).Add(-time.Nanosecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer svc.Close()

	log.Info().
		Str("start_date", *startDateStr).
		Str("end_date", *endDateStr).
		Str("owner", *owner).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	syncer := notionsync.NewSyncer(svc.Store, notionsync.NewClient(*notionToken), *notionDBID)
	result, err := syncer.SyncTransactions(ctx, *owner, startDate, endDate, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("created=%d updated=%d archived=%d unchanged=%d failed=%d\n",
		result.Created, result.Updated, result.Deleted, result.Unchanged, result.Failed)
}
