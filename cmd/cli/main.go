package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/analytics"
	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/gcsuploader"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/store"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := app.Logger(cfg, "cli")

	switch os.Args[1] {
	case "ingest":
		runIngest(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "categorize":
		runCategorize(cfg, log)
	case "suggest":
		runSuggest(cfg, log)
	case "report":
		runReport(cfg, log)
	case "inspect":
		runInspect(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("M-Pesa Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest      Ingest SMS, statement CSV or statement text from a file, gs:// URI or stdin")
	fmt.Println("  upload      Archive a local file to GCS and optionally ingest it")
	fmt.Println("  categorize  Categorize one transaction or every uncategorized one")
	fmt.Println("  suggest     Rank categories for a description")
	fmt.Println("  report      Print an analytics report as JSON")
	fmt.Println("  inspect     Show one transaction or the most recent ones")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// open builds the services every command shares.
func open(cfg config.Config, log zerolog.Logger, timeout time.Duration) (context.Context, *app.App, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithContext(ctx, log)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	return ctx, svc, func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close services")
		}
		cancel()
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runIngest(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	source := fs.String("source", "-", "Payload path, gs:// URI, or - for stdin")
	owner := fs.String("owner", cfg.Ingest.DefaultOwner, "Owner the transactions belong to")
	format := fs.String("format", "auto", "Payload format: message, tabular, document or auto")
	fs.Parse(os.Args[2:])

	ctx, svc, done := open(cfg, log, 5*time.Minute)
	defer done()

	var (
		payload []byte
		err     error
	)
	switch {
	case *source == "-":
		payload, err = io.ReadAll(os.Stdin)
	case strings.HasPrefix(*source, "gs://"):
		if svc.Archive == nil {
			log.Fatal().Msg("GCS_BUCKET must be set to read gs:// sources")
		}
		payload, err = svc.Archive.FetchFromGCS(ctx, *source)
	default:
		payload, err = os.ReadFile(*source)
	}
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("Failed to read payload")
	}

	log.Info().Str("source", *source).Int("bytes", len(payload)).Msg("Starting ingestion")
	report, err := svc.Ingester.Ingest(ctx, *owner, payload, domain.ParseFormat(*format))
	printJSON(report)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}

func runUpload(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the local payload file")
	owner := fs.String("owner", cfg.Ingest.DefaultOwner, "Owner the payload belongs to")
	objectName := fs.String("object", "", "GCS object name (defaults to raw/<owner>/<yyyy>/<mm>/<ts>-<file>)")
	ingest := fs.Bool("ingest", false, "Ingest the file after uploading it")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH [-owner ID] [-object NAME] [-ingest]")
	}

	ctx, svc, done := open(cfg, log, 5*time.Minute)
	defer done()
	if svc.Archive == nil {
		log.Fatal().Msg("GCS_BUCKET must be set to upload")
	}

	if *objectName == "" {
		*objectName = gcsuploader.ObjectName(*owner, *filePath, time.Now())
	}

	log.Info().
		Str("bucket", svc.Archive.Bucket()).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := svc.Archive.UploadFile(ctx, "", *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	uri := fmt.Sprintf("gs://%s/%s", svc.Archive.Bucket(), *objectName)
	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)

	if !*ingest {
		return
	}
	payload, err := svc.Archive.FetchFromGCS(ctx, uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read back upload")
	}
	report, err := svc.Ingester.Ingest(ctx, *owner, payload, domain.FormatAuto)
	printJSON(report)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}

func runCategorize(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	owner := fs.String("owner", cfg.Ingest.DefaultOwner, "Owner of the transactions")
	code := fs.String("code", "", "Categorize only this transaction code")
	fs.Parse(os.Args[2:])

	ctx, svc, done := open(cfg, log, 5*time.Minute)
	defer done()

	var pending []domain.Transaction
	if *code != "" {
		tx, err := svc.Store.Get(ctx, *owner, *code)
		if err != nil {
			log.Fatal().Err(err).Str("code", *code).Msg("Transaction not found")
		}
		pending = []domain.Transaction{tx}
	} else {
		var err error
		pending, err = svc.Store.QueryByFilter(ctx, store.Filter{OwnerID: *owner, UncategorizedOnly: true})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to query transactions")
		}
	}

	categorized := 0
	for _, tx := range svc.Classifier.BulkCategorize(pending) {
		if err := svc.Store.UpdateCategory(ctx, *owner, tx.ExternalCode, tx.Category, tx.SubCategory, tx.Confidence); err != nil {
			log.Error().Err(err).Str("code", tx.ExternalCode).Msg("Failed to update category")
			continue
		}
		fmt.Printf("%s  %-20s %.2f  %s\n", tx.ExternalCode, tx.Category, tx.Confidence, tx.RawDescription)
		categorized++
	}
	if categorized > 0 && svc.Cache != nil {
		if err := svc.Cache.InvalidateOwner(ctx, *owner); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate report cache")
		}
	}
	fmt.Printf("\nCategorized %d of %d transaction(s).\n", categorized, len(pending))
}

func runSuggest(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	description := fs.String("description", "", "Transaction description")
	fs.Parse(os.Args[2:])

	if strings.TrimSpace(*description) == "" {
		log.Fatal().Msg("Error: --description is required")
	}

	_, svc, done := open(cfg, log, time.Minute)
	defer done()

	suggestions := svc.Classifier.Suggest(*description)
	if len(suggestions) == 0 {
		fmt.Println("No matching categories.")
		return
	}
	for _, s := range suggestions {
		fmt.Printf("%-20s score=%d confidence=%.2f\n", s.Category, s.Score, s.Confidence)
	}
}

func runReport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("type", "summary", "summary, monthly, top, cashflow, recurring, trends, budget or stats")
	owner := fs.String("owner", cfg.Ingest.DefaultOwner, "Owner of the transactions")
	months := fs.Int("months", analytics.DefaultMonths, "Months for the monthly report")
	days := fs.Int("days", analytics.DefaultPeriodDays, "Window in days for top, cashflow and stats")
	limit := fs.Int("limit", analytics.DefaultTopLimit, "Categories for the top report")
	granularity := fs.String("granularity", "day", "Cashflow bucket: day or week")
	lookback := fs.Int("lookback", analytics.DefaultLookbackDays, "Lookback in days for recurring payments")
	minOccurrences := fs.Int("min-occurrences", analytics.DefaultMinOccurrences, "Minimum occurrences for recurring payments")
	fs.Parse(os.Args[2:])

	ctx, svc, done := open(cfg, log, 5*time.Minute)
	defer done()
	e := svc.Engine

	var (
		report any
		err    error
	)
	switch *kind {
	case "summary":
		report, err = e.Summary(ctx, *owner)
	case "monthly":
		report, err = e.MonthlySummary(ctx, *owner, *months)
	case "top":
		report, err = e.TopCategories(ctx, *owner, *limit, *days)
	case "cashflow":
		report, err = e.Cashflow(ctx, *owner, *days, analytics.ParseGranularity(*granularity))
	case "recurring":
		report, err = e.RecurringPayments(ctx, *owner, *lookback, *minOccurrences)
	case "trends":
		report, err = e.SpendingTrends(ctx, *owner)
	case "budget":
		report, err = e.BudgetInsights(ctx, *owner)
	case "stats":
		report, err = e.CategoryStats(ctx, *owner, *days)
	default:
		log.Fatal().Str("type", *kind).Msg("Unknown report type")
	}
	if err != nil {
		log.Fatal().Err(err).Str("type", *kind).Msg("Failed to compute report")
	}
	printJSON(report)
}

func runInspect(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	owner := fs.String("owner", cfg.Ingest.DefaultOwner, "Owner of the transactions")
	code := fs.String("code", "", "Transaction code to show")
	limit := fs.Int("limit", 20, "Recent transactions to list when no code is given")
	fs.Parse(os.Args[2:])

	ctx, svc, done := open(cfg, log, time.Minute)
	defer done()

	if *code != "" {
		tx, err := svc.Store.Get(ctx, *owner, *code)
		if err != nil {
			log.Fatal().Err(err).Str("code", *code).Msg("Transaction not found")
		}
		printJSON(tx)
		return
	}

	txs, err := svc.Store.QueryByFilter(ctx, store.Filter{OwnerID: *owner, Limit: *limit})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(txs))
	for i, tx := range txs {
		fmt.Printf("\n%d. %s %s\n", i+1, tx.ExternalCode, tx.RawDescription)
		fmt.Printf("   Date:      %s\n", tx.OccurredAt.In(cfg.Location).Format("2006-01-02 15:04"))
		fmt.Printf("   Amount:    %s KES\n", tx.Amount.StringFixed(2))
		fmt.Printf("   Direction: %s\n", tx.Direction.Name())
		if tx.Categorized() {
			fmt.Printf("   Category:  %s (%.2f)\n", tx.Category, tx.Confidence)
		}
		if tx.CounterpartyPhone != "" {
			fmt.Printf("   Phone:     %s\n", tx.CounterpartyPhone)
		}
	}
	fmt.Println()
}
