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

	"github.com/dvloznov/mpesa-ledger/internal/app"
	"github.com/dvloznov/mpesa-ledger/internal/config"
	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := app.Logger(cfg, "ingest")

	source := flag.String("source", "-", "Payload path, gs:// URI, or - for stdin")
	owner := flag.String("owner", cfg.Ingest.DefaultOwner, "Owner the transactions belong to")
	format := flag.String("format", "auto", "Payload format: message, tabular, document or auto")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer svc.Close()

	payload, err := readSource(ctx, svc, *source)
	if err != nil {
		log.Fatal().Err(err).Str("source", *source).Msg("Failed to read payload")
	}

	log.Info().Str("source", *source).Str("owner", *owner).Int("bytes", len(payload)).Msg("Starting ingestion")

	report, err := svc.Ingester.Ingest(ctx, *owner, payload, domain.ParseFormat(*format))
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}

func readSource(ctx context.Context, svc *app.App, source string) ([]byte, error) {
	switch {
	case source == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(source, "gs://"):
		if svc.Archive == nil {
			return nil, fmt.Errorf("GCS_BUCKET must be set to read %s", source)
		}
		return svc.Archive.FetchFromGCS(ctx, source)
	default:
		return os.ReadFile(source)
	}
}
