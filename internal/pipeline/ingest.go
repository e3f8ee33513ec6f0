package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/extract"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/google/uuid"
)

// Ingester turns raw payloads into stored, categorized transactions.
type Ingester struct {
	writer        TransactionWriter
	classifier    Classifier
	extractors    map[domain.Format]extract.Extractor
	defaultFormat domain.Format
	cache         CacheInvalidator
	runs          RunRecorder
}

// Option configures an Ingester.
type Option func(*ingestOptions)

type ingestOptions struct {
	extractOpts   []extract.Option
	defaultFormat domain.Format
	cache         CacheInvalidator
	runs          RunRecorder
}

// WithExtractOptions passes clock and location options to every extractor.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(o *ingestOptions) { o.extractOpts = append(o.extractOpts, opts...) }
}

// WithDefaultFormat sets the format used when detection is inconclusive.
func WithDefaultFormat(f domain.Format) Option {
	return func(o *ingestOptions) { o.defaultFormat = f }
}

// WithCacheInvalidator drops cached reports after each batch that created records.
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(o *ingestOptions) { o.cache = c }
}

// WithRunRecorder records an audit row for every batch.
func WithRunRecorder(r RunRecorder) Option {
	return func(o *ingestOptions) { o.runs = r }
}

// NewIngester wires the standard extractors to writer and classifier.
func NewIngester(writer TransactionWriter, classifier Classifier, opts ...Option) *Ingester {
	o := ingestOptions{defaultFormat: DefaultFormat}
	for _, opt := range opts {
		opt(&o)
	}
	if o.defaultFormat == "" || o.defaultFormat == domain.FormatAuto {
		o.defaultFormat = DefaultFormat
	}
	return &Ingester{
		writer:     writer,
		classifier: classifier,
		extractors: map[domain.Format]extract.Extractor{
			domain.FormatMessage:  extract.NewMessageExtractor(o.extractOpts...),
			domain.FormatTabular:  extract.NewTabularExtractor(o.extractOpts...),
			domain.FormatDocument: extract.NewDocumentExtractor(o.extractOpts...),
		},
		defaultFormat: o.defaultFormat,
		cache:         o.cache,
		runs:          o.runs,
	}
}

// Pipeline builds the step chain used by Ingest.
func (i *Ingester) Pipeline() *Pipeline {
	steps := []PipelineStep{
		&DetectFormatStep{Default: i.defaultFormat},
		&ExtractStep{Extractors: i.extractors},
		&CategorizeStep{Classifier: i.classifier},
		&PersistStep{Writer: i.writer},
	}
	if i.cache != nil {
		steps = append(steps, &InvalidateCacheStep{Cache: i.cache})
	}
	return NewPipeline(steps...)
}

// Ingest extracts, categorizes and stores every record in payload for
// ownerID. The returned Report is always populated; err is non-nil only
// when the batch could not be processed at all.
func (i *Ingester) Ingest(ctx context.Context, ownerID string, payload []byte, hint domain.Format) (Report, error) {
	if ownerID == "" {
		ownerID = DefaultOwnerID
	}
	ctx = logger.WithOwner(ctx, ownerID)
	log := logger.FromContext(ctx)

	state := &PipelineState{
		OwnerID:    ownerID,
		Payload:    payload,
		FormatHint: hint,
		Report:     Report{Errors: []string{}},
	}

	start := time.Now()
	if err := i.Pipeline().Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Ingestion failed")
		i.recordRun(ctx, state, start, err)
		return state.Report, fmt.Errorf("Ingest: %w", err)
	}
	i.recordRun(ctx, state, start, nil)

	log.Info().
		Str("format", string(state.Format)).
		Int("created", state.Report.Created).
		Int("duplicates", state.Report.Duplicates).
		Int("attempted", state.Report.TotalAttempted).
		Int("skipped", state.Report.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Ingestion completed")
	return state.Report, nil
}

// recordRun writes the audit row. Failures are logged only.
func (i *Ingester) recordRun(ctx context.Context, state *PipelineState, start time.Time, runErr error) {
	if i.runs == nil {
		return
	}
	run := Run{
		RunID:      uuid.NewString(),
		OwnerID:    state.OwnerID,
		Format:     state.Format,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Status:     RunStatusSuccess,
		Report:     state.Report,
	}
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	}
	if err := i.runs.RecordRun(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("run_id", run.RunID).Msg("Failed to record ingest run")
	}
}
