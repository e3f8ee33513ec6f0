package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/extract"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/dvloznov/mpesa-ledger/internal/store"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// Step 1: DetectFormatStep resolves the payload format from the hint or content.
type DetectFormatStep struct {
	Default domain.Format
}

func (s *DetectFormatStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Format = state.FormatHint
	if state.Format == "" || state.Format == domain.FormatAuto {
		state.Format = DetectFormat(state.Payload, s.Default)
	}
	state.Report.Format = state.Format

	log := logger.FromContext(ctx)
	log.Debug().
		Str("format_hint", string(state.FormatHint)).
		Str("format", string(state.Format)).
		Msg("Resolved payload format")
	return nil
}

// Step 2: ExtractStep runs the extractor registered for the resolved format.
type ExtractStep struct {
	Extractors map[domain.Format]extract.Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	ex, ok := s.Extractors[state.Format]
	if !ok {
		return fmt.Errorf("ExtractStep: no extractor for format %q", state.Format)
	}

	res := ex.Extract(state.Payload)
	for i := range res.Transactions {
		res.Transactions[i].OwnerID = state.OwnerID
	}
	state.Transactions = res.Transactions
	state.Report.Skipped += len(res.Skipped)
	for _, skip := range res.Skipped {
		state.Report.addError("item %d: %s", skip.Index, skip.Reason)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("extracted", len(res.Transactions)).
		Int("skipped", len(res.Skipped)).
		Msg("Extracted transactions")
	return nil
}

// Step 3: CategorizeStep assigns a category to every uncategorized record.
type CategorizeStep struct {
	Classifier Classifier
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	for i := range state.Transactions {
		tx := &state.Transactions[i]
		if tx.Categorized() {
			continue
		}
		res := s.Classifier.Categorize(tx.RawDescription, tx.Direction)
		tx.Category = res.Category
		tx.SubCategory = res.SubCategory
		tx.Confidence = res.Confidence
	}
	return nil
}

// Step 4: PersistStep writes each record with insert-if-absent semantics.
// Duplicates are counted; store errors are reported per item. The step only
// fails when the store was unavailable for every write.
type PersistStep struct {
	Writer TransactionWriter
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	var unavailable int
	var lastErr error
	for _, tx := range state.Transactions {
		if err := ValidateTransaction(tx); err != nil {
			state.Report.addError("%s: %v", tx.ExternalCode, err)
			continue
		}

		state.Report.TotalAttempted++
		created, err := s.Writer.InsertIfAbsent(ctx, tx)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			state.Report.Duplicates++
		case err != nil:
			if errors.Is(err, store.ErrUnavailable) {
				unavailable++
				lastErr = err
			}
			log.Warn().Err(err).Str("external_code", tx.ExternalCode).Msg("Failed to store transaction")
			state.Report.addError("%s: %v", tx.ExternalCode, err)
		case created:
			state.Report.Created++
		default:
			state.Report.Duplicates++
		}
	}

	if state.Report.TotalAttempted > 0 && unavailable == state.Report.TotalAttempted {
		return fmt.Errorf("PersistStep: every write failed: %w", lastErr)
	}
	return nil
}

// Step 5: InvalidateCacheStep drops cached analytics once new records exist.
// Cache failures are logged, never fatal.
type InvalidateCacheStep struct {
	Cache CacheInvalidator
}

func (s *InvalidateCacheStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Cache == nil || state.Report.Created == 0 {
		return nil
	}
	if err := s.Cache.InvalidateOwner(ctx, state.OwnerID); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("owner_id", state.OwnerID).Msg("Failed to invalidate report cache")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
