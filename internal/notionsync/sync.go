// Package notionsync exports stored transactions to a Notion database,
// keyed by external code so repeated syncs are idempotent.
package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
	"github.com/jomei/notionapi"
)

// SyncResult counts what one sync did, or would do in a dry run.
type SyncResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Syncer mirrors one owner's transactions into a Notion database.
type Syncer struct {
	source     TransactionSource
	notion     NotionService
	databaseID string
}

// NewSyncer creates a Syncer writing to databaseID.
func NewSyncer(source TransactionSource, notion NotionService, databaseID string) *Syncer {
	return &Syncer{source: source, notion: notion, databaseID: databaseID}
}

// SyncTransactions makes the Notion database match the store for ownerID
// within [start, end]:
//   - transactions without a page are created
//   - pages whose category differs from the store are updated
//   - the owner's pages dated inside the window whose code no longer
//     exists are archived
//
// Per-page failures are counted and logged; only query failures abort.
func (s *Syncer) SyncTransactions(ctx context.Context, ownerID string, start, end time.Time, dryRun bool) (SyncResult, error) {
	ctx = logger.WithOwner(ctx, ownerID)
	log := logger.FromContext(ctx)
	log.Info().
		Time("start_date", start).
		Time("end_date", end).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	var result SyncResult

	transactions, err := s.source.QueryByOwnerAndWindow(ctx, ownerID, start, end)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: query transactions: %w", err)
	}
	pages, err := listAllPages(ctx, s.notion, s.databaseID)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: query Notion pages: %w", err)
	}
	log.Info().
		Int("transaction_count", len(transactions)).
		Int("notion_page_count", len(pages)).
		Msg("Loaded both sides")

	valid := make(map[string]bool, len(transactions))
	for _, tx := range transactions {
		valid[tx.ExternalCode] = true
	}

	existing := make(map[string]notionapi.Page, len(pages))
	for _, page := range pages {
		code := pageCode(page)
		if code == "" || pageOwner(page) != ownerID {
			continue
		}
		_, dup := existing[code]
		if !dup && valid[code] {
			existing[code] = page
			continue
		}
		if !dup && !s.inWindow(page, start, end) {
			continue
		}
		s.archive(ctx, page, code, dryRun, &result)
	}

	for _, tx := range transactions {
		page, ok := existing[tx.ExternalCode]
		switch {
		case !ok:
			s.create(ctx, tx, dryRun, &result)
		case pageCategory(page) != tx.Category:
			s.update(ctx, page, tx, dryRun, &result)
		default:
			result.Unchanged++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Msg("Transaction sync completed")
	return result, nil
}

func (s *Syncer) inWindow(page notionapi.Page, start, end time.Time) bool {
	d, ok := pageDate(page)
	if !ok {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

func (s *Syncer) create(ctx context.Context, tx domain.Transaction, dryRun bool, result *SyncResult) {
	log := logger.FromContext(ctx)
	if dryRun {
		log.Info().Str("external_code", tx.ExternalCode).Msg("[DRY RUN] Would create Notion page")
		result.Created++
		return
	}
	page, err := s.notion.CreatePage(ctx, s.databaseID, TransactionProperties(tx))
	if err != nil {
		log.Warn().Err(err).Str("external_code", tx.ExternalCode).Msg("Failed to create Notion page")
		result.Failed++
		return
	}
	log.Debug().Str("external_code", tx.ExternalCode).Str("page_id", string(page.ID)).Msg("Created Notion page")
	result.Created++
}

func (s *Syncer) update(ctx context.Context, page notionapi.Page, tx domain.Transaction, dryRun bool, result *SyncResult) {
	log := logger.FromContext(ctx)
	if dryRun {
		log.Info().Str("external_code", tx.ExternalCode).Msg("[DRY RUN] Would update Notion page category")
		result.Updated++
		return
	}
	if _, err := s.notion.UpdatePage(ctx, string(page.ID), categoryProperties(tx)); err != nil {
		log.Warn().Err(err).Str("external_code", tx.ExternalCode).Str("page_id", string(page.ID)).Msg("Failed to update Notion page")
		result.Failed++
		return
	}
	result.Updated++
}

func (s *Syncer) archive(ctx context.Context, page notionapi.Page, code string, dryRun bool, result *SyncResult) {
	log := logger.FromContext(ctx)
	if dryRun {
		log.Info().Str("external_code", code).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
		result.Deleted++
		return
	}
	if err := s.notion.DeletePage(ctx, string(page.ID)); err != nil {
		log.Warn().Err(err).Str("external_code", code).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
		result.Failed++
		return
	}
	result.Deleted++
}
