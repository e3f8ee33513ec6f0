package notionsync

import (
	"context"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService defines the Notion operations the exporter needs.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing Notion page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase returns one page of database results.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DeletePage archives a page.
	DeletePage(ctx context.Context, pageID string) error
}

// TransactionSource is the store query the exporter reads from.
type TransactionSource interface {
	QueryByOwnerAndWindow(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Transaction, error)
}
