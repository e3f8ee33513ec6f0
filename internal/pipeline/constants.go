package pipeline

import "github.com/dvloznov/mpesa-ledger/internal/domain"

// Default values for ingestion.
// These can be overridden via configuration or command flags.
const (
	// DefaultOwnerID is used when a caller does not name an owner.
	DefaultOwnerID = "default"

	// DefaultFormat is used when auto-detection cannot tell the format.
	DefaultFormat = domain.FormatTabular

	// MaxReportedErrors caps the per-item errors kept in a Report.
	MaxReportedErrors = 10
)
