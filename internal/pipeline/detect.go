package pipeline

import (
	"regexp"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/dvloznov/mpesa-ledger/internal/extract"
)

var confirmationPattern = regexp.MustCompile(`(?i)[A-Z0-9]{8,10}\s+Confirmed`)

// DetectFormat guesses the payload format from its content:
// a CSV header naming a receipt column means tabular, a confirmation
// marker means message text, a statement line means document text.
// Anything else gets fallback.
func DetectFormat(payload []byte, fallback domain.Format) domain.Format {
	text := string(payload)

	if header := firstLine(text); strings.Contains(header, ",") {
		for _, cell := range strings.Split(header, ",") {
			cell = strings.Trim(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")), `"`)
			for _, col := range extract.CodeColumns() {
				if strings.EqualFold(cell, col) {
					return domain.FormatTabular
				}
			}
		}
	}
	if confirmationPattern.MatchString(text) {
		return domain.FormatMessage
	}
	if extract.LooksLikeDocument(text) {
		return domain.FormatDocument
	}
	if fallback == "" || fallback == domain.FormatAuto {
		return DefaultFormat
	}
	return fallback
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
