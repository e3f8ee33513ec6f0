package domain

import "strings"

// Format identifies the shape of a raw payload.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatMessage  Format = "message"
	FormatTabular  Format = "tabular"
	FormatDocument Format = "document"
)

// ParseFormat maps a hint to a Format. Unknown or empty hints become FormatAuto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMessage, "sms":
		return FormatMessage
	case FormatTabular, "csv":
		return FormatTabular
	case FormatDocument, "pdf", "text":
		return FormatDocument
	default:
		return FormatAuto
	}
}
