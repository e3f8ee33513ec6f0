package extract

import (
	"regexp"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

// DocumentLinePattern matches one statement line:
// code, date+time, details, optional paid-in and withdrawn columns, balance.
// Amount columns always carry two decimals, so account and till numbers at
// the end of the details are never read as amounts.
var DocumentLinePattern = regexp.MustCompile(`(?i)(?P<code>[A-Z0-9]{8,10})\s+` +
	`(?P<date>\d{1,2}/\d{1,2}/\d{2,4}\s+\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:AM|PM))?)\s+` +
	`(?P<details>.*?)\s+` +
	`(?:(?P<paid_in>[0-9,]+\.\d{2})\s+)?` +
	`(?:(?P<withdrawn>-?[0-9,]+\.\d{2})\s+)?` +
	`(?P<balance>-?[0-9,]+\.\d{2})\s*$`)

var documentLayouts = []string{
	"2/1/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2/1/2006 15:04",
	"1/2/2006 3:04 PM",
}

// DocumentExtractor reads statement text that was already extracted from a
// PDF into plain lines.
type DocumentExtractor struct {
	base
}

// NewDocumentExtractor creates a DocumentExtractor.
func NewDocumentExtractor(opts ...Option) *DocumentExtractor {
	return &DocumentExtractor{base: newBase(opts)}
}

// Extract parses every matching line, preserving source order. Lines that
// do not match are ignored; matching lines without an amount are skipped.
func (e *DocumentExtractor) Extract(payload []byte) Result {
	var res Result
	for i, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimRight(line, "\r")
		groups := matchGroups(DocumentLinePattern, line)
		if groups == nil {
			continue
		}

		direction := domain.DirectionReceived
		amount, ok := ParseAmount(groups["paid_in"])
		if !ok || amount.IsZero() {
			direction = domain.DirectionWithdrawal
			amount, ok = ParseAmount(groups["withdrawn"])
		}
		if !ok || amount.IsZero() {
			res.Skipped = append(res.Skipped, Skip{Index: i + 1, Reason: "no transaction amount"})
			continue
		}

		details := groups["details"]
		res.Transactions = append(res.Transactions, domain.Transaction{
			ExternalCode:      strings.ToUpper(groups["code"]),
			Amount:            amount,
			Direction:         direction,
			CounterpartyPhone: findPhone(details),
			OccurredAt:        e.parseTime(groups["date"], documentLayouts),
			RawDescription:    domain.TruncateDescription(details),
			Source:            domain.FormatDocument,
		})
	}
	return res
}

// LooksLikeDocument reports whether any line of text matches the statement
// line pattern.
func LooksLikeDocument(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if DocumentLinePattern.MatchString(strings.TrimRight(line, "\r")) {
			return true
		}
	}
	return false
}
