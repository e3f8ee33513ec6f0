package extract

import (
	"regexp"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

const (
	codeExpr   = `(?P<code>[A-Z0-9]{8,10})\s+Confirmed\.?`
	amountExpr = `(?P<amount>[0-9,]+\.?\d{0,2})`
	whenExpr   = `(?:\s+on\s+(?P<date>\d{1,2}/\d{1,2}/\d{2,4})\s+at\s+(?P<time>\d{1,2}:\d{2}\s*(?:AM|PM)?)|$)`
)

// Message date layouts, tried in order. Month-first is tried before
// day-first, so the day-first two-digit year forms only apply when the
// day is above 12.
var messageLayouts = []string{
	"1/2/06 3:04 PM",
	"2/1/2006 15:04",
	"1/2/2006 3:04 PM",
	"2/1/06 3:04 PM",
	"2/1/06 15:04",
}

type messageFamily struct {
	name      string
	patterns  []*regexp.Regexp
	direction func(verb, party string) domain.Direction
}

var (
	forAccountPattern = regexp.MustCompile(`(?i)\bfor\s+account\b`)
	looseWhenPattern  = regexp.MustCompile(`(?i)\bon\s+(\d{1,2}/\d{1,2}/\d{2,4})\s+at\s+(\d{1,2}:\d{2}\s*(?:AM|PM)?)`)
	blankLinePattern  = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
)

// Families are tried in priority order: received, sent/paid, withdrew.
var messageFamilies = []messageFamily{
	{
		name: "received",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)` + codeExpr + `.*?received\s+(?:Ksh\s*)?` + amountExpr + `.*?from\s+(?P<party>.*?)` + whenExpr),
		},
		direction: func(string, string) domain.Direction { return domain.DirectionReceived },
	},
	{
		name: "sent",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)` + codeExpr + `.*?(?P<verb>sent|paid)\s+(?:Ksh\s*)?` + amountExpr + `.*?to\s+(?P<party>.*?)` + whenExpr),
			regexp.MustCompile(`(?is)` + codeExpr + `.*?(?:Ksh\s*)?` + amountExpr + `\s+(?P<verb>sent|paid)\s+to\s+(?P<party>.*?)` + whenExpr),
		},
		direction: func(verb, party string) domain.Direction {
			switch {
			case strings.EqualFold(verb, "paid"):
				return domain.DirectionGoodsPayment
			case forAccountPattern.MatchString(party):
				return domain.DirectionBillPayment
			default:
				return domain.DirectionPaidPerson
			}
		},
	},
	{
		name: "withdrew",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)` + codeExpr + `.*?(?:withdrew|withdraw)\s+(?:Ksh\s*)?` + amountExpr + `.*?from\s+(?P<party>.*?)` + whenExpr),
			regexp.MustCompile(`(?is)` + codeExpr + `.*?(?:Ksh\s*)?` + amountExpr + `\s+withdrawn\s+from\s+(?P<party>.*?)` + whenExpr),
		},
		direction: func(string, string) domain.Direction { return domain.DirectionWithdrawal },
	},
}

// MessageExtractor reads M-PESA confirmation SMS bodies.
type MessageExtractor struct {
	base
}

// NewMessageExtractor creates a MessageExtractor.
func NewMessageExtractor(opts ...Option) *MessageExtractor {
	return &MessageExtractor{base: newBase(opts)}
}

// Extract splits payload on blank lines and parses each message.
func (e *MessageExtractor) Extract(payload []byte) Result {
	var res Result
	for i, msg := range SplitMessages(string(payload)) {
		tx, ok := e.ParseMessage(msg)
		if !ok {
			res.Skipped = append(res.Skipped, Skip{Index: i + 1, Reason: "no recognizable confirmation message"})
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

// ParseMessage parses a single message. It returns false when no family
// matches or the amount cannot be read.
func (e *MessageExtractor) ParseMessage(text string) (domain.Transaction, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Transaction{}, false
	}

	for _, family := range messageFamilies {
		for _, re := range family.patterns {
			groups := matchGroups(re, text)
			if groups == nil {
				continue
			}
			amount, ok := ParseAmount(groups["amount"])
			if !ok {
				return domain.Transaction{}, false
			}

			date, clock := groups["date"], groups["time"]
			if date == "" || clock == "" {
				if m := looseWhenPattern.FindStringSubmatch(text); m != nil {
					date, clock = m[1], m[2]
				}
			}
			var when string
			if date != "" && clock != "" {
				when = date + " " + clock
			}

			return domain.Transaction{
				ExternalCode:      strings.ToUpper(groups["code"]),
				Amount:            amount,
				Direction:         family.direction(groups["verb"], groups["party"]),
				CounterpartyPhone: findPhone(groups["party"]),
				OccurredAt:        e.parseTime(when, messageLayouts),
				RawDescription:    domain.TruncateDescription(text),
				Source:            domain.FormatMessage,
			}, true
		}
	}
	return domain.Transaction{}, false
}

// SplitMessages splits a batch of messages on blank-line separators.
func SplitMessages(blob string) []string {
	var out []string
	for _, part := range blankLinePattern.Split(blob, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matchGroups returns named groups of the first match, or nil.
func matchGroups(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = strings.TrimSpace(m[i])
		}
	}
	return groups
}
