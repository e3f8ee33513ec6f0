package categorize

import (
	"regexp"
	"strings"
)

// Category names the fallback and income rules refer to.
const (
	CategoryIncome           = "Income"
	CategoryUncategorized    = "Uncategorized"
	CategoryOther            = "Other"
	CategoryBusinessExpenses = "Business Expenses"
)

// Rule maps a category to its keyword literals and regex patterns.
type Rule struct {
	Name     string
	Keywords []string
	Patterns []*regexp.Regexp
}

// score returns 2 per keyword contained in desc plus 3 per matching pattern.
// desc must already be lowercase.
func (r Rule) score(desc string) int {
	score := 0
	for _, kw := range r.Keywords {
		if strings.Contains(desc, kw) {
			score += 2
		}
	}
	for _, p := range r.Patterns {
		if p.MatchString(desc) {
			score += 3
		}
	}
	return score
}

// defaultRules is built once; order is significant for tie-breaking.
var defaultRules = []Rule{
	{
		Name: "Food",
		Keywords: []string{
			"restaurant", "cafe", "coffee", "pizza", "burger", "chicken",
			"food", "meal", "breakfast", "lunch", "dinner", "snack",
			"bakery", "grocery", "supermarket", "shop", "store",
			"kfc", "subway", "dominos", "java", "artcaffe", "naivas",
			"carrefour", "quickmart", "chandarana", "tuskys", "nakumatt",
		},
		Patterns: patterns(
			`restaurant|cafe|coffee|pizza|burger|chicken|food|meal`,
			`bakery|grocery|supermarket|kfc|subway`,
		),
	},
	{
		Name: "Transport",
		Keywords: []string{
			"uber", "taxi", "matatu", "bus", "fuel", "petrol", "diesel",
			"parking", "toll", "transport", "travel", "fare", "ride",
			"bolt", "little", "grab", "total", "shell", "kenol", "ola",
		},
		Patterns: patterns(
			`uber|taxi|matatu|bus|fuel|petrol|diesel`,
			`parking|toll|transport|travel|bolt|little`,
		),
	},
	{
		Name: "Inventory",
		Keywords: []string{
			"stock", "inventory", "wholesale", "supplier", "goods",
			"merchandise", "supply", "warehouse", "purchase order",
			"bulk", "vendor", "procurement", "raw material",
		},
		Patterns: patterns(
			`stock|inventory|wholesale|supplier`,
			`goods|merchandise|supply|warehouse`,
		),
	},
	{
		Name: "Personal",
		Keywords: []string{
			"personal", "self", "family", "clothing", "clothes", "shoes",
			"entertainment", "movie", "cinema", "gym", "fitness", "salon",
			"beauty", "haircut", "spa", "gift", "shopping", "fashion",
		},
		Patterns: patterns(
			`personal|clothing|clothes|shoes|entertainment`,
			`movie|cinema|gym|fitness|salon|beauty`,
		),
	},
	{
		Name: "Utilities",
		Keywords: []string{
			"kplc", "electricity", "power", "water", "nairobi water",
			"internet", "wifi", "safaricom", "airtel", "telkom",
			"rent", "landlord", "utility", "bill", "garbage", "sewage",
		},
		Patterns: patterns(
			`kplc|electricity|power|water`,
			`internet|wifi|safaricom|airtel|telkom|rent|utility`,
		),
	},
	{
		Name: CategoryBusinessExpenses,
		Keywords: []string{
			"office", "stationery", "printing", "business", "marketing",
			"advertising", "license", "permit", "registration", "legal",
			"accounting", "consultant", "software", "subscription",
			"meeting", "conference", "training", "professional",
		},
		Patterns: patterns(
			`office|stationery|printing|business|marketing`,
			`advertising|license|permit|consultant|software`,
		),
	},
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}
