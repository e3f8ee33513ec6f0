// Package categorize assigns spending categories with a deterministic,
// keyword and pattern scored rule table.
package categorize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

const suggestionLimit = 3

// Result is the outcome of a single categorization.
type Result struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	SubCategory string  `json:"sub_category,omitempty"`
	Reasoning   string  `json:"reasoning"`
}

// Suggestion is a ranked candidate returned by Suggest.
type Suggestion struct {
	Category   string  `json:"category"`
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Categorizer scores descriptions against an immutable rule table. It holds
// no mutable state and is safe for concurrent use.
type Categorizer struct {
	rules []Rule
}

// New returns a Categorizer over the built-in rule table.
func New() *Categorizer {
	return &Categorizer{rules: defaultRules}
}

// NewWithRules returns a Categorizer over a copy of rules.
func NewWithRules(rules []Rule) *Categorizer {
	return &Categorizer{rules: append([]Rule(nil), rules...)}
}

// Categorize picks the best scoring category for description. Ties go to
// the rule defined first. When nothing scores, the direction decides.
func (c *Categorizer) Categorize(description string, direction domain.Direction) Result {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return fallback(direction)
	}

	best, bestScore := -1, 0
	for i, r := range c.rules {
		if s := r.score(desc); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return fallback(direction)
	}

	name := c.rules[best].Name
	confidence := confidenceFor(bestScore)
	if direction.IsIncome() && name != CategoryBusinessExpenses {
		return Result{
			Category:    CategoryIncome,
			Confidence:  confidence,
			SubCategory: name,
			Reasoning:   fmt.Sprintf("Income from %s", strings.ToLower(name)),
		}
	}
	return Result{
		Category:   name,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Matched %s keywords in description (score %d)", strings.ToLower(name), bestScore),
	}
}

// Suggest ranks up to three categories by score without committing one.
func (c *Categorizer) Suggest(description string) []Suggestion {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return []Suggestion{}
	}

	var out []Suggestion
	for _, r := range c.rules {
		if s := r.score(desc); s > 0 {
			out = append(out, Suggestion{Category: r.Name, Score: s, Confidence: confidenceFor(s)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > suggestionLimit {
		out = out[:suggestionLimit]
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

// Categories lists every category name the categorizer can return.
func (c *Categorizer) Categories() []string {
	names := make([]string, 0, len(c.rules)+3)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, CategoryIncome, CategoryUncategorized, CategoryOther)
}

// Known reports whether name is one of Categories, case-insensitively,
// and returns its canonical spelling.
func (c *Categorizer) Known(name string) (string, bool) {
	for _, n := range c.Categories() {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return n, true
		}
	}
	return "", false
}

// Apply categorizes tx in place and returns the result.
func (c *Categorizer) Apply(tx *domain.Transaction) Result {
	res := c.Categorize(tx.RawDescription, tx.Direction)
	tx.Category = res.Category
	tx.SubCategory = res.SubCategory
	tx.Confidence = res.Confidence
	return res
}

// BulkCategorize returns categorized copies of txs.
func (c *Categorizer) BulkCategorize(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		c.Apply(&tx)
		out[i] = tx
	}
	return out
}

func confidenceFor(score int) float64 {
	conf := float64(score) / 10.0
	if conf > 1 {
		return 1
	}
	return conf
}

func fallback(direction domain.Direction) Result {
	switch {
	case direction.IsIncome():
		return Result{Category: CategoryIncome, Confidence: 0.8, Reasoning: "Money received (C2B transaction)"}
	case direction.Known():
		return Result{Category: CategoryUncategorized, Confidence: 0.5, Reasoning: "No matching keywords found"}
	default:
		return Result{Category: CategoryOther, Confidence: 0.5, Reasoning: "Unknown transaction type"}
	}
}
