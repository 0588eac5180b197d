// Package parse extracts amount, category, and description from free-form
// expense messages like "coffee 4.50" or "+2000 salary".
package parse

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"spendbot/internal/core"
)

//go:embed rules.yaml
var defaultRules []byte

// DefaultCategory is assigned when no keyword rule matches.
const DefaultCategory = "Misc"

var (
	ErrNoAmount  = errors.New("no amount found in message")
	ErrEmptyText = errors.New("empty message")
)

var amountPattern = regexp.MustCompile(`[+]?\d+(?:[.,]\d+)?`)

// Entry is one parsed transaction candidate.
type Entry struct {
	Kind        core.TransactionKind
	Amount      core.Money
	Category    string
	Description string
}

// Rule maps keywords to one category.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type rulesFile struct {
	Categories     []Rule   `yaml:"categories"`
	IncomeKeywords []string `yaml:"income_keywords"`
}

// Parser categorizes free-text entries by keyword matching.
type Parser struct {
	rules  []Rule
	income []string
}

// NewParser builds a parser from the embedded default rules.
func NewParser() *Parser {
	p, err := newFromYAML(defaultRules)
	if err != nil {
		// Embedded rules are validated by tests; a failure here is a
		// build defect.
		panic(fmt.Sprintf("parse embedded rules: %v", err))
	}
	return p
}

// NewParserFromFile builds a parser from a rules file on disk, letting
// deployments override the embedded categories.
func NewParserFromFile(path string) (*Parser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	p, err := newFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return p, nil
}

func newFromYAML(data []byte) (*Parser, error) {
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	if len(rf.Categories) == 0 {
		return nil, errors.New("rules define no categories")
	}
	for _, r := range rf.Categories {
		if r.Category == "" {
			return nil, errors.New("rule with empty category name")
		}
	}
	return &Parser{rules: rf.Categories, income: rf.IncomeKeywords}, nil
}

// Parse extracts one entry from a message. It returns ErrNoAmount when the
// message carries no recognizable amount.
func (p *Parser) Parse(text string) (Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, ErrEmptyText
	}

	amountToken := amountPattern.FindString(text)
	if amountToken == "" {
		return Entry{}, ErrNoAmount
	}

	isIncome := strings.HasPrefix(amountToken, "+")
	amount, err := core.ParseAmount(strings.TrimPrefix(amountToken, "+"))
	if err != nil {
		return Entry{}, fmt.Errorf("parse amount %q: %w", amountToken, err)
	}

	rest := strings.TrimSpace(strings.Replace(text, amountToken, "", 1))
	lower := strings.ToLower(rest)

	if !isIncome {
		isIncome = p.matchesIncome(lower)
	}

	entry := Entry{
		Kind:        core.Expense,
		Amount:      amount,
		Category:    p.categorize(lower),
		Description: rest,
	}
	if isIncome {
		entry.Kind = core.Income
		entry.Category = "Income"
	}
	if entry.Description == "" {
		entry.Description = entry.Category
	}
	return entry, nil
}

// categorize picks the category whose keyword makes the longest match.
func (p *Parser) categorize(lower string) string {
	best := DefaultCategory
	bestLen := 0
	for _, rule := range p.rules {
		for _, kw := range rule.Keywords {
			if len(kw) > bestLen && strings.Contains(lower, kw) {
				best = rule.Category
				bestLen = len(kw)
			}
		}
	}
	return best
}

func (p *Parser) matchesIncome(lower string) bool {
	for _, kw := range p.income {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Categories returns the configured category names, in rule order.
func (p *Parser) Categories() []string {
	out := make([]string, 0, len(p.rules)+1)
	for _, r := range p.rules {
		out = append(out, r.Category)
	}
	return append(out, DefaultCategory)
}
