package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbot/internal/core"
)

func TestParseExpense(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name         string
		input        string
		wantKind     core.TransactionKind
		wantCents    int64
		wantCategory string
		wantDesc     string
	}{
		{"amount last", "coffee 4.50", core.Expense, 450, "Dining", "coffee"},
		{"amount first", "12 taxi to airport", core.Expense, 1200, "Transport", "taxi to airport"},
		{"comma decimal", "pizza 8,90", core.Expense, 890, "Dining", "pizza"},
		{"no keyword match", "misc thing 10", core.Expense, 1000, "Misc", "misc thing"},
		{"plus prefix income", "+2000 salary", core.Income, 200000, "Income", "salary"},
		{"keyword income", "salary 2000", core.Income, 200000, "Income", "salary"},
		{"bare amount", "15", core.Expense, 1500, "Misc", "Misc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := p.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, entry.Kind)
			assert.Equal(t, tt.wantCents, entry.Amount.Cents)
			assert.Equal(t, tt.wantCategory, entry.Category)
			assert.Equal(t, tt.wantDesc, entry.Description)
		})
	}
}

func TestParseErrors(t *testing.T) {
	p := NewParser()

	_, err := p.Parse("")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.Parse("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.Parse("just words")
	assert.ErrorIs(t, err, ErrNoAmount)
}

func TestParseLongestKeywordWins(t *testing.T) {
	p := NewParser()

	// "bar" (Dining) is contained in longer matches from other categories;
	// the longer keyword must win.
	entry, err := p.Parse("groceries at the bar 20")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", entry.Category)
}

func TestNewParserFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	rules := `
categories:
  - category: Pets
    keywords: [vet, dogfood]
income_keywords: [salary]
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o644))

	p, err := NewParserFromFile(path)
	require.NoError(t, err)

	entry, err := p.Parse("vet visit 80")
	require.NoError(t, err)
	assert.Equal(t, "Pets", entry.Category)
	assert.Equal(t, []string{"Pets", DefaultCategory}, p.Categories())
}

func TestNewParserFromFileErrors(t *testing.T) {
	_, err := NewParserFromFile("does-not-exist.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []"), 0o644))
	_, err = NewParserFromFile(path)
	assert.Error(t, err)
}
