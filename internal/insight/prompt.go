package insight

import (
	"fmt"
	"strings"

	"spendbot/internal/core"
)

// BuildPrompt renders the snapshot as a natural-language instruction for a
// text generation provider. Formatting only; no network concerns here.
func BuildPrompt(s *core.PeriodSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a personal finance assistant. Write a short, friendly summary (3-4 sentences) of this user's month. Respond in language %q. Do not use markdown.\n\n", promptLanguage(s.Language))
	fmt.Fprintf(&b, "Period: %s\n", s.PeriodLabel())
	fmt.Fprintf(&b, "Total income: %s\n", s.TotalIncome)
	fmt.Fprintf(&b, "Total expenses: %s\n", s.TotalExpense)
	fmt.Fprintf(&b, "Balance: %s\n", s.Balance)
	fmt.Fprintf(&b, "Transactions: %d\n", s.TxCount)

	if len(s.Categories) > 0 {
		b.WriteString("Spending by category:\n")
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", c.Name, c.Amount, c.Percent)
		}
	}

	if prev := s.Previous; prev != nil {
		fmt.Fprintf(&b, "\nPrevious period %s: income %s, expenses %s\n",
			prev.PeriodLabel(), prev.TotalIncome, prev.TotalExpense)
		b.WriteString("Mention the most notable change compared to the previous period.\n")
	}

	b.WriteString("\nHighlight the biggest spending category and one practical observation. Keep the tone encouraging, never judgmental.")

	return b.String()
}

func promptLanguage(tag string) string {
	if tag == "" {
		return "en"
	}
	return tag
}
