// Package report renders the monthly summary message delivered to users.
package report

import (
	"fmt"
	"math"
	"strings"

	"spendbot/internal/core"
	"spendbot/internal/insight"
)

type labels struct {
	title      string
	income     string
	expense    string
	balance    string
	categories string
	cashback   string
	prevMore   string
	prevLess   string
	prevSame   string
	estimate   string
}

var labelSets = map[string]labels{
	"en": {
		title:      "Monthly report %s",
		income:     "Income",
		expense:    "Spending",
		balance:    "Balance",
		categories: "By category",
		cashback:   "Estimated cashback",
		prevMore:   "Spending up %.0f%% vs previous month.",
		prevLess:   "Spending down %.0f%% vs previous month.",
		prevSame:   "Spending level with previous month.",
		estimate:   "(auto-generated)",
	},
	"it": {
		title:      "Report mensile %s",
		income:     "Entrate",
		expense:    "Spese",
		balance:    "Saldo",
		categories: "Per categoria",
		cashback:   "Cashback stimato",
		prevMore:   "Spese aumentate del %.0f%% rispetto al mese precedente.",
		prevLess:   "Spese diminuite del %.0f%% rispetto al mese precedente.",
		prevSame:   "Spese in linea con il mese precedente.",
		estimate:   "(generato automaticamente)",
	},
	"ru": {
		title:      "Отчет за месяц %s",
		income:     "Доходы",
		expense:    "Расходы",
		balance:    "Баланс",
		categories: "По категориям",
		cashback:   "Ожидаемый кэшбэк",
		prevMore:   "Расходы выросли на %.0f%% по сравнению с прошлым месяцем.",
		prevLess:   "Расходы снизились на %.0f%% по сравнению с прошлым месяцем.",
		prevSame:   "Расходы на уровне прошлого месяца.",
		estimate:   "(сформировано автоматически)",
	},
}

// Renderer formats snapshots and insight results into a single message.
type Renderer struct {
	cashbackRate     float64
	cashbackCapCents int64
}

// NewRenderer creates a renderer. cashbackRate is a fraction of expense
// (e.g. 0.01 for 1%), capped at cashbackCapCents per month.
func NewRenderer(cashbackRate float64, cashbackCapCents int64) *Renderer {
	return &Renderer{cashbackRate: cashbackRate, cashbackCapCents: cashbackCapCents}
}

// Render builds the full report text for one period. The insight text goes
// last; template-generated insights carry a marker so users can tell them
// from provider output.
func (r *Renderer) Render(s *core.PeriodSnapshot, res insight.Result) string {
	l, ok := labelSets[s.Language]
	if !ok {
		l = labelSets["en"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, l.title, s.PeriodLabel())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s: %s\n", l.income, s.TotalIncome)
	fmt.Fprintf(&b, "%s: %s\n", l.expense, s.TotalExpense)
	fmt.Fprintf(&b, "%s: %s\n", l.balance, s.Balance)

	if len(s.Categories) > 0 {
		fmt.Fprintf(&b, "\n%s:\n", l.categories)
		for _, c := range s.Categories {
			fmt.Fprintf(&b, "  %s: %s (%.0f%%)\n", c.Name, c.Amount, c.Percent)
		}
	}

	if cb := r.cashback(s.TotalExpense); cb.Cents > 0 {
		fmt.Fprintf(&b, "\n%s: %s\n", l.cashback, cb)
	}

	if line := comparisonLine(s, l); line != "" {
		b.WriteString("\n" + line + "\n")
	}

	b.WriteString("\n" + res.Text)
	if res.Fallback {
		b.WriteString(" " + l.estimate)
	}
	b.WriteString("\n")

	return b.String()
}

// cashback estimates the month's cashback from total expense.
func (r *Renderer) cashback(expense core.Money) core.Money {
	if r.cashbackRate <= 0 || expense.Cents <= 0 {
		return core.Money{}
	}
	cents := int64(math.Round(float64(expense.Cents) * r.cashbackRate))
	if r.cashbackCapCents > 0 && cents > r.cashbackCapCents {
		cents = r.cashbackCapCents
	}
	return core.Money{Cents: cents}
}

func comparisonLine(s *core.PeriodSnapshot, l labels) string {
	if s.Previous == nil || s.Previous.TotalExpense.Cents == 0 {
		return ""
	}

	change := (float64(s.TotalExpense.Cents)/float64(s.Previous.TotalExpense.Cents) - 1) * 100
	switch {
	case change >= 1:
		return fmt.Sprintf(l.prevMore, change)
	case change <= -1:
		return fmt.Sprintf(l.prevLess, -change)
	default:
		return l.prevSame
	}
}
