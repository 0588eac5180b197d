package insight

import (
	"fmt"
	"strings"

	"spendbot/internal/core"
)

// Template builds the deterministic fallback summary. It depends only on
// fields already present in the snapshot and never fails.
func Template(s *core.PeriodSnapshot) string {
	var b strings.Builder

	switch s.Language {
	case "it":
		fmt.Fprintf(&b, "Riepilogo %s: spese totali %s, entrate %s.", s.PeriodLabel(), s.TotalExpense, s.TotalIncome)
	case "ru":
		fmt.Fprintf(&b, "Итоги за %s: расходы %s, доходы %s.", s.PeriodLabel(), s.TotalExpense, s.TotalIncome)
	default:
		fmt.Fprintf(&b, "Summary for %s: total spending %s, income %s.", s.PeriodLabel(), s.TotalExpense, s.TotalIncome)
	}

	top := s.TopCategories(3)
	if len(top) > 0 {
		names := make([]string, len(top))
		for i, c := range top {
			names[i] = fmt.Sprintf("%s (%.0f%%)", c.Name, c.Percent)
		}
		switch s.Language {
		case "it":
			fmt.Fprintf(&b, " Categorie principali: %s.", strings.Join(names, ", "))
		case "ru":
			fmt.Fprintf(&b, " Основные категории: %s.", strings.Join(names, ", "))
		default:
			fmt.Fprintf(&b, " Top categories: %s.", strings.Join(names, ", "))
		}
	}

	return b.String()
}
