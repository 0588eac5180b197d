package storage

import (
	"context"
	"fmt"
	"time"

	"spendbot/internal/cache"
	"spendbot/internal/core"
)

const (
	snapshotCacheSize = 256
	snapshotCacheTTL  = 24 * time.Hour
)

// Aggregator builds period snapshots from stored transactions. Snapshots of
// closed months are cached: their data can no longer change.
type Aggregator struct {
	repo            *Repository
	snapshots       *cache.LRU[*core.PeriodSnapshot]
	defaultLanguage string
	now             func() time.Time
}

// NewAggregator creates an aggregator over repo. defaultLanguage is used for
// users without a stored language.
func NewAggregator(repo *Repository, defaultLanguage string) *Aggregator {
	return &Aggregator{
		repo:            repo,
		snapshots:       cache.NewLRU[*core.PeriodSnapshot](snapshotCacheSize, snapshotCacheTTL),
		defaultLanguage: defaultLanguage,
		now:             time.Now,
	}
}

// Snapshot aggregates one user-month, including the preceding month when it
// holds any data.
func (a *Aggregator) Snapshot(ctx context.Context, userID int64, year, month int) (*core.PeriodSnapshot, error) {
	key := snapshotKey(userID, year, month)
	if a.isClosed(year, month) {
		if s, ok := a.snapshots.Get(key); ok {
			return s, nil
		}
	}

	s, err := a.build(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	prevYear, prevMonth := core.PreviousPeriod(year, month)
	prev, err := a.build(ctx, userID, prevYear, prevMonth)
	if err != nil {
		return nil, err
	}
	if prev.TxCount > 0 {
		s.Previous = prev
	}

	if a.isClosed(year, month) {
		a.snapshots.Set(key, s)
	}
	return s, nil
}

// Invalidate drops the cached snapshot for one user-month. Called when a
// transaction is recorded against a past period.
func (a *Aggregator) Invalidate(userID int64, year, month int) {
	a.snapshots.Delete(snapshotKey(userID, year, month))
}

func (a *Aggregator) build(ctx context.Context, userID int64, year, month int) (*core.PeriodSnapshot, error) {
	totals, err := a.repo.PeriodTotals(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	sums, err := a.repo.CategorySums(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	language := a.defaultLanguage
	if u, err := a.repo.GetUser(ctx, userID); err == nil && u.Language != "" {
		language = u.Language
	}

	s := &core.PeriodSnapshot{
		Year:         year,
		Month:        month,
		Language:     language,
		TotalIncome:  core.Money{Cents: totals.IncomeCents},
		TotalExpense: core.Money{Cents: totals.ExpenseCents},
		Balance:      core.Money{Cents: totals.IncomeCents - totals.ExpenseCents},
		TxCount:      totals.TxCount,
	}

	for _, sum := range sums {
		share := core.CategoryShare{
			Name:   sum.Category,
			Amount: core.Money{Cents: sum.Cents},
		}
		if totals.ExpenseCents > 0 {
			share.Percent = float64(sum.Cents) / float64(totals.ExpenseCents) * 100
		}
		s.Categories = append(s.Categories, share)
	}
	return s, nil
}

// isClosed reports whether the period ended before the current month.
func (a *Aggregator) isClosed(year, month int) bool {
	now := a.now()
	return year < now.Year() || (year == now.Year() && month < int(now.Month()))
}

func snapshotKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d:%04d-%02d", userID, year, month)
}
