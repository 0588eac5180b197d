package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbot/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addTx(t *testing.T, repo *Repository, userID int64, date core.Date, kind core.TransactionKind, desc string, cents int64, category string) {
	t.Helper()
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:      userID,
		Date:        date,
		Kind:        kind,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    category,
	})
	require.NoError(t, err)
}

func TestUpsertAndGetUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetUser(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.UpsertUser(ctx, 42, "en"))
	u, err := repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, User{ChatID: 42, Language: "en"}, u)

	// Second upsert updates the language in place.
	require.NoError(t, repo.UpsertUser(ctx, 42, "it"))
	u, err = repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "it", u.Language)
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1,
		Date:   core.NewDate(2025, 6, 1),
		Kind:   "transfer",
	})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestPeriodTotalsAndCategorySums(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, 1, "en"))

	addTx(t, repo, 1, core.NewDate(2025, 6, 2), core.Income, "salary", 250000, "Income")
	addTx(t, repo, 1, core.NewDate(2025, 6, 5), core.Expense, "groceries", 12000, "Groceries")
	addTx(t, repo, 1, core.NewDate(2025, 6, 9), core.Expense, "more groceries", 8000, "Groceries")
	addTx(t, repo, 1, core.NewDate(2025, 6, 12), core.Expense, "pizza", 3000, "Dining")
	// Different month, must not leak into June.
	addTx(t, repo, 1, core.NewDate(2025, 5, 20), core.Expense, "taxi", 1500, "Transport")

	totals, err := repo.PeriodTotals(ctx, 1, 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, PeriodTotals{IncomeCents: 250000, ExpenseCents: 23000, TxCount: 4}, totals)

	sums, err := repo.CategorySums(ctx, 1, 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, []CategorySum{
		{Category: "Groceries", Cents: 20000},
		{Category: "Dining", Cents: 3000},
	}, sums)
}

func TestPeriodTotalsEmptyMonth(t *testing.T) {
	repo := newTestRepo(t)

	totals, err := repo.PeriodTotals(context.Background(), 1, 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, PeriodTotals{}, totals)
}

func TestListTransactionsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, 1, "en"))

	addTx(t, repo, 1, core.NewDate(2025, 6, 20), core.Expense, "late", 100, "Misc")
	addTx(t, repo, 1, core.NewDate(2025, 6, 3), core.Expense, "early", 200, "Misc")

	txs, err := repo.ListTransactions(ctx, 1, 2025, 6)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "early", txs[0].Description)
	assert.Equal(t, "late", txs[1].Description)
	assert.Equal(t, core.NewDate(2025, 6, 3), txs[0].Date)
	assert.Equal(t, core.Expense, txs[0].Kind)
}

func TestActiveUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.UpsertUser(ctx, 1, "en"))
	require.NoError(t, repo.UpsertUser(ctx, 2, "it"))
	require.NoError(t, repo.UpsertUser(ctx, 3, "en"))

	addTx(t, repo, 1, core.NewDate(2025, 6, 1), core.Expense, "a", 100, "Misc")
	addTx(t, repo, 2, core.NewDate(2025, 6, 1), core.Expense, "b", 100, "Misc")
	addTx(t, repo, 3, core.NewDate(2025, 5, 1), core.Expense, "c", 100, "Misc")

	users, err := repo.ActiveUsers(ctx, 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, []User{{ChatID: 1, Language: "en"}, {ChatID: 2, Language: "it"}}, users)
}
