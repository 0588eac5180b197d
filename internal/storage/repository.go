// Package storage persists users and transactions in SQLite and builds
// per-period aggregates for reporting.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"spendbot/internal/core"
)

// ErrUserNotFound is returned when a chat has never been registered.
var ErrUserNotFound = errors.New("user not found")

// User is a registered chat.
type User struct {
	ChatID   int64
	Language string
}

// CategorySum is the expense total for one category in a period.
type CategorySum struct {
	Category string
	Cents    int64
}

// PeriodTotals are the raw aggregates for one user-month.
type PeriodTotals struct {
	IncomeCents  int64
	ExpenseCents int64
	TxCount      int
}

// Repository wraps the SQLite database.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database at path and applies migrations.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent batch reporting.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertUser registers a chat or updates its language.
func (r *Repository) UpsertUser(ctx context.Context, chatID int64, language string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, language) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET language = excluded.language`,
		chatID, language)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", chatID, err)
	}
	return nil
}

// GetUser returns the registered user for chatID.
func (r *Repository) GetUser(ctx context.Context, chatID int64) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id, language FROM users WHERE chat_id = ?`, chatID).
		Scan(&u.ChatID, &u.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", chatID, err)
	}
	return u, nil
}

// CreateTransaction stores a validated transaction and returns its id.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("invalid transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, year, month, day, kind, description, amount_cents, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date.Year(), t.Date.Month(), t.Date.Day(),
		string(t.Kind), t.Description, t.Amount.Cents, t.Category)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read transaction id: %w", err)
	}
	return id, nil
}

// PeriodTotals returns income, expense, and transaction count for one month.
func (r *Repository) PeriodTotals(ctx context.Context, userID int64, year, month int) (PeriodTotals, error) {
	var t PeriodTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0),
			COUNT(*)
		FROM transactions
		WHERE user_id = ? AND year = ? AND month = ?`,
		userID, year, month).
		Scan(&t.IncomeCents, &t.ExpenseCents, &t.TxCount)
	if err != nil {
		return PeriodTotals{}, fmt.Errorf("period totals %d %04d-%02d: %w", userID, year, month, err)
	}
	return t, nil
}

// CategorySums returns expense totals per category for one month, largest
// first. Category order for equal totals is alphabetical, keeping report
// output stable.
func (r *Repository) CategorySums(ctx context.Context, userID int64, year, month int) ([]CategorySum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total
		FROM transactions
		WHERE user_id = ? AND year = ? AND month = ? AND kind = 'expense'
		GROUP BY category
		ORDER BY total DESC, category ASC`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("category sums %d %04d-%02d: %w", userID, year, month, err)
	}
	defer rows.Close()

	var sums []CategorySum
	for rows.Next() {
		var s CategorySum
		if err := rows.Scan(&s.Category, &s.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// ListTransactions returns all transactions for one user-month in date order.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, year, month, day, kind, description, amount_cents, category
		FROM transactions
		WHERE user_id = ? AND year = ? AND month = ?
		ORDER BY day ASC, id ASC`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions %d %04d-%02d: %w", userID, year, month, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t                    core.Transaction
			txYear, txMonth, day int
			kind                 string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &txYear, &txMonth, &day,
			&kind, &t.Description, &t.Amount.Cents, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = core.NewDate(txYear, txMonth, day)
		t.Kind = core.TransactionKind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ActiveUsers returns users with at least one transaction in the given month.
func (r *Repository) ActiveUsers(ctx context.Context, year, month int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.chat_id, u.language
		FROM users u
		WHERE EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.user_id = u.chat_id AND t.year = ? AND t.month = ?
		)
		ORDER BY u.chat_id`,
		year, month)
	if err != nil {
		return nil, fmt.Errorf("active users %04d-%02d: %w", year, month, err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ChatID, &u.Language); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
