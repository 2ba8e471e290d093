package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chitieu/internal/core"

	_ "modernc.org/sqlite"
)

const budgetKey = "total_money"

// SQLiteRepository persists expense records and the single budget setting.
// It performs no validation: by the time a write reaches this layer the
// fields are already shaped, and the only failures it reports are I/O ones.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListExpenses returns all expenses whose date starts with monthPrefix
// (YYYY-MM), ordered by date descending. No match is an empty list, not
// an error.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, monthPrefix string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, item, amount, category, purpose
		 FROM expenses WHERE date LIKE ? ORDER BY date DESC`,
		monthPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var item, category, purpose sql.NullString
		var date sql.NullString
		var amount sql.NullFloat64
		if err := rows.Scan(&e.ID, &date, &item, &amount, &category, &purpose); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = date.String
		e.Item = item.String
		e.Amount = amount.Float64
		e.Category = category.String
		e.Purpose = purpose.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// InsertExpense assigns a new unique id. A blank date defaults to the
// current day on the server clock.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, f core.ExpenseFields) (int64, error) {
	date := strings.TrimSpace(f.Date)
	if date == "" {
		date = r.now().Format(core.DateLayout)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (item, amount, category, purpose, date) VALUES (?, ?, ?, ?, ?)`,
		f.Item, f.Amount, f.Category, f.Purpose, date)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"item", f.Item,
		"amount", f.Amount,
		"category", f.Category,
		"date", date)

	return id, nil
}

// UpdateExpense replaces all mutable fields of the expense. A blank date
// keeps the previously stored date rather than overwriting it with today.
// Updating a non-existent id is a successful no-op.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, f core.ExpenseFields) error {
	date := strings.TrimSpace(f.Date)
	if date == "" {
		var stored sql.NullString
		err := r.db.QueryRowContext(ctx, `SELECT date FROM expenses WHERE id = ?`, id).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Missing row, nothing to update.
			return nil
		case err != nil:
			return fmt.Errorf("read stored date: %w", err)
		}
		date = stored.String
		if date == "" {
			date = r.now().Format(core.DateLayout)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET item = ?, amount = ?, category = ?, purpose = ?, date = ? WHERE id = ?`,
		f.Item, f.Amount, f.Category, f.Purpose, date, id)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "item", f.Item, "amount", f.Amount, "date", date)
	return nil
}

// DeleteExpense removes the row if present. Deleting a non-existent id is
// a successful no-op. Ids are never reused: the table is AUTOINCREMENT.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// GetBudget returns the current total_money setting, 0 if never set.
func (r *SQLiteRepository) GetBudget(ctx context.Context) (float64, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, budgetKey).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("get budget: %w", err)
	}

	v, err := strconv.ParseFloat(value.String, 64)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

// SetBudget overwrites the single budget row wholesale.
func (r *SQLiteRepository) SetBudget(ctx context.Context, value float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`,
		budgetKey, strconv.FormatFloat(value, 'f', -1, 64))
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget updated", "total_money", value)
	return nil
}
