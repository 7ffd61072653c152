package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the development backend in a single SQLite file.
// Amounts are stored as integer cents.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) FindUsers(ctx context.Context, username string) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Password); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, password string) (core.ID, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password) VALUES (?, ?, ?)`, id, username, password)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateUsername
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return core.ID(id), nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context, userID core.ID) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id FROM categories WHERE user_id = ? ORDER BY created_at, rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)`, id, userID.String(), name); err != nil {
		return "", fmt.Errorf("add category: %w", err)
	}
	return core.ID(id), nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int64, error) {
	return s.exec(ctx, "update category",
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`, name, id.String(), userID.String())
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete category",
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id.String(), userID.String())
}

func (s *SQLiteStore) ListIncomes(ctx context.Context, userID core.ID) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount_cents, created_date FROM income WHERE user_id = ? ORDER BY created_at, rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		var in core.Income
		var cents int64
		if err := rows.Scan(&in.ID, &cents, &in.CreatedDate); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Amount = core.FromCents(cents)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddIncome(ctx context.Context, userID core.ID, amount decimal.Decimal, createdDate string) (core.ID, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO income (id, user_id, amount_cents, created_date) VALUES (?, ?, ?, ?)`,
		id, userID.String(), core.ToCents(amount), createdDate); err != nil {
		return "", fmt.Errorf("add income: %w", err)
	}
	return core.ID(id), nil
}

func (s *SQLiteStore) UpdateIncome(ctx context.Context, userID, id core.ID, amount decimal.Decimal) (int64, error) {
	return s.exec(ctx, "update income",
		`UPDATE income SET amount_cents = ? WHERE id = ? AND user_id = ?`, core.ToCents(amount), id.String(), userID.String())
}

func (s *SQLiteStore) DeleteIncome(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete income",
		`DELETE FROM income WHERE id = ? AND user_id = ?`, id.String(), userID.String())
}

func (s *SQLiteStore) TotalIncome(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.sum(ctx, "total income", `SELECT SUM(amount_cents) FROM income WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, userID core.ID) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.amount_cents, e.created_date, c.id, c.name
		FROM expense e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ?
		ORDER BY e.created_at, e.rowid`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		var cents int64
		if err := rows.Scan(&e.ID, &cents, &e.CreatedDate, &e.Category.ID, &e.Category.Name); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Amount = core.FromCents(cents)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ownsCategory(ctx context.Context, userID, categoryID core.ID) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?`, categoryID.String(), userID.String()).Scan(&n)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if n == 0 {
		return ErrUnknownCategory
	}
	return nil
}

func (s *SQLiteStore) AddExpense(ctx context.Context, userID core.ID, amount decimal.Decimal, categoryID core.ID, createdDate string) (core.ID, error) {
	if err := s.ownsCategory(ctx, userID, categoryID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO expense (id, user_id, category_id, amount_cents, created_date) VALUES (?, ?, ?, ?, ?)`,
		id, userID.String(), categoryID.String(), core.ToCents(amount), createdDate); err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}
	return core.ID(id), nil
}

func (s *SQLiteStore) UpdateExpense(ctx context.Context, userID, id core.ID, amount decimal.Decimal, categoryID core.ID) (int64, error) {
	if err := s.ownsCategory(ctx, userID, categoryID); err != nil {
		return 0, err
	}
	return s.exec(ctx, "update expense",
		`UPDATE expense SET amount_cents = ?, category_id = ? WHERE id = ? AND user_id = ?`,
		core.ToCents(amount), categoryID.String(), id.String(), userID.String())
}

func (s *SQLiteStore) DeleteExpense(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete expense",
		`DELETE FROM expense WHERE id = ? AND user_id = ?`, id.String(), userID.String())
}

func (s *SQLiteStore) TotalExpense(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.sum(ctx, "total expense", `SELECT SUM(amount_cents) FROM expense WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func (s *SQLiteStore) sum(ctx context.Context, op, query string, userID core.ID) (decimal.NullDecimal, error) {
	var cents sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&cents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", op, err)
	}
	if !cents.Valid {
		return decimal.NullDecimal{}, nil
	}
	return nullCents(&cents.Int64), nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
