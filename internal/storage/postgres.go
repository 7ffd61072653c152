package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgUniqueViolation = "23505"

// PostgresStore is the Store used when the development API runs against a
// shared database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) FindUsers(ctx context.Context, username string) ([]core.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, password FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Account, error) {
		var a core.Account
		err := row.Scan(&a.ID, &a.Username, &a.Password)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return nonNil(out), nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, password string) (core.ID, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password) VALUES ($1, $2, $3)`, id, username, password)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", ErrDuplicateUsername
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return core.ID(id), nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, userID core.ID) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, user_id FROM categories WHERE user_id = $1 ORDER BY created_at, id`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := row.Scan(&c.ID, &c.Name, &c.UserID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return nonNil(out), nil
}

func (s *PostgresStore) AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error) {
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO categories (id, user_id, name) VALUES ($1, $2, $3)`, id, userID.String(), name); err != nil {
		return "", fmt.Errorf("add category: %w", err)
	}
	return core.ID(id), nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int64, error) {
	return s.exec(ctx, "update category",
		`UPDATE categories SET name = $1 WHERE id = $2 AND user_id = $3`, name, id.String(), userID.String())
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete category",
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id.String(), userID.String())
}

func (s *PostgresStore) ListIncomes(ctx context.Context, userID core.ID) ([]core.Income, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, amount_cents, created_date::text
		FROM income WHERE user_id = $1
		ORDER BY created_at, id`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Income, error) {
		var in core.Income
		var cents int64
		err := row.Scan(&in.ID, &cents, &in.CreatedDate)
		in.Amount = core.FromCents(cents)
		return in, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan incomes: %w", err)
	}
	return nonNil(out), nil
}

func (s *PostgresStore) AddIncome(ctx context.Context, userID core.ID, amount decimal.Decimal, createdDate string) (core.ID, error) {
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO income (id, user_id, amount_cents, created_date) VALUES ($1, $2, $3, $4::date)`,
		id, userID.String(), core.ToCents(amount), createdDate); err != nil {
		return "", fmt.Errorf("add income: %w", err)
	}
	return core.ID(id), nil
}

func (s *PostgresStore) UpdateIncome(ctx context.Context, userID, id core.ID, amount decimal.Decimal) (int64, error) {
	return s.exec(ctx, "update income",
		`UPDATE income SET amount_cents = $1 WHERE id = $2 AND user_id = $3`, core.ToCents(amount), id.String(), userID.String())
}

func (s *PostgresStore) DeleteIncome(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete income",
		`DELETE FROM income WHERE id = $1 AND user_id = $2`, id.String(), userID.String())
}

func (s *PostgresStore) TotalIncome(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.sum(ctx, "total income", `SELECT SUM(amount_cents)::bigint FROM income WHERE user_id = $1`, userID)
}

func (s *PostgresStore) ListExpenses(ctx context.Context, userID core.ID) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.amount_cents, e.created_date::text, c.id, c.name
		FROM expense e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = $1
		ORDER BY e.created_at, e.id`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		var e core.Expense
		var cents int64
		err := row.Scan(&e.ID, &cents, &e.CreatedDate, &e.Category.ID, &e.Category.Name)
		e.Amount = core.FromCents(cents)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	return nonNil(out), nil
}

func (s *PostgresStore) ownsCategory(ctx context.Context, userID, categoryID core.ID) error {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`,
		categoryID.String(), userID.String()).Scan(&ok)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return ErrUnknownCategory
	}
	return nil
}

func (s *PostgresStore) AddExpense(ctx context.Context, userID core.ID, amount decimal.Decimal, categoryID core.ID, createdDate string) (core.ID, error) {
	if err := s.ownsCategory(ctx, userID, categoryID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO expense (id, user_id, category_id, amount_cents, created_date) VALUES ($1, $2, $3, $4, $5::date)`,
		id, userID.String(), categoryID.String(), core.ToCents(amount), createdDate); err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}
	return core.ID(id), nil
}

func (s *PostgresStore) UpdateExpense(ctx context.Context, userID, id core.ID, amount decimal.Decimal, categoryID core.ID) (int64, error) {
	if err := s.ownsCategory(ctx, userID, categoryID); err != nil {
		return 0, err
	}
	return s.exec(ctx, "update expense",
		`UPDATE expense SET amount_cents = $1, category_id = $2 WHERE id = $3 AND user_id = $4`,
		core.ToCents(amount), categoryID.String(), id.String(), userID.String())
}

func (s *PostgresStore) DeleteExpense(ctx context.Context, userID, id core.ID) (int64, error) {
	return s.exec(ctx, "delete expense",
		`DELETE FROM expense WHERE id = $1 AND user_id = $2`, id.String(), userID.String())
}

func (s *PostgresStore) TotalExpense(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.sum(ctx, "total expense", `SELECT SUM(amount_cents)::bigint FROM expense WHERE user_id = $1`, userID)
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) sum(ctx context.Context, op, query string, userID core.ID) (decimal.NullDecimal, error) {
	var cents *int64
	if err := s.pool.QueryRow(ctx, query, userID.String()).Scan(&cents); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", op, err)
	}
	return nullCents(cents), nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
