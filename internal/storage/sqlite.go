package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
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

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Users() UserRepository               { return (*sqliteUsers)(s) }
func (s *SQLiteStore) Transactions() TransactionRepository { return (*sqliteTransactions)(s) }
func (s *SQLiteStore) Budgets() BudgetRepository           { return (*sqliteBudgets)(s) }
func (s *SQLiteStore) ResetCodes() ResetCodeRepository     { return (*sqliteResetCodes)(s) }

// nextID bumps the named per-user counter inside tx and returns the new
// value. Counters only grow, so freed IDs never come back.
func nextID(ctx context.Context, tx *sql.Tx, email, name string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO counters (user_email, name, value) VALUES (?, ?, 1)
		ON CONFLICT (user_email, name) DO UPDATE SET value = value + 1`,
		email, name)
	if err != nil {
		return 0, fmt.Errorf("bump counter %s: %w", name, err)
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE user_email = ? AND name = ?`,
		email, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return id, nil
}

type sqliteUsers SQLiteStore

func (r *sqliteUsers) Get(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT email, name, phone, password_hash, created_at
		FROM users WHERE email = ?`, email).
		Scan(&u.Email, &u.Name, &u.Phone, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		u.CreatedAt = ts
	}
	return u, nil
}

func (r *sqliteUsers) Create(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, name, phone, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`,
		u.Email, u.Name, u.Phone, u.PasswordHash, u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (r *sqliteUsers) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type sqliteTransactions SQLiteStore

func (r *sqliteTransactions) List(ctx context.Context, email string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, category, description, date
		FROM transactions WHERE user_email = ? ORDER BY id`, email)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *sqliteTransactions) Add(ctx context.Context, email string, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	t.ID, err = nextID(ctx, tx, email, "transactions")
	if err != nil {
		return core.Transaction{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (user_email, id, type, amount_cents, category, description, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		email, t.ID, string(t.Type), t.Amount.Cents, t.Category, t.Description, t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (r *sqliteTransactions) Delete(ctx context.Context, email string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_email = ? AND id = ?`, email, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type sqliteBudgets SQLiteStore

func (r *sqliteBudgets) List(ctx context.Context, email string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, limit_cents, month
		FROM budgets WHERE user_email = ? ORDER BY id`, email)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Category, &b.Limit.Cents, &b.Month); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *sqliteBudgets) Add(ctx context.Context, email string, b core.Budget) (core.Budget, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM budgets WHERE user_email = ? AND category = ? AND month = ?
		)`, email, b.Category, b.Month).Scan(&exists)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check budget uniqueness: %w", err)
	}
	if exists {
		return core.Budget{}, ErrDuplicateBudget
	}

	b.ID, err = nextID(ctx, tx, email, "budgets")
	if err != nil {
		return core.Budget{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (user_email, id, category, limit_cents, month)
		VALUES (?, ?, ?, ?, ?)`,
		email, b.ID, b.Category, b.Limit.Cents, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

func (r *sqliteBudgets) Delete(ctx context.Context, email string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE user_email = ? AND id = ?`, email, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type sqliteResetCodes SQLiteStore

func (r *sqliteResetCodes) Get(ctx context.Context, email string) (core.ResetCode, error) {
	var c core.ResetCode
	var expiresAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT code, expires_at, phone FROM reset_codes WHERE user_email = ?`, email).
		Scan(&c.Code, &expiresAt, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ResetCode{}, ErrNotFound
	}
	if err != nil {
		return core.ResetCode{}, fmt.Errorf("get reset code: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return core.ResetCode{}, fmt.Errorf("parse reset code expiry: %w", err)
	}
	c.ExpiresAt = ts
	return c, nil
}

func (r *sqliteResetCodes) Put(ctx context.Context, email string, c core.ResetCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reset_codes (user_email, code, expires_at, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_email) DO UPDATE SET
			code = excluded.code,
			expires_at = excluded.expires_at,
			phone = excluded.phone`,
		email, c.Code, c.ExpiresAt.Format(time.RFC3339Nano), c.Phone)
	if err != nil {
		return fmt.Errorf("put reset code: %w", err)
	}
	return nil
}

func (r *sqliteResetCodes) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM reset_codes WHERE user_email = ?`, email); err != nil {
		return fmt.Errorf("delete reset code: %w", err)
	}
	return nil
}
