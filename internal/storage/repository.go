// Package storage defines the repository contracts and the SQLite
// implementation backing them. A JSON-file implementation lives in the
// jsonfile subpackage; the backend factory picks one at startup, so
// callers never depend on the storage engine.
package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrDuplicateBudget = errors.New("budget already exists for this category and month")
)

type UserRepository interface {
	// Get returns the user keyed by normalized email, or ErrNotFound.
	Get(ctx context.Context, email string) (core.User, error)
	// Create stores a new user; ErrEmailTaken if the key exists.
	Create(ctx context.Context, u core.User) error
	// UpdatePasswordHash replaces the stored hash for an existing user.
	UpdatePasswordHash(ctx context.Context, email, hash string) error
}

type TransactionRepository interface {
	List(ctx context.Context, email string) ([]core.Transaction, error)
	// Add assigns the next ID from the user's monotonic counter and
	// persists the entry, returning it with the ID set.
	Add(ctx context.Context, email string, t core.Transaction) (core.Transaction, error)
	// Delete removes the entry with the given ID, or ErrNotFound.
	Delete(ctx context.Context, email string, id int64) error
}

type BudgetRepository interface {
	List(ctx context.Context, email string) ([]core.Budget, error)
	// Add mirrors TransactionRepository.Add. A second budget for the
	// same (category, month) yields ErrDuplicateBudget.
	Add(ctx context.Context, email string, b core.Budget) (core.Budget, error)
	Delete(ctx context.Context, email string, id int64) error
}

type ResetCodeRepository interface {
	Get(ctx context.Context, email string) (core.ResetCode, error)
	// Put stores the code, overwriting any live code for the email.
	Put(ctx context.Context, email string, c core.ResetCode) error
	Delete(ctx context.Context, email string) error
}

// Store bundles the four collections behind one handle.
type Store interface {
	Users() UserRepository
	Transactions() TransactionRepository
	Budgets() BudgetRepository
	ResetCodes() ResetCodeRepository
	Close() error
}
