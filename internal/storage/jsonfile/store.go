// Package jsonfile implements the storage repositories over one JSON
// document per collection, matching the layout of the original data
// directory (users.json, transactions.json, budgets.json,
// otp_data.json keyed by email).
//
// Every operation is a whole-file read-modify-write. A store-wide mutex
// serializes writers so concurrent requests cannot lose updates, and
// saves go through a temp file plus rename so a failed write never
// leaves a truncated collection behind.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	usersFile        = "users.json"
	transactionsFile = "transactions.json"
	budgetsFile      = "budgets.json"
	resetCodesFile   = "otp_data.json"
)

// ledger is a user's slice of a collection together with the monotonic
// counter feeding new IDs. Counters never rewind, so IDs freed by a
// deletion are not reused.
type ledger[T any] struct {
	NextID int64 `json:"next_id"`
	Items  []T   `json:"items"`
}

type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Users() storage.UserRepository               { return (*userRepo)(s) }
func (s *Store) Transactions() storage.TransactionRepository { return (*transactionRepo)(s) }
func (s *Store) Budgets() storage.BudgetRepository           { return (*budgetRepo)(s) }
func (s *Store) ResetCodes() storage.ResetCodeRepository     { return (*resetCodeRepo)(s) }

// load reads a whole collection. Absent, unreadable, or malformed files
// degrade to an empty collection; the condition is logged, never
// surfaced to the caller.
func load[V any](s *Store, name string) map[string]V {
	out := make(map[string]V)
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed reading collection", "collection", name, "error", err)
		}
		return out
	}
	if len(data) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Error("Malformed collection, starting empty", "collection", name, "error", err)
		return make(map[string]V)
	}
	return out
}

// save writes the full collection atomically.
func save[V any](s *Store, name string, coll map[string]V) error {
	data, err := json.MarshalIndent(coll, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

type userRepo Store

func (r *userRepo) Get(_ context.Context, email string) (core.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := load[core.User](s, usersFile)
	u, ok := users[email]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) Create(_ context.Context, u core.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := load[core.User](s, usersFile)
	if _, ok := users[u.Email]; ok {
		return storage.ErrEmailTaken
	}
	users[u.Email] = u
	return save(s, usersFile, users)
}

func (r *userRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := load[core.User](s, usersFile)
	u, ok := users[email]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	users[email] = u
	return save(s, usersFile, users)
}

type transactionRepo Store

func (r *transactionRepo) List(_ context.Context, email string) ([]core.Transaction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Transaction]](s, transactionsFile)
	return coll[email].Items, nil
}

func (r *transactionRepo) Add(_ context.Context, email string, t core.Transaction) (core.Transaction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Transaction]](s, transactionsFile)
	l := coll[email]
	l.NextID++
	t.ID = l.NextID
	l.Items = append(l.Items, t)
	coll[email] = l
	if err := save(s, transactionsFile, coll); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *transactionRepo) Delete(_ context.Context, email string, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Transaction]](s, transactionsFile)
	l := coll[email]
	kept := l.Items[:0]
	for _, t := range l.Items {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(l.Items) {
		return storage.ErrNotFound
	}
	l.Items = kept
	coll[email] = l
	return save(s, transactionsFile, coll)
}

type budgetRepo Store

func (r *budgetRepo) List(_ context.Context, email string) ([]core.Budget, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Budget]](s, budgetsFile)
	return coll[email].Items, nil
}

func (r *budgetRepo) Add(_ context.Context, email string, b core.Budget) (core.Budget, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Budget]](s, budgetsFile)
	l := coll[email]
	for _, existing := range l.Items {
		if existing.Category == b.Category && existing.Month == b.Month {
			return core.Budget{}, storage.ErrDuplicateBudget
		}
	}
	l.NextID++
	b.ID = l.NextID
	l.Items = append(l.Items, b)
	coll[email] = l
	if err := save(s, budgetsFile, coll); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *budgetRepo) Delete(_ context.Context, email string, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := load[ledger[core.Budget]](s, budgetsFile)
	l := coll[email]
	kept := l.Items[:0]
	for _, b := range l.Items {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(l.Items) {
		return storage.ErrNotFound
	}
	l.Items = kept
	coll[email] = l
	return save(s, budgetsFile, coll)
}

type resetCodeRepo Store

func (r *resetCodeRepo) Get(_ context.Context, email string) (core.ResetCode, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := load[core.ResetCode](s, resetCodesFile)
	c, ok := codes[email]
	if !ok {
		return core.ResetCode{}, storage.ErrNotFound
	}
	return c, nil
}

func (r *resetCodeRepo) Put(_ context.Context, email string, c core.ResetCode) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := load[core.ResetCode](s, resetCodesFile)
	codes[email] = c
	return save(s, resetCodesFile, codes)
}

func (r *resetCodeRepo) Delete(_ context.Context, email string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := load[core.ResetCode](s, resetCodesFile)
	if _, ok := codes[email]; !ok {
		return nil
	}
	delete(codes, email)
	return save(s, resetCodesFile, codes)
}
