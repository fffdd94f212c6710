package services

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionInput carries the client-supplied fields of a new entry.
// Amount is in currency units; the sign is discarded and the type
// decides whether it counts as income or expense.
type TransactionInput struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type BudgetInput struct {
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
	Month    string  `json:"month"`
}

// LedgerService owns the per-user transaction and budget collections
// and the read-side aggregations over them.
type LedgerService struct {
	transactions storage.TransactionRepository
	budgets      storage.BudgetRepository
	now          func() time.Time
}

func NewLedgerService(transactions storage.TransactionRepository, budgets storage.BudgetRepository) *LedgerService {
	return &LedgerService{
		transactions: transactions,
		budgets:      budgets,
		now:          time.Now,
	}
}

// AddTransaction validates the input, fills defaults (date: today), and
// persists the entry under the user's ledger.
func (s *LedgerService) AddTransaction(ctx context.Context, email string, in TransactionInput) (core.Transaction, error) {
	t := core.Transaction{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(in.Type))),
		Amount:      core.Money{Cents: core.CentsFromFloat(in.Amount)}.Abs(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        strings.TrimSpace(in.Date),
	}
	if t.Date == "" {
		t.Date = s.now().Format(core.DateLayout)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return s.transactions.Add(ctx, email, t)
}

func (s *LedgerService) ListTransactions(ctx context.Context, email string) ([]core.Transaction, error) {
	return s.transactions.List(ctx, email)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, email string, id int64) error {
	return s.transactions.Delete(ctx, email, id)
}

// AddBudget validates the input, defaulting the month to the current
// one. A second budget for the same category and month is rejected by
// the repository.
func (s *LedgerService) AddBudget(ctx context.Context, email string, in BudgetInput) (core.Budget, error) {
	b := core.Budget{
		Category: strings.TrimSpace(in.Category),
		Limit:    core.Money{Cents: core.CentsFromFloat(in.Limit)},
		Month:    strings.TrimSpace(in.Month),
	}
	if b.Month == "" {
		b.Month = s.now().Format(core.MonthLayout)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.budgets.Add(ctx, email, b)
}

func (s *LedgerService) ListBudgets(ctx context.Context, email string) ([]core.Budget, error) {
	return s.budgets.List(ctx, email)
}

func (s *LedgerService) DeleteBudget(ctx context.Context, email string, id int64) error {
	return s.budgets.Delete(ctx, email, id)
}

// Summary recomputes the income/expense totals from the stored ledger
// on every call; nothing is cached.
func (s *LedgerService) Summary(ctx context.Context, email string) (core.Summary, error) {
	transactions, err := s.transactions.List(ctx, email)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(transactions), nil
}

// BudgetStatus reports each budget with its in-month spend.
func (s *LedgerService) BudgetStatus(ctx context.Context, email string) ([]core.BudgetStatus, error) {
	budgets, err := s.budgets.List(ctx, email)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactions.List(ctx, email)
	if err != nil {
		return nil, err
	}
	return core.BudgetStatuses(budgets, transactions), nil
}

// Report builds the category breakdown and the six-month trend ending
// at the current calendar month.
func (s *LedgerService) Report(ctx context.Context, email string) (core.Report, error) {
	transactions, err := s.transactions.List(ctx, email)
	if err != nil {
		return core.Report{}, err
	}
	return core.BuildReport(transactions, s.now()), nil
}
