package core

import (
	"strings"
	"time"
)

// TrendMonths is the fixed window of the monthly trend report: the
// current month plus the five preceding calendar months.
const TrendMonths = 6

// Summary holds income/expense totals over a user's full ledger.
type Summary struct {
	Income           Money `json:"income"`
	Expenses         Money `json:"expenses"`
	Balance          Money `json:"balance"`
	TransactionCount int   `json:"transaction_count"`
}

// BudgetStatus compares one budget against the spend recorded for its
// category within its month. Remaining is negative when over budget.
type BudgetStatus struct {
	ID        int64  `json:"id"`
	Category  string `json:"category"`
	Month     string `json:"month"`
	Limit     Money  `json:"limit"`
	Spent     Money  `json:"spent"`
	Remaining Money  `json:"remaining"`
}

// MonthTrend is one bucket of the trend series.
type MonthTrend struct {
	Month    string `json:"month"` // YYYY-MM
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
}

// Report aggregates expense totals by category plus the trailing
// six-month trend.
type Report struct {
	Income       Money            `json:"income"`
	Expenses     Money            `json:"expenses"`
	Categories   map[string]Money `json:"categories"`
	MonthlyTrend []MonthTrend     `json:"monthly_trend"`
}

// Summarize computes totals over the full transaction list.
// Balance is income minus expenses, so it holds for the empty list too.
func Summarize(transactions []Transaction) Summary {
	var s Summary
	for _, t := range transactions {
		switch t.Type {
		case Income:
			s.Income.Cents += t.Amount.Cents
		case Expense:
			s.Expenses.Cents += t.Amount.Cents
		}
	}
	s.Balance.Cents = s.Income.Cents - s.Expenses.Cents
	s.TransactionCount = len(transactions)
	return s
}

// BudgetStatuses derives the spend and remainder for each budget.
// Spend matches expenses whose category equals the budget's and whose
// date starts with the budget month. Should legacy data still contain
// several budgets for one (category, month) pair, only the first is
// reported; creation rejects such duplicates nowadays.
func BudgetStatuses(budgets []Budget, transactions []Transaction) []BudgetStatus {
	statuses := make([]BudgetStatus, 0, len(budgets))
	seen := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		key := b.Category + "-" + b.Month
		if seen[key] {
			continue
		}
		seen[key] = true

		var spent int64
		for _, t := range transactions {
			if t.Type == Expense && t.Category == b.Category && strings.HasPrefix(t.Date, b.Month) {
				spent += t.Amount.Cents
			}
		}
		statuses = append(statuses, BudgetStatus{
			ID:        b.ID,
			Category:  b.Category,
			Month:     b.Month,
			Limit:     b.Limit,
			Spent:     Money{Cents: spent},
			Remaining: Money{Cents: b.Limit.Cents - spent},
		})
	}
	return statuses
}

// BuildReport computes per-category expense totals and the monthly
// trend series ending at the month containing now. The series always
// has exactly TrendMonths entries, oldest first, zero-filled for
// months without activity. Buckets step by true calendar months, so
// the series is stable across month-boundary dates.
func BuildReport(transactions []Transaction, now time.Time) Report {
	r := Report{Categories: make(map[string]Money)}

	byMonth := make(map[string]*MonthTrend)
	for _, t := range transactions {
		switch t.Type {
		case Income:
			r.Income.Cents += t.Amount.Cents
		case Expense:
			r.Expenses.Cents += t.Amount.Cents
			c := r.Categories[t.Category]
			c.Cents += t.Amount.Cents
			r.Categories[t.Category] = c
		}
		if len(t.Date) >= len(MonthLayout) {
			month := t.Date[:len(MonthLayout)]
			bucket, ok := byMonth[month]
			if !ok {
				bucket = &MonthTrend{Month: month}
				byMonth[month] = bucket
			}
			if t.Type == Income {
				bucket.Income.Cents += t.Amount.Cents
			} else {
				bucket.Expenses.Cents += t.Amount.Cents
			}
		}
	}

	r.MonthlyTrend = make([]MonthTrend, 0, TrendMonths)
	year, month, _ := now.Date()
	for i := TrendMonths - 1; i >= 0; i-- {
		label := time.Date(year, month-time.Month(i), 1, 0, 0, 0, 0, time.UTC).Format(MonthLayout)
		if bucket, ok := byMonth[label]; ok {
			r.MonthlyTrend = append(r.MonthlyTrend, *bucket)
		} else {
			r.MonthlyTrend = append(r.MonthlyTrend, MonthTrend{Month: label})
		}
	}
	return r
}
