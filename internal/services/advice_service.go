package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/groq"
)

const advisorSystemPrompt = "You are a certified financial advisor. Provide specific, actionable advice based on the user transaction history. Break down complex concepts into simple terms. Always suggest concrete steps. Keep response under 500 characters."

const (
	adviceUnavailable = "AI advice is currently unavailable. Please configure the API key."
	adviceFailed      = "I'm having trouble connecting to provide advice right now. Please try again in a moment."
)

// Completer produces a completion for a system+user prompt pair.
// groq.Client satisfies this.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AdviceService relays a user question plus their financial summary to
// the completion endpoint. Completion failures never surface as errors:
// the user always gets advice text, possibly a canned fallback.
type AdviceService struct {
	ledger    *LedgerService
	completer Completer
}

func NewAdviceService(ledger *LedgerService, completer Completer) *AdviceService {
	return &AdviceService{ledger: ledger, completer: completer}
}

// Advise answers the question against the user's current summary and
// budget standing. Only storage failures return an error.
func (s *AdviceService) Advise(ctx context.Context, email, question string) (string, error) {
	summary, err := s.ledger.Summary(ctx, email)
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	statuses, err := s.ledger.BudgetStatus(ctx, email)
	if err != nil {
		return "", fmt.Errorf("load budget status: %w", err)
	}

	prompt := buildAdvicePrompt(summary, statuses, question)
	advice, err := s.completer.Complete(ctx, advisorSystemPrompt, prompt)
	if err != nil {
		if errors.Is(err, groq.ErrNoAPIKey) {
			return adviceUnavailable, nil
		}
		slog.ErrorContext(ctx, "Completion request failed", "error", err)
		return adviceFailed, nil
	}
	return advice, nil
}

func buildAdvicePrompt(summary core.Summary, statuses []core.BudgetStatus, question string) string {
	budgetLines := make([]string, 0, len(statuses))
	for _, st := range statuses {
		budgetLines = append(budgetLines, fmt.Sprintf("%s (%s): Limit $%s, Spent $%s, Remaining $%s",
			st.Category, st.Month, st.Limit, st.Spent, st.Remaining))
	}
	budgetText := strings.Join(budgetLines, "\n")
	if budgetText == "" {
		budgetText = "No budgets created"
	}

	var b strings.Builder
	b.WriteString("User's Financial Summary:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", summary.Income)
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", summary.Expenses)
	fmt.Fprintf(&b, "- Current Balance: $%s\n", summary.Balance)
	fmt.Fprintf(&b, "- Number of Transactions: %d\n", summary.TransactionCount)
	b.WriteString("\nBudget Summary:\n")
	b.WriteString(budgetText)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(question)
	b.WriteString("\n\nPlease provide helpful, practical financial advice based on their situation.\n")
	b.WriteString("Break down complex concepts into simple terms. Always suggest concrete steps.\n")
	b.WriteString("Keep the response concise and actionable (500-700 characters).")
	return b.String()
}
