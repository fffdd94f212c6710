package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	transactions, err := s.ledger.ListTransactions(r.Context(), sess.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions failed", "error", err)
		fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	var in services.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid transaction data")
		return
	}

	t, err := s.ledger.AddTransaction(r.Context(), sess.Email, in)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			fail(w, http.StatusBadRequest, "Invalid amount")
		case errors.Is(err, core.ErrInvalidType), errors.Is(err, core.ErrInvalidDate):
			fail(w, http.StatusBadRequest, "Invalid transaction data")
		default:
			slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
			fail(w, http.StatusInternalServerError, "Failed to save transaction")
		}
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), sess.Email, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(w, http.StatusNotFound, "Transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete transaction failed", "error", err, "id", id)
		fail(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Transaction deleted successfully",
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	budgets, err := s.ledger.ListBudgets(r.Context(), sess.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "List budgets failed", "error", err)
		fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	var in services.BudgetInput
	if err := decodeJSON(r, &in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid budget data")
		return
	}

	b, err := s.ledger.AddBudget(r.Context(), sess.Email, in)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			fail(w, http.StatusBadRequest, "Invalid budget limit")
		case errors.Is(err, core.ErrEmptyCategory), errors.Is(err, core.ErrInvalidMonth):
			fail(w, http.StatusBadRequest, "Invalid budget data")
		case errors.Is(err, storage.ErrDuplicateBudget):
			fail(w, http.StatusBadRequest, "A budget for this category and month already exists")
		default:
			slog.ErrorContext(r.Context(), "Create budget failed", "error", err)
			fail(w, http.StatusInternalServerError, "Failed to save budget")
		}
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid budget id")
		return
	}

	if err := s.ledger.DeleteBudget(r.Context(), sess.Email, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(w, http.StatusNotFound, "Budget not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete budget failed", "error", err, "id", id)
		fail(w, http.StatusInternalServerError, "Failed to delete budget")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Budget deleted successfully",
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	summary, err := s.ledger.Summary(r.Context(), sess.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary failed", "error", err)
		fail(w, http.StatusInternalServerError, "Error calculating summary")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		core.Summary
	}{Success: true, Summary: summary})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	statuses, err := s.ledger.BudgetStatus(r.Context(), sess.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget status failed", "error", err)
		fail(w, http.StatusInternalServerError, "Error calculating budget status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"budgets": statuses,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	report, err := s.ledger.Report(r.Context(), sess.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Reports failed", "error", err)
		fail(w, http.StatusInternalServerError, "Error generating reports")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		core.Report
	}{Success: true, Report: report})
}

func (s *Server) handleFinancialAdvice(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())

	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(w, http.StatusBadRequest, "Please enter a question")
		return
	}

	advice, err := s.advice.Advise(r.Context(), sess.Email, strings.TrimSpace(req.Query))
	if err != nil {
		slog.ErrorContext(r.Context(), "Financial advice failed", "error", err)
		fail(w, http.StatusInternalServerError, "Sorry, I could not provide advice at the moment. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"advice":  advice,
	})
}
