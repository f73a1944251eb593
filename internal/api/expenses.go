package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var raw record.Raw
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	expense := record.DecodeExpense(raw)
	if err := expense.Validate(); err != nil {
		slog.Warn("create expense rejected", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	stored, err := s.store.Insert(r.Context(), record.Expenses, record.EncodeExpense(expense))
	if err != nil {
		slog.Warn("expense not persisted, serving from cache", "error", err)
		if expense.ID == "" {
			expense.ID = uuid.New().String()
		}
		s.ledger.UpsertExpense(expense)
		writeJSON(w, http.StatusOK, map[string]any{"expense": toExpenseDTO(expense), "persisted": false})
		return
	}

	expense = record.DecodeExpense(stored)
	s.ledger.UpsertExpense(expense)
	slog.Info("expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount", expense.Amount.String(),
		"split_count", len(expense.SplitBetween),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"expense": toExpenseDTO(expense), "persisted": true})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseID")

	var partial record.Raw
	if err := decodeBody(r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	existing, ok := s.ledger.ExpenseByID(expenseID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	merged := record.DecodeExpense(record.Merge(record.Expenses, record.EncodeExpense(existing), partial))
	merged.ID = expenseID
	if err := merged.Validate(); err != nil {
		slog.Warn("update expense rejected", "expense_id", expenseID, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	persisted := true
	if _, err := s.store.Update(r.Context(), record.Expenses, expenseID, partial); err != nil {
		slog.Warn("expense update not persisted, serving from cache", "expense_id", expenseID, "error", err)
		persisted = false
	}
	s.ledger.UpsertExpense(merged)
	writeJSON(w, http.StatusOK, map[string]any{"expense": toExpenseDTO(merged), "persisted": persisted})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := chi.URLParam(r, "expenseID")

	removed := s.ledger.RemoveExpense(expenseID)
	err := s.store.Delete(r.Context(), record.Expenses, expenseID)
	if err != nil && !removed {
		writeError(w, statusFor(storage.ErrNotFound), storage.ErrNotFound)
		return
	}
	if err != nil {
		slog.Warn("expense delete not persisted", "expense_id", expenseID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
