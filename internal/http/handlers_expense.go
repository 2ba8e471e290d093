package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"chitieu/internal/core"
)

// expenseBody is the request shape shared by create and update.
// Amount is a pointer so a missing field is distinguishable from 0.
type expenseBody struct {
	Item     string   `json:"item"`
	Amount   *float64 `json:"amount"`
	Category string   `json:"category"`
	Purpose  string   `json:"purpose"`
	Date     string   `json:"date"`
}

func (b expenseBody) fields() core.ExpenseFields {
	var amount float64
	if b.Amount != nil {
		amount = *b.Amount
	}
	return core.ExpenseFields{
		Item:     sanitizeInput(b.Item),
		Amount:   amount,
		Category: sanitizeInput(b.Category),
		Purpose:  sanitizeInput(b.Purpose),
		Date:     sanitizeInput(b.Date),
	}
}

func decodeExpenseBody(r *http.Request) (core.ExpenseFields, error) {
	var body expenseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return core.ExpenseFields{}, errors.New("malformed JSON body")
	}
	if body.Amount == nil {
		return core.ExpenseFields{}, errors.New("amount is required")
	}
	f := body.fields()
	if err := f.Validate(); err != nil {
		return core.ExpenseFields{}, err
	}
	return f, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	f, err := decodeExpenseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save expense",
			"error", err,
			"item", f.Item,
			"amount", f.Amount,
			"category", f.Category,
			"operation", "create")
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", id,
		"item", f.Item,
		"amount", f.Amount,
		"category", f.Category)

	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	f, err := decodeExpenseBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Missing ids are a deliberate no-op success, so this never 404s.
	if err := s.expenses.UpdateExpense(r.Context(), id, f); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update expense", "error", err, "expense_id", id, "operation", "update")
		writeError(w, http.StatusInternalServerError, "failed to update expense")
		return
	}

	writeSuccess(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete expense", "error", err, "expense_id", id, "operation", "delete")
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	writeSuccess(w)
}
