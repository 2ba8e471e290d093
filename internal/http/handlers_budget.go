package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type budgetBody struct {
	TotalMoney *float64 `json:"total_money"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	value, err := s.budgets.GetBudget(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Get budget error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{"total_money": value})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var body budgetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if body.TotalMoney == nil {
		writeError(w, http.StatusBadRequest, "total_money is required")
		return
	}
	if *body.TotalMoney < 0 {
		writeError(w, http.StatusBadRequest, "total_money must be non-negative")
		return
	}

	if err := s.budgets.SetBudget(r.Context(), *body.TotalMoney); err != nil {
		slog.ErrorContext(r.Context(), "Set budget error", "error", err, "total_money", *body.TotalMoney)
		writeError(w, http.StatusInternalServerError, "failed to update budget")
		return
	}

	writeSuccess(w)
}
