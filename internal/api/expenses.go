package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/export"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
)

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	expenses, err := s.svc.Expenses.List(r.Context(), userID(r), service.ListInput{
		Scope:    q.Get("scope"),
		Category: q.Get("category"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": orEmpty(expenses)})
}

func (s *Server) expensesInRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expenses, err := s.svc.Expenses.Range(r.Context(), userID(r), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": orEmpty(expenses)})
}

func (s *Server) expenseSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.svc.Expenses.Summary(r.Context(), userID(r), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary.Categories = orEmpty(summary.Categories)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req service.ExpenseInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.svc.Expenses.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.svc.Expenses.Get(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	var req service.ExpenseInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.svc.Expenses.Update(r.Context(), userID(r), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Expenses.Categories(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": orEmpty(categories)})
}

// exportExpenses streams the caller's expenses as a CSV or JSON attachment.
func (s *Server) exportExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeError(w, r, invalidBody(err.Error()))
		return
	}
	start, end := q.Get("start"), q.Get("end")
	rows, err := s.svc.Expenses.Export(r.Context(), userID(r), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(start, end)+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, rows); err != nil {
		s.logger.Error("failed to write export", "user_id", userID(r), "error", err)
	}
}

func (s *Server) listRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Recurring.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring_expenses": orEmpty(rules)})
}

func (s *Server) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req service.RecurringInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.svc.Recurring.Create(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) setRecurringActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		s.writeError(w, r, invalidBody("active is required"))
		return
	}
	rule, err := s.svc.Recurring.SetActive(r.Context(), userID(r), mux.Vars(r)["id"], *req.Active)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Recurring.Delete(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
