package http

import (
	"net/http"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/services"
)

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	filter := services.StatsFilter{
		From: core.Date(r.URL.Query().Get("from")),
		To:   core.Date(r.URL.Query().Get("to")),
	}
	accountID, err := queryInt64(r, "accountId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	filter.AccountID = accountID

	for _, d := range []core.Date{filter.From, filter.To} {
		if d != "" {
			if err := d.Validate(); err != nil {
				writeError(r.Context(), w, err)
				return
			}
		}
	}

	summary, err := s.stats.GetStats(r.Context(), userID, filter)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	from := core.Date(r.URL.Query().Get("from"))
	to := core.Date(r.URL.Query().Get("to"))
	for _, d := range []core.Date{from, to} {
		if d != "" {
			if err := d.Validate(); err != nil {
				writeError(r.Context(), w, err)
				return
			}
		}
	}

	report, err := s.stats.GetBudgetProgress(r.Context(), userID, from, to)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type budgetRequest struct {
	AmountCents int64 `json:"amountCents"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.ledger.SetBudget(r.Context(), userID, categoryID, req.AmountCents); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	category, err := s.ledger.CreateCategory(r.Context(), userID, core.Category{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	categories, err := s.ledger.ListCategories(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.ledger.DeleteCategory(r.Context(), userID, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type recurringRuleRequest struct {
	AccountID   int64               `json:"accountId"`
	CategoryID  int64               `json:"categoryId,omitempty"`
	Description string              `json:"description"`
	Amount      string              `json:"amount"`
	Every       core.RepetitionType `json:"every"`
	StartDate   core.Date           `json:"startDate"`
	EndDate     core.Date           `json:"endDate,omitempty"`
}

func (s *Server) handleCreateRecurringRule(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req recurringRuleRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cents, err := core.ParseSignedCents(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	rule := core.RecurringRule{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Every:       req.Every,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	id, err := s.ledger.CreateRecurringRule(r.Context(), userID, rule)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleListRecurringRules(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	rules, err := s.ledger.ListRecurringRules(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type importRequest struct {
	AccountID int64               `json:"accountId"`
	Rows      []amqp.StatementRow `json:"rows"`
}

// handleEnqueueImport hands a statement batch to the import worker through
// the broker. 202: the rows are not in the ledger yet.
func (s *Server) handleEnqueueImport(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	if s.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "statement import queue is not configured"})
		return
	}

	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rows must not be empty"})
		return
	}

	// Fail fast on an inaccessible account before queueing.
	if _, err := s.ledger.GetAccount(r.Context(), userID, req.AccountID); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	msg := amqp.NewStatementBatchMessage(req.AccountID, userID, req.Rows)
	if err := s.events.PublishStatementBatch(r.Context(), msg); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queuedRows": len(req.Rows)})
}
