package http

import (
	"net/http"

	"hearth/internal/core"
	"hearth/internal/services"
)

type accountRequest struct {
	Name                 string           `json:"name"`
	Type                 core.AccountType `json:"type"`
	StartingBalanceCents int64            `json:"startingBalanceCents,omitempty"`
	StartingBalanceDate  core.Date        `json:"startingBalanceDate,omitempty"`
	HouseholdName        string           `json:"householdName,omitempty"`
}

type accountResponse struct {
	ID                   int64            `json:"id"`
	Name                 string           `json:"name"`
	Type                 core.AccountType `json:"type"`
	BalanceCents         int64            `json:"balanceCents"`
	StartingBalanceCents int64            `json:"startingBalanceCents"`
	StartingBalanceDate  core.Date        `json:"startingBalanceDate,omitempty"`
	HouseholdID          int64            `json:"householdId,omitempty"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:                   a.ID,
		Name:                 a.Name,
		Type:                 a.Type,
		BalanceCents:         a.Balance.Cents,
		StartingBalanceCents: a.StartingBalance.Cents,
		StartingBalanceDate:  a.StartingBalanceDate,
		HouseholdID:          a.HouseholdID,
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	input := services.CreateAccountInput{
		Name:                req.Name,
		Type:                req.Type,
		StartingBalance:     req.StartingBalanceCents,
		StartingBalanceDate: req.StartingBalanceDate,
		HouseholdName:       req.HouseholdName,
	}

	account, err := s.ledger.CreateAccount(r.Context(), userID, input)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	accounts, err := s.ledger.ListAccounts(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.ledger.GetAccount(r.Context(), userID, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
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

	if err := s.ledger.DeleteAccount(r.Context(), userID, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type balanceResponse struct {
	AccountID    int64 `json:"accountId"`
	BalanceCents int64 `json:"balanceCents"`
}

func (s *Server) handleRecalculateBalance(w http.ResponseWriter, r *http.Request) {
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

	balance, err := s.ledger.RecalculateBalance(r.Context(), userID, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, BalanceCents: balance.Cents})
}

type anchorRequest struct {
	StartingBalanceCents int64     `json:"startingBalanceCents"`
	StartingBalanceDate  core.Date `json:"startingBalanceDate,omitempty"`
}

func (s *Server) handleUpdateAnchor(w http.ResponseWriter, r *http.Request) {
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

	var req anchorRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	balance, err := s.ledger.UpdateAccountAnchor(r.Context(), userID, id, req.StartingBalanceCents, req.StartingBalanceDate)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, BalanceCents: balance.Cents})
}
