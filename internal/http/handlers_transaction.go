package http

import (
	"log/slog"
	"net/http"

	"hearth/internal/core"
	"hearth/internal/services"
)

type transactionRequest struct {
	AccountID         int64     `json:"accountId"`
	CategoryID        int64     `json:"categoryId,omitempty"`
	Date              core.Date `json:"date"`
	Description       string    `json:"description"`
	Amount            string    `json:"amount"`
	Notes             string    `json:"notes,omitempty"`
	IsSplit           bool      `json:"isSplit,omitempty"`
	SplitParticipants int       `json:"splitParticipants,omitempty"`
	SplitParentID     int64     `json:"splitParentId,omitempty"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	cents, err := core.ParseSignedCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		Date:              req.Date,
		Description:       req.Description,
		Amount:            core.Money{Cents: cents},
		Notes:             req.Notes,
		IsSplit:           req.IsSplit,
		SplitParticipants: req.SplitParticipants,
		SplitParentID:     req.SplitParentID,
	}, nil
}

type transactionResponse struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"accountId"`
	CategoryID        int64     `json:"categoryId,omitempty"`
	Date              core.Date `json:"date"`
	Description       string    `json:"description"`
	AmountCents       int64     `json:"amountCents"`
	Notes             string    `json:"notes,omitempty"`
	IsRecurring       bool      `json:"isRecurring,omitempty"`
	IsTransfer        bool      `json:"isTransfer,omitempty"`
	IsSplit           bool      `json:"isSplit,omitempty"`
	SplitParticipants int       `json:"splitParticipants,omitempty"`
	SplitParentID     int64     `json:"splitParentId,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                tx.ID,
		AccountID:         tx.AccountID,
		CategoryID:        tx.CategoryID,
		Date:              tx.Date,
		Description:       tx.Description,
		AmountCents:       tx.Amount.Cents,
		Notes:             tx.Notes,
		IsRecurring:       tx.IsRecurring,
		IsTransfer:        tx.IsTransfer,
		IsSplit:           tx.IsSplit,
		SplitParticipants: tx.SplitParticipants,
		SplitParentID:     tx.SplitParentID,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	id, err := s.ledger.CreateTransaction(r.Context(), userID, tx)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	tx.ID = id
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

type transactionPatchRequest struct {
	AccountID   *int64     `json:"accountId,omitempty"`
	CategoryID  *int64     `json:"categoryId,omitempty"`
	Date        *core.Date `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *string    `json:"amount,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	IsTransfer  *bool      `json:"isTransfer,omitempty"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
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

	var req transactionPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	patch := services.TransactionPatch{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Description: req.Description,
		Notes:       req.Notes,
		IsTransfer:  req.IsTransfer,
	}
	if req.Amount != nil {
		cents, err := core.ParseSignedCents(*req.Amount)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		patch.AmountCents = &cents
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), userID, id, patch)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
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

	if err := s.ledger.DeleteTransaction(r.Context(), userID, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type bulkCreateRequest struct {
	AccountID int64                `json:"accountId"`
	Rows      []transactionRequest `json:"rows"`
}

type bulkCreateResponse struct {
	IDs              []int64 `json:"ids"`
	TransfersFlagged int     `json:"transfersFlagged"`
}

// handleBulkCreate imports rows into one account and runs transfer
// detection over the committed batch.
func (s *Server) handleBulkCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req bulkCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rows must not be empty"})
		return
	}

	rows := make([]core.Transaction, 0, len(req.Rows))
	for _, row := range req.Rows {
		tx, err := row.toTransaction()
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		rows = append(rows, tx)
	}

	ids, err := s.ledger.BulkCreateTransactions(r.Context(), userID, req.AccountID, rows)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	flagged, err := s.matcher.DetectTransfers(r.Context(), userID, req.AccountID, ids)
	if err != nil {
		// Rows are committed; report the import and leave detection to a
		// later pass.
		slog.ErrorContext(r.Context(), "Transfer detection failed after bulk create",
			"account_id", req.AccountID,
			"imported", len(ids),
			"error", err)
		flagged = 0
	}

	writeJSON(w, http.StatusCreated, bulkCreateResponse{IDs: ids, TransfersFlagged: flagged})
}

type bulkIDsRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkCountResponse struct {
	Affected int `json:"affected"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req bulkIDsRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids must not be empty"})
		return
	}

	n, err := s.ledger.BulkDeleteTransactions(r.Context(), userID, req.IDs)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkCountResponse{Affected: n})
}

type bulkCategoryRequest struct {
	IDs        []int64 `json:"ids"`
	CategoryID int64   `json:"categoryId"`
}

func (s *Server) handleBulkCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req bulkCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids must not be empty"})
		return
	}

	n, err := s.ledger.BulkUpdateCategory(r.Context(), userID, req.IDs, req.CategoryID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkCountResponse{Affected: n})
}

type detectTransfersRequest struct {
	AccountID int64   `json:"accountId"`
	IDs       []int64 `json:"ids"`
}

func (s *Server) handleDetectTransfers(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req detectTransfersRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	flagged, err := s.matcher.DetectTransfers(r.Context(), userID, req.AccountID, req.IDs)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"transfersFlagged": flagged})
}
