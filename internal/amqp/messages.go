package amqp

import (
	"encoding/json"
	"time"

	"hearth/internal/core"
)

// Event kinds carried by TransactionEvent. Consumers key on these to decide
// what to refresh.
const (
	EventTransactionCreated   = "transaction.created"
	EventTransactionUpdated   = "transaction.updated"
	EventTransactionDeleted   = "transaction.deleted"
	EventTransactionsImported = "transactions.imported"
)

// TransactionEvent is a lightweight notification that ledger rows changed.
// It carries ids only; consumers fetch current state from the database.
type TransactionEvent struct {
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transactionId,omitempty"`
	AccountID     int64     `json:"accountId"`
	Count         int       `json:"count"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind string, transactionID, accountID int64, count int) *TransactionEvent {
	return &TransactionEvent{
		Kind:          kind,
		TransactionID: transactionID,
		AccountID:     accountID,
		Count:         count,
		Timestamp:     time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// StatementRow is one line of a bank statement export, already normalized to
// cents by whoever produced the batch.
type StatementRow struct {
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amountCents"`
	Notes       string    `json:"notes,omitempty"`
}

// StatementBatchMessage asks the import worker to load a statement into one
// account on behalf of a user.
type StatementBatchMessage struct {
	AccountID int64          `json:"accountId"`
	UserID    string         `json:"userId"`
	Rows      []StatementRow `json:"rows"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewStatementBatchMessage(accountID int64, userID string, rows []StatementRow) *StatementBatchMessage {
	return &StatementBatchMessage{
		AccountID: accountID,
		UserID:    userID,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

func (m *StatementBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StatementBatchMessageFromJSON(data []byte) (*StatementBatchMessage, error) {
	var msg StatementBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
