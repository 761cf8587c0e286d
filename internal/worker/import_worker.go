package worker

import (
	"context"
	"fmt"
	"log/slog"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/services"
)

// ImportWorker loads statement batches into the ledger and runs transfer
// detection over each freshly imported batch.
type ImportWorker struct {
	ledger  *services.LedgerService
	matcher *services.TransferMatcher
}

func NewImportWorker(ledger *services.LedgerService, matcher *services.TransferMatcher) *ImportWorker {
	return &ImportWorker{
		ledger:  ledger,
		matcher: matcher,
	}
}

// HandleBatch processes one statement batch message. The whole batch commits
// or nothing does; transfer detection runs afterwards on the committed rows.
func (w *ImportWorker) HandleBatch(ctx context.Context, msg *amqp.StatementBatchMessage) error {
	slog.InfoContext(ctx, "Processing statement batch",
		"account_id", msg.AccountID,
		"user_id", msg.UserID,
		"rows", len(msg.Rows))

	if len(msg.Rows) == 0 {
		slog.WarnContext(ctx, "Empty statement batch, nothing to import",
			"account_id", msg.AccountID)
		return nil
	}

	rows := make([]core.Transaction, 0, len(msg.Rows))
	for _, row := range msg.Rows {
		rows = append(rows, core.Transaction{
			Date:        row.Date,
			Description: row.Description,
			Amount:      core.Money{Cents: row.AmountCents},
			Notes:       row.Notes,
		})
	}

	ids, err := w.ledger.BulkCreateTransactions(ctx, msg.UserID, msg.AccountID, rows)
	if err != nil {
		return fmt.Errorf("import batch into account %d: %w", msg.AccountID, err)
	}

	flagged, err := w.matcher.DetectTransfers(ctx, msg.UserID, msg.AccountID, ids)
	if err != nil {
		// The rows are committed; a detection failure should not requeue
		// the batch and import everything twice.
		slog.ErrorContext(ctx, "Transfer detection failed after import",
			"account_id", msg.AccountID,
			"imported", len(ids),
			"error", err)
		return nil
	}

	slog.InfoContext(ctx, "Statement batch imported",
		"account_id", msg.AccountID,
		"imported", len(ids),
		"transfers_flagged", flagged)
	return nil
}
