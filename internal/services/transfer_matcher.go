package services

import (
	"context"
	"log/slog"

	"hearth/internal/core"
	"hearth/internal/storage"
)

// transferWindowDays is the tolerance between the two legs of one real
// transfer: bank postings of the same movement rarely land on the same day.
const transferWindowDays = 2

// TransferMatcher pairs freshly imported transactions with their opposite
// leg in another account and flags both sides so reporting skips them.
//
// The matcher is greedy and order-dependent on purpose: the batch is walked
// in id order, each match consumes its candidate, and anything ambiguous is
// left alone rather than guessed at.
type TransferMatcher struct {
	storage *storage.SQLiteRepository
}

func NewTransferMatcher(store *storage.SQLiteRepository) *TransferMatcher {
	return &TransferMatcher{storage: store}
}

// DetectTransfers scans accounts visible to the user for the opposite legs
// of the given batch. Only a unique candidate is committed; zero or many
// candidates leave the transaction unflagged.
func (m *TransferMatcher) DetectTransfers(ctx context.Context, userID string, accountID int64, newIDs []int64) (int, error) {
	if len(newIDs) == 0 {
		return 0, nil
	}

	var flagged int
	err := m.storage.InTx(ctx, func(q *storage.Queries) error {
		batch, err := q.ListTransactionsByIDs(ctx, newIDs)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		// Every account touched by the batch must be visible to the caller
		// before anything is flagged.
		checked := make(map[int64]bool)
		for _, tx := range batch {
			if checked[tx.AccountID] {
				continue
			}
			account, err := q.GetAccount(ctx, tx.AccountID)
			if err != nil {
				return err
			}
			if err := accountAccessible(ctx, q, userID, account); err != nil {
				return err
			}
			checked[tx.AccountID] = true
		}

		// Candidate pool: the batch's date span widened by the tolerance,
		// restricted to other accounts the importer can see.
		minDate, maxDate := batch[0].Date, batch[0].Date
		for _, tx := range batch[1:] {
			if tx.Date.Before(minDate) {
				minDate = tx.Date
			}
			if maxDate.Before(tx.Date) {
				maxDate = tx.Date
			}
		}

		accessible, err := q.AccessibleAccountIDs(ctx, userID)
		if err != nil {
			return err
		}

		pool, err := q.ListTransactions(ctx, storage.TransactionFilter{
			AccountIDs:       accessible,
			ExcludeAccountID: accountID,
			From:             minDate.AddDays(-transferWindowDays),
			To:               maxDate.AddDays(transferWindowDays),
			ExcludeTransfers: true,
		})
		if err != nil {
			return err
		}

		for _, tx := range batch {
			if tx.IsTransfer || tx.IsSplit || tx.SplitParentID != 0 {
				continue
			}

			matchIdx := -1
			ambiguous := false
			for i, cand := range pool {
				// Split parents and children stay out of transfer pairing.
				if cand.IsSplit || cand.SplitParentID != 0 {
					continue
				}
				if cand.Amount.Cents != -tx.Amount.Cents {
					continue
				}
				days := core.DaysBetween(cand.Date, tx.Date)
				if days < -transferWindowDays || days > transferWindowDays {
					continue
				}
				if matchIdx >= 0 {
					ambiguous = true
					break
				}
				matchIdx = i
			}
			if ambiguous || matchIdx < 0 {
				continue
			}

			match := pool[matchIdx]
			if err := q.MarkTransfer(ctx, tx.ID, match.ID); err != nil {
				return err
			}
			// Consume the candidate so a later transaction in the batch
			// cannot claim the same leg twice.
			pool = append(pool[:matchIdx], pool[matchIdx+1:]...)
			flagged += 2

			slog.InfoContext(ctx, "Paired transfer legs",
				"transaction_id", tx.ID,
				"match_id", match.ID,
				"amount_cents", tx.Amount.Cents)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}
