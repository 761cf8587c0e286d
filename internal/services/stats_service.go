package services

import (
	"context"
	"fmt"

	"hearth/internal/core"
	"hearth/internal/storage"
)

// StatsFilter scopes a summary request. A nil AccountID means every account
// the user can see; empty From/To leave that side of the range open.
type StatsFilter struct {
	AccountID *int64
	From      core.Date
	To        core.Date
}

// StatsService answers read-only reporting questions. It never touches
// cached balances.
type StatsService struct {
	storage *storage.SQLiteRepository
}

func NewStatsService(store *storage.SQLiteRepository) *StatsService {
	return &StatsService{storage: store}
}

// GetStats returns the income/expense rollup for the filtered window.
func (s *StatsService) GetStats(ctx context.Context, userID string, filter StatsFilter) (core.Summary, error) {
	txs, err := s.listConsidered(ctx, userID, filter)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs), nil
}

// GetBudgetProgress reports spending against each of the user's budgets
// within the window. Budgets without spending still appear, at zero.
func (s *StatsService) GetBudgetProgress(ctx context.Context, userID string, from, to core.Date) ([]core.BudgetProgress, error) {
	q := s.storage.Queries()

	budgets, err := q.ListBudgetsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetProgress{}, nil
	}

	categories, err := q.ListCategoriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	txs, err := s.listConsidered(ctx, userID, StatsFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	return core.BudgetReport(budgets, names, txs), nil
}

func (s *StatsService) listConsidered(ctx context.Context, userID string, filter StatsFilter) ([]core.Transaction, error) {
	q := s.storage.Queries()

	var accountIDs []int64
	if filter.AccountID != nil {
		account, err := q.GetAccount(ctx, *filter.AccountID)
		if err != nil {
			return nil, err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return nil, err
		}
		accountIDs = []int64{account.ID}
	} else {
		ids, err := q.AccessibleAccountIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve accessible accounts: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		accountIDs = ids
	}

	txs, err := q.ListTransactions(ctx, storage.TransactionFilter{
		AccountIDs: accountIDs,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
