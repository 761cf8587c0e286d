package services

import (
	"context"
	"fmt"
	"log/slog"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/storage"
)

// LedgerService owns every mutation of the transaction log and is the only
// writer of the cached account balance. Each operation runs in one storage
// transaction so the ledger row and the balance adjustment commit together.
type LedgerService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
}

func NewLedgerService(store *storage.SQLiteRepository, events *amqp.Client) *LedgerService {
	return &LedgerService{
		storage: store,
		events:  events,
	}
}

// TransactionPatch carries the mutable fields of an update; nil means
// "leave unchanged". Split flags are fixed at creation.
type TransactionPatch struct {
	AccountID   *int64
	CategoryID  *int64
	Date        *core.Date
	Description *string
	AmountCents *int64
	Notes       *string
	IsTransfer  *bool
}

// CreateTransaction validates, writes the row, and applies the incremental
// balance delta when the date qualifies under the account's anchor.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, tx.AccountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		if err := categoryUsable(ctx, q, userID, tx.CategoryID); err != nil {
			return err
		}
		if err := checkSplitParent(ctx, q, tx.SplitParentID); err != nil {
			return err
		}

		id, err = insertReconciled(ctx, q, tx, account)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.publishEvent(ctx, amqp.EventTransactionCreated, id, tx.AccountID, 1)
	return id, nil
}

// UpdateTransaction re-balances as delete-under-old-values followed by
// create-under-new-values. Same-account updates apply one combined delta so
// no adjustment is lost to a stale read.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID string, id int64, patch TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		oldAccount, err := q.GetAccount(ctx, old.AccountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, oldAccount); err != nil {
			return err
		}

		updated = old
		if patch.AccountID != nil {
			updated.AccountID = *patch.AccountID
		}
		if patch.CategoryID != nil {
			updated.CategoryID = *patch.CategoryID
		}
		if patch.Date != nil {
			updated.Date = *patch.Date
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		if patch.AmountCents != nil {
			updated.Amount = core.Money{Cents: *patch.AmountCents}
		}
		if patch.Notes != nil {
			updated.Notes = *patch.Notes
		}
		if patch.IsTransfer != nil {
			updated.IsTransfer = *patch.IsTransfer
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if patch.CategoryID != nil {
			if err := categoryUsable(ctx, q, userID, updated.CategoryID); err != nil {
				return err
			}
		}

		newAccount := oldAccount
		if updated.AccountID != old.AccountID {
			newAccount, err = q.GetAccount(ctx, updated.AccountID)
			if err != nil {
				return err
			}
			if err := accountAccessible(ctx, q, userID, newAccount); err != nil {
				return err
			}
		}

		if err := q.UpdateTransaction(ctx, updated); err != nil {
			return err
		}

		oldQualifies := oldAccount.Anchored(old.Date)
		newQualifies := newAccount.Anchored(updated.Date)

		if updated.AccountID == old.AccountID {
			var delta int64
			if oldQualifies {
				delta -= old.Amount.Cents
			}
			if newQualifies {
				delta += updated.Amount.Cents
			}
			if delta != 0 {
				return q.AddToBalance(ctx, old.AccountID, delta)
			}
			return nil
		}

		if oldQualifies {
			if err := q.AddToBalance(ctx, old.AccountID, -old.Amount.Cents); err != nil {
				return err
			}
		}
		if newQualifies {
			if err := q.AddToBalance(ctx, updated.AccountID, updated.Amount.Cents); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, amqp.EventTransactionUpdated, id, updated.AccountID, 1)
	return updated, nil
}

// DeleteTransaction removes the row and reverses its balance contribution.
// A split parent's reimbursement children are orphaned, not deleted.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	var accountID int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		account, err := q.GetAccount(ctx, tx.AccountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		accountID = tx.AccountID

		if err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if tx.IsSplit {
			if err := q.OrphanSplitChildren(ctx, id); err != nil {
				return err
			}
		}
		if account.Anchored(tx.Date) {
			return q.AddToBalance(ctx, tx.AccountID, -tx.Amount.Cents)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.EventTransactionDeleted, id, accountID, 1)
	return nil
}

// BulkCreateTransactions writes all rows and applies one aggregate balance
// delta, bounding write amplification during statement import. A failure
// partway rolls back everything: no rows, no delta.
func (s *LedgerService) BulkCreateTransactions(ctx context.Context, userID string, accountID int64, rows []core.Transaction) ([]int64, error) {
	ids := make([]int64, 0, len(rows))
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}

		var delta int64
		for i := range rows {
			row := rows[i]
			row.AccountID = accountID
			if err := row.Validate(); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := categoryUsable(ctx, q, userID, row.CategoryID); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if err := checkSplitParent(ctx, q, row.SplitParentID); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			id, err := q.InsertTransaction(ctx, row)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			if account.Anchored(row.Date) {
				delta += row.Amount.Cents
			}
		}
		if delta != 0 {
			return q.AddToBalance(ctx, accountID, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, amqp.EventTransactionsImported, 0, accountID, len(ids))
	return ids, nil
}

// BulkDeleteTransactions deletes the given rows, aggregating one balance
// delta per affected account. All rows must exist and be accessible.
func (s *LedgerService) BulkDeleteTransactions(ctx context.Context, userID string, ids []int64) (int, error) {
	var deleted int
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		rows, err := q.ListTransactionsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return fmt.Errorf("bulk delete: %w", core.ErrNotFound)
		}

		accounts := make(map[int64]core.Account)
		deltas := make(map[int64]int64)
		for _, tx := range rows {
			account, ok := accounts[tx.AccountID]
			if !ok {
				account, err = q.GetAccount(ctx, tx.AccountID)
				if err != nil {
					return err
				}
				if err := accountAccessible(ctx, q, userID, account); err != nil {
					return err
				}
				accounts[tx.AccountID] = account
			}

			if err := q.DeleteTransaction(ctx, tx.ID); err != nil {
				return err
			}
			if tx.IsSplit {
				if err := q.OrphanSplitChildren(ctx, tx.ID); err != nil {
					return err
				}
			}
			if account.Anchored(tx.Date) {
				deltas[tx.AccountID] -= tx.Amount.Cents
			}
			deleted++
		}

		for accountID, delta := range deltas {
			if delta == 0 {
				continue
			}
			if err := q.AddToBalance(ctx, accountID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// BulkUpdateCategory re-labels rows; no balance effect.
func (s *LedgerService) BulkUpdateCategory(ctx context.Context, userID string, ids []int64, categoryID int64) (int, error) {
	var updated int
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if err := categoryUsable(ctx, q, userID, categoryID); err != nil {
			return err
		}

		rows, err := q.ListTransactionsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return fmt.Errorf("bulk update category: %w", core.ErrNotFound)
		}

		checked := make(map[int64]bool)
		for _, tx := range rows {
			if !checked[tx.AccountID] {
				account, err := q.GetAccount(ctx, tx.AccountID)
				if err != nil {
					return err
				}
				if err := accountAccessible(ctx, q, userID, account); err != nil {
					return err
				}
				checked[tx.AccountID] = true
			}
			if err := q.UpdateTransactionCategory(ctx, tx.ID, categoryID); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// RecalculateBalance overwrites the cached balance with the anchored sum.
// Idempotent; the authoritative fix for any drift.
func (s *LedgerService) RecalculateBalance(ctx context.Context, userID string, accountID int64) (core.Money, error) {
	var balance core.Money
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		sum, err := q.SumAnchoredAmounts(ctx, accountID, account.StartingBalanceDate)
		if err != nil {
			return err
		}
		balance = core.Money{Cents: account.StartingBalance.Cents + sum}
		return q.SetBalance(ctx, accountID, balance.Cents)
	})
	if err != nil {
		return core.Money{}, err
	}
	return balance, nil
}

// UpdateAccountAnchor changes the starting balance and/or anchor date and
// recomputes the balance from scratch: the anchor decides which historical
// rows qualify, so incremental deltas cannot cover this.
func (s *LedgerService) UpdateAccountAnchor(ctx context.Context, userID string, accountID int64, startingCents int64, anchor core.Date) (core.Money, error) {
	if anchor != "" {
		if err := anchor.Validate(); err != nil {
			return core.Money{}, err
		}
	}

	var balance core.Money
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		if err := q.SetAnchor(ctx, accountID, startingCents, anchor); err != nil {
			return err
		}
		sum, err := q.SumAnchoredAmounts(ctx, accountID, anchor)
		if err != nil {
			return err
		}
		balance = core.Money{Cents: startingCents + sum}
		return q.SetBalance(ctx, accountID, balance.Cents)
	})
	if err != nil {
		return core.Money{}, err
	}
	return balance, nil
}

// CreateAccountInput describes a new account. A joint account creates a
// fresh household with the creating user as its first member.
type CreateAccountInput struct {
	Name                string
	Type                core.AccountType
	StartingBalance     int64
	StartingBalanceDate core.Date
	HouseholdName       string
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID string, input CreateAccountInput) (core.Account, error) {
	account := core.Account{
		Name:                input.Name,
		Type:                input.Type,
		Balance:             core.Money{Cents: input.StartingBalance},
		StartingBalance:     core.Money{Cents: input.StartingBalance},
		StartingBalanceDate: input.StartingBalanceDate,
	}

	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if input.Type == core.AccountJoint {
			name := input.HouseholdName
			if name == "" {
				name = input.Name
			}
			householdID, err := q.InsertHousehold(ctx, name)
			if err != nil {
				return err
			}
			if err := q.AddHouseholdMember(ctx, householdID, userID); err != nil {
				return err
			}
			account.HouseholdID = householdID
		} else {
			account.OwnerID = userID
		}

		if err := account.Validate(); err != nil {
			return err
		}
		id, err := q.InsertAccount(ctx, account)
		if err != nil {
			return err
		}
		account.ID = id
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// DeleteAccount refuses while any transaction still references the account.
func (s *LedgerService) DeleteAccount(ctx context.Context, userID string, accountID int64) error {
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		n, err := q.CountAccountTransactions(ctx, accountID)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrAccountNotEmpty
		}
		return q.DeleteAccount(ctx, accountID)
	})
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.storage.Queries().ListAccountsForUser(ctx, userID)
}

func (s *LedgerService) GetAccount(ctx context.Context, userID string, accountID int64) (core.Account, error) {
	q := s.storage.Queries()
	account, err := q.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if err := accountAccessible(ctx, q, userID, account); err != nil {
		return core.Account{}, err
	}
	return account, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID string, category core.Category) (core.Category, error) {
	category.IsCustom = true
	category.OwnerID = userID
	if err := category.Validate(); err != nil {
		return core.Category{}, err
	}

	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		taken, err := q.CategoryNameTaken(ctx, category.Name, userID)
		if err != nil {
			return err
		}
		if taken {
			return core.ErrCategoryNameTaken
		}
		id, err := q.InsertCategory(ctx, category)
		if err != nil {
			return err
		}
		category.ID = id
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return category, nil
}

// DeleteCategory only removes custom, unreferenced categories owned by the
// caller; the seeded defaults are permanent.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID string, categoryID int64) error {
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		category, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if !category.IsCustom {
			return core.ErrDefaultCategory
		}
		if category.OwnerID != userID {
			return core.ErrAccessDenied
		}
		n, err := q.CountTransactionsByCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if n > 0 {
			return core.ErrCategoryInUse
		}
		return q.DeleteCategory(ctx, categoryID)
	})
}

func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	return s.storage.Queries().ListCategoriesForUser(ctx, userID)
}

func (s *LedgerService) SetBudget(ctx context.Context, userID string, categoryID int64, amountCents int64) error {
	if amountCents < 0 {
		return core.ErrInvalidAmount
	}
	return s.storage.InTx(ctx, func(q *storage.Queries) error {
		if err := categoryUsable(ctx, q, userID, categoryID); err != nil {
			return err
		}
		return q.UpsertBudget(ctx, core.Budget{
			OwnerID:    userID,
			CategoryID: categoryID,
			Amount:     core.Money{Cents: amountCents},
		})
	})
}

func (s *LedgerService) CreateRecurringRule(ctx context.Context, userID string, rule core.RecurringRule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, rule.AccountID)
		if err != nil {
			return err
		}
		if err := accountAccessible(ctx, q, userID, account); err != nil {
			return err
		}
		if err := categoryUsable(ctx, q, userID, rule.CategoryID); err != nil {
			return err
		}
		id, err = q.InsertRecurringRule(ctx, rule)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *LedgerService) ListRecurringRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	return s.storage.Queries().ListRecurringRulesForUser(ctx, userID)
}

// PostRecurring writes one transaction from a due rule and advances the
// rule's last-posted marker in the same unit of work. System path: the rule
// was access-checked at creation time.
func (s *LedgerService) PostRecurring(ctx context.Context, rule core.RecurringRule, date core.Date) (int64, error) {
	tx := core.Transaction{
		AccountID:   rule.AccountID,
		CategoryID:  rule.CategoryID,
		Date:        date,
		Description: rule.Description,
		Amount:      rule.Amount,
		IsRecurring: true,
	}
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccount(ctx, rule.AccountID)
		if err != nil {
			return err
		}
		id, err = insertReconciled(ctx, q, tx, account)
		if err != nil {
			return err
		}
		return q.SetRuleLastPosted(ctx, rule.ID, date)
	})
	if err != nil {
		return 0, err
	}

	s.publishEvent(ctx, amqp.EventTransactionCreated, id, rule.AccountID, 1)
	return id, nil
}

func insertReconciled(ctx context.Context, q *storage.Queries, tx core.Transaction, account core.Account) (int64, error) {
	id, err := q.InsertTransaction(ctx, tx)
	if err != nil {
		return 0, err
	}
	if account.Anchored(tx.Date) {
		if err := q.AddToBalance(ctx, account.ID, tx.Amount.Cents); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func checkSplitParent(ctx context.Context, q *storage.Queries, parentID int64) error {
	if parentID == 0 {
		return nil
	}
	parent, err := q.GetTransaction(ctx, parentID)
	if err != nil {
		return err
	}
	if !parent.IsSplit || parent.SplitParentID != 0 {
		return core.ErrNotSplitParent
	}
	return nil
}

func accountAccessible(ctx context.Context, q *storage.Queries, userID string, account core.Account) error {
	if account.OwnerID != "" {
		if account.OwnerID == userID {
			return nil
		}
		return fmt.Errorf("account %d: %w", account.ID, core.ErrAccessDenied)
	}
	member, err := q.IsHouseholdMember(ctx, account.HouseholdID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("account %d: %w", account.ID, core.ErrAccessDenied)
	}
	return nil
}

func categoryUsable(ctx context.Context, q *storage.Queries, userID string, categoryID int64) error {
	if categoryID == 0 {
		return nil
	}
	category, err := q.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if category.IsCustom && category.OwnerID != userID {
		return fmt.Errorf("category %d: %w", categoryID, core.ErrAccessDenied)
	}
	return nil
}

func (s *LedgerService) publishEvent(ctx context.Context, kind string, txID, accountID int64, count int) {
	if s.events == nil {
		return
	}
	// Best effort: the mutation is already committed, a broker outage must
	// not fail the request.
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, txID, accountID, count)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "transaction_id", txID, "account_id", accountID, "error", err)
	}
}
