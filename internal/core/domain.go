package core

import (
	"errors"
	"strings"
)

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
	AccountPersonal AccountType = "personal"
	AccountJoint    AccountType = "joint"
)

const (
	Monthly RepetitionType = "monthly"
	Yearly  RepetitionType = "yearly"
	Weekly  RepetitionType = "weekly"
	Daily   RepetitionType = "daily"
)

type (
	AccountType    string
	RepetitionType string

	// Account carries the cached balance alongside the anchor that defines
	// which transactions contribute to it. Exactly one of OwnerID and
	// HouseholdID is set.
	Account struct {
		ID                  int64
		Name                string
		Type                AccountType
		Balance             Money
		StartingBalance     Money
		StartingBalanceDate Date // empty means all transactions count
		OwnerID             string
		HouseholdID         int64
	}

	Transaction struct {
		ID                int64
		AccountID         int64
		CategoryID        int64 // 0 = uncategorized
		Date              Date
		Description       string
		Amount            Money // negative = expense, positive = income
		Notes             string
		IsRecurring       bool
		IsTransfer        bool
		IsSplit           bool
		SplitParticipants int   // >= 2 when IsSplit
		SplitParentID     int64 // 0 = not a reimbursement child
	}

	Category struct {
		ID       int64
		Name     string
		Icon     string
		Color    string
		IsCustom bool
		OwnerID  string // set only for custom categories
	}

	Household struct {
		ID   int64
		Name string
	}

	Budget struct {
		ID         int64
		OwnerID    string
		CategoryID int64
		Amount     Money // positive cents
	}

	RecurringRule struct {
		ID             int64
		AccountID      int64
		CategoryID     int64
		Description    string
		Amount         Money
		Every          RepetitionType
		StartDate      Date
		EndDate        Date // empty = no end
		LastPostedDate Date
	}
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")

	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyDescription      = errors.New("empty description")
	ErrEmptyName             = errors.New("empty name")
	ErrInvalidAccountType    = errors.New("invalid account type")
	ErrSplitAmount           = errors.New("split transaction amount must be negative")
	ErrSplitParticipants     = errors.New("split transaction needs at least 2 participants")
	ErrSplitTransfer         = errors.New("transaction cannot be both split and transfer")
	ErrNestedSplit           = errors.New("reimbursement cannot reference another reimbursement or be a split itself")
	ErrNotSplitParent        = errors.New("splitParentId must reference a split transaction")
	ErrReimbursementAmount   = errors.New("reimbursement amount must be positive")
	ErrOwnerConflict         = errors.New("account must have exactly one of owner and household")
	ErrAccountNotEmpty       = errors.New("account still has transactions")
	ErrCategoryNameTaken     = errors.New("category name already in use")
	ErrCategoryInUse         = errors.New("category is referenced by transactions")
	ErrDefaultCategory       = errors.New("default categories cannot be deleted")
	ErrInvalidRepetitionType = errors.New("invalid repetition type")
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountPersonal, AccountJoint:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if (a.OwnerID == "") == (a.HouseholdID == 0) {
		return ErrOwnerConflict
	}
	if a.StartingBalanceDate != "" {
		if err := a.StartingBalanceDate.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Anchored reports whether d contributes to the account's cached balance.
// An empty starting balance date means every transaction counts.
func (a Account) Anchored(d Date) bool {
	return a.StartingBalanceDate == "" || !d.Before(a.StartingBalanceDate)
}

func (tx Transaction) Validate() error {
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if tx.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if tx.IsSplit && tx.IsTransfer {
		return ErrSplitTransfer
	}
	if tx.IsSplit {
		if tx.Amount.Cents >= 0 {
			return ErrSplitAmount
		}
		if tx.SplitParticipants < 2 {
			return ErrSplitParticipants
		}
		if tx.SplitParentID != 0 {
			return ErrNestedSplit
		}
	}
	if tx.SplitParentID != 0 && tx.Amount.Cents <= 0 {
		return ErrReimbursementAmount
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if r.EndDate != "" {
		if err := r.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if r.EndDate.Before(r.StartDate) {
			return errors.New("end date must not precede start date")
		}
	}
	switch r.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidRepetitionType
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if r.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}
