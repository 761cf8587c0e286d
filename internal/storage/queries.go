package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hearth/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query set works
// inside and outside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const transactionColumns = `id, account_id, category_id, date, description, amount_cents,
	notes, is_recurring, is_transfer, is_split, split_participants, split_parent_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var tx core.Transaction
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.CategoryID, &tx.Date, &tx.Description,
		&tx.Amount.Cents, &tx.Notes, &tx.IsRecurring, &tx.IsTransfer,
		&tx.IsSplit, &tx.SplitParticipants, &tx.SplitParentID,
	)
	return tx, err
}

// --- accounts ---

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (name, type, balance_cents, starting_balance_cents,
			starting_balance_date, owner_id, household_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), a.Balance.Cents, a.StartingBalance.Cents,
		string(a.StartingBalanceDate), a.OwnerID, a.HouseholdID)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, type, balance_cents, starting_balance_cents,
			starting_balance_date, owner_id, household_id
		FROM accounts WHERE id = ?`, id).Scan(
		&a.ID, &a.Name, (*string)(&a.Type), &a.Balance.Cents,
		&a.StartingBalance.Cents, (*string)(&a.StartingBalanceDate),
		&a.OwnerID, &a.HouseholdID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAccountsForUser(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, type, balance_cents, starting_balance_cents,
			starting_balance_date, owner_id, household_id
		FROM accounts
		WHERE owner_id = ?
		   OR household_id IN (SELECT household_id FROM household_members WHERE user_id = ?)
		ORDER BY name, id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, (*string)(&a.Type), &a.Balance.Cents,
			&a.StartingBalance.Cents, (*string)(&a.StartingBalanceDate),
			&a.OwnerID, &a.HouseholdID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) AccessibleAccountIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id FROM accounts
		WHERE owner_id = ?
		   OR household_id IN (SELECT household_id FROM household_members WHERE user_id = ?)
		ORDER BY id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("accessible account ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddToBalance applies an incremental delta to the cached balance. The
// account must exist: a missing row is a reconciliation failure, not a
// silent no-op.
func (q *Queries) AddToBalance(ctx context.Context, id int64, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) SetBalance(ctx context.Context, id int64, cents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ? WHERE id = ?`, cents, id)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) SetAnchor(ctx context.Context, id int64, startingCents int64, anchor core.Date) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET starting_balance_cents = ?, starting_balance_date = ?
		WHERE id = ?`, startingCents, string(anchor), id)
	if err != nil {
		return fmt.Errorf("set anchor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set anchor: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (q *Queries) CountAccountTransactions(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}

// SumAnchoredAmounts is the authoritative ground truth for a balance:
// the sum of all amounts on the account dated at or after the anchor.
func (q *Queries) SumAnchoredAmounts(ctx context.Context, accountID int64, anchor core.Date) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE account_id = ? AND (? = '' OR date >= ?)`,
		accountID, string(anchor), string(anchor)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum anchored amounts: %w", err)
	}
	return sum, nil
}

// --- households ---

func (q *Queries) InsertHousehold(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert household: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) AddHouseholdMember(ctx context.Context, householdID int64, userID string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO household_members (household_id, user_id) VALUES (?, ?)`,
		householdID, userID)
	if err != nil {
		return fmt.Errorf("add household member: %w", err)
	}
	return nil
}

func (q *Queries) IsHouseholdMember(ctx context.Context, householdID int64, userID string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("household membership: %w", err)
	}
	return n > 0, nil
}

// --- transactions ---

func (q *Queries) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, date, description,
			amount_cents, notes, is_recurring, is_transfer, is_split,
			split_participants, split_parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.AccountID, tx.CategoryID, string(tx.Date), tx.Description,
		tx.Amount.Cents, tx.Notes, tx.IsRecurring, tx.IsTransfer, tx.IsSplit,
		tx.SplitParticipants, tx.SplitParentID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET account_id = ?, category_id = ?, date = ?,
			description = ?, amount_cents = ?, notes = ?, is_recurring = ?,
			is_transfer = ?, is_split = ?, split_participants = ?, split_parent_id = ?
		WHERE id = ?`,
		tx.AccountID, tx.CategoryID, string(tx.Date), tx.Description,
		tx.Amount.Cents, tx.Notes, tx.IsRecurring, tx.IsTransfer, tx.IsSplit,
		tx.SplitParticipants, tx.SplitParentID, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) UpdateTransactionCategory(ctx context.Context, id, categoryID int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// OrphanSplitChildren clears the back-reference on a deleted parent's
// reimbursements; the children revert to ordinary transactions.
func (q *Queries) OrphanSplitChildren(ctx context.Context, parentID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET split_parent_id = 0 WHERE split_parent_id = ?`, parentID)
	if err != nil {
		return fmt.Errorf("orphan split children: %w", err)
	}
	return nil
}

func (q *Queries) MarkTransfer(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `UPDATE transactions SET is_transfer = 1 WHERE id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `)`
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark transfer: %w", err)
	}
	return nil
}

// TransactionFilter narrows ListTransactions. A nil/zero field means "no
// constraint". Dates filter lexicographically, matching the anchor rule.
type TransactionFilter struct {
	AccountIDs       []int64
	ExcludeAccountID int64
	From             core.Date
	To               core.Date
	ExcludeTransfers bool
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var where []string
	var args []any

	if len(f.AccountIDs) > 0 {
		placeholders := `?` + strings.Repeat(", ?", len(f.AccountIDs)-1)
		where = append(where, `account_id IN (`+placeholders+`)`)
		for _, id := range f.AccountIDs {
			args = append(args, id)
		}
	}
	if f.ExcludeAccountID != 0 {
		where = append(where, `account_id <> ?`)
		args = append(args, f.ExcludeAccountID)
	}
	if f.From != "" {
		where = append(where, `date >= ?`)
		args = append(args, string(f.From))
	}
	if f.To != "" {
		where = append(where, `date <= ?`)
		args = append(args, string(f.To))
	}
	if f.ExcludeTransfers {
		where = append(where, `is_transfer = 0`)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListTransactionsByIDs returns the rows in ascending id order; missing ids
// are simply absent from the result.
func (q *Queries) ListTransactionsByIDs(ctx context.Context, ids []int64) ([]core.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `) ORDER BY id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions by ids: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q *Queries) CountTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions by category: %w", err)
	}
	return n, nil
}

// --- categories ---

func (q *Queries) InsertCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (name, icon, color, is_custom, owner_id)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Icon, c.Color, c.IsCustom, c.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, icon, color, is_custom, owner_id
		FROM categories WHERE id = ?`, id).Scan(
		&c.ID, &c.Name, &c.Icon, &c.Color, &c.IsCustom, &c.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// ListCategoriesForUser returns the shared defaults plus the user's custom
// categories.
func (q *Queries) ListCategoriesForUser(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, icon, color, is_custom, owner_id
		FROM categories
		WHERE is_custom = 0 OR owner_id = ?
		ORDER BY is_custom, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.IsCustom, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryNameTaken checks uniqueness across the defaults and the user's
// own custom categories.
func (q *Queries) CategoryNameTaken(ctx context.Context, name, userID string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE name = ? AND (is_custom = 0 OR owner_id = ?)`, name, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("category name taken: %w", err)
	}
	return n > 0, nil
}

// --- budgets ---

func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (owner_id, category_id, amount_cents)
		VALUES (?, ?, ?)
		ON CONFLICT (owner_id, category_id) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.OwnerID, b.CategoryID, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (q *Queries) ListBudgetsForUser(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, owner_id, category_id, amount_cents
		FROM budgets WHERE owner_id = ? ORDER BY category_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- recurring rules ---

func (q *Queries) InsertRecurringRule(ctx context.Context, r core.RecurringRule) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (account_id, category_id, description,
			amount_cents, frequency, start_date, end_date, last_posted_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AccountID, r.CategoryID, r.Description, r.Amount.Cents,
		string(r.Every), string(r.StartDate), string(r.EndDate), string(r.LastPostedDate))
	if err != nil {
		return 0, fmt.Errorf("insert recurring rule: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) ListRecurringRulesForUser(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.account_id, r.category_id, r.description, r.amount_cents,
			r.frequency, r.start_date, r.end_date, r.last_posted_date
		FROM recurring_rules r
		JOIN accounts a ON a.id = r.account_id
		WHERE a.owner_id = ?
		   OR a.household_id IN (SELECT household_id FROM household_members WHERE user_id = ?)
		ORDER BY r.id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListActiveRecurringRules returns rules whose window covers today.
func (q *Queries) ListActiveRecurringRules(ctx context.Context, today core.Date) ([]core.RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, category_id, description, amount_cents,
			frequency, start_date, end_date, last_posted_date
		FROM recurring_rules
		WHERE start_date <= ? AND (end_date = '' OR end_date >= ?)
		ORDER BY id`, string(today), string(today))
	if err != nil {
		return nil, fmt.Errorf("list active recurring rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows *sql.Rows) ([]core.RecurringRule, error) {
	var out []core.RecurringRule
	for rows.Next() {
		var r core.RecurringRule
		if err := rows.Scan(&r.ID, &r.AccountID, &r.CategoryID, &r.Description,
			&r.Amount.Cents, (*string)(&r.Every), (*string)(&r.StartDate),
			(*string)(&r.EndDate), (*string)(&r.LastPostedDate)); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) SetRuleLastPosted(ctx context.Context, id int64, date core.Date) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE recurring_rules SET last_posted_date = ? WHERE id = ?`, string(date), id)
	if err != nil {
		return fmt.Errorf("set rule last posted: %w", err)
	}
	return nil
}
