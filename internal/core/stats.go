package core

import "sort"

type (
	// CategoryStat is the per-category rollup inside a Summary.
	CategoryStat struct {
		CategoryID int64
		Income     Money
		Expenses   Money // positive magnitude
		Net        Money
	}

	// Summary is the income/expense rollup over a considered transaction
	// set. Transfers and reimbursement children are excluded; split parents
	// contribute their net amount.
	Summary struct {
		Income           Money
		Expenses         Money // positive magnitude
		Net              Money
		TransactionCount int
		Categories       []CategoryStat
	}

	// BudgetProgress reports spending against one category budget.
	BudgetProgress struct {
		Budget       Budget
		CategoryName string
		Spent        Money // positive magnitude, raw expense sum
		Remaining    Money
		Percentage   float64
		IsOverBudget bool
	}
)

// ReimbursementsByParent indexes reimbursement children by their parent ID,
// considering only children present in txs.
func ReimbursementsByParent(txs []Transaction) map[int64][]Transaction {
	children := make(map[int64][]Transaction)
	for _, tx := range txs {
		if tx.SplitParentID != 0 {
			children[tx.SplitParentID] = append(children[tx.SplitParentID], tx)
		}
	}
	return children
}

// NetAmount resolves the economically accurate contribution of a
// transaction: a split parent's amount plus its reimbursements within the
// considered set, or the raw amount for everything else.
func NetAmount(tx Transaction, children map[int64][]Transaction) Money {
	if !tx.IsSplit {
		return tx.Amount
	}
	net := tx.Amount.Cents
	for _, child := range children[tx.ID] {
		net += child.Amount.Cents
	}
	return Money{Cents: net}
}

// Summarize computes income, expenses, net and per-category totals over a
// filtered transaction set. The caller is responsible for access filtering;
// Summarize handles transfer exclusion and split netting.
func Summarize(txs []Transaction) Summary {
	children := ReimbursementsByParent(txs)

	var s Summary
	byCategory := make(map[int64]*CategoryStat)

	for _, tx := range txs {
		if tx.IsTransfer {
			continue
		}
		if tx.SplitParentID != 0 {
			// Folded into the parent's net figure.
			continue
		}

		amount := NetAmount(tx, children)
		s.TransactionCount++
		if amount.Cents > 0 {
			s.Income.Cents += amount.Cents
		} else {
			s.Expenses.Cents += -amount.Cents
		}

		if tx.CategoryID == 0 {
			continue
		}
		stat, ok := byCategory[tx.CategoryID]
		if !ok {
			stat = &CategoryStat{CategoryID: tx.CategoryID}
			byCategory[tx.CategoryID] = stat
		}
		if amount.Cents > 0 {
			stat.Income.Cents += amount.Cents
		} else {
			stat.Expenses.Cents += -amount.Cents
		}
		stat.Net.Cents += amount.Cents
	}

	s.Net.Cents = s.Income.Cents - s.Expenses.Cents

	s.Categories = make([]CategoryStat, 0, len(byCategory))
	for _, stat := range byCategory {
		s.Categories = append(s.Categories, *stat)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		return s.Categories[i].CategoryID < s.Categories[j].CategoryID
	})

	return s
}

// SpentByCategory sums raw expense magnitudes per category for the budget
// view. Budgets are deliberately not net-aware: a split parent counts at
// full magnitude. Transfers and reimbursement children are excluded.
func SpentByCategory(txs []Transaction) map[int64]int64 {
	spent := make(map[int64]int64)
	for _, tx := range txs {
		if tx.IsTransfer || tx.SplitParentID != 0 {
			continue
		}
		if tx.CategoryID == 0 || tx.Amount.Cents >= 0 {
			continue
		}
		spent[tx.CategoryID] += -tx.Amount.Cents
	}
	return spent
}

// BudgetReport computes progress for each budget over the considered
// transaction set. categoryNames maps category IDs to display names.
func BudgetReport(budgets []Budget, categoryNames map[int64]string, txs []Transaction) []BudgetProgress {
	spent := SpentByCategory(txs)

	report := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p := BudgetProgress{
			Budget:       b,
			CategoryName: categoryNames[b.CategoryID],
			Spent:        Money{Cents: spent[b.CategoryID]},
		}
		remaining := b.Amount.Cents - p.Spent.Cents
		if remaining < 0 {
			remaining = 0
		}
		p.Remaining = Money{Cents: remaining}
		if b.Amount.Cents > 0 {
			pct := float64(p.Spent.Cents) / float64(b.Amount.Cents) * 100
			if pct > 100 {
				pct = 100
			}
			p.Percentage = pct
		}
		p.IsOverBudget = p.Spent.Cents > b.Amount.Cents
		report = append(report, p)
	}
	return report
}
