package core

import "testing"

func TestSummarizeBasic(t *testing.T) {
	txs := []Transaction{
		{ID: 1, CategoryID: 10, Amount: Money{Cents: 300000}}, // salary
		{ID: 2, CategoryID: 20, Amount: Money{Cents: -5000}},
		{ID: 3, CategoryID: 20, Amount: Money{Cents: -2500}},
	}
	s := Summarize(txs)
	if s.Income.Cents != 300000 {
		t.Fatalf("income = %d", s.Income.Cents)
	}
	if s.Expenses.Cents != 7500 {
		t.Fatalf("expenses = %d", s.Expenses.Cents)
	}
	if s.Net.Cents != 292500 {
		t.Fatalf("net = %d", s.Net.Cents)
	}
	if s.TransactionCount != 3 {
		t.Fatalf("count = %d", s.TransactionCount)
	}
	if len(s.Categories) != 2 {
		t.Fatalf("categories = %d", len(s.Categories))
	}
}

func TestSummarizeExcludesTransfers(t *testing.T) {
	txs := []Transaction{
		{ID: 1, Amount: Money{Cents: -5000}, IsTransfer: true},
		{ID: 2, Amount: Money{Cents: 5000}, IsTransfer: true},
		{ID: 3, Amount: Money{Cents: -1000}},
	}
	s := Summarize(txs)
	if s.Income.Cents != 0 || s.Expenses.Cents != 1000 {
		t.Fatalf("income=%d expenses=%d", s.Income.Cents, s.Expenses.Cents)
	}
	if s.TransactionCount != 1 {
		t.Fatalf("count = %d", s.TransactionCount)
	}
}

func TestSummarizeSplitNetting(t *testing.T) {
	// Parent -120, two reimbursements of +50 each: net -20.
	txs := []Transaction{
		{ID: 1, CategoryID: 20, Amount: Money{Cents: -12000}, IsSplit: true, SplitParticipants: 3},
		{ID: 2, Amount: Money{Cents: 5000}, SplitParentID: 1},
		{ID: 3, Amount: Money{Cents: 5000}, SplitParentID: 1},
	}
	s := Summarize(txs)
	if s.Expenses.Cents != 2000 {
		t.Fatalf("expenses = %d, want 2000", s.Expenses.Cents)
	}
	if s.Income.Cents != 0 {
		t.Fatalf("reimbursements must not count as income, got %d", s.Income.Cents)
	}
	if s.TransactionCount != 1 {
		t.Fatalf("children must not count, got %d", s.TransactionCount)
	}
	if len(s.Categories) != 1 || s.Categories[0].Expenses.Cents != 2000 {
		t.Fatalf("category totals = %+v", s.Categories)
	}
}

func TestSummarizeSplitNetPositive(t *testing.T) {
	// Over-reimbursed parent flips to income.
	txs := []Transaction{
		{ID: 1, Amount: Money{Cents: -4000}, IsSplit: true, SplitParticipants: 2},
		{ID: 2, Amount: Money{Cents: 5000}, SplitParentID: 1},
	}
	s := Summarize(txs)
	if s.Income.Cents != 1000 || s.Expenses.Cents != 0 {
		t.Fatalf("income=%d expenses=%d", s.Income.Cents, s.Expenses.Cents)
	}
}

func TestSummarizeOrphanedChild(t *testing.T) {
	// Parent deleted: SplitParentID cleared, child is an ordinary income row.
	txs := []Transaction{
		{ID: 2, CategoryID: 10, Amount: Money{Cents: 5000}},
	}
	s := Summarize(txs)
	if s.Income.Cents != 5000 || s.TransactionCount != 1 {
		t.Fatalf("income=%d count=%d", s.Income.Cents, s.TransactionCount)
	}
}

func TestSummarizeChildOutsideSet(t *testing.T) {
	// Reimbursement dated outside the considered range: parent counts raw.
	txs := []Transaction{
		{ID: 1, Amount: Money{Cents: -12000}, IsSplit: true, SplitParticipants: 2},
	}
	s := Summarize(txs)
	if s.Expenses.Cents != 12000 {
		t.Fatalf("expenses = %d, want 12000", s.Expenses.Cents)
	}
}

func TestBudgetReport(t *testing.T) {
	budgets := []Budget{
		{ID: 1, CategoryID: 20, Amount: Money{Cents: 10000}},
		{ID: 2, CategoryID: 30, Amount: Money{Cents: 5000}},
		{ID: 3, CategoryID: 40, Amount: Money{Cents: 0}},
	}
	names := map[int64]string{20: "Groceries", 30: "Dining Out", 40: "Travel"}
	txs := []Transaction{
		{ID: 1, CategoryID: 20, Amount: Money{Cents: -4000}},
		{ID: 2, CategoryID: 30, Amount: Money{Cents: -7500}},
		{ID: 3, CategoryID: 20, Amount: Money{Cents: 2000}},                  // income, ignored by spent
		{ID: 4, CategoryID: 30, Amount: Money{Cents: -1000}, IsTransfer: true}, // excluded
	}

	report := BudgetReport(budgets, names, txs)
	if len(report) != 3 {
		t.Fatalf("len = %d", len(report))
	}

	groceries := report[0]
	if groceries.Spent.Cents != 4000 || groceries.Remaining.Cents != 6000 {
		t.Fatalf("groceries: %+v", groceries)
	}
	if groceries.Percentage != 40 || groceries.IsOverBudget {
		t.Fatalf("groceries pct=%v over=%v", groceries.Percentage, groceries.IsOverBudget)
	}
	if groceries.CategoryName != "Groceries" {
		t.Fatalf("name = %s", groceries.CategoryName)
	}

	dining := report[1]
	if dining.Spent.Cents != 7500 || dining.Remaining.Cents != 0 {
		t.Fatalf("dining: %+v", dining)
	}
	if dining.Percentage != 100 || !dining.IsOverBudget {
		t.Fatalf("dining pct=%v over=%v", dining.Percentage, dining.IsOverBudget)
	}

	// Zero budget with zero spend: no divide-by-zero, percentage 0.
	travel := report[2]
	if travel.Spent.Cents != 0 || travel.Percentage != 0 || travel.IsOverBudget {
		t.Fatalf("travel: %+v", travel)
	}
}

func TestBudgetSpentNotNetAware(t *testing.T) {
	// Budget view counts the split parent at full magnitude.
	budgets := []Budget{{ID: 1, CategoryID: 20, Amount: Money{Cents: 10000}}}
	txs := []Transaction{
		{ID: 1, CategoryID: 20, Amount: Money{Cents: -12000}, IsSplit: true, SplitParticipants: 2},
		{ID: 2, CategoryID: 20, Amount: Money{Cents: 6000}, SplitParentID: 1},
	}
	report := BudgetReport(budgets, nil, txs)
	if report[0].Spent.Cents != 12000 {
		t.Fatalf("spent = %d, want 12000", report[0].Spent.Cents)
	}
	if !report[0].IsOverBudget {
		t.Fatalf("expected over budget")
	}
}
