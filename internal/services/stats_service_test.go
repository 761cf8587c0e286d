package services

import (
	"context"
	"errors"
	"testing"

	"hearth/internal/core"
)

func TestGetStats(t *testing.T) {
	ledger, store := newTestLedger(t)
	stats := NewStatsService(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	mustCreate(t, ledger, core.Transaction{
		AccountID: checking.ID, CategoryID: 9, Date: "2024-03-01", Description: "Salary", Amount: core.Money{Cents: 2_000_00},
	})
	mustCreate(t, ledger, core.Transaction{
		AccountID: checking.ID, CategoryID: 1, Date: "2024-03-05", Description: "Groceries", Amount: core.Money{Cents: -150_00},
	})
	mustCreate(t, ledger, core.Transaction{
		AccountID: savings.ID, CategoryID: 1, Date: "2024-03-20", Description: "More groceries", Amount: core.Money{Cents: -50_00},
	})
	// Outside the window.
	mustCreate(t, ledger, core.Transaction{
		AccountID: checking.ID, Date: "2024-04-01", Description: "April rent", Amount: core.Money{Cents: -900_00},
	})

	t.Run("all accounts in window", func(t *testing.T) {
		summary, err := stats.GetStats(ctx, testUser, StatsFilter{From: "2024-03-01", To: "2024-03-31"})
		if err != nil {
			t.Fatalf("GetStats() error = %v", err)
		}
		if summary.Income.Cents != 2_000_00 {
			t.Errorf("Income = %d, want %d", summary.Income.Cents, 2_000_00)
		}
		if summary.Expenses.Cents != 200_00 {
			t.Errorf("Expenses = %d, want %d", summary.Expenses.Cents, 200_00)
		}
		if summary.Net.Cents != 1_800_00 {
			t.Errorf("Net = %d, want %d", summary.Net.Cents, 1_800_00)
		}
		if summary.TransactionCount != 3 {
			t.Errorf("TransactionCount = %d, want 3", summary.TransactionCount)
		}

		if len(summary.Categories) != 2 {
			t.Fatalf("got %d category stats, want 2", len(summary.Categories))
		}
		if summary.Categories[0].CategoryID != 1 || summary.Categories[0].Expenses.Cents != 200_00 {
			t.Errorf("category 1 rollup = %+v", summary.Categories[0])
		}
		if summary.Categories[1].CategoryID != 9 || summary.Categories[1].Income.Cents != 2_000_00 {
			t.Errorf("category 9 rollup = %+v", summary.Categories[1])
		}
	})

	t.Run("single account filter", func(t *testing.T) {
		summary, err := stats.GetStats(ctx, testUser, StatsFilter{AccountID: &savings.ID})
		if err != nil {
			t.Fatalf("GetStats() error = %v", err)
		}
		if summary.TransactionCount != 1 {
			t.Errorf("TransactionCount = %d, want 1", summary.TransactionCount)
		}
		if summary.Expenses.Cents != 50_00 {
			t.Errorf("Expenses = %d, want %d", summary.Expenses.Cents, 50_00)
		}
	})

	t.Run("foreign account denied", func(t *testing.T) {
		if _, err := stats.GetStats(ctx, "intruder", StatsFilter{AccountID: &checking.ID}); !errors.Is(err, core.ErrAccessDenied) {
			t.Errorf("error = %v, want ErrAccessDenied", err)
		}
	})

	t.Run("user with no accounts gets empty summary", func(t *testing.T) {
		summary, err := stats.GetStats(ctx, "newcomer", StatsFilter{})
		if err != nil {
			t.Fatalf("GetStats() error = %v", err)
		}
		if summary.TransactionCount != 0 || summary.Net.Cents != 0 {
			t.Errorf("summary = %+v, want empty", summary)
		}
	})
}

func TestGetStats_SplitNetting(t *testing.T) {
	ledger, store := newTestLedger(t)
	stats := NewStatsService(store)
	ctx := context.Background()

	account := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	parentID := mustCreate(t, ledger, core.Transaction{
		AccountID:         account.ID,
		CategoryID:        4,
		Date:              "2024-03-01",
		Description:       "Group dinner",
		Amount:            core.Money{Cents: -120_00},
		IsSplit:           true,
		SplitParticipants: 3,
	})
	for i := 0; i < 2; i++ {
		mustCreate(t, ledger, core.Transaction{
			AccountID:     account.ID,
			Date:          "2024-03-03",
			Description:   "Dinner repayment",
			Amount:        core.Money{Cents: 40_00},
			SplitParentID: parentID,
		})
	}

	summary, err := stats.GetStats(ctx, testUser, StatsFilter{})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	// One considered row: the parent at its net share of the bill.
	if summary.TransactionCount != 1 {
		t.Errorf("TransactionCount = %d, want 1", summary.TransactionCount)
	}
	if summary.Expenses.Cents != 40_00 {
		t.Errorf("Expenses = %d, want %d", summary.Expenses.Cents, 40_00)
	}
	if summary.Net.Cents != -40_00 {
		t.Errorf("Net = %d, want %d", summary.Net.Cents, -40_00)
	}
}

func TestGetBudgetProgress(t *testing.T) {
	ledger, store := newTestLedger(t)
	stats := NewStatsService(store)
	ctx := context.Background()

	account := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})

	if err := ledger.SetBudget(ctx, testUser, 1, 300_00); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if err := ledger.SetBudget(ctx, testUser, 2, 0); err != nil {
		t.Fatalf("SetBudget() zero amount error = %v", err)
	}

	mustCreate(t, ledger, core.Transaction{
		AccountID: account.ID, CategoryID: 1, Date: "2024-03-05", Description: "Groceries", Amount: core.Money{Cents: -120_00},
	})
	mustCreate(t, ledger, core.Transaction{
		AccountID: account.ID, CategoryID: 1, Date: "2024-03-12", Description: "Groceries", Amount: core.Money{Cents: -240_00},
	})
	// Income in a budgeted category never counts as spending.
	mustCreate(t, ledger, core.Transaction{
		AccountID: account.ID, CategoryID: 1, Date: "2024-03-13", Description: "Grocery refund", Amount: core.Money{Cents: 30_00},
	})

	report, err := stats.GetBudgetProgress(ctx, testUser, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("GetBudgetProgress() error = %v", err)
	}
	if len(report) != 2 {
		t.Fatalf("got %d budget rows, want 2", len(report))
	}

	var groceries, second core.BudgetProgress
	for _, p := range report {
		switch p.Budget.CategoryID {
		case 1:
			groceries = p
		case 2:
			second = p
		}
	}

	if groceries.Spent.Cents != 360_00 {
		t.Errorf("Spent = %d, want %d", groceries.Spent.Cents, 360_00)
	}
	if groceries.Remaining.Cents != 0 {
		t.Errorf("Remaining = %d, want 0 when over budget", groceries.Remaining.Cents)
	}
	if groceries.Percentage != 100 {
		t.Errorf("Percentage = %v, want capped 100", groceries.Percentage)
	}
	if !groceries.IsOverBudget {
		t.Error("IsOverBudget = false, want true")
	}
	if groceries.CategoryName == "" {
		t.Error("CategoryName should be resolved from the seeded categories")
	}

	// Zero-amount budget must not divide by zero.
	if second.Percentage != 0 {
		t.Errorf("zero budget Percentage = %v, want 0", second.Percentage)
	}
	if second.IsOverBudget {
		t.Error("zero budget with no spending should not be over budget")
	}

	t.Run("no budgets", func(t *testing.T) {
		report, err := stats.GetBudgetProgress(ctx, "newcomer", "2024-03-01", "2024-03-31")
		if err != nil {
			t.Fatalf("GetBudgetProgress() error = %v", err)
		}
		if len(report) != 0 {
			t.Errorf("got %d rows, want 0", len(report))
		}
	})
}
