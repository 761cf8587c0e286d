package services

import (
	"context"
	"errors"
	"testing"

	"hearth/internal/core"
)

func TestDetectTransfers_PairsUniqueMatch(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	stats := NewStatsService(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	outgoing := mustCreate(t, ledger, core.Transaction{
		AccountID:   checking.ID,
		Date:        "2024-03-01",
		Description: "To savings",
		Amount:      core.Money{Cents: -50_00},
	})

	// Opposite leg lands two days later, inside the window.
	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, savings.ID, []core.Transaction{
		{Date: "2024-03-03", Description: "From checking", Amount: core.Money{Cents: 50_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 2 {
		t.Fatalf("flagged %d transactions, want 2", flagged)
	}

	for _, id := range []int64{outgoing, incoming[0]} {
		tx, err := store.Queries().GetTransaction(ctx, id)
		if err != nil {
			t.Fatalf("GetTransaction(%d) error = %v", id, err)
		}
		if !tx.IsTransfer {
			t.Errorf("transaction %d not flagged as transfer", id)
		}
	}

	// Both legs disappear from totals.
	summary, err := stats.GetStats(ctx, testUser, StatsFilter{})
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if summary.TransactionCount != 0 {
		t.Errorf("TransactionCount = %d, want 0", summary.TransactionCount)
	}
	if summary.Income.Cents != 0 || summary.Expenses.Cents != 0 {
		t.Errorf("summary = +%d/-%d, want 0/0", summary.Income.Cents, summary.Expenses.Cents)
	}
}

func TestDetectTransfers_AmbiguityFlagsNothing(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	// Two equally plausible opposite legs.
	for _, d := range []core.Date{"2024-03-01", "2024-03-02"} {
		mustCreate(t, ledger, core.Transaction{
			AccountID:   checking.ID,
			Date:        d,
			Description: "Outgoing",
			Amount:      core.Money{Cents: -50_00},
		})
	}

	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, savings.ID, []core.Transaction{
		{Date: "2024-03-02", Description: "Incoming", Amount: core.Money{Cents: 50_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 0 {
		t.Errorf("flagged %d transactions, want 0 on ambiguity", flagged)
	}
}

func TestDetectTransfers_OutsideWindowIgnored(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	mustCreate(t, ledger, core.Transaction{
		AccountID:   checking.ID,
		Date:        "2024-03-01",
		Description: "Too early",
		Amount:      core.Money{Cents: -50_00},
	})

	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, savings.ID, []core.Transaction{
		{Date: "2024-03-04", Description: "Three days later", Amount: core.Money{Cents: 50_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 0 {
		t.Errorf("flagged %d transactions, want 0 outside the window", flagged)
	}
}

func TestDetectTransfers_PoolConsumption(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	mustCreate(t, ledger, core.Transaction{
		AccountID:   checking.ID,
		Date:        "2024-03-01",
		Description: "Single outgoing",
		Amount:      core.Money{Cents: -50_00},
	})

	// Two imported rows both match the lone candidate. The first claims it;
	// the second finds an empty pool and stays unflagged.
	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, savings.ID, []core.Transaction{
		{Date: "2024-03-01", Description: "First claim", Amount: core.Money{Cents: 50_00}},
		{Date: "2024-03-02", Description: "Second claim", Amount: core.Money{Cents: 50_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 2 {
		t.Fatalf("flagged %d transactions, want 2", flagged)
	}

	second, err := store.Queries().GetTransaction(ctx, incoming[1])
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if second.IsTransfer {
		t.Error("second import claimed an already consumed candidate")
	}
}

func TestDetectTransfers_SkipsSplitsAndExistingTransfers(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	mustCreate(t, ledger, core.Transaction{
		AccountID:   checking.ID,
		Date:        "2024-03-01",
		Description: "Candidate",
		Amount:      core.Money{Cents: 120_00},
	})

	splitID := mustCreate(t, ledger, core.Transaction{
		AccountID:         savings.ID,
		Date:              "2024-03-01",
		Description:       "Group dinner",
		Amount:            core.Money{Cents: -120_00},
		IsSplit:           true,
		SplitParticipants: 3,
	})

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, []int64{splitID})
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 0 {
		t.Errorf("flagged %d transactions, want 0 for split rows", flagged)
	}
}

func TestDetectTransfers_SplitParentNotClaimedAsCandidate(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	checking := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	savings := newTestAccount(t, ledger, CreateAccountInput{Name: "Savings", Type: core.AccountSavings})

	// A split parent in another account is amount-opposite to the import
	// but must never be paired as a transfer leg.
	parentID := mustCreate(t, ledger, core.Transaction{
		AccountID:         checking.ID,
		Date:              "2024-03-01",
		Description:       "Group dinner",
		Amount:            core.Money{Cents: -120_00},
		IsSplit:           true,
		SplitParticipants: 3,
	})

	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, savings.ID, []core.Transaction{
		{Date: "2024-03-01", Description: "Deposit", Amount: core.Money{Cents: 120_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, savings.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 0 {
		t.Fatalf("flagged %d transactions, want 0 when the only candidate is a split parent", flagged)
	}

	parent, err := store.Queries().GetTransaction(ctx, parentID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if parent.IsTransfer {
		t.Error("split parent was flagged as a transfer")
	}
	if !parent.IsSplit {
		t.Error("split parent lost its split flag")
	}
}

func TestDetectTransfers_ForeignBatchDenied(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	victimAccount, err := ledger.CreateAccount(ctx, "victim", CreateAccountInput{
		Name: "Victim checking",
		Type: core.AccountChecking,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	victimTx, err := ledger.CreateTransaction(ctx, "victim", core.Transaction{
		AccountID:   victimAccount.ID,
		Date:        "2024-03-01",
		Description: "Victim deposit",
		Amount:      core.Money{Cents: 50_00},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	// The caller owns an amount-opposite row that would pair if the check
	// were skipped.
	mine := newTestAccount(t, ledger, CreateAccountInput{Name: "Checking", Type: core.AccountChecking})
	mustCreate(t, ledger, core.Transaction{
		AccountID:   mine.ID,
		Date:        "2024-03-01",
		Description: "Outgoing",
		Amount:      core.Money{Cents: -50_00},
	})

	_, err = matcher.DetectTransfers(ctx, testUser, victimAccount.ID, []int64{victimTx})
	if !errors.Is(err, core.ErrAccessDenied) {
		t.Fatalf("error = %v, want ErrAccessDenied", err)
	}

	got, err := store.Queries().GetTransaction(ctx, victimTx)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.IsTransfer {
		t.Error("foreign transaction was flagged by a non-owner")
	}
}

func TestDetectTransfers_AmbiguityAcrossAccounts(t *testing.T) {
	ledger, store := newTestLedger(t)
	matcher := NewTransferMatcher(store)
	ctx := context.Background()

	// One opposite leg per account, all equally plausible.
	for _, name := range []string{"Checking", "Savings", "Cash"} {
		account := newTestAccount(t, ledger, CreateAccountInput{Name: name, Type: core.AccountChecking})
		mustCreate(t, ledger, core.Transaction{
			AccountID:   account.ID,
			Date:        "2024-03-01",
			Description: "Outgoing " + name,
			Amount:      core.Money{Cents: -50_00},
		})
	}

	target := newTestAccount(t, ledger, CreateAccountInput{Name: "Deposit", Type: core.AccountSavings})
	incoming, err := ledger.BulkCreateTransactions(ctx, testUser, target.ID, []core.Transaction{
		{Date: "2024-03-01", Description: "Incoming", Amount: core.Money{Cents: 50_00}},
	})
	if err != nil {
		t.Fatalf("BulkCreateTransactions() error = %v", err)
	}

	flagged, err := matcher.DetectTransfers(ctx, testUser, target.ID, incoming)
	if err != nil {
		t.Fatalf("DetectTransfers() error = %v", err)
	}
	if flagged != 0 {
		t.Fatalf("flagged %d transactions, want 0 with candidates in three accounts", flagged)
	}

	got, err := store.Queries().GetTransaction(ctx, incoming[0])
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.IsTransfer {
		t.Error("import was flagged despite multiple candidates")
	}
}
