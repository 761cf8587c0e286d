package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hearth/internal/core"
	"hearth/internal/storage"
)

// RecurringProcessor posts transactions from due recurring rules. One rule
// failing is logged and skipped so the rest of the batch still posts.
type RecurringProcessor struct {
	storage *storage.SQLiteRepository
	ledger  *LedgerService
}

func NewRecurringProcessor(store *storage.SQLiteRepository, ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		storage: store,
		ledger:  ledger,
	}
}

// ProcessDue checks every active rule against now and posts the due ones.
// Returns the number of transactions posted.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	rules, err := p.storage.Queries().ListActiveRecurringRules(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list active recurring rules: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"total_active", len(rules),
		"processing_date", string(today))

	posted := 0
	for _, rule := range rules {
		checker, err := GetDuenessChecker(rule.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping rule with unknown frequency",
				"rule_id", rule.ID,
				"frequency", rule.Every)
			continue
		}

		var lastPosted time.Time
		if rule.LastPostedDate != "" {
			lastPosted = rule.LastPostedDate.Time()
		}
		if !checker.IsDue(lastPosted, now, rule.StartDate) {
			continue
		}

		id, err := p.ledger.PostRecurring(ctx, rule, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to post recurring transaction",
				"rule_id", rule.ID,
				"description", rule.Description,
				"error", err)
			continue
		}

		posted++
		slog.InfoContext(ctx, "Posted recurring transaction",
			"rule_id", rule.ID,
			"transaction_id", id,
			"description", rule.Description,
			"amount_cents", rule.Amount.Cents,
			"frequency", rule.Every)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"posted", posted,
		"total_checked", len(rules))

	return posted, nil
}
