package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/aggregate"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// monthMerger runs the locked load, merge, recompute and write cycle for one month.
type monthMerger struct {
	summaries SummaryRepository
	locks     *monthLocks
}

// apply replaces documentID's contribution to month with incoming. An empty
// incoming list removes the contribution; a month left with no transactions
// is deleted.
func (m *monthMerger) apply(ctx context.Context, userID string, month civil.Date, documentID string, incoming []domain.Transaction) error {
	unlock := m.locks.lock(userID, month)
	defer unlock()

	existing, err := m.summaries.GetMonthlySummary(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("merge %s: load summary: %w", month, err)
	}
	var current []domain.Transaction
	if existing != nil {
		current = existing.AllTransactions
	}

	merged := aggregate.MergeMonth(current, incoming, documentID)
	log := logger.FromContext(ctx).With().Str("month", month.String()).Logger()

	if len(merged) == 0 {
		if existing == nil {
			return nil
		}
		if err := m.summaries.DeleteMonthlySummary(ctx, userID, month); err != nil {
			return fmt.Errorf("merge %s: delete empty summary: %w", month, err)
		}
		log.Info().Msg("month emptied, summary deleted")
		return nil
	}

	summary := aggregate.Recompute(userID, month, merged)
	if err := m.summaries.UpsertMonthlySummary(ctx, summary); err != nil {
		return fmt.Errorf("merge %s: upsert summary: %w", month, err)
	}
	log.Debug().
		Int("incoming", len(incoming)).
		Int("total", len(merged)).
		Msg("month merged")
	return nil
}
