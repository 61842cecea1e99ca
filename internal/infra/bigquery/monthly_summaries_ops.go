package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"google.golang.org/api/iterator"
)

const summaryColumns = `
			user_id,
			month,
			total_income,
			total_expenses,
			income_count,
			expense_count,
			income_by_source,
			expenses_by_category,
			top_merchants,
			all_transactions,
			updated_at`

// UpsertMonthlySummaryWithClient writes a summary with a MERGE on (user_id, month)
// so there is exactly one row per user and month.
func UpsertMonthlySummaryWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, s *domain.MonthlySummary) error {
	row, err := NewMonthlySummaryRow(s)
	if err != nil {
		return fmt.Errorf("UpsertMonthlySummaryWithClient: %w", err)
	}

	// JSON values travel as STRING parameters and are parsed server-side.
	q := client.Query(fmt.Sprintf(`
		MERGE %s AS target
		USING (
			SELECT
				@user_id AS user_id,
				@month AS month,
				@total_income AS total_income,
				@total_expenses AS total_expenses,
				@income_count AS income_count,
				@expense_count AS expense_count,
				PARSE_JSON(@income_by_source) AS income_by_source,
				PARSE_JSON(@expenses_by_category) AS expenses_by_category,
				PARSE_JSON(@top_merchants) AS top_merchants,
				PARSE_JSON(@all_transactions) AS all_transactions,
				CURRENT_TIMESTAMP() AS updated_at
		) AS source
		ON target.user_id = source.user_id AND target.month = source.month
		WHEN MATCHED THEN UPDATE SET
			total_income = source.total_income,
			total_expenses = source.total_expenses,
			income_count = source.income_count,
			expense_count = source.expense_count,
			income_by_source = source.income_by_source,
			expenses_by_category = source.expenses_by_category,
			top_merchants = source.top_merchants,
			all_transactions = source.all_transactions,
			updated_at = source.updated_at
		WHEN NOT MATCHED THEN INSERT (%s
		)
		VALUES (
			source.user_id,
			source.month,
			source.total_income,
			source.total_expenses,
			source.income_count,
			source.expense_count,
			source.income_by_source,
			source.expenses_by_category,
			source.top_merchants,
			source.all_transactions,
			source.updated_at
		)
	`, ds.Table(monthlySummariesTable), summaryColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "month", Value: row.Month},
		{Name: "total_income", Value: row.TotalIncome},
		{Name: "total_expenses", Value: row.TotalExpenses},
		{Name: "income_count", Value: row.IncomeCount},
		{Name: "expense_count", Value: row.ExpenseCount},
		{Name: "income_by_source", Value: row.IncomeBySource.JSONVal},
		{Name: "expenses_by_category", Value: row.ExpensesByCategory.JSONVal},
		{Name: "top_merchants", Value: row.TopMerchants.JSONVal},
		{Name: "all_transactions", Value: row.AllTransactions.JSONVal},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertMonthlySummaryWithClient: %w", err)
	}
	return nil
}

// GetMonthlySummaryWithClient loads the summary for one month.
// Returns nil if the month has no row yet.
func GetMonthlySummaryWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, month civil.Date) (*domain.MonthlySummary, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id AND month = @month
		LIMIT 1
	`, summaryColumns, ds.Table(monthlySummariesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: domain.MonthOf(month)},
	}

	summaries, err := readSummaries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetMonthlySummaryWithClient: %w", err)
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return summaries[0], nil
}

// ListMonthlySummariesWithClient returns a user's months in ascending order.
// A zero from or to leaves that side of the range open.
func ListMonthlySummariesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
			AND (@from_month IS NULL OR month >= @from_month)
			AND (@to_month IS NULL OR month <= @to_month)
		ORDER BY month
	`, summaryColumns, ds.Table(monthlySummariesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "from_month", Value: nullMonth(from)},
		{Name: "to_month", Value: nullMonth(to)},
	}

	summaries, err := readSummaries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListMonthlySummariesWithClient: %w", err)
	}
	return summaries, nil
}

// DeleteMonthlySummaryWithClient removes a month that no longer has transactions.
func DeleteMonthlySummaryWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, month civil.Date) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND month = @month
	`, ds.Table(monthlySummariesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: domain.MonthOf(month)},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteMonthlySummaryWithClient: %w", err)
	}
	return nil
}

func nullMonth(d civil.Date) bigquery.NullDate {
	if d.IsZero() {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: domain.MonthOf(d), Valid: true}
}

func readSummaries(ctx context.Context, q *bigquery.Query) ([]*domain.MonthlySummary, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var summaries []*domain.MonthlySummary
	for {
		var row MonthlySummaryRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		s, err := row.Summary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
