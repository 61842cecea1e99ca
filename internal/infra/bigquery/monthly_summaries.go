package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// MonthlySummaryRow mirrors a row of the monthly_summaries table. The map and
// list fields are JSON columns.
type MonthlySummaryRow struct {
	UserID string     `bigquery:"user_id"` // REQUIRED
	Month  civil.Date `bigquery:"month"`   // REQUIRED, first day of month

	TotalIncome   *big.Rat `bigquery:"total_income"`   // REQUIRED
	TotalExpenses *big.Rat `bigquery:"total_expenses"` // REQUIRED
	IncomeCount   int64    `bigquery:"income_count"`   // REQUIRED
	ExpenseCount  int64    `bigquery:"expense_count"`  // REQUIRED

	IncomeBySource     bigquery.NullJSON `bigquery:"income_by_source"`     // JSON
	ExpensesByCategory bigquery.NullJSON `bigquery:"expenses_by_category"` // JSON
	TopMerchants       bigquery.NullJSON `bigquery:"top_merchants"`        // JSON
	AllTransactions    bigquery.NullJSON `bigquery:"all_transactions"`     // JSON

	UpdatedAt time.Time `bigquery:"updated_at"` // REQUIRED
}

// NewMonthlySummaryRow converts a summary into its row form.
func NewMonthlySummaryRow(s *domain.MonthlySummary) (*MonthlySummaryRow, error) {
	row := &MonthlySummaryRow{
		UserID:        s.UserID,
		Month:         domain.MonthOf(s.Month),
		TotalIncome:   numeric(s.TotalIncome),
		TotalExpenses: numeric(s.TotalExpenses),
		IncomeCount:   int64(s.IncomeCount),
		ExpenseCount:  int64(s.ExpenseCount),
		UpdatedAt:     s.UpdatedAt,
	}

	var err error
	if row.IncomeBySource, err = jsonColumn(nonNilMap(s.IncomeBySource)); err != nil {
		return nil, fmt.Errorf("NewMonthlySummaryRow: income_by_source: %w", err)
	}
	if row.ExpensesByCategory, err = jsonColumn(nonNilMap(s.ExpensesByCategory)); err != nil {
		return nil, fmt.Errorf("NewMonthlySummaryRow: expenses_by_category: %w", err)
	}
	merchants := s.TopMerchants
	if merchants == nil {
		merchants = []domain.MerchantTotal{}
	}
	if row.TopMerchants, err = jsonColumn(merchants); err != nil {
		return nil, fmt.Errorf("NewMonthlySummaryRow: top_merchants: %w", err)
	}
	txs := s.AllTransactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	if row.AllTransactions, err = jsonColumn(txs); err != nil {
		return nil, fmt.Errorf("NewMonthlySummaryRow: all_transactions: %w", err)
	}
	return row, nil
}

// Summary converts the row back into the domain aggregate.
func (r *MonthlySummaryRow) Summary() (*domain.MonthlySummary, error) {
	income, err := fromNumeric(r.TotalIncome)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: total_income: %w", err)
	}
	expenses, err := fromNumeric(r.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: total_expenses: %w", err)
	}

	s := &domain.MonthlySummary{
		UserID:             r.UserID,
		Month:              r.Month,
		TotalIncome:        income,
		TotalExpenses:      expenses,
		IncomeCount:        int(r.IncomeCount),
		ExpenseCount:       int(r.ExpenseCount),
		IncomeBySource:     map[string]decimal.Decimal{},
		ExpensesByCategory: map[string]decimal.Decimal{},
		UpdatedAt:          r.UpdatedAt,
	}
	if err := fromJSONColumn(r.IncomeBySource, &s.IncomeBySource); err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: income_by_source: %w", err)
	}
	if err := fromJSONColumn(r.ExpensesByCategory, &s.ExpensesByCategory); err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: expenses_by_category: %w", err)
	}
	if err := fromJSONColumn(r.TopMerchants, &s.TopMerchants); err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: top_merchants: %w", err)
	}
	if err := fromJSONColumn(r.AllTransactions, &s.AllTransactions); err != nil {
		return nil, fmt.Errorf("MonthlySummaryRow.Summary: all_transactions: %w", err)
	}
	return s, nil
}

func jsonColumn(v any) (bigquery.NullJSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return bigquery.NullJSON{}, err
	}
	return bigquery.NullJSON{JSONVal: string(b), Valid: true}, nil
}

func fromJSONColumn(col bigquery.NullJSON, v any) error {
	if !col.Valid || col.JSONVal == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.JSONVal), v)
}

func nonNilMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
