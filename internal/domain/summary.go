package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MerchantTotal is one bucket of the top merchants list.
type MerchantTotal struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// MonthlySummary is the aggregate for one user and one calendar month.
// Every field is derived from AllTransactions.
type MonthlySummary struct {
	UserID string     `json:"user_id"`
	Month  civil.Date `json:"month"`

	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	IncomeCount   int             `json:"income_count"`
	ExpenseCount  int             `json:"expense_count"`

	IncomeBySource     map[string]decimal.Decimal `json:"income_by_source"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	TopMerchants       []MerchantTotal            `json:"top_merchants"`

	AllTransactions []Transaction `json:"all_transactions"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NetFlow is income minus expenses.
func (s *MonthlySummary) NetFlow() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpenses)
}

// MonthOf returns the first day of d's month, the key used for summaries.
func MonthOf(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}
