package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one normalized ledger entry produced by parsing a statement.
// Amount is signed: positive for money in, negative for money out.
type Transaction struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`

	// SourceDocumentID is only set when the transaction is merged into a month.
	SourceDocumentID string `json:"source_document_id,omitempty"`
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Source records which extraction path produced a set of candidates.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// ParseResult is the outcome of parsing a single statement file.
type ParseResult struct {
	Transactions  []Transaction   `json:"transactions"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	DateRange     DateRange       `json:"date_range"`
	SourceChunks  []string        `json:"source_chunks,omitempty"`
	Source        Source          `json:"source"`
}
