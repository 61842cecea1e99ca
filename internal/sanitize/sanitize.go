// Package sanitize drops implausible transactions and clamps amounts to what
// the warehouse NUMERIC columns can hold.
package sanitize

import (
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// DefaultCeiling is the largest plausible magnitude of a single transaction.
	DefaultCeiling = decimal.NewFromInt(5_000_000)
	// StorageBound is the largest magnitude the persistence layer stores.
	StorageBound = decimal.RequireFromString("9999999999.99")

	minMagnitude = decimal.RequireFromString("0.01")
)

// Limits configures Sanitize.
type Limits struct {
	Ceiling decimal.Decimal
}

// DefaultLimits uses DefaultCeiling.
func DefaultLimits() Limits {
	return Limits{Ceiling: DefaultCeiling}
}

// Report counts the rows dropped for each reason.
type Report struct {
	Kept             int `json:"kept"`
	InvalidDate      int `json:"invalid_date"`
	EmptyDescription int `json:"empty_description"`
	TooSmall         int `json:"too_small"`
	TooLarge         int `json:"too_large"`
}

// Dropped is the total number of rejected rows.
func (r Report) Dropped() int {
	return r.InvalidDate + r.EmptyDescription + r.TooSmall + r.TooLarge
}

// Sanitize keeps transactions with a valid date, a non-empty description and
// 0.01 <= |amount| <= ceiling. Kept amounts are rounded to 2 places and
// clamped to StorageBound; descriptions are trimmed.
func Sanitize(txs []domain.Transaction, limits Limits) ([]domain.Transaction, Report) {
	ceiling := limits.Ceiling
	if ceiling.Sign() <= 0 {
		ceiling = DefaultCeiling
	}

	var report Report
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Date.IsValid() {
			report.InvalidDate++
			continue
		}
		desc := strings.TrimSpace(tx.Description)
		if desc == "" {
			report.EmptyDescription++
			continue
		}
		amount := tx.Amount.Round(2)
		abs := amount.Abs()
		if abs.LessThan(minMagnitude) {
			report.TooSmall++
			continue
		}
		if abs.GreaterThan(ceiling) {
			report.TooLarge++
			continue
		}
		if abs.GreaterThan(StorageBound) {
			amount = StorageBound.Mul(decimal.NewFromInt(int64(amount.Sign())))
		}
		tx.Category = domain.ParseCategory(string(tx.Category), amount.IsPositive())
		tx.Description = desc
		tx.Amount = amount
		out = append(out, tx)
	}
	report.Kept = len(out)
	return out, report
}

// Require is Sanitize that fails with domain.ErrNoValidTransactions when
// nothing survives.
func Require(txs []domain.Transaction, limits Limits) ([]domain.Transaction, Report, error) {
	out, report := Sanitize(txs, limits)
	if len(out) == 0 {
		return nil, report, domain.ErrNoValidTransactions
	}
	return out, report, nil
}
