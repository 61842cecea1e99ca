package sanitize

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = civil.Date{Year: 2024, Month: 1, Day: 5}

func tx(desc, amount string) domain.Transaction {
	return domain.Transaction{Date: day, Description: desc, Amount: decimal.RequireFromString(amount), Category: domain.CategoryOther}
}

func TestSanitize(t *testing.T) {
	in := []domain.Transaction{
		tx("  Coffee  ", "-3.456"),
		tx("", "-1"),
		tx("Rounding dust", "0.004"),
		tx("Zero", "0"),
		tx("Lottery", "5000000.01"),
		{Date: civil.Date{Year: 2024, Month: 2, Day: 30}, Description: "Bad date", Amount: decimal.NewFromInt(1)},
		tx("Refund", "12"),
	}

	out, report := Sanitize(in, DefaultLimits())
	require.Len(t, out, 2)

	assert.Equal(t, "Coffee", out[0].Description)
	assert.Equal(t, "-3.46", out[0].Amount.StringFixed(2))
	assert.Equal(t, domain.CategoryIncomeOther, out[1].Category, "category sign follows amount")

	assert.Equal(t, Report{Kept: 2, InvalidDate: 1, EmptyDescription: 1, TooSmall: 2, TooLarge: 1}, report)
	assert.Equal(t, 5, report.Dropped())
}

func TestSanitize_ClampsToStorageBound(t *testing.T) {
	limits := Limits{Ceiling: decimal.RequireFromString("1e12")}
	out, _ := Sanitize([]domain.Transaction{tx("Wire", "-20000000000")}, limits)
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Equal(StorageBound.Neg()))
}

func TestSanitize_ZeroCeilingUsesDefault(t *testing.T) {
	out, report := Sanitize([]domain.Transaction{tx("House", "-6000000")}, Limits{})
	assert.Empty(t, out)
	assert.Equal(t, 1, report.TooLarge)
}

func TestRequire(t *testing.T) {
	_, _, err := Require([]domain.Transaction{tx("Zero", "0")}, DefaultLimits())
	assert.ErrorIs(t, err, domain.ErrNoValidTransactions)

	out, _, err := Require([]domain.Transaction{tx("Ok", "1")}, DefaultLimits())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
