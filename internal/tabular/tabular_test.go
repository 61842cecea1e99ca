package tabular

import (
	"testing"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Transaction Date": "transaction_date",
		"  Débit (EUR) ":   "debit_eur",
		"Paid-Out":         "paid_out",
		"Amount":           "amount",
		"---":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestFindHeaderRow(t *testing.T) {
	rows := []Row{
		{"Account Statement", "", ""},
		{"Account", "12345678", ""},
		{"", "", ""},
		{"Posted Date", "Details", "Amount (USD)"},
		{"2024-01-05", "Coffee", "-4.50"},
	}
	assert.Equal(t, 3, FindHeaderRow(rows))
}

func TestFindHeaderRow_TwoOfThreeIsEnough(t *testing.T) {
	rows := []Row{{"Date", "Paid In", "Other"}}
	assert.Equal(t, 0, FindHeaderRow(rows))
}

func TestFindHeaderRow_NotFound(t *testing.T) {
	rows := []Row{{"2024-01-05", "Coffee", "-4.50"}, {"foo", "bar"}}
	assert.Equal(t, -1, FindHeaderRow(rows))

	rows = make([]Row, 30)
	for i := range rows {
		rows[i] = Row{"x"}
	}
	rows[26] = Row{"Date", "Description", "Amount"}
	assert.Equal(t, -1, FindHeaderRow(rows), "header beyond scan window")
}

func TestPickField(t *testing.T) {
	header := NewHeader(Row{"Memo", "Description", "Amount"})
	row := Row{"fallback memo", "", "-3.00"}

	got, ok := PickField(header, row, descriptionKeys)
	require.True(t, ok)
	assert.Equal(t, "fallback memo", got, "empty description falls through to next alias")

	_, ok = PickField(header, Row{"", ""}, descriptionKeys)
	assert.False(t, ok)
}

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		name                  string
		amount, debit, credit any
		want                  string
		ok                    bool
	}{
		{"single column wins", "-12.00", "99", "1", "-12", true},
		{"debit only", nil, "45.10", "", "-45.1", true},
		{"credit only", nil, "", "1,000.00", "1000", true},
		{"both present", nil, "10.00", "25.00", "15", true},
		{"debit zero means credit", nil, "0.00", "25.00", "25", true},
		{"nothing", nil, "", "", "0", false},
		{"unparseable amount uses debit", "n/a", "5", nil, "-5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveAmount(tt.amount, tt.debit, tt.credit)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestExtract_HeaderPath(t *testing.T) {
	rows := []Row{
		{"Date", "Description", "Debit", "Credit"},
		{"01/15/2024", "ACME PAYROLL", "", "2,500.00"},
		{"01/16/2024", "Grocery Store", "82.15", ""},
		{"01/17/2024", "", "5.00", ""},
		{"not a date", "Something", "5.00", ""},
		{"01/18/2024", "No amount", "", ""},
	}

	txs := Extract(rows)
	require.Len(t, txs, 2)

	assert.Equal(t, "2024-01-15", txs[0].Date.String())
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, domain.CategoryIncomeSalary, txs[0].Category)

	assert.Equal(t, "Grocery Store", txs[1].Description)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-82.15")))
	assert.Equal(t, domain.CategoryGroceries, txs[1].Category)
}

func TestExtract_SpreadsheetCells(t *testing.T) {
	rows := []Row{
		{"Transaction Date", "Merchant", "Amount"},
		{45000.0, "UBER TRIP", -18.25},
	}
	txs := Extract(rows)
	require.Len(t, txs, 1)
	assert.Equal(t, "2023-03-15", txs[0].Date.String())
	assert.Equal(t, domain.CategoryTransportation, txs[0].Category)
}

func TestExtract_FallsBackToSimpleRows(t *testing.T) {
	rows := []Row{
		{"2024-02-01", "NETFLIX.COM", "monthly", "-15.99"},
		{"2024-02-02", "Refund", "20.00"},
		{"garbage"},
	}
	txs := Extract(rows)
	require.Len(t, txs, 2)
	assert.Equal(t, "NETFLIX.COM monthly", txs[0].Description)
	assert.Equal(t, domain.CategorySubscriptions, txs[0].Category)
	assert.Equal(t, domain.CategoryIncomeOther, txs[1].Category)
}

func TestParseSimpleRow(t *testing.T) {
	tx, ok := ParseSimpleRow(Row{"05 Jan 2024", "CVS", "PHARMACY", "", "(12.00)"})
	require.True(t, ok)
	assert.Equal(t, "CVS PHARMACY", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(-12)))

	_, ok = ParseSimpleRow(Row{"05 Jan 2024", "-12.00"})
	assert.False(t, ok, "needs a description between date and amount")

	_, ok = ParseSimpleRow(Row{"05 Jan 2024", "Only words", "here"})
	assert.False(t, ok)
}
