package statement

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CSVEndToEnd(t *testing.T) {
	csv := "Date,Description,Amount\n" +
		"2024-01-05,Grocery Store,-54.32\n" +
		"2024-01-15,Employer Payroll,2000.00\n" +
		"2024-01-20,(120.50)\n"

	res, err := NewParser(nil).Parse(context.Background(), File{Name: "jan.csv", Data: []byte(csv)})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	assert.True(t, res.TotalIncome.Equal(decimal.RequireFromString("2000.00")))
	assert.True(t, res.TotalExpenses.Equal(decimal.RequireFromString("54.32")))
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, res.DateRange.Start)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 15}, res.DateRange.End)
	assert.Equal(t, domain.CategoryGroceries, res.Transactions[0].Category)
	assert.Equal(t, domain.CategoryIncomeSalary, res.Transactions[1].Category)
}

func TestParse_HeaderOnlyCSV(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), File{Name: "empty.csv", Data: []byte("Date,Description,Amount\n")})
	assert.ErrorIs(t, err, domain.ErrNoValidTransactions)
}

func TestParse_SemicolonCSVWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Datum;Omschrijving;Debit;Credit\n05.01.2024;Coffee Bar;3,50;\n")...)
	// Unknown headers fall back to simple rows; "3,50" reads as 350 without locale support.
	res, err := NewParser(nil).Parse(context.Background(), File{Name: "nl.csv", Data: data})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Coffee Bar", res.Transactions[0].Description)
}

func TestParse_CSVStructuralError(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), File{Name: "bad.csv", Data: []byte("Date,Description,Amount\n2024-01-05,\"unterminated,-1\n")})
	var csvErr *domain.CSVParseError
	require.ErrorAs(t, err, &csvErr)
	assert.Greater(t, csvErr.Line, 0)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), File{Name: "notes.docx", MimeType: "application/msword", Data: []byte("hello")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("a.CSV", "", nil))
	assert.Equal(t, FormatXLSX, DetectFormat("upload", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil))
	assert.Equal(t, FormatPDF, DetectFormat("upload", "application/octet-stream", []byte("%PDF-1.7")))
	assert.Equal(t, FormatCSV, DetectFormat("upload", "text/csv; charset=utf-8", nil))
	assert.Equal(t, FormatUnknown, DetectFormat("upload", "", []byte("hello")))
	assert.Equal(t, "application/pdf", FormatPDF.MimeType())
}

func TestFinalize(t *testing.T) {
	txs := []domain.Transaction{
		{Date: civil.Date{Year: 2024, Month: 3, Day: 2}, Description: "b", Amount: decimal.RequireFromString("-10.005")},
		{Date: civil.Date{Year: 2024, Month: 1, Day: 1}, Description: "a", Amount: decimal.RequireFromString("5")},
	}
	res, err := Finalize(txs)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Transactions[0].Description)
	assert.True(t, res.DateRange.Start.Before(res.DateRange.End))
	assert.Equal(t, "10.01", res.TotalExpenses.StringFixed(2))

	_, err = Finalize(nil)
	assert.ErrorIs(t, err, domain.ErrNoValidTransactions)
}

type fakeModel struct {
	txs []domain.Transaction
	err error
}

func (f fakeModel) ExtractChunks(context.Context, []string) ([]domain.Transaction, error) {
	return f.txs, f.err
}

func TestParsePDF_InvalidBytes(t *testing.T) {
	p := NewParser(fakeModel{err: errors.New("boom")})
	_, err := p.Parse(context.Background(), File{Name: "x.pdf", Data: []byte("%PDF-broken")})
	assert.Error(t, err)
}
