package statement

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Date", "Description", "Amount"}))
	// Stored as a number so the reader sees the serial, not formatted text.
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 45296))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Grocery Store"))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", -54.32))

	_, err := f.NewSheet("February")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("February", "A1", &[]any{"Date", "Description", "Amount"}))
	require.NoError(t, f.SetSheetRow("February", "A2", &[]any{"2024-02-03", "Payroll", 2000}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX_AllSheetsAndSerialDates(t *testing.T) {
	txs, err := parseXLSX(buildWorkbook(t))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, txs[0].Date)
	assert.Equal(t, "Grocery Store", txs[0].Description)
	assert.Equal(t, "-54.32", txs[0].Amount.StringFixed(2))
	assert.Equal(t, domain.CategoryGroceries, txs[0].Category)

	assert.Equal(t, civil.Date{Year: 2024, Month: 2, Day: 3}, txs[1].Date)
	assert.Equal(t, "Payroll", txs[1].Description)
	assert.Equal(t, "2000.00", txs[1].Amount.StringFixed(2))
	assert.Equal(t, domain.CategoryIncomeSalary, txs[1].Category)
}

func TestParse_XLSXEndToEnd(t *testing.T) {
	res, err := NewParser(nil).Parse(context.Background(), File{Name: "statement.xlsx", Data: buildWorkbook(t)})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, domain.SourceFallback, res.Source)
	assert.Equal(t, "2000.00", res.TotalIncome.StringFixed(2))
	assert.Equal(t, "54.32", res.TotalExpenses.StringFixed(2))
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, res.DateRange.Start)
	assert.Equal(t, civil.Date{Year: 2024, Month: 2, Day: 3}, res.DateRange.End)
}

func TestParseXLSX_Corrupt(t *testing.T) {
	_, err := parseXLSX([]byte("PK\x03\x04 not really a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parseXLSX: open workbook")
}

func TestParse_XLSCorrupt(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), File{Name: "legacy.xls", Data: []byte("not a compound document")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parseXLS: open workbook")
}

const pdfStatementText = "Date   Description   Amount\n" +
	"01/05/2024   GROCERY STORE   -54.32\n" +
	"02/03/2024   ACME PAYROLL   2,000.00\n"

type mockExtractor struct {
	ExtractChunksFunc func(ctx context.Context, chunks []string) ([]domain.Transaction, error)
}

func (m *mockExtractor) ExtractChunks(ctx context.Context, chunks []string) ([]domain.Transaction, error) {
	return m.ExtractChunksFunc(ctx, chunks)
}

func TestParseText_ModelResult(t *testing.T) {
	var seen []string
	model := &mockExtractor{ExtractChunksFunc: func(_ context.Context, chunks []string) ([]domain.Transaction, error) {
		seen = chunks
		return []domain.Transaction{{Date: civil.Date{Year: 2024, Month: 1, Day: 5}, Description: "Grocery Store"}}, nil
	}}

	txs, chunks, source, err := NewParser(model).parseText(context.Background(), pdfStatementText)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceModel, source)
	require.Len(t, txs, 1)
	assert.Equal(t, "Grocery Store", txs[0].Description)
	assert.Equal(t, seen, chunks)
	assert.NotEmpty(t, chunks)
}

func TestParseText_FallsBackToHeuristics(t *testing.T) {
	cases := []struct {
		name  string
		model ModelExtractor
	}{
		{name: "no model"},
		{name: "model error", model: &mockExtractor{ExtractChunksFunc: func(context.Context, []string) ([]domain.Transaction, error) {
			return nil, errors.New("quota exceeded")
		}}},
		{name: "model empty", model: &mockExtractor{ExtractChunksFunc: func(context.Context, []string) ([]domain.Transaction, error) {
			return nil, nil
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txs, chunks, source, err := NewParser(tc.model).parseText(context.Background(), pdfStatementText)
			require.NoError(t, err)
			assert.Equal(t, domain.SourceFallback, source)
			assert.NotEmpty(t, chunks)
			require.Len(t, txs, 2)
			assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, txs[0].Date)
			assert.Equal(t, domain.CategoryIncomeSalary, txs[1].Category)
		})
	}
}

func TestParseText_Blank(t *testing.T) {
	called := false
	model := &mockExtractor{ExtractChunksFunc: func(context.Context, []string) ([]domain.Transaction, error) {
		called = true
		return nil, nil
	}}
	_, _, _, err := NewParser(model).parseText(context.Background(), " \n\t\n")
	assert.ErrorIs(t, err, domain.ErrNoReadableText)
	assert.False(t, called)
}
