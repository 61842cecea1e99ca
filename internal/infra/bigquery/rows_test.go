package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetTable(t *testing.T) {
	ds := Dataset{ProjectID: "proj", DatasetID: "finance"}
	assert.Equal(t, "`proj.finance.documents`", ds.Table(documentsTable))
}

func TestDocumentRowConversion(t *testing.T) {
	start := civil.Date{Year: 2024, Month: time.January, Day: 5}
	end := civil.Date{Year: 2024, Month: time.February, Day: 2}
	processed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		DocumentID:       "doc-1",
		UserID:           "user-1",
		EncryptionKeyID:  "key",
		OriginalFilename: "jan.csv",
		FileMimeType:     "text/csv",
		ChecksumSHA256:   "abc",
		Status:           domain.DocumentStatusCompleted,
		TransactionCount: 3,
		DateRangeStart:   &start,
		DateRangeEnd:     &end,
		TotalIncome:      decimal.RequireFromString("2000.00"),
		TotalExpenses:    decimal.RequireFromString("54.325"),
		Months:           []civil.Date{domain.MonthOf(start), domain.MonthOf(end)},
		UploadedAt:       processed.Add(-time.Hour),
		ProcessedAt:      &processed,
	}

	row := NewDocumentRow(doc)
	assert.True(t, row.DateRangeStart.Valid)
	assert.False(t, row.ErrorMessage.Valid)
	assert.Equal(t, "5433/100", row.TotalExpenses.String())

	back, err := row.Document()
	require.NoError(t, err)
	assert.Equal(t, "54.33", back.TotalExpenses.StringFixed(2))
	assert.True(t, back.TotalIncome.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, start, *back.DateRangeStart)
	assert.Equal(t, processed, *back.ProcessedAt)
	assert.Equal(t, doc.Months, back.Months)
	assert.Empty(t, back.Error)
}

func TestDocumentRow_PendingHasNoRange(t *testing.T) {
	row := NewDocumentRow(&domain.Document{DocumentID: "d", Status: domain.DocumentStatusPending, Error: ""})
	assert.False(t, row.DateRangeStart.Valid)
	assert.False(t, row.ProcessedTS.Valid)
	assert.NotNil(t, row.Months)

	back, err := row.Document()
	require.NoError(t, err)
	assert.Nil(t, back.DateRangeStart)
	assert.Nil(t, back.ProcessedAt)
	assert.True(t, back.TotalIncome.IsZero())
}

func TestMonthlySummaryRowConversion(t *testing.T) {
	month := civil.Date{Year: 2024, Month: time.January, Day: 1}
	s := &domain.MonthlySummary{
		UserID:        "user-1",
		Month:         civil.Date{Year: 2024, Month: time.January, Day: 17},
		TotalIncome:   decimal.RequireFromString("2000"),
		TotalExpenses: decimal.RequireFromString("54.32"),
		IncomeCount:   1,
		ExpenseCount:  1,
		IncomeBySource: map[string]decimal.Decimal{
			"salary": decimal.RequireFromString("2000"),
		},
		TopMerchants: []domain.MerchantTotal{{Name: "Grocery Store", Amount: decimal.RequireFromString("54.32"), Count: 1}},
		AllTransactions: []domain.Transaction{
			{Date: civil.Date{Year: 2024, Month: time.January, Day: 5}, Description: "Payroll", Amount: decimal.RequireFromString("2000"), Category: domain.CategoryIncomeSalary, SourceDocumentID: "doc-1"},
		},
	}

	row, err := NewMonthlySummaryRow(s)
	require.NoError(t, err)
	assert.Equal(t, month, row.Month)
	assert.Equal(t, "{}", row.ExpensesByCategory.JSONVal)
	assert.Contains(t, row.AllTransactions.JSONVal, `"source_document_id":"doc-1"`)

	back, err := row.Summary()
	require.NoError(t, err)
	assert.Equal(t, month, back.Month)
	assert.Equal(t, "54.32", back.TotalExpenses.StringFixed(2))
	require.Len(t, back.AllTransactions, 1)
	assert.Equal(t, domain.CategoryIncomeSalary, back.AllTransactions[0].Category)
	assert.True(t, back.IncomeBySource["salary"].Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, "Grocery Store", back.TopMerchants[0].Name)
	assert.Empty(t, back.ExpensesByCategory)
}

func TestNullMonth(t *testing.T) {
	assert.False(t, nullMonth(civil.Date{}).Valid)
	m := nullMonth(civil.Date{Year: 2024, Month: time.May, Day: 20})
	assert.True(t, m.Valid)
	assert.Equal(t, 1, m.Date.Day)
}
