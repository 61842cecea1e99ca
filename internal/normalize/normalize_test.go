package normalize

import (
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"parenthesized with symbol", "($1,250.00)", "-1250"},
		{"credit marker", "500.00 CR", "500"},
		{"debit marker", "500.00 DR", "-500"},
		{"lowercase debit attached", "500.00dr", "-500"},
		{"credit wins over parentheses", "(75.10) CR", "75.1"},
		{"leading minus", "-54.32", "-54.32"},
		{"trailing minus", "54.32-", "-54.32"},
		{"plus sign", "+2000.00", "2000"},
		{"euro symbol and spaces", "€ 1 234.50", "1234.5"},
		{"currency code", "GBP 12.00", "12"},
		{"float cell", 42.5, "42.5"},
		{"int cell", 7, "7"},
		{"decimal passthrough", decimal.RequireFromString("-3.10"), "-3.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []any{"", "   ", "abc", "$", "()", "CR", nil, math.NaN(), math.Inf(1)} {
		_, err := ParseAmount(input)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "input %v", input)
	}
}

func TestLooksLikeAmount(t *testing.T) {
	assert.True(t, LooksLikeAmount("12.00"))
	assert.True(t, LooksLikeAmount(-3.5))
	assert.False(t, LooksLikeAmount("Grocery Store"))
	assert.False(t, LooksLikeAmount("0.00"))
	assert.False(t, LooksLikeAmount(""))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  civil.Date
	}{
		{"iso", "2024-01-05", civil.Date{Year: 2024, Month: time.January, Day: 5}},
		{"rfc3339", "2024-01-05T10:00:00Z", civil.Date{Year: 2024, Month: time.January, Day: 5}},
		{"us first when both valid", "03/04/2024", civil.Date{Year: 2024, Month: time.March, Day: 4}},
		{"international when month invalid", "13/04/2024", civil.Date{Year: 2024, Month: time.April, Day: 13}},
		{"dotted two digit year", "31.12.23", civil.Date{Year: 2023, Month: time.December, Day: 31}},
		{"dashed", "1-2-2024", civil.Date{Year: 2024, Month: time.January, Day: 2}},
		{"trailing time", "01/02/2024 10:31", civil.Date{Year: 2024, Month: time.January, Day: 2}},
		{"textual upper case", "05 JAN 2024", civil.Date{Year: 2024, Month: time.January, Day: 5}},
		{"textual us", "Jan 5, 2024", civil.Date{Year: 2024, Month: time.January, Day: 5}},
		{"textual dashed", "05-Jan-24", civil.Date{Year: 2024, Month: time.January, Day: 5}},
		{"time value", time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC), civil.Date{Year: 2024, Month: time.February, Day: 29}},
		{"civil value", civil.Date{Year: 2022, Month: time.June, Day: 1}, civil.Date{Year: 2022, Month: time.June, Day: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_ExcelSerial(t *testing.T) {
	got, err := NormalizeDate(45000.0)
	require.NoError(t, err)
	assert.Equal(t, 2023, got.Year)
	assert.Equal(t, civil.Date{Year: 1899, Month: time.December, Day: 30}.AddDays(45000), got)
	assert.Equal(t, "2023-03-15", got.String())

	got, err = NormalizeDate(45000)
	require.NoError(t, err)
	assert.Equal(t, "2023-03-15", got.String())

	got, err = NormalizeDate("45000.75")
	require.NoError(t, err)
	assert.Equal(t, "2023-03-15", got.String())
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, input := range []any{"", "not a date", "13/13/2024", "2024", 19999.0, 80000.0, nil, time.Time{}} {
		_, err := NormalizeDate(input)
		assert.ErrorIs(t, err, domain.ErrInvalidDate, "input %v", input)
	}
}
