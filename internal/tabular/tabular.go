// Package tabular extracts transactions from row/column grids produced by
// CSV, spreadsheet and PDF table readers.
package tabular

import (
	"strings"

	"github.com/dvloznov/statement-ledger/internal/classify"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/normalize"
	"github.com/shopspring/decimal"
)

// Row is one grid row. Cells are strings, or float64 for numeric spreadsheet cells.
type Row []any

const (
	headerScanLimit = 25
	minHeaderScore  = 2
)

// FindHeaderRow returns the index of the first row among the first 25 that
// names at least two of date, description and amount (or debit/credit). It
// returns -1 when no such row exists.
func FindHeaderRow(rows []Row) int {
	money := moneyKeys()
	for i := 0; i < len(rows) && i < headerScanLimit; i++ {
		var hasDate, hasDescription, hasAmount bool
		for _, cell := range rows[i] {
			s, ok := cell.(string)
			if !ok {
				continue
			}
			slug := Slugify(s)
			if slug == "" {
				continue
			}
			hasDate = hasDate || matchesAny(slug, dateKeys)
			hasDescription = hasDescription || matchesAny(slug, descriptionKeys)
			hasAmount = hasAmount || matchesAny(slug, money)
		}
		score := 0
		for _, hit := range []bool{hasDate, hasDescription, hasAmount} {
			if hit {
				score++
			}
		}
		if score >= minHeaderScore {
			return i
		}
	}
	return -1
}

// Header is a slugified header row.
type Header []string

// NewHeader slugifies a header row.
func NewHeader(row Row) Header {
	h := make(Header, len(row))
	for i, cell := range row {
		h[i] = Slugify(CellString(cell))
	}
	return h
}

// PickField returns the first non-empty cell among the aliases, trying aliases
// in order and columns left to right for each alias.
func PickField(header Header, row Row, aliases []string) (any, bool) {
	for _, alias := range aliases {
		for col, slug := range header {
			if col >= len(row) || !matchesAlias(slug, alias) {
				continue
			}
			if !isBlank(row[col]) {
				return row[col], true
			}
		}
	}
	return nil, false
}

// ResolveAmount picks the signed amount for a row. A parseable single amount
// column wins. Otherwise credit minus debit when both are non-zero, else
// whichever is present with debit negative and credit positive.
func ResolveAmount(amount, debit, credit any) (decimal.Decimal, bool) {
	if amount != nil && !isBlank(amount) {
		if v, err := normalize.ParseAmount(amount); err == nil {
			return v, true
		}
	}

	d, dOK := absAmount(debit)
	c, cOK := absAmount(credit)
	switch {
	case dOK && cOK:
		return c.Sub(d), true
	case cOK:
		return c, true
	case dOK:
		return d.Neg(), true
	}
	return decimal.Zero, false
}

func absAmount(cell any) (decimal.Decimal, bool) {
	if cell == nil || isBlank(cell) {
		return decimal.Zero, false
	}
	v, err := normalize.ParseAmount(cell)
	if err != nil || v.IsZero() {
		return decimal.Zero, false
	}
	return v.Abs(), true
}

// Extract runs the header-based path and falls back to ParseSimpleRow on every
// row when the header path produced nothing.
func Extract(rows []Row) []domain.Transaction {
	var txs []domain.Transaction
	if h := FindHeaderRow(rows); h >= 0 {
		txs = ExtractWithHeader(NewHeader(rows[h]), rows[h+1:])
	}
	if len(txs) > 0 {
		return txs
	}
	for _, row := range rows {
		if tx, ok := ParseSimpleRow(row); ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

// ExtractWithHeader maps each row through the header and drops rows missing a
// date, description or non-zero amount.
func ExtractWithHeader(header Header, rows []Row) []domain.Transaction {
	var txs []domain.Transaction
	for _, row := range rows {
		dateCell, ok := PickField(header, row, dateKeys)
		if !ok {
			continue
		}
		date, err := normalize.NormalizeDate(dateCell)
		if err != nil {
			continue
		}
		descCell, ok := PickField(header, row, descriptionKeys)
		if !ok {
			continue
		}
		description := collapse(CellString(descCell))
		if description == "" {
			continue
		}

		amountCell, _ := PickField(header, row, amountKeys)
		debitCell, _ := PickField(header, row, debitKeys)
		creditCell, _ := PickField(header, row, creditKeys)
		amount, ok := ResolveAmount(amountCell, debitCell, creditCell)
		if !ok || amount.IsZero() {
			continue
		}

		txs = append(txs, domain.Transaction{
			Date:        date,
			Description: description,
			Amount:      amount,
			Category:    classify.Classify(description, amount),
		})
	}
	return txs
}

// ParseSimpleRow reads a headerless row: the first cell is the date, the
// right-most amount-looking cell is the amount and the cells in between form
// the description.
func ParseSimpleRow(row Row) (domain.Transaction, bool) {
	if len(row) < 3 {
		return domain.Transaction{}, false
	}
	date, err := normalize.NormalizeDate(row[0])
	if err != nil {
		return domain.Transaction{}, false
	}

	amountCol := -1
	for i := len(row) - 1; i >= 2; i-- {
		if normalize.LooksLikeAmount(row[i]) {
			amountCol = i
			break
		}
	}
	if amountCol < 0 {
		return domain.Transaction{}, false
	}
	amount, err := normalize.ParseAmount(row[amountCol])
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}

	parts := make([]string, 0, amountCol-1)
	for _, cell := range row[1:amountCol] {
		if s := CellString(cell); s != "" {
			parts = append(parts, s)
		}
	}
	description := collapse(strings.Join(parts, " "))
	if description == "" {
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    classify.Classify(description, amount),
	}, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
