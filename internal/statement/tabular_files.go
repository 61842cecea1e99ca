package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/tabular"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseCSV(data []byte) ([]domain.Transaction, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &domain.CSVParseError{Line: pe.Line, Err: pe.Err}
		}
		return nil, &domain.CSVParseError{Err: err}
	}

	rows := make([]tabular.Row, len(records))
	for i, rec := range records {
		row := make(tabular.Row, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		rows[i] = row
	}
	return tabular.Extract(rows), nil
}

// sniffDelimiter picks between comma, semicolon and tab from the first line.
func sniffDelimiter(data []byte) rune {
	first, _, _ := strings.Cut(string(data), "\n")
	best, bestCount := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func parseXLSX(data []byte) ([]domain.Transaction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parseXLSX: open workbook: %w", err)
	}
	defer f.Close()

	var txs []domain.Transaction
	for _, sheet := range f.GetSheetList() {
		// Raw values keep dates as serial numbers instead of locale-formatted text.
		records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("parseXLSX: read sheet %q: %w", sheet, err)
		}
		rows := make([]tabular.Row, len(records))
		for i, rec := range records {
			row := make(tabular.Row, len(rec))
			for j, cell := range rec {
				row[j] = cell
			}
			rows[i] = row
		}
		txs = append(txs, tabular.Extract(rows)...)
	}
	return txs, nil
}

func parseXLS(data []byte) ([]domain.Transaction, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("parseXLS: open workbook: %w", err)
	}

	var txs []domain.Transaction
	for s := 0; s < wb.NumSheets(); s++ {
		sheet := wb.GetSheet(s)
		if sheet == nil {
			continue
		}
		var rows []tabular.Row
		for i := 0; i <= int(sheet.MaxRow); i++ {
			r := sheet.Row(i)
			if r == nil {
				continue
			}
			row := make(tabular.Row, r.LastCol())
			for c := range row {
				row[c] = r.Col(c)
			}
			rows = append(rows, row)
		}
		txs = append(txs, tabular.Extract(rows)...)
	}
	return txs, nil
}
