// Package heuristic recovers transactions from PDF statement text with three
// independent layout strategies and a max-count merge across them.
package heuristic

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/tabular"
)

const (
	lineLookahead  = 2
	blockLookahead = 4
)

var columnSplit = regexp.MustCompile(`(?:[ \x{00a0}]{2,}|\t+)`)

// TableStrategy rebuilds columns by splitting every line on runs of two or
// more spaces or tabs and runs the tabular extractor over the grid.
func TableStrategy(text string) []domain.Transaction {
	var grid []tabular.Row
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := columnSplit.Split(line, -1)
		row := make(tabular.Row, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				row = append(row, p)
			}
		}
		grid = append(grid, row)
	}

	var txs []domain.Transaction
	for _, tx := range tabular.Extract(grid) {
		if acceptableDescription(tx.Description) {
			txs = append(txs, tx)
		}
	}
	return txs
}

// LineStrategy builds a transaction from each dated line on its own, and on
// failure retries with the next one or two lines when they carry no date.
func LineStrategy(lines []string) []domain.Transaction {
	var txs []domain.Transaction
	for i, line := range lines {
		if !hasDate(line) {
			continue
		}
		candidate := line
		tx, ok := BuildFromText(candidate)
		for k := 1; !ok && k <= lineLookahead && i+k < len(lines); k++ {
			if hasDate(lines[i+k]) {
				break
			}
			candidate += " " + lines[i+k]
			tx, ok = BuildFromText(candidate)
		}
		if ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

// BlockStrategy joins each dated line with up to four following undated
// lines and builds one transaction from the whole block.
func BlockStrategy(lines []string) []domain.Transaction {
	var txs []domain.Transaction
	for i, line := range lines {
		if !hasDate(line) {
			continue
		}
		end := i + 1
		for end < len(lines) && end <= i+blockLookahead && !hasDate(lines[end]) {
			end++
		}
		if tx, ok := BuildFromText(strings.Join(lines[i:end], " ")); ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

// Key identifies a transaction for cross-strategy deduplication.
func Key(tx domain.Transaction) string {
	return tx.Date.String() + "|" +
		strings.ToLower(tx.Description) + "|" +
		tx.Amount.StringFixed(2) + "|" +
		strings.ToLower(string(tx.Category))
}

// MergeStrategies combines candidate lists from several strategies. Each key
// appears as many times as the strategy that saw it most often, never the
// sum. The output is sorted by date then key, so argument order does not
// matter.
func MergeStrategies(lists ...[]domain.Transaction) []domain.Transaction {
	maxCount := make(map[string]int)
	repr := make(map[string]domain.Transaction)

	for _, list := range lists {
		counts := make(map[string]int)
		for _, tx := range list {
			k := Key(tx)
			counts[k]++
			if cur, ok := repr[k]; !ok || tx.Description < cur.Description {
				repr[k] = tx
			}
		}
		for k, c := range counts {
			if c > maxCount[k] {
				maxCount[k] = c
			}
		}
	}

	keys := make([]string, 0, len(maxCount))
	for k := range maxCount {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := repr[keys[i]].Date, repr[keys[j]].Date
		if a != b {
			return a.Before(b)
		}
		return keys[i] < keys[j]
	})

	var merged []domain.Transaction
	for _, k := range keys {
		for n := 0; n < maxCount[k]; n++ {
			merged = append(merged, repr[k])
		}
	}
	return merged
}

// Result holds every strategy's candidates and their merge.
type Result struct {
	Table  []domain.Transaction
	Line   []domain.Transaction
	Block  []domain.Transaction
	Merged []domain.Transaction
}

// Extract runs all three strategies over the full text and merges them.
func Extract(text string) Result {
	lines := NormalizeLines(text)
	r := Result{
		Table: TableStrategy(text),
		Line:  LineStrategy(lines),
		Block: BlockStrategy(lines),
	}
	r.Merged = MergeStrategies(r.Table, r.Line, r.Block)
	return r
}
