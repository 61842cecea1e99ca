// Package statement is the single entry point that turns an uploaded
// statement file into a sorted, totalled ParseResult.
package statement

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/heuristic"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pdftext"
	"github.com/shopspring/decimal"
)

// File is an uploaded statement.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// ModelExtractor turns chunks of PDF text into candidate transactions.
// Implementations absorb per-chunk failures and return what succeeded.
type ModelExtractor interface {
	ExtractChunks(ctx context.Context, chunks []string) ([]domain.Transaction, error)
}

// Parser dispatches statement files to the tabular or PDF extractors.
type Parser struct {
	// Model is optional; when nil PDFs go straight to the heuristics.
	Model     ModelExtractor
	ChunkSize int
}

// NewParser returns a parser. Pass a nil model to disable model extraction.
func NewParser(model ModelExtractor) *Parser {
	return &Parser{Model: model, ChunkSize: pdftext.DefaultChunkSize}
}

// Parse extracts, sorts and totals the transactions in f.
func (p *Parser) Parse(ctx context.Context, f File) (*domain.ParseResult, error) {
	log := logger.FromContext(ctx)

	format := DetectFormat(f.Name, f.MimeType, f.Data)
	var (
		txs    []domain.Transaction
		chunks []string
		source = domain.SourceFallback
		err    error
	)
	switch format {
	case FormatCSV:
		txs, err = parseCSV(f.Data)
	case FormatXLSX:
		txs, err = parseXLSX(f.Data)
	case FormatXLS:
		txs, err = parseXLS(f.Data)
	case FormatPDF:
		txs, chunks, source, err = p.parsePDF(ctx, f.Data)
	default:
		return nil, fmt.Errorf("Parse: %q (%s): %w", f.Name, f.MimeType, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", f.Name).
		Str("format", string(format)).
		Str("source", string(source)).
		Int("transactions", len(txs)).
		Msg("statement parsed")

	result, err := Finalize(txs)
	if err != nil {
		return nil, err
	}
	result.SourceChunks = chunks
	result.Source = source
	return result, nil
}

func (p *Parser) parsePDF(ctx context.Context, data []byte) ([]domain.Transaction, []string, domain.Source, error) {
	text, err := pdftext.Extract(data)
	if err != nil {
		return nil, nil, "", err
	}
	return p.parseText(ctx, text)
}

// parseText runs model extraction over the chunked text and falls back to
// the heuristic strategies when the model is absent, fails or finds nothing.
func (p *Parser) parseText(ctx context.Context, text string) ([]domain.Transaction, []string, domain.Source, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(text) == "" {
		return nil, nil, "", domain.ErrNoReadableText
	}
	chunks := pdftext.Chunk(text, p.ChunkSize)

	if p.Model != nil {
		txs, err := p.Model.ExtractChunks(ctx, chunks)
		switch {
		case err != nil:
			log.Warn().Err(err).Int("chunks", len(chunks)).Msg("model extraction failed, using heuristics")
		case len(txs) == 0:
			log.Info().Int("chunks", len(chunks)).Msg("model extraction returned nothing, using heuristics")
		default:
			return txs, chunks, domain.SourceModel, nil
		}
	}

	r := heuristic.Extract(text)
	log.Debug().
		Int("table", len(r.Table)).
		Int("line", len(r.Line)).
		Int("block", len(r.Block)).
		Int("merged", len(r.Merged)).
		Msg("heuristic strategies")
	return r.Merged, chunks, domain.SourceFallback, nil
}

// Finalize sorts transactions by date and computes totals and the date
// range. It fails with domain.ErrNoValidTransactions on an empty list.
func Finalize(txs []domain.Transaction) (*domain.ParseResult, error) {
	if len(txs) == 0 {
		return nil, domain.ErrNoValidTransactions
	}
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range sorted {
		switch {
		case tx.IsIncome():
			income = income.Add(tx.Amount)
		case tx.IsExpense():
			expenses = expenses.Add(tx.Amount.Abs())
		}
	}

	return &domain.ParseResult{
		Transactions:  sorted,
		TotalIncome:   income.Round(2),
		TotalExpenses: expenses.Round(2),
		DateRange: domain.DateRange{
			Start: sorted[0].Date,
			End:   sorted[len(sorted)-1].Date,
		},
	}, nil
}
