package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-ledger/internal/aggregate"
	"github.com/dvloznov/statement-ledger/internal/blob"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/sanitize"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// parseOutput is what `cli parse` prints.
type parseOutput struct {
	File    string                   `json:"file"`
	Format  statement.Format         `json:"format"`
	Result  *domain.ParseResult      `json:"result"`
	Dropped sanitize.Report          `json:"dropped"`
	Months  []*domain.MonthlySummary `json:"months"`
}

// readInput loads a local file or a gs:// object.
func readInput(ctx context.Context, input string) (statement.File, error) {
	if strings.HasPrefix(input, "gs://") {
		_, object, err := blob.ParseURI(input)
		if err != nil {
			return statement.File{}, err
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return statement.File{}, fmt.Errorf("readInput: create storage client: %w", err)
		}
		defer client.Close()

		data, err := blob.FetchURI(ctx, client, input)
		if err != nil {
			return statement.File{}, err
		}
		return statement.File{Name: filepath.Base(object), Data: data}, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return statement.File{}, fmt.Errorf("readInput: %w", err)
	}
	return statement.File{Name: filepath.Base(input), Data: data}, nil
}

// parseStatement runs the same parse, sanitize and grouping steps as the
// pipeline, without storage.
func parseStatement(ctx context.Context, parser pipeline.StatementParser, limits sanitize.Limits, f statement.File) (*parseOutput, error) {
	res, err := parser.Parse(ctx, f)
	if err != nil {
		return nil, err
	}
	txs, report, err := sanitize.Require(res.Transactions, limits)
	if err != nil {
		return nil, err
	}
	final, err := statement.Finalize(txs)
	if err != nil {
		return nil, err
	}
	final.Source = res.Source

	groups := aggregate.GroupByMonth(txs, aggregate.DisplayTopMerchants)
	out := &parseOutput{
		File:    f.Name,
		Format:  statement.DetectFormat(f.Name, f.MimeType, f.Data),
		Result:  final,
		Dropped: report,
	}
	for _, m := range aggregate.Months(groups) {
		out.Months = append(out.Months, groups[m])
	}
	return out, nil
}

// parseMonthFlag accepts YYYY-MM; empty means unbounded.
func parseMonthFlag(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s + "-01")
	if err != nil {
		return civil.Date{}, fmt.Errorf("month %q: expected YYYY-MM", s)
	}
	return d, nil
}
