// Package bigquery persists document status records and monthly summaries in
// BigQuery. Every write is a DML statement so rows stay mutable; streaming
// inserts would lock freshly written rows against UPDATE and MERGE.
package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

const (
	documentsTable        = "documents"
	monthlySummariesTable = "monthly_summaries"
)

// Dataset names the project and dataset holding the ledger tables.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the fully qualified, backquoted name of a table.
func (d Dataset) Table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, name)
}

// runDML runs a statement and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// numeric converts an amount into a NUMERIC query value.
func numeric(d decimal.Decimal) *big.Rat {
	return d.Round(2).Rat()
}

// fromNumeric converts a NUMERIC column back into a decimal; NULL reads as zero.
func fromNumeric(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(r.FloatString(2))
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric %s: %w", r.String(), err)
	}
	return d, nil
}
