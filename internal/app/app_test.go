package app

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/infra/memory"
	"github.com/dvloznov/statement-ledger/internal/statement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, nil
}

func TestNew_LocalFallback(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.GCPProject = "proj"
	cfg.GCSBucket = "bucket"

	a, err := New(ctx, cfg, Options{Local: true})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Repository{}, a.Repo)
	assert.Nil(t, a.Completer)

	up, err := a.Processor.Upload(ctx, "u1", statement.File{
		Name: "s.csv",
		Data: []byte("Date,Description,Amount\n2024-01-05,Payroll,100.00\n"),
	})
	require.NoError(t, err)
	doc, err := a.Processor.Process(ctx, "u1", up.Document.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.TransactionCount)
}

func TestNew_ModelCleanup(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.UseModelCleanup = true

	a, err := New(ctx, cfg, Options{Completer: stubCompleter{reply: `{"names": [{"original": "PAYROLL ACME 123", "clean": "Acme Corp"}]}`}})
	require.NoError(t, err)
	defer a.Close()

	up, err := a.Processor.Upload(ctx, "u1", statement.File{
		Name: "s.csv",
		Data: []byte("Date,Description,Amount\n2024-01-05,PAYROLL ACME 123,100.00\n"),
	})
	require.NoError(t, err)
	_, err = a.Processor.Process(ctx, "u1", up.Document.DocumentID)
	require.NoError(t, err)

	s, err := a.Processor.Summary(ctx, "u1", civil.Date{Year: 2024, Month: time.January, Day: 1})
	require.NoError(t, err)
	require.Len(t, s.AllTransactions, 1)
	assert.Equal(t, "Acme Corp", s.AllTransactions[0].Description)
	assert.NoError(t, a.Close())
}
