package memory

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertDocument(ctx, &domain.Document{DocumentID: "a", UserID: "u1", ChecksumSHA256: "x", UploadedAt: base}))
	require.NoError(t, repo.InsertDocument(ctx, &domain.Document{DocumentID: "b", UserID: "u1", ChecksumSHA256: "y", UploadedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.InsertDocument(ctx, &domain.Document{DocumentID: "c", UserID: "u2", ChecksumSHA256: "x", UploadedAt: base}))
	assert.Error(t, repo.InsertDocument(ctx, &domain.Document{DocumentID: "a", UserID: "u1"}))

	docs, err := repo.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].DocumentID)

	found, err := repo.FindDocumentByChecksum(ctx, "u1", "x")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a", found.DocumentID)

	missing, err := repo.FindDocumentByChecksum(ctx, "u1", "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.GetDocument(ctx, "u2", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, err := repo.GetDocument(ctx, "u1", "a")
	require.NoError(t, err)
	doc.Status = domain.DocumentStatusCompleted
	require.NoError(t, repo.UpdateDocument(ctx, doc))

	doc, err = repo.GetDocument(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusCompleted, doc.Status)

	require.NoError(t, repo.DeleteDocument(ctx, "u1", "a"))
	_, err = repo.GetDocument(ctx, "u1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateDocument(ctx, doc), domain.ErrNotFound)
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	jan := civil.Date{Year: 2024, Month: time.January, Day: 1}
	feb := civil.Date{Year: 2024, Month: time.February, Day: 1}

	got, err := repo.GetMonthlySummary(ctx, "u1", jan)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := &domain.MonthlySummary{UserID: "u1", Month: jan.AddDays(9), TotalExpenses: decimal.NewFromInt(5),
		ExpensesByCategory: map[string]decimal.Decimal{"dining": decimal.NewFromInt(5)}}
	require.NoError(t, repo.UpsertMonthlySummary(ctx, s))
	require.NoError(t, repo.UpsertMonthlySummary(ctx, &domain.MonthlySummary{UserID: "u1", Month: feb}))

	s.ExpensesByCategory["dining"] = decimal.NewFromInt(99)
	got, err = repo.GetMonthlySummary(ctx, "u1", jan)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, jan, got.Month)
	assert.Equal(t, "5", got.ExpensesByCategory["dining"].String())
	assert.False(t, got.UpdatedAt.IsZero())

	all, err := repo.ListMonthlySummaries(ctx, "u1", civil.Date{}, civil.Date{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, jan, all[0].Month)

	onlyFeb, err := repo.ListMonthlySummaries(ctx, "u1", feb.AddDays(3), civil.Date{})
	require.NoError(t, err)
	require.Len(t, onlyFeb, 1)
	assert.Equal(t, feb, onlyFeb[0].Month)

	require.NoError(t, repo.DeleteMonthlySummary(ctx, "u1", jan))
	got, err = repo.GetMonthlySummary(ctx, "u1", jan)
	require.NoError(t, err)
	assert.Nil(t, got)
}
