package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

// Repository stores documents and monthly summaries through one shared
// BigQuery client.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewRepository creates a repository with its own client.
func NewRepository(ctx context.Context, ds Dataset) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, ds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, ds), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, ds Dataset) *Repository {
	return &Repository{client: client, ds: ds}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) InsertDocument(ctx context.Context, doc *domain.Document) error {
	return InsertDocumentWithClient(ctx, r.client, r.ds, doc)
}

func (r *Repository) UpdateDocument(ctx context.Context, doc *domain.Document) error {
	return UpdateDocumentWithClient(ctx, r.client, r.ds, doc)
}

func (r *Repository) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	return GetDocumentWithClient(ctx, r.client, r.ds, userID, documentID)
}

func (r *Repository) ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error) {
	return ListDocumentsWithClient(ctx, r.client, r.ds, userID)
}

func (r *Repository) FindDocumentByChecksum(ctx context.Context, userID, checksum string) (*domain.Document, error) {
	return FindDocumentByChecksumWithClient(ctx, r.client, r.ds, userID, checksum)
}

func (r *Repository) DeleteDocument(ctx context.Context, userID, documentID string) error {
	return DeleteDocumentWithClient(ctx, r.client, r.ds, userID, documentID)
}

func (r *Repository) GetMonthlySummary(ctx context.Context, userID string, month civil.Date) (*domain.MonthlySummary, error) {
	return GetMonthlySummaryWithClient(ctx, r.client, r.ds, userID, month)
}

func (r *Repository) ListMonthlySummaries(ctx context.Context, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error) {
	return ListMonthlySummariesWithClient(ctx, r.client, r.ds, userID, from, to)
}

func (r *Repository) UpsertMonthlySummary(ctx context.Context, s *domain.MonthlySummary) error {
	return UpsertMonthlySummaryWithClient(ctx, r.client, r.ds, s)
}

func (r *Repository) DeleteMonthlySummary(ctx context.Context, userID string, month civil.Date) error {
	return DeleteMonthlySummaryWithClient(ctx, r.client, r.ds, userID, month)
}
