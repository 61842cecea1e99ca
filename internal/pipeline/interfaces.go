package pipeline

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/blob"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/llm"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// DocumentRepository persists document status records.
// GetDocument and UpdateDocument fail with domain.ErrNotFound for unknown ids;
// FindDocumentByChecksum returns nil when nothing matches.
type DocumentRepository interface {
	InsertDocument(ctx context.Context, doc *domain.Document) error
	UpdateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]*domain.Document, error)
	FindDocumentByChecksum(ctx context.Context, userID, checksum string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

// SummaryRepository persists one MonthlySummary per (user, month).
// GetMonthlySummary returns nil for a month without a row.
type SummaryRepository interface {
	GetMonthlySummary(ctx context.Context, userID string, month civil.Date) (*domain.MonthlySummary, error)
	ListMonthlySummaries(ctx context.Context, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error)
	UpsertMonthlySummary(ctx context.Context, s *domain.MonthlySummary) error
	DeleteMonthlySummary(ctx context.Context, userID string, month civil.Date) error
}

// Repository is implemented by both the BigQuery and in-memory stores.
type Repository interface {
	DocumentRepository
	SummaryRepository
}

// StatementParser turns an uploaded file into candidate transactions.
type StatementParser interface {
	Parse(ctx context.Context, f statement.File) (*domain.ParseResult, error)
}

// NameCleaner rewrites raw descriptions into merchant names.
type NameCleaner interface {
	CleanNames(ctx context.Context, names []string) llm.CleanupResult
}

// BlobStore holds the uploaded source files.
type BlobStore = blob.Store
