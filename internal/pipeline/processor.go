// Package pipeline runs uploaded statements through parsing, sanitization and
// monthly aggregation, and keeps the document status record current.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/blob"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/sanitize"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Dependencies wires a Processor. Cleaner is optional.
type Dependencies struct {
	Documents DocumentRepository
	Summaries SummaryRepository
	Blobs     BlobStore
	Parser    StatementParser
	Cleaner   NameCleaner
	Limits    sanitize.Limits
	Now       func() time.Time
}

// Processor uploads, processes and deletes documents.
type Processor struct {
	docs    DocumentRepository
	blobs   BlobStore
	merger  *monthMerger
	now     func() time.Time
	process *Pipeline
}

// NewProcessor builds the processing pipeline from deps.
func NewProcessor(deps Dependencies) *Processor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	merger := &monthMerger{summaries: deps.Summaries, locks: newMonthLocks()}

	steps := []Step{
		&MarkProcessingStep{Docs: deps.Documents},
		&DownloadStep{Blobs: deps.Blobs},
		&ParseStep{Parser: deps.Parser},
	}
	if deps.Cleaner != nil {
		steps = append(steps, &CleanupStep{Cleaner: deps.Cleaner})
	}
	steps = append(steps,
		&SanitizeStep{Limits: deps.Limits},
		&GroupStep{},
		&MergeStep{Merger: merger},
		&MarkCompletedStep{Docs: deps.Documents, Now: now},
	)

	return &Processor{
		docs:    deps.Documents,
		blobs:   deps.Blobs,
		merger:  merger,
		now:     now,
		process: NewPipeline(steps...),
	}
}

// UploadResult is returned by Upload. Duplicate is set when the same bytes
// were already uploaded and the existing document is returned instead.
type UploadResult struct {
	Document  *domain.Document `json:"document"`
	Duplicate bool             `json:"duplicate"`
}

// Upload stores f and creates a pending document. Re-uploading identical
// bytes returns the earlier document unless its last run failed.
func (p *Processor) Upload(ctx context.Context, userID string, f statement.File) (*UploadResult, error) {
	format := statement.DetectFormat(f.Name, f.MimeType, f.Data)
	if format == statement.FormatUnknown {
		return nil, fmt.Errorf("Upload: %q: %w", f.Name, domain.ErrUnsupportedFormat)
	}

	checksum := blob.Checksum(f.Data)
	existing, err := p.docs.FindDocumentByChecksum(ctx, userID, checksum)
	if err != nil {
		return nil, fmt.Errorf("Upload: find by checksum: %w", err)
	}
	if existing != nil && existing.Status != domain.DocumentStatusFailed {
		log := logger.FromContext(ctx)
		log.Info().
			Str("document_id", existing.DocumentID).
			Str("checksum", checksum).
			Msg("duplicate upload")
		return &UploadResult{Document: existing, Duplicate: true}, nil
	}

	obj, err := p.blobs.Upload(ctx, f.Data, f.Name)
	if err != nil {
		return nil, fmt.Errorf("Upload: store file: %w", err)
	}

	mimeType := f.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = format.MimeType()
	}
	doc := &domain.Document{
		DocumentID:       obj.DocumentID,
		UserID:           userID,
		EncryptionKeyID:  obj.EncryptionKeyID,
		OriginalFilename: f.Name,
		FileMimeType:     mimeType,
		ChecksumSHA256:   checksum,
		Status:           domain.DocumentStatusPending,
		UploadedAt:       p.now().UTC(),
	}
	if err := p.docs.InsertDocument(ctx, doc); err != nil {
		if _, delErr := p.blobs.Delete(ctx, obj.DocumentID, obj.EncryptionKeyID); delErr != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(delErr).Str("document_id", obj.DocumentID).Msg("failed to remove orphaned blob")
		}
		return nil, fmt.Errorf("Upload: insert document: %w", err)
	}
	return &UploadResult{Document: doc}, nil
}

// Process runs the pipeline for one document. Any failure marks the document
// failed with the error message; summaries are only written by the merge step.
func (p *Processor) Process(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	ctx = logger.WithFields(ctx, map[string]string{"document_id": documentID, "user_id": userID})
	log := logger.FromContext(ctx)

	doc, err := p.docs.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	state := &State{Document: doc}
	start := p.now()
	if err := p.process.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("document processing failed")
		p.markFailed(ctx, doc, err)
		return doc, fmt.Errorf("Process: %w", err)
	}

	log.Info().
		Int("transactions", doc.TransactionCount).
		Int("months", len(doc.Months)).
		Str("source", string(state.Result.Source)).
		Dur("elapsed", p.now().Sub(start)).
		Msg("document processed")
	return doc, nil
}

// markFailed stores the failure on the document. It runs on a context that
// survives cancellation of the processing run.
func (p *Processor) markFailed(ctx context.Context, doc *domain.Document, cause error) {
	now := p.now().UTC()
	doc.Status = domain.DocumentStatusFailed
	doc.Error = truncate(cause.Error(), MaxErrorLength)
	doc.ProcessedAt = &now

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := p.docs.UpdateDocument(ctx, doc); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("failed to mark document failed")
	}
}

// DeleteResult reports what Delete removed.
type DeleteResult struct {
	DeletedAtSource bool         `json:"deleted_at_source"`
	MonthsUpdated   []civil.Date `json:"months_updated"`
}

// Delete removes a document's file, strips its transactions from every month
// that holds them and finally deletes the status record.
func (p *Processor) Delete(ctx context.Context, userID, documentID string) (*DeleteResult, error) {
	ctx = logger.WithFields(ctx, map[string]string{"document_id": documentID, "user_id": userID})

	doc, err := p.docs.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("Delete: %w", err)
	}

	res, err := p.blobs.Delete(ctx, doc.DocumentID, doc.EncryptionKeyID)
	if err != nil {
		return nil, fmt.Errorf("Delete: remove file: %w", err)
	}

	months, err := p.monthsHolding(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("Delete: %w", err)
	}
	for _, month := range months {
		if err := p.merger.apply(ctx, userID, month, documentID, nil); err != nil {
			return nil, fmt.Errorf("Delete: %w", err)
		}
	}

	if err := p.docs.DeleteDocument(ctx, userID, documentID); err != nil {
		return nil, fmt.Errorf("Delete: remove document: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Bool("deleted_at_source", res.DeletedAtSource).
		Int("months", len(months)).
		Msg("document deleted")
	return &DeleteResult{DeletedAtSource: res.DeletedAtSource, MonthsUpdated: months}, nil
}

// monthsHolding returns the recorded months of doc plus any persisted month
// still carrying its transactions, which covers runs that failed mid-merge.
func (p *Processor) monthsHolding(ctx context.Context, doc *domain.Document) ([]civil.Date, error) {
	summaries, err := p.merger.summaries.ListMonthlySummaries(ctx, doc.UserID, civil.Date{}, civil.Date{})
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	var found []civil.Date
	for _, s := range summaries {
		for _, tx := range s.AllTransactions {
			if tx.SourceDocumentID == doc.DocumentID {
				found = append(found, s.Month)
				break
			}
		}
	}
	return unionMonths(doc.Months, found), nil
}

// Documents lists a user's documents.
func (p *Processor) Documents(ctx context.Context, userID string) ([]*domain.Document, error) {
	return p.docs.ListDocuments(ctx, userID)
}

// Document loads one document.
func (p *Processor) Document(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	return p.docs.GetDocument(ctx, userID, documentID)
}

// Summaries lists a user's months within [from, to]; zero bounds are open.
func (p *Processor) Summaries(ctx context.Context, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error) {
	return p.merger.summaries.ListMonthlySummaries(ctx, userID, from, to)
}

// Summary loads one month. It fails with domain.ErrNotFound when the month has no data.
func (p *Processor) Summary(ctx context.Context, userID string, month civil.Date) (*domain.MonthlySummary, error) {
	s, err := p.merger.summaries.GetMonthlySummary(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("Summary: %s: %w", domain.MonthOf(month), domain.ErrNotFound)
	}
	return s, nil
}

// IsUserError reports whether err comes from the uploaded file rather than
// from infrastructure, so callers can skip retries.
func IsUserError(err error) bool {
	var csvErr *domain.CSVParseError
	return errors.Is(err, domain.ErrUnsupportedFormat) ||
		errors.Is(err, domain.ErrNoValidTransactions) ||
		errors.Is(err, domain.ErrNoReadableText) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.As(err, &csvErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Keep the cut on a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
