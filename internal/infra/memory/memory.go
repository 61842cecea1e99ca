// Package memory is an in-process document and summary repository used by
// tests, the CLI and local API runs without cloud credentials.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type summaryKey struct {
	userID string
	month  civil.Date
}

// Repository keeps documents and summaries in maps guarded by one mutex.
// Values are copied on the way in and out.
type Repository struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	summaries map[summaryKey]domain.MonthlySummary
	now       func() time.Time
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		documents: make(map[string]domain.Document),
		summaries: make(map[summaryKey]domain.MonthlySummary),
		now:       time.Now,
	}
}

func (r *Repository) InsertDocument(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[doc.DocumentID]; ok {
		return fmt.Errorf("InsertDocument: document %s already exists", doc.DocumentID)
	}
	r.documents[doc.DocumentID] = copyDocument(doc)
	return nil
}

func (r *Repository) UpdateDocument(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.documents[doc.DocumentID]
	if !ok || existing.UserID != doc.UserID {
		return fmt.Errorf("UpdateDocument: document %s: %w", doc.DocumentID, domain.ErrNotFound)
	}
	r.documents[doc.DocumentID] = copyDocument(doc)
	return nil
}

func (r *Repository) GetDocument(_ context.Context, userID, documentID string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[documentID]
	if !ok || doc.UserID != userID {
		return nil, fmt.Errorf("GetDocument: document %s: %w", documentID, domain.ErrNotFound)
	}
	out := copyDocument(&doc)
	return &out, nil
}

func (r *Repository) ListDocuments(_ context.Context, userID string) ([]*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range r.documents {
		if doc.UserID != userID {
			continue
		}
		out := copyDocument(&doc)
		docs = append(docs, &out)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

func (r *Repository) FindDocumentByChecksum(_ context.Context, userID, checksum string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Document
	for _, doc := range r.documents {
		if doc.UserID != userID || doc.ChecksumSHA256 != checksum {
			continue
		}
		if found == nil || doc.UploadedAt.After(found.UploadedAt) {
			out := copyDocument(&doc)
			found = &out
		}
	}
	return found, nil
}

func (r *Repository) DeleteDocument(_ context.Context, userID, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.documents[documentID]; ok && doc.UserID == userID {
		delete(r.documents, documentID)
	}
	return nil
}

func (r *Repository) GetMonthlySummary(_ context.Context, userID string, month civil.Date) (*domain.MonthlySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summaries[summaryKey{userID, domain.MonthOf(month)}]
	if !ok {
		return nil, nil
	}
	out := copySummary(&s)
	return &out, nil
}

func (r *Repository) ListMonthlySummaries(_ context.Context, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.MonthlySummary
	for key, s := range r.summaries {
		if key.userID != userID {
			continue
		}
		if !from.IsZero() && key.month.Before(domain.MonthOf(from)) {
			continue
		}
		if !to.IsZero() && key.month.After(domain.MonthOf(to)) {
			continue
		}
		cp := copySummary(&s)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (r *Repository) UpsertMonthlySummary(_ context.Context, s *domain.MonthlySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := copySummary(s)
	cp.Month = domain.MonthOf(cp.Month)
	cp.UpdatedAt = r.now().UTC()
	r.summaries[summaryKey{cp.UserID, cp.Month}] = cp
	return nil
}

func (r *Repository) DeleteMonthlySummary(_ context.Context, userID string, month civil.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.summaries, summaryKey{userID, domain.MonthOf(month)})
	return nil
}

func copyDocument(doc *domain.Document) domain.Document {
	out := *doc
	if doc.Months != nil {
		out.Months = append([]civil.Date(nil), doc.Months...)
	}
	if doc.DateRangeStart != nil {
		d := *doc.DateRangeStart
		out.DateRangeStart = &d
	}
	if doc.DateRangeEnd != nil {
		d := *doc.DateRangeEnd
		out.DateRangeEnd = &d
	}
	if doc.ProcessedAt != nil {
		ts := *doc.ProcessedAt
		out.ProcessedAt = &ts
	}
	return out
}

func copySummary(s *domain.MonthlySummary) domain.MonthlySummary {
	out := *s
	out.AllTransactions = append([]domain.Transaction(nil), s.AllTransactions...)
	out.TopMerchants = append([]domain.MerchantTotal(nil), s.TopMerchants...)
	out.IncomeBySource = make(map[string]decimal.Decimal, len(s.IncomeBySource))
	for k, v := range s.IncomeBySource {
		out.IncomeBySource[k] = v
	}
	out.ExpensesByCategory = make(map[string]decimal.Decimal, len(s.ExpensesByCategory))
	for k, v := range s.ExpensesByCategory {
		out.ExpensesByCategory[k] = v
	}
	return out
}
