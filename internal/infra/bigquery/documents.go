package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

// DocumentRow mirrors a row of the documents table.
type DocumentRow struct {
	DocumentID      string `bigquery:"document_id"`       // REQUIRED
	UserID          string `bigquery:"user_id"`           // REQUIRED
	EncryptionKeyID string `bigquery:"encryption_key_id"` // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // REQUIRED
	FileMimeType     string `bigquery:"file_mime_type"`    // REQUIRED
	ChecksumSHA256   string `bigquery:"checksum_sha256"`   // REQUIRED

	Status           string            `bigquery:"status"`            // REQUIRED
	TransactionCount int64             `bigquery:"transaction_count"` // REQUIRED
	DateRangeStart   bigquery.NullDate `bigquery:"date_range_start"`  // NULLABLE
	DateRangeEnd     bigquery.NullDate `bigquery:"date_range_end"`    // NULLABLE
	TotalIncome      *big.Rat          `bigquery:"total_income"`      // REQUIRED
	TotalExpenses    *big.Rat          `bigquery:"total_expenses"`    // REQUIRED

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
	Months       []civil.Date        `bigquery:"months"`        // REPEATED

	UploadTS    time.Time              `bigquery:"upload_ts"`    // REQUIRED
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"` // NULLABLE
}

// NewDocumentRow converts a domain document into its row form.
func NewDocumentRow(doc *domain.Document) *DocumentRow {
	row := &DocumentRow{
		DocumentID:       doc.DocumentID,
		UserID:           doc.UserID,
		EncryptionKeyID:  doc.EncryptionKeyID,
		OriginalFilename: doc.OriginalFilename,
		FileMimeType:     doc.FileMimeType,
		ChecksumSHA256:   doc.ChecksumSHA256,
		Status:           string(doc.Status),
		TransactionCount: int64(doc.TransactionCount),
		TotalIncome:      numeric(doc.TotalIncome),
		TotalExpenses:    numeric(doc.TotalExpenses),
		ErrorMessage:     bigquery.NullString{StringVal: doc.Error, Valid: doc.Error != ""},
		Months:           doc.Months,
		UploadTS:         doc.UploadedAt,
	}
	if row.Months == nil {
		row.Months = []civil.Date{}
	}
	if doc.DateRangeStart != nil {
		row.DateRangeStart = bigquery.NullDate{Date: *doc.DateRangeStart, Valid: true}
	}
	if doc.DateRangeEnd != nil {
		row.DateRangeEnd = bigquery.NullDate{Date: *doc.DateRangeEnd, Valid: true}
	}
	if doc.ProcessedAt != nil {
		row.ProcessedTS = bigquery.NullTimestamp{Timestamp: *doc.ProcessedAt, Valid: true}
	}
	return row
}

// Document converts the row back into the domain record.
func (r *DocumentRow) Document() (*domain.Document, error) {
	income, err := fromNumeric(r.TotalIncome)
	if err != nil {
		return nil, fmt.Errorf("DocumentRow.Document: total_income: %w", err)
	}
	expenses, err := fromNumeric(r.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("DocumentRow.Document: total_expenses: %w", err)
	}

	doc := &domain.Document{
		DocumentID:       r.DocumentID,
		UserID:           r.UserID,
		EncryptionKeyID:  r.EncryptionKeyID,
		OriginalFilename: r.OriginalFilename,
		FileMimeType:     r.FileMimeType,
		ChecksumSHA256:   r.ChecksumSHA256,
		Status:           domain.DocumentStatus(r.Status),
		TransactionCount: int(r.TransactionCount),
		TotalIncome:      income,
		TotalExpenses:    expenses,
		Error:            r.ErrorMessage.StringVal,
		Months:           r.Months,
		UploadedAt:       r.UploadTS,
	}
	if r.DateRangeStart.Valid {
		d := r.DateRangeStart.Date
		doc.DateRangeStart = &d
	}
	if r.DateRangeEnd.Valid {
		d := r.DateRangeEnd.Date
		doc.DateRangeEnd = &d
	}
	if r.ProcessedTS.Valid {
		ts := r.ProcessedTS.Timestamp
		doc.ProcessedAt = &ts
	}
	return doc, nil
}
