package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DocumentStatus is the processing state of an uploaded statement.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is the status record kept for each source document.
type Document struct {
	DocumentID      string `json:"document_id"`
	UserID          string `json:"user_id"`
	EncryptionKeyID string `json:"encryption_key_id"`

	OriginalFilename string `json:"original_filename"`
	FileMimeType     string `json:"file_mime_type"`
	ChecksumSHA256   string `json:"checksum_sha256,omitempty"`

	Status           DocumentStatus  `json:"status"`
	TransactionCount int             `json:"transaction_count"`
	DateRangeStart   *civil.Date     `json:"date_range_start,omitempty"`
	DateRangeEnd     *civil.Date     `json:"date_range_end,omitempty"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	Error            string          `json:"error,omitempty"`

	// Months lists every month the document contributed to on its last successful run.
	Months []civil.Date `json:"months,omitempty"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
