package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"google.golang.org/api/iterator"
)

const documentColumns = `
			document_id,
			user_id,
			encryption_key_id,
			original_filename,
			file_mime_type,
			checksum_sha256,
			status,
			transaction_count,
			date_range_start,
			date_range_end,
			total_income,
			total_expenses,
			error_message,
			months,
			upload_ts,
			processed_ts`

// InsertDocumentWithClient inserts a new status record with a DML INSERT.
func InsertDocumentWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, doc *domain.Document) error {
	row := NewDocumentRow(doc)

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s
		)
		VALUES (
			@document_id,
			@user_id,
			@encryption_key_id,
			@original_filename,
			@file_mime_type,
			@checksum_sha256,
			@status,
			@transaction_count,
			@date_range_start,
			@date_range_end,
			@total_income,
			@total_expenses,
			@error_message,
			@months,
			@upload_ts,
			@processed_ts
		)
	`, ds.Table(documentsTable), documentColumns))
	q.Parameters = documentParameters(row)

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertDocumentWithClient: %w", err)
	}
	return nil
}

// UpdateDocumentWithClient rewrites the mutable processing columns of a document.
func UpdateDocumentWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, doc *domain.Document) error {
	row := NewDocumentRow(doc)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			status = @status,
			transaction_count = @transaction_count,
			date_range_start = @date_range_start,
			date_range_end = @date_range_end,
			total_income = @total_income,
			total_expenses = @total_expenses,
			error_message = @error_message,
			months = @months,
			processed_ts = @processed_ts
		WHERE document_id = @document_id AND user_id = @user_id
	`, ds.Table(documentsTable)))
	q.Parameters = documentParameters(row)

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateDocumentWithClient: %w", err)
	}
	return nil
}

func documentParameters(row *DocumentRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "document_id", Value: row.DocumentID},
		{Name: "user_id", Value: row.UserID},
		{Name: "encryption_key_id", Value: row.EncryptionKeyID},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "file_mime_type", Value: row.FileMimeType},
		{Name: "checksum_sha256", Value: row.ChecksumSHA256},
		{Name: "status", Value: row.Status},
		{Name: "transaction_count", Value: row.TransactionCount},
		{Name: "date_range_start", Value: row.DateRangeStart},
		{Name: "date_range_end", Value: row.DateRangeEnd},
		{Name: "total_income", Value: row.TotalIncome},
		{Name: "total_expenses", Value: row.TotalExpenses},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "months", Value: row.Months},
		{Name: "upload_ts", Value: row.UploadTS},
		{Name: "processed_ts", Value: row.ProcessedTS},
	}
}

// GetDocumentWithClient loads one document owned by userID.
// Returns domain.ErrNotFound when no such document exists.
func GetDocumentWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, documentID string) (*domain.Document, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE document_id = @document_id AND user_id = @user_id
		LIMIT 1
	`, documentColumns, ds.Table(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
		{Name: "user_id", Value: userID},
	}

	docs, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetDocumentWithClient: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("GetDocumentWithClient: document %s: %w", documentID, domain.ErrNotFound)
	}
	return docs[0], nil
}

// ListDocumentsWithClient returns a user's documents, newest upload first.
func ListDocumentsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*domain.Document, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`, documentColumns, ds.Table(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	docs, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListDocumentsWithClient: %w", err)
	}
	return docs, nil
}

// FindDocumentByChecksumWithClient looks up an earlier upload of the same bytes.
// Returns nil if the user never uploaded this file.
func FindDocumentByChecksumWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, checksum string) (*domain.Document, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id AND checksum_sha256 = @checksum
		ORDER BY upload_ts DESC
		LIMIT 1
	`, documentColumns, ds.Table(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "checksum", Value: checksum},
	}

	docs, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksumWithClient: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// DeleteDocumentWithClient removes the status record.
func DeleteDocumentWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, documentID string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE document_id = @document_id AND user_id = @user_id
	`, ds.Table(documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
		{Name: "user_id", Value: userID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteDocumentWithClient: %w", err)
	}
	return nil
}

func readDocuments(ctx context.Context, q *bigquery.Query) ([]*domain.Document, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var docs []*domain.Document
	for {
		var row DocumentRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		doc, err := row.Document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
