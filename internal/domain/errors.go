package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when a file's extension or MIME type is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidAmount is returned by the normalizer for a cell that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is returned by the normalizer for a cell that is not a calendar date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNoValidTransactions is returned when a file yields zero usable rows.
	ErrNoValidTransactions = errors.New("no valid transactions found; try exporting the statement as CSV or XLSX")

	// ErrNoReadableText is returned for PDFs without an extractable text layer.
	ErrNoReadableText = errors.New("no readable text in PDF; scanned statements are not supported, try exporting as CSV or XLSX")

	// ErrStorage wraps blob storage failures.
	ErrStorage = errors.New("storage error")

	// ErrNotFound is returned by repositories for a missing document or summary.
	ErrNotFound = errors.New("not found")
)

// CSVParseError is a structural failure reported by the CSV reader.
type CSVParseError struct {
	Line int
	Err  error
}

func (e *CSVParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv parse error: %v", e.Err)
}

func (e *CSVParseError) Unwrap() error {
	return e.Err
}
