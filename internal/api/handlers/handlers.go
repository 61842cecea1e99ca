// Package handlers implements the HTTP endpoints over the processing pipeline.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Service is the part of pipeline.Processor the handlers use.
type Service interface {
	Upload(ctx context.Context, userID string, f statement.File) (*pipeline.UploadResult, error)
	Process(ctx context.Context, userID, documentID string) (*domain.Document, error)
	Delete(ctx context.Context, userID, documentID string) (*pipeline.DeleteResult, error)
	Documents(ctx context.Context, userID string) ([]*domain.Document, error)
	Document(ctx context.Context, userID, documentID string) (*domain.Document, error)
	Summaries(ctx context.Context, userID string, from, to civil.Date) ([]*domain.MonthlySummary, error)
	Summary(ctx context.Context, userID string, month civil.Date) (*domain.MonthlySummary, error)
}

// writeServiceError maps pipeline errors onto status codes and logs
// anything that is not the caller's fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var csvErr *domain.CSVParseError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrUnsupportedFormat):
		middleware.WriteError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, domain.ErrNoValidTransactions),
		errors.Is(err, domain.ErrNoReadableText),
		errors.As(err, &csvErr):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to " + action)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// parseMonth accepts YYYY-MM or a full date and returns the first of the month.
func parseMonth(s string) (civil.Date, error) {
	if len(s) == len("2006-01") {
		s += "-01"
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, err
	}
	return domain.MonthOf(d), nil
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
