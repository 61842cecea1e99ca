package jobs

import (
	"context"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

// DocumentProcessor is the part of pipeline.Processor a worker needs.
type DocumentProcessor interface {
	Process(ctx context.Context, userID, documentID string) (*domain.Document, error)
}

// ProcessHandler runs jobs through p. Failures caused by the file itself are
// permanent; infrastructure failures are retried.
func ProcessHandler(p DocumentProcessor) Handler {
	return func(ctx context.Context, job *ProcessDocumentJob) error {
		_, err := p.Process(ctx, job.UserID, job.DocumentID)
		if err != nil && pipeline.IsUserError(err) {
			return Permanent(err)
		}
		return err
	}
}
