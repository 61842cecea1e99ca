package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/aggregate"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/sanitize"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// Step is a single stage of document processing.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is shared by all steps of one processing run.
type State struct {
	Document *domain.Document

	// PreviousMonths are the months the document contributed to before this run.
	PreviousMonths []civil.Date

	Data         []byte
	Result       *domain.ParseResult
	Transactions []domain.Transaction
	Report       sanitize.Report
	Groups       map[civil.Date]*domain.MonthlySummary
	Months       []civil.Date
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) cancelled: %w", i+1, step.Name(), err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		log.Debug().Str("step", step.Name()).Msg("step done")
	}
	return nil
}

// MarkProcessingStep flips the document to processing and clears the last error.
type MarkProcessingStep struct {
	Docs DocumentRepository
}

func (s *MarkProcessingStep) Name() string { return "mark_processing" }

func (s *MarkProcessingStep) Execute(ctx context.Context, state *State) error {
	state.PreviousMonths = append([]civil.Date(nil), state.Document.Months...)
	state.Document.Status = domain.DocumentStatusProcessing
	state.Document.Error = ""
	return s.Docs.UpdateDocument(ctx, state.Document)
}

// DownloadStep fetches the stored file.
type DownloadStep struct {
	Blobs BlobStore
}

func (s *DownloadStep) Name() string { return "download" }

func (s *DownloadStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Blobs.Download(ctx, state.Document.DocumentID, state.Document.EncryptionKeyID)
	if err != nil {
		return err
	}
	state.Data = data
	return nil
}

// ParseStep turns the file into candidate transactions.
type ParseStep struct {
	Parser StatementParser
}

func (s *ParseStep) Name() string { return "parse" }

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	result, err := s.Parser.Parse(ctx, statement.File{
		Name:     state.Document.OriginalFilename,
		MimeType: state.Document.FileMimeType,
		Data:     state.Data,
	})
	if err != nil {
		return err
	}
	state.Result = result
	state.Transactions = result.Transactions
	state.Data = nil
	return nil
}

// CleanupStep replaces raw descriptions with cleaned merchant names.
type CleanupStep struct {
	Cleaner NameCleaner
}

func (s *CleanupStep) Name() string { return "cleanup" }

func (s *CleanupStep) Execute(ctx context.Context, state *State) error {
	names := make([]string, len(state.Transactions))
	for i, tx := range state.Transactions {
		names[i] = tx.Description
	}
	res := s.Cleaner.CleanNames(ctx, names)
	state.Transactions = res.Apply(state.Transactions)
	log := logger.FromContext(ctx)
	log.Debug().
		Str("source", string(res.Source)).
		Int("failures", res.Failures).
		Msg("names cleaned")
	return nil
}

// SanitizeStep drops rows that cannot be stored and fails when none remain.
type SanitizeStep struct {
	Limits sanitize.Limits
}

func (s *SanitizeStep) Name() string { return "sanitize" }

func (s *SanitizeStep) Execute(ctx context.Context, state *State) error {
	txs, report, err := sanitize.Require(state.Transactions, s.Limits)
	state.Report = report
	if report.Dropped() > 0 {
		log := logger.FromContext(ctx)
		log.Info().
			Int("kept", report.Kept).
			Int("invalid_date", report.InvalidDate).
			Int("empty_description", report.EmptyDescription).
			Int("too_small", report.TooSmall).
			Int("too_large", report.TooLarge).
			Msg("dropped transactions")
	}
	if err != nil {
		return err
	}
	state.Transactions = txs
	return nil
}

// GroupStep buckets the surviving transactions by month.
type GroupStep struct{}

func (s *GroupStep) Name() string { return "group" }

func (s *GroupStep) Execute(_ context.Context, state *State) error {
	state.Groups = aggregate.GroupByMonth(state.Transactions, aggregate.DisplayTopMerchants)
	state.Months = aggregate.Months(state.Groups)
	return nil
}

// MergeStep folds the document into every affected persisted month. Months the
// document touched on an earlier run but no longer does are cleaned up too.
type MergeStep struct {
	Merger *monthMerger
}

func (s *MergeStep) Name() string { return "merge" }

func (s *MergeStep) Execute(ctx context.Context, state *State) error {
	doc := state.Document
	for _, month := range unionMonths(state.Months, state.PreviousMonths) {
		var incoming []domain.Transaction
		if g, ok := state.Groups[month]; ok {
			incoming = g.AllTransactions
		}
		if err := s.Merger.apply(ctx, doc.UserID, month, doc.DocumentID, incoming); err != nil {
			return err
		}
	}
	return nil
}

// MarkCompletedStep records the run's totals on the document.
type MarkCompletedStep struct {
	Docs DocumentRepository
	Now  func() time.Time
}

func (s *MarkCompletedStep) Name() string { return "mark_completed" }

func (s *MarkCompletedStep) Execute(ctx context.Context, state *State) error {
	final, err := statement.Finalize(state.Transactions)
	if err != nil {
		return err
	}

	doc := state.Document
	start, end := final.DateRange.Start, final.DateRange.End
	now := s.Now().UTC()
	doc.Status = domain.DocumentStatusCompleted
	doc.TransactionCount = len(state.Transactions)
	doc.DateRangeStart = &start
	doc.DateRangeEnd = &end
	doc.TotalIncome = final.TotalIncome
	doc.TotalExpenses = final.TotalExpenses
	doc.Months = state.Months
	doc.Error = ""
	doc.ProcessedAt = &now
	return s.Docs.UpdateDocument(ctx, doc)
}

func unionMonths(lists ...[]civil.Date) []civil.Date {
	seen := make(map[civil.Date]bool)
	var out []civil.Date
	for _, list := range lists {
		for _, m := range list {
			m = domain.MonthOf(m)
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
