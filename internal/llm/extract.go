package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/classify"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
	"golang.org/x/sync/errgroup"
)

// DefaultExtractionConcurrency bounds parallel chunk requests.
const DefaultExtractionConcurrency = 6

// ExtractionResult is the reply shape for one chunk. Models sometimes return
// the bare array instead of the wrapping object; both decode.
type ExtractionResult struct {
	Transactions []ExtractedTransaction `json:"transactions"`
}

// ExtractedTransaction is one row as the model wrote it.
type ExtractedTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
}

func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &r.Transactions)
	}
	type plain ExtractionResult
	return json.Unmarshal(data, (*plain)(r))
}

// Normalize converts the model rows into candidate transactions, dropping rows
// whose date, description or amount do not parse.
func (r ExtractionResult) Normalize() []domain.Transaction {
	out := make([]domain.Transaction, 0, len(r.Transactions))
	for _, et := range r.Transactions {
		date, err := normalize.NormalizeDate(et.Date)
		if err != nil {
			continue
		}
		desc := strings.Join(strings.Fields(et.Description), " ")
		if desc == "" {
			continue
		}
		amount, err := normalize.ParseAmount(rawAmount(et.Amount))
		if err != nil || amount.IsZero() {
			continue
		}

		category := domain.Category(strings.ToLower(strings.TrimSpace(et.Category)))
		if !category.Valid() || category.IsIncome() != amount.IsPositive() {
			category = classify.Classify(desc, amount)
		}
		out = append(out, domain.Transaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Category:    category,
		})
	}
	return out
}

func rawAmount(raw json.RawMessage) any {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Extractor asks the model to extract transactions from statement text chunks.
type Extractor struct {
	Completer   Completer
	Concurrency int
}

// NewExtractor returns an Extractor; concurrency <= 0 uses the default.
func NewExtractor(c Completer, concurrency int) *Extractor {
	if concurrency <= 0 {
		concurrency = DefaultExtractionConcurrency
	}
	return &Extractor{Completer: c, Concurrency: concurrency}
}

// ExtractChunks runs one request per chunk with bounded concurrency. Failed
// chunks are logged and skipped; an error is returned only when every chunk
// failed. Results keep chunk order.
func (e *Extractor) ExtractChunks(ctx context.Context, chunks []string) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)
	if len(chunks) == 0 {
		return nil, nil
	}

	results := make([][]domain.Transaction, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i], errs[i] = e.extractChunk(gctx, chunk)
			return nil
		})
	}
	_ = g.Wait()

	var (
		out      []domain.Transaction
		failures int
		lastErr  error
	)
	for i := range chunks {
		if errs[i] != nil {
			failures++
			lastErr = errs[i]
			log.Warn().Err(errs[i]).Int("chunk", i).Msg("chunk extraction failed")
			continue
		}
		out = append(out, results[i]...)
	}

	log.Info().
		Int("chunks", len(chunks)).
		Int("failures", failures).
		Int("transactions", len(out)).
		Msg("model extraction finished")

	if failures == len(chunks) {
		return nil, fmt.Errorf("ExtractChunks: all %d chunks failed: %w", failures, lastErr)
	}
	return out, nil
}

func (e *Extractor) extractChunk(ctx context.Context, chunk string) ([]domain.Transaction, error) {
	reply, err := e.Completer.Complete(ctx, extractionSystemPrompt(), chunk)
	if err != nil {
		return nil, err
	}
	var res ExtractionResult
	if err := decodeReply(reply, &res); err != nil {
		return nil, err
	}
	return res.Normalize(), nil
}

func extractionSystemPrompt() string {
	var cats []string
	for _, c := range domain.Categories() {
		cats = append(cats, string(c))
	}
	return "You extract transactions from a fragment of a bank or card statement.\n\n" +
		"Output STRICT JSON only: an object {\"transactions\": [...]}.\n" +
		"Each transaction has:\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
		"- \"description\": string, the merchant or payee as printed\n" +
		"- \"amount\": number, positive for money IN, negative for money OUT\n" +
		"- \"category\": one of " + strings.Join(cats, ", ") + "\n\n" +
		"Rules:\n" +
		"- Skip opening/closing balances, totals, headers and page footers.\n" +
		"- If the statement has separate paid out / paid in columns, convert to a single signed amount.\n" +
		"- Never use the running balance as the amount.\n" +
		"- If the fragment contains no transactions, return {\"transactions\": []}.\n" +
		"Do NOT wrap the response in code fences.\n"
}
