package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCleanupConcurrency bounds parallel name cleanup batches.
	DefaultCleanupConcurrency = 4
	// DefaultCleanupBatchSize is the number of names sent per request.
	DefaultCleanupBatchSize = 40
)

var (
	cardNoise = regexp.MustCompile(`(?i)\b(?:pos|visa|mastercard|debit card|card|purchase|contactless)\b(?:\s+\d{4})?`)
	refNoise  = regexp.MustCompile(`(?i)\b(?:ref|reference|txn|trace|auth)[:#.]?\s*[\w-]+`)
	hashNoise = regexp.MustCompile(`[#*]+\s*\w*\d\w*`)
	longDigit = regexp.MustCompile(`\b\d{5,}\b`)
	dateNoise = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}(?:[/.\-]\d{2,4})?\b`)
)

// CleanupResult maps original descriptions to display names.
type CleanupResult struct {
	Names    map[string]string `json:"names"`
	Source   domain.Source     `json:"source"`
	Failures int               `json:"failures"`
}

// Apply returns a copy of txs with descriptions replaced by their cleaned names.
func (r CleanupResult) Apply(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if name, ok := r.Names[tx.Description]; ok && name != "" {
			tx.Description = name
		}
		out[i] = tx
	}
	return out
}

type cleanupReply struct {
	Names []struct {
		Original string `json:"original"`
		Clean    string `json:"clean"`
	} `json:"names"`
}

// Cleaner turns raw statement descriptions into readable merchant names.
type Cleaner struct {
	Completer   Completer // nil means deterministic cleanup only
	Concurrency int
	BatchSize   int
}

// NewCleaner returns a Cleaner with defaults applied.
func NewCleaner(c Completer, concurrency int) *Cleaner {
	if concurrency <= 0 {
		concurrency = DefaultCleanupConcurrency
	}
	return &Cleaner{Completer: c, Concurrency: concurrency, BatchSize: DefaultCleanupBatchSize}
}

// CleanNames cleans each distinct name once. Batches that fail fall back to
// DeterministicName; Source is model when at least one batch succeeded.
func (c *Cleaner) CleanNames(ctx context.Context, names []string) CleanupResult {
	log := logger.FromContext(ctx)

	unique := dedupe(names)
	res := CleanupResult{Names: make(map[string]string, len(unique)), Source: domain.SourceFallback}
	for _, n := range unique {
		res.Names[n] = DeterministicName(n)
	}
	if c.Completer == nil || len(unique) == 0 {
		return res
	}

	size := c.BatchSize
	if size <= 0 {
		size = DefaultCleanupBatchSize
	}
	var batches [][]string
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		batches = append(batches, unique[start:end])
	}

	replies := make([]map[string]string, len(batches))
	errs := make([]error, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			replies[i], errs[i] = c.cleanBatch(gctx, batch)
			return nil
		})
	}
	_ = g.Wait()

	for i := range batches {
		if errs[i] != nil {
			res.Failures++
			log.Warn().Err(errs[i]).Int("batch", i).Msg("name cleanup batch failed")
			continue
		}
		res.Source = domain.SourceModel
		for orig, clean := range replies[i] {
			if _, ok := res.Names[orig]; ok && clean != "" {
				res.Names[orig] = clean
			}
		}
	}
	log.Info().Int("names", len(unique)).Int("failures", res.Failures).Str("source", string(res.Source)).Msg("name cleanup finished")
	return res
}

func (c *Cleaner) cleanBatch(ctx context.Context, batch []string) (map[string]string, error) {
	var b strings.Builder
	for _, n := range batch {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	reply, err := c.Completer.Complete(ctx, cleanupSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}
	var parsed cleanupReply
	if err := decodeReply(reply, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Names) == 0 {
		return nil, fmt.Errorf("cleanBatch: reply has no names")
	}
	out := make(map[string]string, len(parsed.Names))
	for _, n := range parsed.Names {
		out[n.Original] = strings.Join(strings.Fields(n.Clean), " ")
	}
	return out, nil
}

const cleanupSystemPrompt = "You clean up raw bank statement descriptions into short merchant names.\n" +
	"Input: one description per line.\n" +
	"Output STRICT JSON only: {\"names\": [{\"original\": \"...\", \"clean\": \"...\"}]}\n" +
	"- \"original\" must be copied exactly from the input line.\n" +
	"- \"clean\" is the merchant or payee in Title Case without card numbers, references, dates or locations.\n" +
	"Do NOT wrap the response in code fences.\n"

// DeterministicName strips card, reference and date noise and collapses
// whitespace. It never returns an empty string for a non-empty input.
func DeterministicName(desc string) string {
	s := desc
	for _, re := range []*regexp.Regexp{refNoise, cardNoise, hashNoise, dateNoise, longDigit} {
		s = re.ReplaceAllString(s, " ")
	}
	s = strings.Trim(strings.Join(strings.Fields(s), " "), " -*#:,.")
	if s == "" {
		return strings.Join(strings.Fields(desc), " ")
	}
	return s
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
