// Package app wires configuration into the processing pipeline shared by
// the API server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-ledger/internal/blob"
	"github.com/dvloznov/statement-ledger/internal/config"
	infraBQ "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/infra/memory"
	"github.com/dvloznov/statement-ledger/internal/llm"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/sanitize"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// App holds the wired components.
type App struct {
	Processor *pipeline.Processor
	Repo      pipeline.Repository
	Blobs     blob.Store
	// Completer is nil unless a model feature is enabled and the client
	// could be created.
	Completer llm.Completer

	closers []func() error
}

// Options override the adapters New would otherwise pick from cfg.
type Options struct {
	Repo      pipeline.Repository
	Blobs     blob.Store
	Completer llm.Completer
	// Local forces in-memory adapters even when cloud settings are present.
	Local bool
}

// New builds the processor. BigQuery and Cloud Storage are used when the GCP
// settings are complete; otherwise everything stays in memory.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{Repo: opts.Repo, Blobs: opts.Blobs, Completer: opts.Completer}

	cloud := !opts.Local && cfg.RequireCloud() == nil
	if !cloud && (opts.Repo == nil || opts.Blobs == nil) {
		log.Warn().Msg("GCP settings incomplete, using in-memory storage")
	}

	if a.Repo == nil {
		if cloud {
			repo, err := infraBQ.NewRepository(ctx, infraBQ.Dataset{ProjectID: cfg.GCPProject, DatasetID: cfg.BQDataset})
			if err != nil {
				return nil, fmt.Errorf("New: %w", err)
			}
			a.closers = append(a.closers, repo.Close)
			a.Repo = repo
		} else {
			a.Repo = memory.NewRepository()
		}
	}

	if a.Blobs == nil {
		if cloud {
			store, err := blob.NewGCSStore(ctx, cfg.GCSBucket, cfg.KMSKeyName)
			if err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("New: %w", err)
			}
			a.closers = append(a.closers, store.Close)
			a.Blobs = store
		} else {
			a.Blobs = blob.NewMemoryStore()
		}
	}

	if a.Completer == nil && (cfg.UseModelExtraction || cfg.UseModelCleanup) {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("model client unavailable, using deterministic fallbacks")
		} else {
			a.Completer = gemini
		}
	}

	deps := pipeline.Dependencies{
		Documents: a.Repo,
		Summaries: a.Repo,
		Blobs:     a.Blobs,
		Parser:    statement.NewParser(nil),
		Limits:    sanitize.Limits{Ceiling: cfg.AmountCeiling},
	}
	if a.Completer != nil {
		if cfg.UseModelExtraction {
			deps.Parser = statement.NewParser(llm.NewExtractor(a.Completer, cfg.ExtractionConcurrency))
		}
		if cfg.UseModelCleanup {
			deps.Cleaner = llm.NewCleaner(a.Completer, cfg.CleanupConcurrency)
		}
	}
	a.Processor = pipeline.NewProcessor(deps)

	log.Info().
		Bool("cloud", cloud).
		Bool("model_extraction", cfg.UseModelExtraction && a.Completer != nil).
		Bool("model_cleanup", deps.Cleaner != nil).
		Msg("pipeline ready")
	return a, nil
}

// Close releases cloud clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
