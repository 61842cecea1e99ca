package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ledger/internal/api"
	"github.com/dvloznov/statement-ledger/internal/app"
	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	addr := flag.String("addr", cfg.ListenAddr, "HTTP listen address (or set LISTEN_ADDR / PORT)")
	local := flag.Bool("local", false, "Use in-memory storage even when GCP settings are present")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, app.Options{Local: *local})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer a.Close()

	// Jobs run in-process; the store only tracks this instance's jobs.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.Options{Workers: cfg.WorkerCount}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if err := jobQueue.Start(workerCtx, jobs.ProcessHandler(a.Processor)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job queue")
	}

	handler := api.NewRouter(api.Options{
		Service:       a.Processor,
		Publisher:     jobQueue,
		Jobs:          jobStore,
		Completer:     a.Completer,
		Logger:        log,
		APIKey:        cfg.APIKey,
		RateLimit:     cfg.RateLimit,
		DefaultUserID: pipeline.DefaultUserID,
	})
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY not set, requests are not authenticated")
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight jobs finish before the clients close.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
