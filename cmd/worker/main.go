package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

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

	var (
		users    = flag.String("users", pipeline.DefaultUserID, "Comma-separated user ids whose pending documents are processed")
		interval = flag.Duration("interval", 30*time.Second, "How often to look for pending documents")
		once     = flag.Bool("once", false, "Process the current backlog and exit")
	)
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := logger.WithContext(context.Background(), log)

	// Without shared storage there is nothing to pick up.
	if err := cfg.RequireCloud(); err != nil {
		log.Fatal().Err(err).Msg("Worker needs BigQuery and Cloud Storage")
	}

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer a.Close()

	jobQueue := inmemory.NewQueue(inmemory.Options{Workers: cfg.WorkerCount}, inmemory.NewStore())
	p := newPoller(a.Repo, jobQueue, splitUsers(*users))

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := jobQueue.Start(workerCtx, p.track(jobs.ProcessHandler(a.Processor))); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}
	log.Info().Strs("users", p.users).Dur("interval", *interval).Msg("Worker service started")

	if *once {
		p.poll(workerCtx)
		p.wait(workerCtx)
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		p.run(workerCtx, *interval, quit)
	}

	log.Info().Msg("Shutting down worker service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	log.Info().Msg("Worker service exited")
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
