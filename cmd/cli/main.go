package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/analysis"
	"github.com/dvloznov/statement-ledger/internal/app"
	"github.com/dvloznov/statement-ledger/internal/config"
	"github.com/dvloznov/statement-ledger/internal/llm"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/sanitize"
	"github.com/dvloznov/statement-ledger/internal/statement"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	// Logs go to stderr so JSON output can be piped.
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})

	cmds := map[string]func(zerolog.Logger, config.Config, []string){
		"parse":     runParse,
		"ingest":    runIngest,
		"process":   runProcess,
		"documents": runDocuments,
		"summaries": runSummaries,
		"insights":  runInsights,
		"goals":     runGoals,
		"delete":    runDelete,
	}

	switch cmd := os.Args[1]; cmd {
	case "help", "-h", "--help":
		printUsage()
	default:
		run, ok := cmds[cmd]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
			printUsage()
			os.Exit(1)
		}
		run(log, cfg, os.Args[2:])
	}
}

func printUsage() {
	fmt.Println("Statement Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse      Parse a local file or gs:// object and print the result, without storing it")
	fmt.Println("  ingest     Upload a statement and process it into monthly summaries")
	fmt.Println("  process    Re-run processing for an uploaded document")
	fmt.Println("  documents  List uploaded documents")
	fmt.Println("  summaries  Print monthly summaries")
	fmt.Println("  insights   Print insights for one month")
	fmt.Println("  goals      Print suggested goals from recent months")
	fmt.Println("  delete     Delete a document and its contribution to summaries")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	input := fs.String("file", "", "Local path or gs:// URI of the statement")
	model := fs.Bool("model", cfg.UseModelExtraction, "Use the model for PDF extraction")
	fs.Parse(args)
	if *input == "" {
		log.Fatal().Msg("Usage: cli parse -file PATH|gs://BUCKET/OBJECT")
	}

	ctx, cancel := commandContext(log)
	defer cancel()

	f, err := readInput(ctx, *input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}

	parser := statement.NewParser(nil)
	if *model {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create model client")
		}
		parser = statement.NewParser(llm.NewExtractor(gemini, cfg.ExtractionConcurrency))
	}

	out, err := parseStatement(ctx, parser, sanitize.Limits{Ceiling: cfg.AmountCeiling}, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}
	printJSON(os.Stdout, out)
}

func runIngest(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	input := fs.String("file", "", "Local path or gs:// URI of the statement")
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	fs.Parse(args)
	if *input == "" {
		log.Fatal().Msg("Usage: cli ingest -file PATH|gs://BUCKET/OBJECT [-user ID]")
	}

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	f, err := readInput(ctx, *input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}

	up, err := a.Processor.Upload(ctx, *user, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	if up.Duplicate {
		log.Info().Str("document_id", up.Document.DocumentID).Msg("Already uploaded")
		printJSON(os.Stdout, up)
		return
	}

	doc, err := a.Processor.Process(ctx, *user, up.Document.DocumentID)
	if err != nil {
		log.Fatal().Err(err).Str("document_id", up.Document.DocumentID).Msg("Processing failed")
	}
	printJSON(os.Stdout, doc)
}

func runProcess(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	documentID := fs.String("document-id", "", "Document ID to process")
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	fs.Parse(args)
	if *documentID == "" {
		log.Fatal().Msg("Error: -document-id is required")
	}

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	doc, err := a.Processor.Process(ctx, *user, *documentID)
	if err != nil {
		log.Fatal().Err(err).Msg("Processing failed")
	}
	printJSON(os.Stdout, doc)
}

func runDocuments(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	fs.Parse(args)

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	docs, err := a.Processor.Documents(ctx, *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list documents")
	}
	printJSON(os.Stdout, docs)
}

func runSummaries(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("summaries", flag.ExitOnError)
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	from := fs.String("from", "", "First month, YYYY-MM")
	to := fs.String("to", "", "Last month, YYYY-MM")
	fs.Parse(args)

	fromMonth, err := parseMonthFlag(*from)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -from")
	}
	toMonth, err := parseMonthFlag(*to)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -to")
	}

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	summaries, err := a.Processor.Summaries(ctx, *user, fromMonth, toMonth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list summaries")
	}
	printJSON(os.Stdout, summaries)
}

func runInsights(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	month := fs.String("month", "", "Month, YYYY-MM")
	fs.Parse(args)

	m, err := parseMonthFlag(*month)
	if err != nil || !m.IsValid() {
		log.Fatal().Msg("Usage: cli insights -month YYYY-MM [-user ID]")
	}

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	s, err := a.Processor.Summary(ctx, *user, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load summary")
	}
	printJSON(os.Stdout, analysis.Insights(ctx, a.Completer, s))
}

func runGoals(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("goals", flag.ExitOnError)
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	months := fs.Int("months", 3, "Number of recent months to consider")
	fs.Parse(args)

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	summaries, err := a.Processor.Summaries(ctx, *user, civil.Date{}, civil.Date{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list summaries")
	}
	if *months > 0 && len(summaries) > *months {
		summaries = summaries[len(summaries)-*months:]
	}
	printJSON(os.Stdout, analysis.Goals(ctx, a.Completer, summaries))
}

func runDelete(log zerolog.Logger, cfg config.Config, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	documentID := fs.String("document-id", "", "Document ID to delete")
	user := fs.String("user", pipeline.DefaultUserID, "User id")
	fs.Parse(args)
	if *documentID == "" {
		log.Fatal().Msg("Error: -document-id is required")
	}

	ctx, cancel := commandContext(log)
	defer cancel()
	a := mustApp(ctx, log, cfg)
	defer a.Close()

	res, err := a.Processor.Delete(ctx, *user, *documentID)
	if err != nil {
		log.Fatal().Err(err).Msg("Delete failed")
	}
	printJSON(os.Stdout, res)
}

func commandContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	return logger.WithContext(ctx, log), cancel
}

func mustApp(ctx context.Context, log zerolog.Logger, cfg config.Config) *app.App {
	if err := cfg.RequireCloud(); err != nil {
		log.Warn().Err(err).Msg("Results will not outlive this command")
	}
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	return a
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
