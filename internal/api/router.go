// Package api assembles the HTTP server's routes and middleware chain.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/statement-ledger/internal/api/handlers"
	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/llm"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/rs/zerolog"
)

// Options wire the router. Publisher and Completer may be nil.
type Options struct {
	Service   handlers.Service
	Publisher jobs.Publisher
	Jobs      jobs.Store
	Completer llm.Completer
	Logger    zerolog.Logger

	APIKey        string
	RateLimit     int // requests per minute per client; 0 disables
	DefaultUserID string
}

// NewRouter returns the complete HTTP handler.
func NewRouter(opts Options) http.Handler {
	if opts.DefaultUserID == "" {
		opts.DefaultUserID = pipeline.DefaultUserID
	}

	docs := handlers.NewDocumentsHandler(opts.Service, opts.Publisher)
	summaries := handlers.NewSummariesHandler(opts.Service, opts.Completer)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /api/documents", docs.Upload)
	mux.HandleFunc("GET /api/documents", docs.List)
	mux.HandleFunc("GET /api/documents/{id}", docs.Get)
	mux.HandleFunc("DELETE /api/documents/{id}", docs.Delete)
	mux.HandleFunc("POST /api/documents/{id}/process", docs.Process)

	mux.HandleFunc("GET /api/summaries", summaries.List)
	mux.HandleFunc("GET /api/summaries/{month}", summaries.Get)
	mux.HandleFunc("GET /api/summaries/{month}/insights", summaries.Insights)
	mux.HandleFunc("GET /api/goals", summaries.Goals)

	if opts.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(opts.Jobs)
		mux.HandleFunc("GET /api/jobs", jobsHandler.List)
		mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.Get)
	}

	limiter := middleware.NewRateLimiter(opts.RateLimit, 10*time.Minute)

	// Wrapped inside out: Recovery runs first.
	var handler http.Handler = mux
	handler = middleware.UserID(opts.DefaultUserID)(handler)
	handler = limiter.Middleware(handler)
	handler = middleware.Auth(opts.APIKey)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logger(opts.Logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(opts.Logger)(handler)
	return handler
}
