package handlers

import (
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/analysis"
	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/llm"
)

const (
	defaultGoalMonths = 3
	maxGoalMonths     = 24
)

// SummariesHandler serves monthly summaries and the insights built on them.
type SummariesHandler struct {
	svc       Service
	completer llm.Completer
}

// NewSummariesHandler creates a summaries handler. completer may be nil, in
// which case insights and goals use the rule-based fallback.
func NewSummariesHandler(svc Service, completer llm.Completer) *SummariesHandler {
	return &SummariesHandler{svc: svc, completer: completer}
}

// List handles GET /api/summaries?from=YYYY-MM&to=YYYY-MM.
func (h *SummariesHandler) List(w http.ResponseWriter, r *http.Request) {
	var from, to civil.Date
	for name, dst := range map[string]*civil.Date{"from": &from, "to": &to} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		m, err := parseMonth(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name+" month, expected YYYY-MM")
			return
		}
		*dst = m
	}
	if from.IsValid() && to.IsValid() && to.Before(from) {
		middleware.WriteError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	summaries, err := h.svc.Summaries(r.Context(), middleware.UserIDFrom(r.Context()), from, to)
	if err != nil {
		writeServiceError(w, r, err, "list summaries")
		return
	}
	if summaries == nil {
		summaries = []*domain.MonthlySummary{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"summaries": summaries,
		"count":     len(summaries),
	})
}

// Get handles GET /api/summaries/{month}.
func (h *SummariesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s)
}

// Insights handles GET /api/summaries/{month}/insights.
func (h *SummariesHandler) Insights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, analysis.Insights(r.Context(), h.completer, s))
}

// Goals handles GET /api/goals?months=N, using the most recent N months.
func (h *SummariesHandler) Goals(w http.ResponseWriter, r *http.Request) {
	n := defaultGoalMonths
	if v := r.URL.Query().Get("months"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxGoalMonths {
			middleware.WriteError(w, http.StatusBadRequest, "months must be between 1 and 24")
			return
		}
		n = parsed
	}

	summaries, err := h.svc.Summaries(r.Context(), middleware.UserIDFrom(r.Context()), civil.Date{}, civil.Date{})
	if err != nil {
		writeServiceError(w, r, err, "list summaries")
		return
	}
	if len(summaries) > n {
		summaries = summaries[len(summaries)-n:]
	}
	middleware.WriteJSON(w, http.StatusOK, analysis.Goals(r.Context(), h.completer, summaries))
}

func (h *SummariesHandler) load(w http.ResponseWriter, r *http.Request) (*domain.MonthlySummary, bool) {
	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
		return nil, false
	}
	s, err := h.svc.Summary(r.Context(), middleware.UserIDFrom(r.Context()), month)
	if err != nil {
		writeServiceError(w, r, err, "get summary")
		return nil, false
	}
	return s, true
}
