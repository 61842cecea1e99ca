// Package analysis produces spending insights and savings goals for monthly
// summaries. The model is asked first; any failure yields the deterministic
// generators, and results say which path produced them.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/llm"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// Insight is one observation about a month.
type Insight struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"` // info, warning or positive
}

// InsightResult is the outcome of Insights.
type InsightResult struct {
	Insights []Insight     `json:"insights"`
	Source   domain.Source `json:"source"`
}

// Goal is a suggested savings or spending target.
type Goal struct {
	Title        string          `json:"title"`
	Category     string          `json:"category,omitempty"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Rationale    string          `json:"rationale"`
}

// GoalResult is the outcome of Goals.
type GoalResult struct {
	Goals  []Goal        `json:"goals"`
	Source domain.Source `json:"source"`
}

var severities = map[string]bool{"info": true, "warning": true, "positive": true}

// Insights asks the completer for insights on s. A nil completer, an error or
// an unusable reply falls back to FallbackInsights.
func Insights(ctx context.Context, c llm.Completer, s *domain.MonthlySummary) InsightResult {
	log := logger.FromContext(ctx)
	if c != nil {
		res, err := modelInsights(ctx, c, s)
		if err == nil {
			return res
		}
		log.Warn().Err(err).Str("month", s.Month.String()).Msg("insight generation failed, using fallback")
	}
	return InsightResult{Insights: FallbackInsights(s), Source: domain.SourceFallback}
}

func modelInsights(ctx context.Context, c llm.Completer, s *domain.MonthlySummary) (InsightResult, error) {
	prompt, err := summaryPrompt(s)
	if err != nil {
		return InsightResult{}, err
	}
	reply, err := c.Complete(ctx, insightSystemPrompt, prompt)
	if err != nil {
		return InsightResult{}, err
	}

	var res InsightResult
	if err := json.Unmarshal([]byte(llm.CleanJSON(reply)), &res); err != nil {
		return InsightResult{}, fmt.Errorf("modelInsights: unmarshal JSON: %w", err)
	}
	kept := res.Insights[:0]
	for _, in := range res.Insights {
		in.Title = strings.TrimSpace(in.Title)
		if in.Title == "" {
			continue
		}
		if !severities[in.Severity] {
			in.Severity = "info"
		}
		kept = append(kept, in)
	}
	if len(kept) == 0 {
		return InsightResult{}, fmt.Errorf("modelInsights: reply has no insights")
	}
	return InsightResult{Insights: kept, Source: domain.SourceModel}, nil
}

// Goals asks the completer for goals based on recent months. A nil
// completer, an error or an unusable reply falls back to FallbackGoals.
func Goals(ctx context.Context, c llm.Completer, months []*domain.MonthlySummary) GoalResult {
	log := logger.FromContext(ctx)
	if c != nil && len(months) > 0 {
		res, err := modelGoals(ctx, c, months)
		if err == nil {
			return res
		}
		log.Warn().Err(err).Int("months", len(months)).Msg("goal generation failed, using fallback")
	}
	return GoalResult{Goals: FallbackGoals(months), Source: domain.SourceFallback}
}

func modelGoals(ctx context.Context, c llm.Completer, months []*domain.MonthlySummary) (GoalResult, error) {
	var b strings.Builder
	for _, s := range months {
		p, err := summaryPrompt(s)
		if err != nil {
			return GoalResult{}, err
		}
		b.WriteString(p)
		b.WriteByte('\n')
	}
	reply, err := c.Complete(ctx, goalSystemPrompt, b.String())
	if err != nil {
		return GoalResult{}, err
	}

	var res GoalResult
	if err := json.Unmarshal([]byte(llm.CleanJSON(reply)), &res); err != nil {
		return GoalResult{}, fmt.Errorf("modelGoals: unmarshal JSON: %w", err)
	}
	kept := res.Goals[:0]
	for _, g := range res.Goals {
		if strings.TrimSpace(g.Title) == "" || !g.TargetAmount.IsPositive() {
			continue
		}
		g.TargetAmount = g.TargetAmount.Round(2)
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		return GoalResult{}, fmt.Errorf("modelGoals: reply has no usable goals")
	}
	return GoalResult{Goals: kept, Source: domain.SourceModel}, nil
}

// summaryPrompt renders the aggregate fields only; individual transactions
// are not sent to the model.
func summaryPrompt(s *domain.MonthlySummary) (string, error) {
	view := struct {
		Month              string                     `json:"month"`
		TotalIncome        decimal.Decimal            `json:"total_income"`
		TotalExpenses      decimal.Decimal            `json:"total_expenses"`
		IncomeBySource     map[string]decimal.Decimal `json:"income_by_source"`
		ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
		TopMerchants       []domain.MerchantTotal     `json:"top_merchants"`
	}{
		Month:              s.Month.String(),
		TotalIncome:        s.TotalIncome,
		TotalExpenses:      s.TotalExpenses,
		IncomeBySource:     s.IncomeBySource,
		ExpensesByCategory: s.ExpensesByCategory,
		TopMerchants:       s.TopMerchants,
	}
	b, err := json.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("summaryPrompt: marshal: %w", err)
	}
	return string(b), nil
}

const insightSystemPrompt = "You are a personal finance assistant. Given one month's aggregated spending as JSON, " +
	"write 3 to 5 short, specific insights.\n" +
	"Output STRICT JSON only: {\"insights\": [{\"title\": \"...\", \"detail\": \"...\", \"severity\": \"info|warning|positive\"}]}\n" +
	"Amounts are in the statement's own currency; do not convert or name a currency.\n" +
	"Do NOT wrap the response in code fences.\n"

const goalSystemPrompt = "You are a personal finance assistant. Given recent months of aggregated spending as JSON lines, " +
	"suggest 2 to 4 realistic monthly goals.\n" +
	"Output STRICT JSON only: {\"goals\": [{\"title\": \"...\", \"category\": \"...\", \"target_amount\": 0, \"rationale\": \"...\"}]}\n" +
	"target_amount is a positive number in the statement's own currency.\n" +
	"Do NOT wrap the response in code fences.\n"

type categoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

func sortedCategories(m map[string]decimal.Decimal) []categoryAmount {
	out := make([]categoryAmount, 0, len(m))
	for k, v := range m {
		out = append(out, categoryAmount{Category: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}
