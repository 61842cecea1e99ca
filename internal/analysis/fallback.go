package analysis

import (
	"fmt"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	hundred           = decimal.NewFromInt(100)
	targetSavingsRate = decimal.NewFromInt(20)
	reductionFactor   = decimal.RequireFromString("0.9")
	emergencyMonths   = decimal.NewFromInt(3)
)

// essential categories are never suggested for cuts.
var essential = map[string]bool{
	string(domain.CategoryHousing):    true,
	string(domain.CategoryHealthcare): true,
	string(domain.CategoryInsurance):  true,
	string(domain.CategoryEducation):  true,
}

// FallbackInsights derives insights from the summary alone.
func FallbackInsights(s *domain.MonthlySummary) []Insight {
	var out []Insight
	month := s.Month.String()

	net := s.NetFlow()
	switch {
	case s.TotalIncome.IsZero() && s.TotalExpenses.IsZero():
		return []Insight{{Title: "No activity", Detail: "No transactions were recorded for " + month + ".", Severity: "info"}}
	case s.TotalIncome.IsZero():
		out = append(out, Insight{
			Title:    "No income recorded",
			Detail:   fmt.Sprintf("Spent %s with no recorded income in %s.", s.TotalExpenses.StringFixed(2), month),
			Severity: "warning",
		})
	case net.IsNegative():
		out = append(out, Insight{
			Title:    "Spending exceeded income",
			Detail:   fmt.Sprintf("Expenses were %s higher than income.", net.Abs().StringFixed(2)),
			Severity: "warning",
		})
	default:
		rate := net.Div(s.TotalIncome).Mul(hundred).Round(1)
		sev := "positive"
		if rate.LessThan(targetSavingsRate) {
			sev = "info"
		}
		out = append(out, Insight{
			Title:    "Savings rate",
			Detail:   fmt.Sprintf("You kept %s%% of income (%s).", rate.String(), net.StringFixed(2)),
			Severity: sev,
		})
	}

	if cats := sortedCategories(s.ExpensesByCategory); len(cats) > 0 && s.TotalExpenses.IsPositive() {
		top := cats[0]
		share := top.Amount.Div(s.TotalExpenses).Mul(hundred).Round(0)
		out = append(out, Insight{
			Title:    "Largest category: " + top.Category,
			Detail:   fmt.Sprintf("%s accounted for %s%% of spending (%s).", top.Category, share.String(), top.Amount.StringFixed(2)),
			Severity: "info",
		})
	}

	if len(s.TopMerchants) > 0 {
		m := s.TopMerchants[0]
		out = append(out, Insight{
			Title:    "Top merchant: " + m.Name,
			Detail:   fmt.Sprintf("%d transactions totalling %s.", m.Count, m.Amount.StringFixed(2)),
			Severity: "info",
		})
	}
	return out
}

// FallbackGoals suggests an emergency fund, a savings rate target and a cut
// to the largest discretionary category, averaged over the given months.
func FallbackGoals(months []*domain.MonthlySummary) []Goal {
	if len(months) == 0 {
		return nil
	}
	n := decimal.NewFromInt(int64(len(months)))
	income, expenses := decimal.Zero, decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, s := range months {
		income = income.Add(s.TotalIncome)
		expenses = expenses.Add(s.TotalExpenses)
		for k, v := range s.ExpensesByCategory {
			byCategory[k] = byCategory[k].Add(v)
		}
	}
	avgIncome := income.Div(n)
	avgExpenses := expenses.Div(n)

	var goals []Goal
	if avgExpenses.IsPositive() {
		goals = append(goals, Goal{
			Title:        "Build an emergency fund",
			TargetAmount: avgExpenses.Mul(emergencyMonths).Round(2),
			Rationale:    "Three months of average expenses.",
		})
	}
	if avgIncome.IsPositive() {
		goals = append(goals, Goal{
			Title:        "Save 20% of income",
			TargetAmount: avgIncome.Mul(targetSavingsRate).Div(hundred).Round(2),
			Rationale:    fmt.Sprintf("Average monthly income is %s.", avgIncome.StringFixed(2)),
		})
	}
	for _, c := range sortedCategories(byCategory) {
		if essential[c.Category] {
			continue
		}
		avg := c.Amount.Div(n)
		goals = append(goals, Goal{
			Title:        "Trim " + c.Category + " by 10%",
			Category:     c.Category,
			TargetAmount: avg.Mul(reductionFactor).Round(2),
			Rationale:    fmt.Sprintf("Average monthly %s spending is %s.", c.Category, avg.StringFixed(2)),
		})
		break
	}
	return goals
}
