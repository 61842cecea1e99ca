// Package aggregate builds monthly summaries and merges a document's
// transactions into an already persisted month.
package aggregate

import (
	"sort"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// DisplayTopMerchants bounds the per-file summary.
	DisplayTopMerchants = 5
	// PersistedTopMerchants bounds summaries recomputed at merge time.
	PersistedTopMerchants = 10

	merchantKeyLen = 50
)

// GroupByMonth buckets transactions by calendar month and summarizes each
// bucket, keeping at most topN merchants.
func GroupByMonth(txs []domain.Transaction, topN int) map[civil.Date]*domain.MonthlySummary {
	buckets := make(map[civil.Date][]domain.Transaction)
	for _, tx := range txs {
		m := domain.MonthOf(tx.Date)
		buckets[m] = append(buckets[m], tx)
	}

	out := make(map[civil.Date]*domain.MonthlySummary, len(buckets))
	for month, list := range buckets {
		out[month] = summarize("", month, list, topN)
	}
	return out
}

// Months returns the keys of a GroupByMonth result in ascending order.
func Months(groups map[civil.Date]*domain.MonthlySummary) []civil.Date {
	months := make([]civil.Date, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// MergeMonth removes every existing transaction tagged with documentID, tags
// the incoming transactions with it and returns the union sorted by date.
// Reapplying the same incoming set yields the same result.
func MergeMonth(existing, incoming []domain.Transaction, documentID string) []domain.Transaction {
	merged := make([]domain.Transaction, 0, len(existing)+len(incoming))
	for _, tx := range existing {
		if tx.SourceDocumentID != documentID {
			merged = append(merged, tx)
		}
	}
	for _, tx := range incoming {
		tx.SourceDocumentID = documentID
		merged = append(merged, tx)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// RemoveDocument drops a document's contribution from a month.
func RemoveDocument(existing []domain.Transaction, documentID string) []domain.Transaction {
	return MergeMonth(existing, nil, documentID)
}

// Recompute rebuilds every summary field from the merged transactions.
func Recompute(userID string, month civil.Date, merged []domain.Transaction) *domain.MonthlySummary {
	return summarize(userID, month, merged, PersistedTopMerchants)
}

func summarize(userID string, month civil.Date, txs []domain.Transaction, topN int) *domain.MonthlySummary {
	s := &domain.MonthlySummary{
		UserID:             userID,
		Month:              month,
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		IncomeBySource:     make(map[string]decimal.Decimal),
		ExpensesByCategory: make(map[string]decimal.Decimal),
		AllTransactions:    make([]domain.Transaction, len(txs)),
	}
	copy(s.AllTransactions, txs)

	merchants := make(map[string]*domain.MerchantTotal)
	var order []string
	for _, tx := range txs {
		switch {
		case tx.IsIncome():
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			s.IncomeCount++
			src := tx.Category.IncomeSource()
			s.IncomeBySource[src] = s.IncomeBySource[src].Add(tx.Amount)
		case tx.IsExpense():
			abs := tx.Amount.Abs()
			s.TotalExpenses = s.TotalExpenses.Add(abs)
			s.ExpenseCount++
			cat := string(tx.Category)
			s.ExpensesByCategory[cat] = s.ExpensesByCategory[cat].Add(abs)

			key := merchantKey(tx.Description)
			m, ok := merchants[key]
			if !ok {
				m = &domain.MerchantTotal{Name: key, Amount: decimal.Zero}
				merchants[key] = m
				order = append(order, key)
			}
			m.Amount = m.Amount.Add(abs)
			m.Count++
		}
	}

	s.TotalIncome = s.TotalIncome.Round(2)
	s.TotalExpenses = s.TotalExpenses.Round(2)
	for k, v := range s.IncomeBySource {
		s.IncomeBySource[k] = v.Round(2)
	}
	for k, v := range s.ExpensesByCategory {
		s.ExpensesByCategory[k] = v.Round(2)
	}
	s.TopMerchants = topMerchants(merchants, order, topN)
	return s
}

// topMerchants sorts by amount descending; ties keep first-seen order.
func topMerchants(merchants map[string]*domain.MerchantTotal, order []string, n int) []domain.MerchantTotal {
	list := make([]domain.MerchantTotal, 0, len(order))
	for _, key := range order {
		m := *merchants[key]
		m.Amount = m.Amount.Round(2)
		list = append(list, m)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Amount.GreaterThan(list[j].Amount) })
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

func merchantKey(desc string) string {
	if utf8.RuneCountInString(desc) <= merchantKeyLen {
		return desc
	}
	return string([]rune(desc)[:merchantKeyLen])
}
