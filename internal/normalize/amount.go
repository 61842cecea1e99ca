// Package normalize turns heterogeneous statement cells into canonical
// decimal amounts and calendar dates.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// Trailing CR/DR markers, with or without a separating space ("500.00CR", "500.00 dr.").
	creditDebitMarker = regexp.MustCompile(`(?i)(?:^|[^A-Z])(CR|DR)\.?\s*$`)

	currencySymbols = regexp.MustCompile(`\p{Sc}`)
	currencyCode    = regexp.MustCompile(`^[A-Z]{3}|[A-Z]{3}$`)
)

// ParseAmount parses a single amount cell. Strings may carry currency symbols,
// thousands separators, parentheses, leading/trailing minus signs and trailing
// CR/DR markers. A CR marker forces a positive value and wins over parentheses.
func ParseAmount(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, v)
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return ParseAmount(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return parseAmountString(v)
	case nil:
		return decimal.Zero, fmt.Errorf("%w: empty", domain.ErrInvalidAmount)
	default:
		return parseAmountString(fmt.Sprint(v))
	}
}

func parseAmountString(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", domain.ErrInvalidAmount)
	}

	var forceCredit, forceDebit bool
	if m := creditDebitMarker.FindStringSubmatchIndex(s); m != nil {
		marker := strings.ToUpper(s[m[2]:m[3]])
		forceCredit = marker == "CR"
		forceDebit = marker == "DR"
		s = strings.TrimSpace(s[:m[2]])
	}

	negative := strings.Contains(s, "(") && strings.Contains(s, ")")

	s = currencySymbols.ReplaceAllString(s, "")
	s = strings.NewReplacer(",", "", "(", "", ")", "", " ", "", "\t", "", "\u00a0", "").Replace(s)
	s = currencyCode.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		negative = true
		s = strings.Trim(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, raw)
	}
	value = value.Abs()

	switch {
	case forceCredit:
		negative = false
	case forceDebit:
		negative = true
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// LooksLikeAmount reports whether a cell would parse as a non-zero amount.
func LooksLikeAmount(raw any) bool {
	if s, ok := raw.(string); ok && !strings.ContainsAny(s, "0123456789") {
		return false
	}
	v, err := ParseAmount(raw)
	return err == nil && !v.IsZero()
}
