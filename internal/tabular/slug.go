package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases a header cell, folds accents and replaces runs of
// non-alphanumeric characters with "_" ("Débit (EUR)" -> "debit_eur").
func Slugify(header string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, header)
	if err != nil {
		folded = header
	}
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(folded), "_")
	return strings.Trim(slug, "_")
}

// matchesAlias reports whether a slugified header names the alias, allowing a
// qualifier suffix ("amount_usd" matches "amount").
func matchesAlias(slug, alias string) bool {
	return slug == alias || strings.HasPrefix(slug, alias+"_")
}

func matchesAny(slug string, aliases []string) bool {
	for _, alias := range aliases {
		if matchesAlias(slug, alias) {
			return true
		}
	}
	return false
}

// CellString renders a cell value as trimmed text.
func CellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func isBlank(cell any) bool {
	return CellString(cell) == ""
}
