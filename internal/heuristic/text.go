package heuristic

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dvloznov/statement-ledger/internal/classify"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*`

var (
	dateToken = regexp.MustCompile(`(?i)\b(?:` +
		`\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}[/.\-]\d{1,2}[/.\-](?:\d{4}|\d{2})` +
		`|\d{1,2}[ \-]` + monthNames + `[ \-](?:\d{4}|\d{2})` +
		`|` + monthNames + ` \d{1,2},? \d{4}` +
		`)\b`)

	amountField  = regexp.MustCompile(`^\(?[-+]?[$€£¥]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?\)?-?$`)
	bareFragment = regexp.MustCompile(`^(?:\d{1,2}|\d{4})$`)
	markerField  = regexp.MustCompile(`(?i)^(?:CR|DR)\.?$`)

	boilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:opening|closing|previous|new|beginning|ending|available|starting|current|statement)?\s*balance\b`),
		regexp.MustCompile(`(?i)\bbalance\s+(?:brought|carried)\s+forward\b`),
		regexp.MustCompile(`(?i)\b(?:brought|carried)\s+forward\b`),
		regexp.MustCompile(`(?i)^(?:sub\s*)?totals?\b`),
		regexp.MustCompile(`(?i)^total\s+(?:debits|credits|deposits|withdrawals|payments|charges|fees|interest)\b`),
		regexp.MustCompile(`(?i)^page\s*\d+`),
		regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`),
		regexp.MustCompile(`(?i)^date\b.*\b(?:description|details|amount|balance)\b`),
		regexp.MustCompile(`(?i)^(?:description|details|transaction)s?\b.*\b(?:amount|debit|credit)\b`),
		regexp.MustCompile(`(?i)^statement\s+(?:period|date|summary)\b`),
		regexp.MustCompile(`(?i)^(?:account|sort\s+code|iban)\s+(?:number|no)\b`),
	}
)

const minDescriptionLen = 3

// NormalizeLines strips non-breaking spaces, collapses whitespace and drops
// empty lines.
func NormalizeLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(strings.ReplaceAll(line, "\u00a0", " ")), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// hasDate reports whether the text carries a date token that resolves to a real day.
func hasDate(text string) bool {
	_, ok := findDate(text)
	return ok
}

func findDate(text string) (string, bool) {
	for _, tok := range dateToken.FindAllString(text, -1) {
		if _, err := normalize.NormalizeDate(tok); err == nil {
			return tok, true
		}
	}
	return "", false
}

type amountToken struct {
	text  string
	index int // field index of the number
	span  int // fields consumed, 2 when a CR/DR marker follows
}

func amountTokens(fields []string) []amountToken {
	var tokens []amountToken
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !amountField.MatchString(f) || bareFragment.MatchString(f) {
			continue
		}
		tok := amountToken{text: f, index: i, span: 1}
		if i+1 < len(fields) && markerField.MatchString(fields[i+1]) {
			tok.text += " " + fields[i+1]
			tok.span = 2
			i++
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// BuildFromText turns one line or block of statement text into a transaction.
// It takes the first resolvable date token, then the last amount token, or
// the second-to-last when the text mentions "balance" and at least two amount
// tokens are present. What remains after removing date and amount tokens is
// the description.
func BuildFromText(text string) (domain.Transaction, bool) {
	dateText, ok := findDate(text)
	if !ok {
		return domain.Transaction{}, false
	}
	date, err := normalize.NormalizeDate(dateText)
	if err != nil {
		return domain.Transaction{}, false
	}

	fields := strings.Fields(dateToken.ReplaceAllString(text, " "))
	tokens := amountTokens(fields)
	if len(tokens) == 0 {
		return domain.Transaction{}, false
	}

	pick := tokens[len(tokens)-1]
	if len(tokens) >= 2 && strings.Contains(strings.ToLower(text), "balance") {
		pick = tokens[len(tokens)-2]
	}
	amount, err := normalize.ParseAmount(pick.text)
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}

	skip := make(map[int]bool, len(tokens)*2)
	for _, tok := range tokens {
		for k := 0; k < tok.span; k++ {
			skip[tok.index+k] = true
		}
	}
	var words []string
	for i, f := range fields {
		if !skip[i] {
			words = append(words, f)
		}
	}
	description := strings.Trim(strings.Join(words, " "), " -|:*")
	if !acceptableDescription(description) {
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    classify.Classify(description, amount),
	}, true
}

func acceptableDescription(desc string) bool {
	if len(desc) < minDescriptionLen {
		return false
	}
	if strings.IndexFunc(desc, unicode.IsLetter) < 0 {
		return false
	}
	return !isBoilerplate(desc)
}

func isBoilerplate(desc string) bool {
	for _, re := range boilerplate {
		if re.MatchString(desc) {
			return true
		}
	}
	return false
}
