// Package classify assigns ledger categories from transaction descriptions
// using ordered keyword rules.
package classify

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rule maps a set of description keywords to a category.
type Rule struct {
	Category domain.Category `yaml:"category"`
	Keywords []string        `yaml:"keywords"`
}

// Rules holds the ordered rule lists for inflows and outflows.
type Rules struct {
	Income  []Rule `yaml:"income"`
	Expense []Rule `yaml:"expense"`
}

// ParseRules decodes and validates a YAML rule document.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("ParseRules: decoding yaml: %w", err)
	}
	for _, r := range rules.Income {
		if !r.Category.Valid() || !r.Category.IsIncome() {
			return nil, fmt.Errorf("ParseRules: %q is not an income category", r.Category)
		}
	}
	for _, r := range rules.Expense {
		if !r.Category.Valid() || r.Category.IsIncome() {
			return nil, fmt.Errorf("ParseRules: %q is not an expense category", r.Category)
		}
	}
	for _, list := range [][]Rule{rules.Income, rules.Expense} {
		for i := range list {
			for j, kw := range list[i].Keywords {
				list[i].Keywords[j] = strings.ToLower(kw)
			}
		}
	}
	return &rules, nil
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
)

// Default returns the embedded rule set.
func Default() *Rules {
	defaultOnce.Do(func() {
		rules, err := ParseRules(embeddedRules)
		if err != nil {
			panic(fmt.Sprintf("classify: embedded rules are invalid: %v", err))
		}
		defaultRules = rules
	})
	return defaultRules
}

// Classify maps a description and signed amount to a category with the
// embedded rules.
func Classify(description string, amount decimal.Decimal) domain.Category {
	return Default().Classify(description, amount)
}

// Classify is pure: the first matching rule in the list for the amount's sign
// wins, falling back to income_other or other.
func (r *Rules) Classify(description string, amount decimal.Decimal) domain.Category {
	desc := strings.ToLower(description)

	if amount.IsPositive() {
		if c, ok := firstMatch(r.Income, desc); ok {
			return c
		}
		return domain.CategoryIncomeOther
	}

	if c, ok := firstMatch(r.Expense, desc); ok {
		return c
	}
	return domain.CategoryOther
}

func firstMatch(rules []Rule, desc string) (domain.Category, bool) {
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Category, true
			}
		}
	}
	return "", false
}
