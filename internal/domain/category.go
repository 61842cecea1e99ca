package domain

import "strings"

// Category is the closed set of ledger categories.
type Category string

const (
	CategoryIncomeSalary     Category = "income_salary"
	CategoryIncomeInvestment Category = "income_investment"
	CategoryIncomeOther      Category = "income_other"
	CategoryHousing          Category = "housing"
	CategoryGroceries        Category = "groceries"
	CategoryDining           Category = "dining"
	CategoryTransportation   Category = "transportation"
	CategorySubscriptions    Category = "subscriptions"
	CategoryHealthcare       Category = "healthcare"
	CategoryInsurance        Category = "insurance"
	CategoryEducation        Category = "education"
	CategoryOther            Category = "other"
)

const incomePrefix = "income_"

var allCategories = []Category{
	CategoryIncomeSalary,
	CategoryIncomeInvestment,
	CategoryIncomeOther,
	CategoryHousing,
	CategoryGroceries,
	CategoryDining,
	CategoryTransportation,
	CategorySubscriptions,
	CategoryHealthcare,
	CategoryInsurance,
	CategoryEducation,
	CategoryOther,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is a member of the enum.
func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsIncome reports whether c is one of the income_* categories.
func (c Category) IsIncome() bool {
	return strings.HasPrefix(string(c), incomePrefix)
}

// IncomeSource strips the income_ prefix ("income_salary" -> "salary").
func (c Category) IncomeSource() string {
	return strings.TrimPrefix(string(c), incomePrefix)
}

// ParseCategory maps free text (e.g. model output) onto the enum.
// Unknown values fall back to other / income_other depending on the sign.
func ParseCategory(raw string, positive bool) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() && c.IsIncome() == positive {
		return c
	}
	if positive {
		return CategoryIncomeOther
	}
	return CategoryOther
}
