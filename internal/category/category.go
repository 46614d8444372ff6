// Package category classifies account and label names into financial
// statement sections via keyword sets.
package category

import (
	"strings"

	"github.com/mapflow/mapflow/internal/model"
)

// keywordSet pairs a category with the substrings that imply it.
type keywordSet struct {
	category model.Category
	keywords []string
}

// Priority order breaks ties when a name hits several keyword sets.
var keywordSets = []keywordSet{
	{model.CategoryRevenue, []string{"revenue", "sales", "income", "fees", "turnover"}},
	{model.CategoryExpense, []string{"expense", "cost", "depreciation", "amortization", "interest", "tax"}},
	{model.CategoryAsset, []string{"asset", "cash", "receivable", "inventory", "property", "equipment"}},
	{model.CategoryLiability, []string{"liability", "payable", "loan", "borrowing", "debt"}},
	{model.CategoryEquity, []string{"equity", "capital", "retained", "reserve", "share"}},
}

// Categorize returns the financial category for a label or account name.
// The first keyword set that matches the lowercased name wins; names that
// match nothing are Other. Pure and deterministic.
func Categorize(name string) model.Category {
	lower := strings.ToLower(name)
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.category
			}
		}
	}
	return model.CategoryOther
}

// Partition groups account names by their category.
func Partition(names []string) map[model.Category][]string {
	groups := make(map[model.Category][]string)
	for _, name := range names {
		c := Categorize(name)
		groups[c] = append(groups[c], name)
	}
	return groups
}
