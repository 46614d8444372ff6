package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mapflow/mapflow/internal/model"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  model.Category
	}{
		{"revenue keyword", "Trade Sales", model.CategoryRevenue},
		{"income is revenue", "Interest Income", model.CategoryRevenue},
		{"expense keyword", "Operating Expenses", model.CategoryExpense},
		{"depreciation is expense", "Depreciation of Equipment", model.CategoryExpense},
		{"asset keyword", "Accounts Receivable", model.CategoryAsset},
		{"cash is asset", "Cash at Bank", model.CategoryAsset},
		{"liability keyword", "Trade Payables", model.CategoryLiability},
		{"loan is liability", "Bank Loan", model.CategoryLiability},
		{"equity keyword", "Retained Earnings", model.CategoryEquity},
		{"share capital is equity", "Share Premium", model.CategoryEquity},
		{"no keyword is other", "Miscellaneous", model.CategoryOther},
		{"empty is other", "", model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.input))
		})
	}
}

func TestCategorizePriorityOrder(t *testing.T) {
	// "Sales Tax Payable" hits revenue ("sales"), expense ("tax"), and
	// liability ("payable"); the first set in priority order wins.
	assert.Equal(t, model.CategoryRevenue, Categorize("Sales Tax Payable"))
	// "Interest Expense" hits expense via both keywords.
	assert.Equal(t, model.CategoryExpense, Categorize("Interest Expense"))
}

func TestCategorizeDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, Categorize("Property Plant and Equipment"), Categorize("Property Plant and Equipment"))
	}
}

func TestPartition(t *testing.T) {
	names := []string{
		"Trade Sales",
		"Operating Expenses",
		"Cash at Bank",
		"Accounts Receivable",
		"Bank Loan",
		"Miscellaneous",
	}

	groups := Partition(names)

	assert.Equal(t, []string{"Trade Sales"}, groups[model.CategoryRevenue])
	assert.Equal(t, []string{"Operating Expenses"}, groups[model.CategoryExpense])
	assert.Equal(t, []string{"Cash at Bank", "Accounts Receivable"}, groups[model.CategoryAsset])
	assert.Equal(t, []string{"Bank Loan"}, groups[model.CategoryLiability])
	assert.Equal(t, []string{"Miscellaneous"}, groups[model.CategoryOther])
	assert.Empty(t, groups[model.CategoryEquity])
}

func TestPartitionPreservesOrder(t *testing.T) {
	names := []string{"Cash", "Inventory", "Equipment"}
	groups := Partition(names)
	assert.Equal(t, names, groups[model.CategoryAsset])
}
