package model

// Category is the financial statement section a label or account belongs to.
type Category string

// Financial category constants, in matching priority order.
const (
	CategoryRevenue   Category = "REVENUE"
	CategoryExpense   Category = "EXPENSE"
	CategoryAsset     Category = "ASSET"
	CategoryLiability Category = "LIABILITY"
	CategoryEquity    Category = "EQUITY"
	CategoryOther     Category = "OTHER"
)

// Title returns a display form of the category ("Revenue", "Other", ...).
func (c Category) Title() string {
	switch c {
	case CategoryRevenue:
		return "Revenue"
	case CategoryExpense:
		return "Expense"
	case CategoryAsset:
		return "Asset"
	case CategoryLiability:
		return "Liability"
	case CategoryEquity:
		return "Equity"
	default:
		return "Other"
	}
}
