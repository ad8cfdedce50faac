package models

import "github.com/shopspring/decimal"

// BudgetCategory is a fixed spending category and its share of the total budget.
type BudgetCategory struct {
	Name     string
	Fraction decimal.Decimal
}

// CategoryRow is one allocation line: Category | Total | Per Person.
type CategoryRow struct {
	Category  string `json:"category"`
	Total     int64  `json:"total"`
	PerPerson int64  `json:"per_person"`
}

// BudgetPlan is derived on every request and never stored.
type BudgetPlan struct {
	TotalBudget decimal.Decimal `json:"total_budget"`
	Travellers  int             `json:"travellers"`
	Categories  []CategoryRow   `json:"categories"`
}

// BudgetBreakdownRequest only carries what the allocator needs; bounds are
// checked by the allocator itself.
type BudgetBreakdownRequest struct {
	Budget     decimal.Decimal `json:"budget"`
	Travellers int             `json:"travellers"`
}
