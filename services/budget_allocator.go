package services

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/travel-planner-api/models"
)

// BudgetCategories is the fixed split applied to every trip budget. The
// fractions sum to exactly 1 and the order is the display order.
var BudgetCategories = []models.BudgetCategory{
	{Name: "Flights", Fraction: decimal.RequireFromString("0.40")},
	{Name: "Stay", Fraction: decimal.RequireFromString("0.30")},
	{Name: "Food & Drinks", Fraction: decimal.RequireFromString("0.15")},
	{Name: "Local Transport", Fraction: decimal.RequireFromString("0.05")},
	{Name: "Activities", Fraction: decimal.RequireFromString("0.07")},
	{Name: "Misc", Fraction: decimal.RequireFromString("0.03")},
}

// MaxBudget is the largest total whose category amounts fit in an int64.
var MaxBudget = decimal.NewFromInt(math.MaxInt64)

// ComputeBudgetBreakdown splits totalBudget across BudgetCategories.
//
// Each category total is rounded to the nearest whole unit (halves round up),
// and the per-person share is the rounded total divided by travellers, rounded
// the same way. Rows are returned in category order. The rounded totals may
// drift from totalBudget by at most len(BudgetCategories) units.
func ComputeBudgetBreakdown(totalBudget decimal.Decimal, travellers int) ([]models.CategoryRow, error) {
	if !totalBudget.IsPositive() {
		return nil, &InvalidArgumentError{Argument: "totalBudget", Reason: "must be greater than zero"}
	}
	if totalBudget.GreaterThan(MaxBudget) {
		return nil, &InvalidArgumentError{Argument: "totalBudget", Reason: "exceeds " + MaxBudget.String()}
	}
	if travellers < 1 {
		return nil, &InvalidArgumentError{Argument: "travellerCount", Reason: "must be at least 1"}
	}

	count := decimal.NewFromInt(int64(travellers))
	rows := make([]models.CategoryRow, 0, len(BudgetCategories))
	for _, cat := range BudgetCategories {
		total := totalBudget.Mul(cat.Fraction).Round(0)
		if !total.BigInt().IsInt64() {
			return nil, &InvalidArgumentError{Argument: "totalBudget", Reason: "category " + cat.Name + " overflows"}
		}
		perPerson := divRoundHalfUp(total, count)
		rows = append(rows, models.CategoryRow{
			Category:  cat.Name,
			Total:     total.IntPart(),
			PerPerson: perPerson.IntPart(),
		})
	}
	return rows, nil
}

// divRoundHalfUp divides two whole, non-negative amounts and rounds the
// quotient to the nearest whole unit without an intermediate precision step.
func divRoundHalfUp(amount, by decimal.Decimal) decimal.Decimal {
	q, r := amount.QuoRem(by, 0)
	if r.Add(r).GreaterThanOrEqual(by) {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}

// NewBudgetPlan wraps ComputeBudgetBreakdown with its inputs.
func NewBudgetPlan(totalBudget decimal.Decimal, travellers int) (*models.BudgetPlan, error) {
	rows, err := ComputeBudgetBreakdown(totalBudget, travellers)
	if err != nil {
		return nil, err
	}
	return &models.BudgetPlan{
		TotalBudget: totalBudget,
		Travellers:  travellers,
		Categories:  rows,
	}, nil
}
