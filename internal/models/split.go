package models

import "github.com/shopspring/decimal"

// ExpenseSplit is one member's share of a group expense.
type ExpenseSplit struct {
	ExpenseID   string          `json:"expense_id"`
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// SplitTotal sums the split amounts.
func SplitTotal(splits []ExpenseSplit) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.Amount)
	}
	return total
}
