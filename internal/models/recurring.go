package models

import "github.com/shopspring/decimal"

// RecurringExpense produces a personal expense every Interval units of
// Frequency, starting at StartDate.
type RecurringExpense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Frequency   string          `json:"frequency"`
	Interval    int             `json:"interval"`
	StartDate   string          `json:"start_date"`

	// EndDate is empty for open-ended rules.
	EndDate string `json:"end_date,omitempty"`

	// NextDue is the next date an expense will be created for.
	NextDue string `json:"next_due"`
	Active  bool   `json:"active"`

	CreatedAt int64 `json:"created_at"`
}
