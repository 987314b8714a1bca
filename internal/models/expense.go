package models

import "github.com/shopspring/decimal"

// Expense is money spent by one user, either personally or on behalf of a
// group. Group expenses carry splits that sum to Amount.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// UserID is the creator; for group expenses it is the payer.
	UserID string `json:"user_id"`

	// PaidByName is filled in from the payer's profile when listing.
	PaidByName string `json:"paid_by_name,omitempty"`

	// GroupID is empty for personal expenses.
	GroupID   string `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`

	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`

	// Date is the calendar day the money was spent (DateLayout).
	Date  string `json:"date"`
	Notes string `json:"notes,omitempty"`

	// RecurringID links expenses generated by a recurring rule.
	RecurringID string `json:"recurring_id,omitempty"`

	Splits []ExpenseSplit `json:"splits,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// IsGroup reports whether the expense belongs to a group.
func (e *Expense) IsGroup() bool {
	return e.GroupID != ""
}

// ShareOf returns the part of the expense that userID is responsible for:
// the whole amount of their personal expense, or their split of a group one.
func (e *Expense) ShareOf(userID string) decimal.Decimal {
	if !e.IsGroup() {
		if e.UserID == userID {
			return e.Amount
		}
		return decimal.Zero
	}
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s.Amount
		}
	}
	return decimal.Zero
}

// Expense visibility scopes for listing.
const (
	ScopeAll      = "all"
	ScopePersonal = "personal"
	ScopeGroup    = "group"
)

// ExpenseFilter narrows an expense listing. Start and End are inclusive
// calendar dates and may be empty.
type ExpenseFilter struct {
	UserID   string
	Scope    string
	Category string
	Start    string
	End      string
	Limit    int
	Offset   int
}

// CategoryTotal is the sum of a user's shares in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}
