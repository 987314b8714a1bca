package models

import "github.com/shopspring/decimal"

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// GroupID is the group this settlement belongs to.
	GroupID string `json:"group_id"`

	// FromUserID is the user who paid (debtor settling up).
	FromUserID string `json:"from_user_id"`

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID string `json:"to_user_id"`

	// Amount is the payment amount.
	Amount decimal.Decimal `json:"amount"`

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64 `json:"created_at"`

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string `json:"created_by"`

	// Note is an optional description for the settlement.
	Note string `json:"note,omitempty"`
}
