package models

// Notification types.
const (
	NotifGroupInvitation    = "group_invitation"
	NotifInvitationAccepted = "invitation_accepted"
	NotifInvitationDeclined = "invitation_declined"
	NotifGroupExpense       = "group_expense"
	NotifSettlement         = "settlement"
	NotifMemberRemoved      = "member_removed"
	NotifGroupDeleted       = "group_deleted"
	NotifRecurringExpense   = "recurring_expense_created"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`

	// RefID points at the entity the notification is about (an invitation,
	// expense, settlement...).
	RefID string `json:"ref_id,omitempty"`

	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt int64          `json:"created_at"`
}
