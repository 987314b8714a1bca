package models

import "github.com/shopspring/decimal"

// Group roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group is a named collection of users sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string `json:"name"`

	Description string `json:"description"`

	// CreatedBy is the user ID of the group's creator (its first owner).
	CreatedBy string `json:"created_by"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// GroupMember is one user's membership in a group. DisplayName and Email are
// filled in from the member's profile when listing.
type GroupMember struct {
	GroupID     string `json:"group_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	JoinedAt    int64  `json:"joined_at"`
}

// GroupSummary is a group as seen from one member's group list.
type GroupSummary struct {
	Group
	Role        string          `json:"role"`
	MemberCount int             `json:"member_count"`
	NetBalance  decimal.Decimal `json:"net_balance"`
}

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation asks a registered user to join a group.
type Invitation struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name,omitempty"`
	InviterID   string `json:"inviter_id"`
	InviterName string `json:"inviter_name,omitempty"`
	InviteeID   string `json:"invitee_id"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	RespondedAt int64  `json:"responded_at,omitempty"`
}
